package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/bidcycle/bidcycle/internal/auction"
	"github.com/bidcycle/bidcycle/internal/auth"
	"github.com/bidcycle/bidcycle/internal/db"
	"github.com/bidcycle/bidcycle/internal/model"
	"github.com/bidcycle/bidcycle/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, *auction.Engine) {
	t.Helper()
	database := db.NewTestDB(t)
	engine := auction.NewEngine(database, nil, nil)
	router := NewRouter(database, engine, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	t.Cleanup(engine.Wait)
	return server, database, engine
}

// registerUser registers a user through the API and returns their token.
func registerUser(t *testing.T, server *httptest.Server, name, email, role string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": "password",
		"role":     role,
	})
	resp, err := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}

	var reg authResponse
	json.NewDecoder(resp.Body).Decode(&reg)
	if reg.Token == "" {
		t.Fatal("empty token from register")
	}
	return reg.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// createListing creates an item through the seller API and returns its ID.
func createListing(t *testing.T, server *httptest.Server, token, title string) string {
	t.Helper()
	req, _ := authRequest("POST", server.URL+"/api/seller/items", token, map[string]any{
		"title":            title,
		"description":      "test listing",
		"category":         "Electronics",
		"base_price":       "100",
		"auction_duration": 24,
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create item request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item failed: %d", resp.StatusCode)
	}

	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	if item.ID == "" {
		t.Fatal("empty item id")
	}
	return item.ID
}

func TestRegisterAndLogin(t *testing.T) {
	server, _, _ := setupTestServer(t)

	registerUser(t, server, "Alice", "alice@example.com", model.RoleBuyer)

	// Duplicate email is rejected.
	body, _ := json.Marshal(map[string]string{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": "password",
	})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong password.
	body, _ = json.Marshal(map[string]string{"email": "alice@example.com", "password": "wrong"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Correct credentials.
	body, _ = json.Marshal(map[string]string{"email": "alice@example.com", "password": "password"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for login, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSellerItemFlow(t *testing.T) {
	server, _, _ := setupTestServer(t)
	sellerToken := registerUser(t, server, "Seller", "seller@example.com", model.RoleSeller)

	itemID := createListing(t, server, sellerToken, "Vintage Camera")

	// Public listing shows the item without authentication.
	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 listing items, got %d", resp.StatusCode)
	}
	var listing struct {
		Items []model.Item `json:"items"`
	}
	json.NewDecoder(resp.Body).Decode(&listing)
	resp.Body.Close()
	if len(listing.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(listing.Items))
	}
	if listing.Items[0].Status != model.ItemStatusActive {
		t.Errorf("expected active item, got %q", listing.Items[0].Status)
	}

	// Update before any bids.
	req, _ := authRequest("PUT", server.URL+"/api/seller/items/"+itemID, sellerToken, map[string]any{
		"title": "Vintage Camera (mint)",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 updating item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete before any bids.
	req, _ = authRequest("DELETE", server.URL+"/api/seller/items/"+itemID, sellerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 deleting item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/items/" + itemID)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBidFlow(t *testing.T) {
	server, _, _ := setupTestServer(t)
	sellerToken := registerUser(t, server, "Seller", "seller@example.com", model.RoleSeller)
	buyerToken := registerUser(t, server, "Buyer", "buyer@example.com", model.RoleBuyer)

	itemID := createListing(t, server, sellerToken, "Mechanical Keyboard")

	// Bid must exceed the base price.
	req, _ := authRequest("POST", server.URL+"/api/items/"+itemID+"/bids", buyerToken, map[string]any{
		"amount": "100",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for too-low bid, got %d", resp.StatusCode)
	}
	var errResp map[string]string
	json.NewDecoder(resp.Body).Decode(&errResp)
	resp.Body.Close()
	if errResp["error"] != "Bid must be higher than $100." {
		t.Errorf("unexpected rejection message: %q", errResp["error"])
	}

	// Sellers cannot bid on their own items.
	req, _ = authRequest("POST", server.URL+"/api/items/"+itemID+"/bids", sellerToken, map[string]any{
		"amount": "150",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for self-bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Valid bid.
	req, _ = authRequest("POST", server.URL+"/api/items/"+itemID+"/bids", buyerToken, map[string]any{
		"amount": "150",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for valid bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Highest bidder cannot raise their own bid.
	req, _ = authRequest("POST", server.URL+"/api/items/"+itemID+"/bids", buyerToken, map[string]any{
		"amount": "200",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for consecutive bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The item now carries the new price.
	resp, _ = http.Get(server.URL + "/api/items/" + itemID)
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()
	if item.CurrentBid.String() != "150" {
		t.Errorf("expected current bid 150, got %s", item.CurrentBid)
	}

	// Item with bids can no longer be edited or deleted by its seller.
	req, _ = authRequest("PUT", server.URL+"/api/seller/items/"+itemID, sellerToken, map[string]any{
		"title": "Edited",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 editing item with bids, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("DELETE", server.URL+"/api/seller/items/"+itemID, sellerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 deleting item with bids, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// My bids.
	req, _ = authRequest("GET", server.URL+"/api/bids", buyerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	var bids []model.Bid
	json.NewDecoder(resp.Body).Decode(&bids)
	resp.Body.Close()
	if len(bids) != 1 {
		t.Errorf("expected 1 bid, got %d", len(bids))
	}
}

func TestUnauthenticatedBid(t *testing.T) {
	server, _, _ := setupTestServer(t)
	sellerToken := registerUser(t, server, "Seller", "seller@example.com", model.RoleSeller)
	itemID := createListing(t, server, sellerToken, "Lamp")

	body, _ := json.Marshal(map[string]any{"amount": "150"})
	resp, _ := http.Post(server.URL+"/api/items/"+itemID+"/bids", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, _, _ := setupTestServer(t)
	buyerToken := registerUser(t, server, "Buyer", "buyer@example.com", model.RoleBuyer)

	// Buyers cannot create listings.
	req, _ := authRequest("POST", server.URL+"/api/seller/items", buyerToken, map[string]any{
		"title":            "Nope",
		"description":      "nope",
		"category":         "Misc",
		"base_price":       "10",
		"auction_duration": 1,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for buyer creating listing, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Buyers cannot access moderation endpoints.
	req, _ = authRequest("GET", server.URL+"/api/admin/users", buyerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for buyer accessing admin users, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Registration cannot grant the admin role.
	body, _ := json.Marshal(map[string]string{
		"name":     "Mallory",
		"email":    "mallory@example.com",
		"password": "password",
		"role":     model.RoleAdmin,
	})
	resp, _ = http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 registering as admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminModerationFlow(t *testing.T) {
	server, database, _ := setupTestServer(t)
	sellerToken := registerUser(t, server, "Seller", "seller@example.com", model.RoleSeller)
	buyerToken := registerUser(t, server, "Buyer", "buyer@example.com", model.RoleBuyer)

	itemID := createListing(t, server, sellerToken, "Turntable")
	req, _ := authRequest("POST", server.URL+"/api/items/"+itemID+"/bids", buyerToken, map[string]any{
		"amount": "150",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Seed an admin directly; registration never grants the role.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	admin, err := store.CreateUser(ctx, database, "Admin", "admin@example.com", string(hash), model.RoleAdmin)
	if err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	adminToken, _ := auth.GenerateToken(testJWTSecret, admin.ID, admin.Email, admin.Role)

	// User listing with pagination envelope.
	req, _ = authRequest("GET", server.URL+"/api/admin/users", adminToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 listing users, got %d", resp.StatusCode)
	}
	var userList struct {
		Users      []model.User `json:"users"`
		Pagination pagination   `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&userList)
	resp.Body.Close()
	if len(userList.Users) != 3 {
		t.Errorf("expected 3 users, got %d", len(userList.Users))
	}

	// Deleting the bid reverts the item to its base price.
	req, _ = authRequest("GET", server.URL+"/api/admin/bids?item="+itemID, adminToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	var bidList struct {
		Bids []model.Bid `json:"bids"`
	}
	json.NewDecoder(resp.Body).Decode(&bidList)
	resp.Body.Close()
	if len(bidList.Bids) != 1 {
		t.Fatalf("expected 1 bid, got %d", len(bidList.Bids))
	}

	req, _ = authRequest("DELETE", server.URL+"/api/admin/bids/"+bidList.Bids[0].ID, adminToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 deleting bid, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/items/" + itemID)
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()
	if item.CurrentBid.String() != "100" {
		t.Errorf("expected price reverted to 100, got %s", item.CurrentBid)
	}

	// Banning the seller removes their listings.
	seller, _ := store.GetUserByEmail(ctx, database, "seller@example.com")
	req, _ = authRequest("PUT", server.URL+"/api/admin/users/"+seller.ID+"/ban", adminToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 banning seller, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(server.URL + "/api/items/" + itemID)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for banned seller's item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Banned users cannot log in.
	body, _ := json.Marshal(map[string]string{"email": "seller@example.com", "password": "password"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for banned login, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Toggling again unbans.
	req, _ = authRequest("PUT", server.URL+"/api/admin/users/"+seller.ID+"/ban", adminToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 unbanning seller, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	seller, _ = store.GetUser(ctx, database, seller.ID)
	if seller.IsBanned {
		t.Error("expected seller unbanned")
	}
}
