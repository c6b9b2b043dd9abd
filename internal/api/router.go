package api

import (
	"database/sql"
	"net/http"

	"github.com/bidcycle/bidcycle/internal/auction"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, engine *auction.Engine, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	itemsHandler := &ItemsHandler{DB: db, Engine: engine}
	bidsHandler := &BidsHandler{DB: db, Engine: engine}
	sellerHandler := &SellerHandler{DB: db, Engine: engine}
	adminHandler := &AdminHandler{DB: db, Engine: engine}

	authMW := AuthMiddleware(jwtSecret, db)

	// Public: registration, login, and browsing.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/bids", itemsHandler.Bids)

	// Account.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/profile", authMW(http.HandlerFunc(authHandler.UpdateProfile)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Bidding (any authenticated user).
	mux.Handle("POST /api/items/{id}/bids", authMW(http.HandlerFunc(itemsHandler.PlaceBid)))
	mux.Handle("GET /api/bids", authMW(http.HandlerFunc(bidsHandler.Mine)))
	mux.Handle("GET /api/bids/active", authMW(http.HandlerFunc(bidsHandler.Active)))
	mux.Handle("GET /api/bids/won", authMW(http.HandlerFunc(bidsHandler.Won)))

	// Seller listing management (seller or admin).
	mux.Handle("POST /api/seller/items", authMW(RequireSeller(http.HandlerFunc(sellerHandler.Create))))
	mux.Handle("GET /api/seller/items", authMW(RequireSeller(http.HandlerFunc(sellerHandler.List))))
	mux.Handle("PUT /api/seller/items/{id}", authMW(RequireSeller(http.HandlerFunc(sellerHandler.Update))))
	mux.Handle("DELETE /api/seller/items/{id}", authMW(RequireSeller(http.HandlerFunc(sellerHandler.Delete))))
	mux.Handle("GET /api/seller/items/{id}/bids", authMW(RequireSeller(http.HandlerFunc(sellerHandler.BidHistory))))

	// Moderation (admin only).
	mux.Handle("GET /api/admin/users", authMW(RequireAdmin(http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("PUT /api/admin/users/{id}/ban", authMW(RequireAdmin(http.HandlerFunc(adminHandler.BanToggle))))
	mux.Handle("PUT /api/admin/users/{id}/role", authMW(RequireAdmin(http.HandlerFunc(adminHandler.UpdateRole))))
	mux.Handle("GET /api/admin/items", authMW(RequireAdmin(http.HandlerFunc(adminHandler.ListItems))))
	mux.Handle("DELETE /api/admin/items/{id}", authMW(RequireAdmin(http.HandlerFunc(adminHandler.DeleteItem))))
	mux.Handle("GET /api/admin/bids", authMW(RequireAdmin(http.HandlerFunc(adminHandler.ListBids))))
	mux.Handle("DELETE /api/admin/bids/{id}", authMW(RequireAdmin(http.HandlerFunc(adminHandler.DeleteBid))))

	return mux
}
