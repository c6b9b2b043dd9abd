package store

import (
	"context"
	"testing"
	"time"

	"github.com/bidcycle/bidcycle/internal/db"
	"github.com/bidcycle/bidcycle/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleBuyer)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == "" {
		t.Error("expected generated id")
	}
	if user.Role != model.RoleBuyer {
		t.Errorf("expected role 'buyer', got %q", user.Role)
	}
	if user.IsBanned {
		t.Error("expected new user not banned")
	}

	got, err := GetUserByEmail(ctx, database, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Errorf("expected user %s by email, got %v", user.ID, got)
	}

	// Missing users come back as nil, not an error.
	got, err = GetUser(ctx, database, "no-such-user")
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil) for missing user, got (%v, %v)", got, err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleBuyer)
	if _, err := CreateUser(ctx, database, "Other Alice", "alice@example.com", "hash", model.RoleBuyer); err == nil {
		t.Error("expected unique constraint error for duplicate email")
	}
}

func TestListUsersSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Alice Smith", "alice@example.com", "hash", model.RoleBuyer)
	CreateUser(ctx, database, "Bob Jones", "bob@example.com", "hash", model.RoleSeller)
	CreateUser(ctx, database, "Carol Smith", "carol@example.com", "hash", model.RoleBuyer)

	all, _ := ListUsers(ctx, database, "", 0, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 users, got %d", len(all))
	}

	smiths, _ := ListUsers(ctx, database, "smith", 0, 0)
	if len(smiths) != 2 {
		t.Errorf("expected 2 users matching 'smith', got %d", len(smiths))
	}

	byEmail, _ := ListUsers(ctx, database, "bob@", 0, 0)
	if len(byEmail) != 1 {
		t.Errorf("expected 1 user matching 'bob@', got %d", len(byEmail))
	}

	count, _ := CountUsers(ctx, database, "smith")
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	paged, _ := ListUsers(ctx, database, "", 2, 0)
	if len(paged) != 2 {
		t.Errorf("expected 2 users on first page, got %d", len(paged))
	}
}

func TestUpdateUserFields(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleBuyer)

	if err := UpdateUserProfile(ctx, database, user.ID, "Alice B.", "555-0100", "1 Main St", "collector"); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.Name != "Alice B." || got.Phone != "555-0100" {
		t.Errorf("profile not updated: %+v", got)
	}

	if err := UpdateUserRole(ctx, database, user.ID, model.RoleSeller); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	got, _ = GetUser(ctx, database, user.ID)
	if got.Role != model.RoleSeller {
		t.Errorf("expected role 'seller', got %q", got.Role)
	}

	if err := SetUserBanned(ctx, database, user.ID, true); err != nil {
		t.Fatalf("SetUserBanned: %v", err)
	}
	got, _ = GetUser(ctx, database, user.ID)
	if !got.IsBanned {
		t.Error("expected user banned")
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := UpdateLastLogin(ctx, database, user.ID, at); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	got, _ = GetUser(ctx, database, user.ID)
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Errorf("expected last login %v, got %v", at, got.LastLogin)
	}
}
