package model

import "time"

// User is a marketplace account. Any account can bid; the role only gates
// seller and admin endpoints.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	IsBanned     bool       `json:"is_banned"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Roles.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSeller || role == RoleBuyer
}

// CanSell reports whether the role is allowed to list items.
func CanSell(role string) bool {
	return role == RoleSeller || role == RoleAdmin
}
