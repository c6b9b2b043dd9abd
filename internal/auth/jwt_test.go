package auth

import (
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateToken(secret, "user-123", "alice@example.com", "buyer")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("expected user id 'user-123', got %q", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email 'alice@example.com', got %q", claims.Email)
	}
	if claims.Role != "buyer" {
		t.Errorf("expected role 'buyer', got %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected non-empty JTI")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", "user-123", "alice@example.com", "buyer")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("secret-b", token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected validation to fail for malformed token")
	}
}

func TestTokensHaveUniqueJTIs(t *testing.T) {
	t1, _ := GenerateToken("secret", "u", "e@example.com", "buyer")
	t2, _ := GenerateToken("secret", "u", "e@example.com", "buyer")

	c1, err := ValidateToken("secret", t1)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	c2, err := ValidateToken("secret", t2)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if c1.ID == c2.ID {
		t.Error("expected distinct JTIs for separate tokens")
	}
}
