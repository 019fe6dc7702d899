package utils

import (
	"testing"

	"github.com/jezakh/patanabot/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}
	if len(hash) == 0 {
		t.Error("Hash should not be empty")
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.AdminUser{
		ID:    1,
		Email: "owner@example.com",
		Role:  "owner",
	}

	token, err := GenerateToken(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["email"] != "owner@example.com" {
		t.Errorf("Email claim = %v, want owner@example.com", claims["email"])
	}
	if claims["role"] != "owner" {
		t.Errorf("Role claim = %v, want owner", claims["role"])
	}

	if _, err := ValidateToken(token, "different-secret"); err == nil {
		t.Error("Token signed with another secret must not validate")
	}
	if _, err := ValidateToken("not.a.token", secret); err == nil {
		t.Error("Garbage token must not validate")
	}
}
