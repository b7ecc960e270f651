package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	return signed
}

func TestInspect(t *testing.T) {
	tokenString := signedToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "a@b.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Inspect(tokenString)
	if err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected sub user-1, got %s", claims.UserID)
	}
	if claims.Email != "a@b.com" {
		t.Fatalf("expected email claim, got %s", claims.Email)
	}
	if claims.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expected future expiry, got %s", claims.ExpiresAt)
	}
}

func TestInspectExpired(t *testing.T) {
	tokenString := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err := Inspect(tokenString)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestInspectGarbage(t *testing.T) {
	if _, err := Inspect("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestInspectNoExpiry(t *testing.T) {
	tokenString := signedToken(t, jwt.MapClaims{"sub": "user-1"})
	claims, err := Inspect(tokenString)
	if err != nil {
		t.Fatalf("inspect error: %v", err)
	}
	if !claims.ExpiresAt.IsZero() {
		t.Fatalf("expected zero expiry, got %s", claims.ExpiresAt)
	}
}
