package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	t.Run("reads exp claim", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		token := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})

		got, ok := TokenExpiry(token)
		if !ok {
			t.Fatal("TokenExpiry = false, want true")
		}
		if !got.Equal(exp) {
			t.Errorf("expiry = %v, want %v", got, exp)
		}
	})

	t.Run("no exp claim", func(t *testing.T) {
		token := signedToken(t, jwt.RegisteredClaims{Subject: "u1"})

		if _, ok := TokenExpiry(token); ok {
			t.Error("TokenExpiry on claim-less token = true, want false")
		}
	})

	t.Run("opaque token", func(t *testing.T) {
		if _, ok := TokenExpiry("not-a-jwt"); ok {
			t.Error("TokenExpiry on opaque token = true, want false")
		}
	})
}

func TestResolver_SessionExpiresAt(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, nil)
	ctx := context.Background()

	if _, ok := r.SessionExpiresAt(ctx); ok {
		t.Error("SessionExpiresAt with no session = true, want false")
	}

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	if _, err := store.SaveSession(ctx, token, []string{"Seller"}, nil, testProfile("u1")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, ok := r.SessionExpiresAt(ctx)
	if !ok || !got.Equal(exp) {
		t.Errorf("SessionExpiresAt = (%v, %v), want (%v, true)", got, ok, exp)
	}
}
