package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken(7, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("user id = %d, want 7", claims.UserID)
	}
	if claims.Issuer != "autoflow" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, _ := GenerateToken(7, "secret", time.Hour)
	if _, err := Parse(token, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	token, _ := GenerateToken(7, "secret", -time.Minute)
	if _, err := Parse(token, "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("not-a-token", "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestGenerateEmptySecret(t *testing.T) {
	if _, err := GenerateToken(7, "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
