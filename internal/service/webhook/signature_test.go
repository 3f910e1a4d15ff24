package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	secret := "webhook-secret"

	if err := VerifySignature(body, sign(body, secret), secret); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifySignatureMissingSecret(t *testing.T) {
	body := []byte(`{}`)
	err := VerifySignature(body, sign(body, "anything"), "")
	if !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("want ErrMisconfigured, got %v", err)
	}
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	err := VerifySignature([]byte(`{}`), "", "secret")
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("want ErrMissingSignature, got %v", err)
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	body := []byte(`{}`)
	cases := map[string]string{
		"wrong secret":  sign(body, "other-secret"),
		"wrong body":    sign([]byte(`{"a":1}`), "secret"),
		"truncated":     sign(body, "secret")[:20],
		"not hex":       "sha256=zzzz",
		"no prefix":     hex.EncodeToString([]byte("raw")),
		"empty digest":  "sha256=",
	}
	for name, header := range cases {
		if err := VerifySignature(body, header, "secret"); !errors.Is(err, ErrSignatureMismatch) {
			t.Errorf("%s: want ErrSignatureMismatch, got %v", name, err)
		}
	}
}
