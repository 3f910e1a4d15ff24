package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a GitHub-style HMAC-SHA256 signature over the raw
// request body. The header format is "sha256=<hex digest>"; comparison is
// constant time.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return ErrMisconfigured
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if len(provided) != len(expected) || subtle.ConstantTimeCompare(provided, expected) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}
