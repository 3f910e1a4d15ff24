package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidCiphertext is returned when a ciphertext is too short or fails
// authentication.
var ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

func gcmFromSecret(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("crypto: empty secret")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext with AES-GCM using a key derived from secret.
// The nonce is prepended to the returned ciphertext.
func Encrypt(secret string, plaintext []byte) ([]byte, error) {
	gcm, err := gcmFromSecret(secret)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func Decrypt(secret string, ciphertext []byte) ([]byte, error) {
	gcm, err := gcmFromSecret(secret)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// EncryptString seals a string and returns the raw ciphertext bytes.
func EncryptString(secret, plaintext string) ([]byte, error) {
	return Encrypt(secret, []byte(plaintext))
}

// DecryptString opens a ciphertext and returns the plaintext as string.
func DecryptString(secret string, ciphertext []byte) (string, error) {
	plaintext, err := Decrypt(secret, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
