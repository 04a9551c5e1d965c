// Package vault encrypts and decrypts per-tenant upstream credentials
// with a process-global symmetric key. Plaintext never leaves this
// package except as the in-memory models.Credentials value handed to
// a single extraction or download run.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/conectasei/core/internal/models"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault performs authenticated symmetric encryption of tenant credentials.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a hex-encoded 32-byte key, as read from
// SYMMETRIC_ENCRYPTION_KEY.
func New(hexKey string) (*Vault, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("vault: SYMMETRIC_ENCRYPTION_KEY is empty")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("vault: invalid key encoding: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt authenticated-encrypts plaintext credentials, returning a
// nonce-prefixed ciphertext suitable for Tenant.EncryptedCredentials.
func (v *Vault) Encrypt(creds models.Credentials) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal credentials: %w", err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	ciphertext := v.aead.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. Decrypted plaintext must only be held for
// the duration of a single pipeline run and never logged.
func (v *Vault) Decrypt(ciphertext []byte) (models.Credentials, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return models.Credentials{}, fmt.Errorf("vault: ciphertext too short")
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := v.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("vault: decryption failed")
	}

	var creds models.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return models.Credentials{}, fmt.Errorf("vault: unmarshal credentials: %w", err)
	}
	return creds, nil
}
