package vault

import (
	"strings"
	"testing"

	"github.com/conectasei/core/internal/models"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := strings.Repeat("00", 32)
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	creds := models.Credentials{Email: "tenant@tribunal.gov.br", Password: "s3cr3t!"}
	ciphertext, err := v.Encrypt(creds)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if strings.Contains(string(ciphertext), creds.Password) {
		t.Fatalf("ciphertext leaks plaintext password")
	}

	got, err := v.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != creds {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, creds)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key := strings.Repeat("00", 32)
	v, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ciphertext, err := v.Encrypt(models.Credentials{Email: "a@b.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := v.Decrypt(ciphertext); err == nil {
		t.Fatalf("expected decryption of tampered ciphertext to fail")
	}
}

func TestNewRejectsBadKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := New("not-hex"); err == nil {
		t.Fatalf("expected error for non-hex key")
	}
	if _, err := New("00"); err == nil {
		t.Fatalf("expected error for short key")
	}
}
