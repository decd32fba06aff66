// Package vault provides authenticated encryption for stored OAuth tokens.
//
// A single 256-bit master key is generated on first use and persisted next
// to the other gitsock state. Every encrypted blob is framed as the nonce
// followed by the ciphertext, so it can be stored as an opaque byte
// payload.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// KeySize is the master key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the AES-GCM nonce length prepended to every blob.
	NonceSize = 12
)

// ErrIntegrity is returned when a blob fails authenticated decryption:
// wrong key, corrupted ciphertext, or truncated input.
var ErrIntegrity = errors.New("token failed integrity check")

// Vault holds the process master key and encrypts/decrypts token blobs.
// It owns the key for the process lifetime and never writes to disk after
// Open.
type Vault struct {
	key []byte
}

// Open loads the master key from keyPath, generating and persisting a new
// one when the file does not exist. A key file of the wrong length is a
// fatal error: regenerating it would orphan every stored token, so the
// decision to start over must come from the operator, never from here.
func Open(keyPath string) (*Vault, error) {
	key, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		key, err = generateKey(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load master key from %s: %w", keyPath, err)
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("master key file %s is corrupted: expected %d bytes, got %d", keyPath, KeySize, len(key))
	}

	return &Vault{key: key}, nil
}

func generateKey(keyPath string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}

	dir := filepath.Dir(keyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write master key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns the nonce
// followed by the ciphertext.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	aesgcm, err := v.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt splits the leading nonce off blob and opens the remainder.
// Any authentication failure surfaces as ErrIntegrity; altered ciphertext
// is never returned as plaintext.
func (v *Vault) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < NonceSize {
		return nil, fmt.Errorf("%w: blob shorter than nonce", ErrIntegrity)
	}

	aesgcm, err := v.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return aesgcm, nil
}
