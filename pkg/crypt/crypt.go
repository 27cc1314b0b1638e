// Package crypt provides XChaCha20-Poly1305 authenticated encryption helpers.
//
// All ciphertext is base64url-encoded and includes the random nonce prefix,
// so a single string can be written to a file or a cache entry as is.
//
// Usage:
//
//	box, err := crypt.Default()
//	enc, err := box.EncryptJSON(session)
//	err = box.DecryptJSON(enc, &session)
package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vmcmoto/motoportal/config"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// Box encrypts with one key.
type Box struct {
	key []byte
}

// New derives a 32-byte key from secret via SHA-256.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("crypt: APP_KEY not configured")
	}
	h := sha256.Sum256([]byte(secret))
	return &Box{key: h[:]}, nil
}

// Default returns a Box keyed by APP_KEY.
func Default() (*Box, error) { return New(config.AppKey()) }

// EncryptBytes returns base64url(nonce || ciphertext || tag).
func (b *Box) EncryptBytes(data []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("crypt: new cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}

	// Seal appends ciphertext+tag after nonce.
	sealed := aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptBytes reverses EncryptBytes.
func (b *Box) DecryptBytes(encoded string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, ErrDecrypt
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// EncryptJSON marshals v to JSON then encrypts it.
func (b *Box) EncryptJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypt: marshal: %w", err)
	}
	return b.EncryptBytes(raw)
}

// DecryptJSON decrypts encoded and unmarshals the result into dest.
func (b *Box) DecryptJSON(encoded string, dest interface{}) error {
	raw, err := b.DecryptBytes(encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("crypt: unmarshal: %w", err)
	}
	return nil
}
