package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrKeyLength = errors.New("encryption key must be 16, 24, or 32 bytes")

// SnapshotCipher seals account snapshots with AES-GCM before they leave the
// process. Each sealed value is bound to a label (the account id) through the
// AEAD additional data, so a value copied under another account's key fails
// to open.
type SnapshotCipher struct {
	gcm cipher.AEAD
}

func NewSnapshotCipher(key string) (*SnapshotCipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w; got %d", ErrKeyLength, len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &SnapshotCipher{gcm: gcm}, nil
}

// Seal returns base64(nonce || ciphertext).
func (c *SnapshotCipher) Seal(plaintext []byte, label string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(c.gcm.Seal(nonce, nonce, plaintext, []byte(label))), nil
}

// Open reverses Seal. It fails when the value was tampered with or sealed
// under a different label.
func (c *SnapshotCipher) Open(sealed, label string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	ns := c.gcm.NonceSize()
	if len(data) < ns {
		return nil, errors.New("sealed snapshot too short")
	}
	pt, err := c.gcm.Open(nil, data[:ns], data[ns:], []byte(label))
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return pt, nil
}
