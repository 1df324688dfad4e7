package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"hushbox/internal/domain"
)

const (
	nonceLen = 12 // GCM standard
	keyLen   = 32 // AES-256

	// bcryptCost trades hashing speed for brute-force resistance.
	bcryptCost = 12
)

// Cipher seals secret content with a static process-wide key before it
// reaches the record store, so the store never holds plaintext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 64 hex character (256-bit) key.
// There is no fallback key: a missing or malformed key must abort
// startup.
func NewCipher(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns it as "v1:" + base64(nonce|ct).
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := c.aead.Seal(nil, nonce, plaintext, nil)

	raw := make([]byte, 0, len(nonce)+len(ct))
	raw = append(raw, nonce...)
	raw = append(raw, ct...)
	return "v1:" + base64.StdEncoding.EncodeToString(raw), nil
}

// Open decrypts a sealed blob. Any malformed or tampered input fails
// with domain.ErrDecryption, which callers must keep distinct from
// not-found and expired failures.
func (c *Cipher) Open(blob string) ([]byte, error) {
	b64, ok := strings.CutPrefix(blob, "v1:")
	if !ok {
		return nil, domain.ErrDecryption
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, domain.ErrDecryption
	}
	if len(raw) < nonceLen+1 {
		return nil, domain.ErrDecryption
	}
	pt, err := c.aead.Open(nil, raw[:nonceLen], raw[nonceLen:], nil)
	if err != nil {
		return nil, domain.ErrDecryption
	}
	return pt, nil
}

// HashPassword returns a salted adaptive hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
