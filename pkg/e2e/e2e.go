// Package e2e implements the optional client-side encryption layer.
//
// A creator encrypts content with a random per-secret key before it is
// sent to the server; the key never travels with the request and is
// instead appended to the share link as a URL fragment, which browsers
// do not transmit. The server wraps the resulting envelope with its own
// encryption layer like any other content, so only someone holding the
// full link can recover the plaintext.
package e2e

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	keyLen = 32 // 256-bit key, rendered as 64 hex chars
	ivLen  = 16 // 128-bit IV, interoperable with web-crypto AES-GCM
)

// ErrDecrypt is returned when an envelope cannot be decrypted, whether
// from a wrong fragment key or a corrupted envelope.
var ErrDecrypt = errors.New("failed to decrypt: the link or key may be invalid")

// Envelope is the serialized form of client-side encrypted content.
// It is stored by the server as opaque content.
type Envelope struct {
	Ciphertext string `json:"ciphertext"` // base64
	IV         string `json:"iv"`         // hex
}

// GenerateKey returns a fresh random 256-bit key as 64 hex characters,
// suitable for use as a URL fragment.
func GenerateKey() (string, error) {
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext under the hex key with a random 128-bit IV
// and returns the JSON envelope to submit as the secret's content.
func Encrypt(plaintext, hexKey string) (string, error) {
	aead, err := newAEAD(hexKey)
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("iv: %w", err)
	}
	ct := aead.Seal(nil, iv, []byte(plaintext), nil)

	env := Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         hex.EncodeToString(iv),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("envelope: %w", err)
	}
	return string(out), nil
}

// Decrypt opens a JSON envelope with the fragment key.
func Decrypt(envelope, hexKey string) (string, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(envelope), &env); err != nil {
		return "", ErrDecrypt
	}
	aead, err := newAEAD(hexKey)
	if err != nil {
		return "", ErrDecrypt
	}
	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != ivLen {
		return "", ErrDecrypt
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	pt, err := aead.Open(nil, iv, ct, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(pt), nil
}

// BuildShareURL assembles the bearer link for a secret. When hexKey is
// non-empty it is appended as the URL fragment.
func BuildShareURL(baseURL, id, hexKey string) string {
	u := strings.TrimRight(baseURL, "/") + "/secret/" + id
	if hexKey != "" {
		u += "#" + hexKey
	}
	return u
}

// ParseShareURL extracts the secret id and optional fragment key from
// a share link.
func ParseShareURL(raw string) (id, hexKey string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse share url: %w", err)
	}
	path := strings.TrimRight(u.Path, "/")
	i := strings.LastIndex(path, "/secret/")
	if i == -1 {
		return "", "", errors.New("share url has no /secret/ path")
	}
	id = path[i+len("/secret/"):]
	if id == "" || strings.Contains(id, "/") {
		return "", "", errors.New("share url has no secret id")
	}
	if u.Fragment != "" {
		if len(u.Fragment) != keyLen*2 {
			return "", "", errors.New("share url fragment is not a valid key")
		}
		hexKey = u.Fragment
	}
	return id, hexKey, nil
}

func newAEAD(hexKey string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	// 16-byte nonces match the IV size the browser-side web-crypto
	// implementation uses.
	return cipher.NewGCMWithNonceSize(block, ivLen)
}
