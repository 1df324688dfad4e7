package e2e

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(key) != 64 {
		t.Fatalf("key length: got %d want 64", len(key))
	}

	envelope, err := Encrypt("the launch codes", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(envelope), &env); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if len(env.IV) != 32 {
		t.Errorf("iv hex length: got %d want 32", len(env.IV))
	}
	if strings.Contains(envelope, "the launch codes") {
		t.Error("envelope contains plaintext")
	}

	got, err := Decrypt(envelope, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "the launch codes" {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key, _ := GenerateKey()
	envelope, err := Encrypt("payload", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	other, _ := GenerateKey()
	if _, err := Decrypt(envelope, other); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt with wrong key, got %v", err)
	}
	if _, err := Decrypt("not json", key); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt on garbage envelope, got %v", err)
	}
	if _, err := Decrypt(`{"ciphertext":"AAAA","iv":"00"}`, key); !errors.Is(err, ErrDecrypt) {
		t.Errorf("expected ErrDecrypt on short iv, got %v", err)
	}
}

func TestShareURLRoundTrip(t *testing.T) {
	key, _ := GenerateKey()

	tests := []struct {
		name string
		key  string
	}{
		{"with fragment key", key},
		{"without fragment key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := BuildShareURL("https://example.com/", "abc-123", tt.key)
			id, gotKey, err := ParseShareURL(u)
			if err != nil {
				t.Fatalf("ParseShareURL(%q): %v", u, err)
			}
			if id != "abc-123" {
				t.Errorf("id: got %q want abc-123", id)
			}
			if gotKey != tt.key {
				t.Errorf("key: got %q want %q", gotKey, tt.key)
			}
		})
	}
}

func TestParseShareURLRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/other/abc",
		"https://example.com/secret/",
		"https://example.com/secret/id#tooshort",
	} {
		if _, _, err := ParseShareURL(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
