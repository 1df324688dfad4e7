package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hushbox/internal/app"
	"hushbox/internal/crypto"
	"hushbox/internal/domain"
	"hushbox/internal/ratelimit"
	"hushbox/internal/reaper"
	"hushbox/internal/secret"
	"hushbox/internal/store"
	"hushbox/pkg/e2e"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cipher, err := crypto.NewCipher("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	st := store.NewMemoryStore()
	svc := secret.NewService(st, cipher,
		ratelimit.New(domain.RateLimitWindow, domain.RateLimitMaxAttempts))
	h := app.NewHandler(svc, reaper.New(st), "http://localhost:8080")

	ts := httptest.NewServer(app.NewRouter(h, app.RouterConfig{RequireHTTPS: false}))
	t.Cleanup(ts.Close)
	return ts
}

func TestPostJSONCreateAndView(t *testing.T) {
	ts := newTestServer(t)

	var created domain.CreateRes
	err := postJSON(ts.URL+"/api/secrets",
		domain.CreateReq{Content: "cli secret", OneTimeAccess: true},
		http.StatusCreated, &created)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("empty id")
	}

	var viewed domain.ViewRes
	err = postJSON(ts.URL+"/api/secrets/"+created.ID+"/view",
		domain.ViewReq{}, http.StatusOK, &viewed)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if viewed.Content != "cli secret" || !viewed.OneTimeAccess {
		t.Errorf("unexpected view result: %+v", viewed)
	}
}

func TestPostJSONSurfacesServerError(t *testing.T) {
	ts := newTestServer(t)

	var viewed domain.ViewRes
	err := postJSON(ts.URL+"/api/secrets/00000000-0000-0000-0000-000000000000/view",
		domain.ViewReq{}, http.StatusOK, &viewed)
	if err == nil {
		t.Fatal("expected an error for a missing secret")
	}
}

func TestEndToEndEncryptedFlow(t *testing.T) {
	ts := newTestServer(t)

	key, err := e2e.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	envelope, err := e2e.Encrypt("only the link holder sees this", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var created domain.CreateRes
	err = postJSON(ts.URL+"/api/secrets",
		domain.CreateReq{Content: envelope}, http.StatusCreated, &created)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	share := e2e.BuildShareURL(ts.URL, created.ID, key)
	id, fragmentKey, err := e2e.ParseShareURL(share)
	if err != nil {
		t.Fatalf("ParseShareURL: %v", err)
	}
	if id != created.ID || fragmentKey != key {
		t.Fatalf("share link round trip: id=%q key match=%v", id, fragmentKey == key)
	}

	var viewed domain.ViewRes
	err = postJSON(ts.URL+"/api/secrets/"+id+"/view", domain.ViewReq{}, http.StatusOK, &viewed)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	// The server only ever saw the envelope.
	if viewed.Content != envelope {
		t.Error("server returned something other than the stored envelope")
	}

	plaintext, err := e2e.Decrypt(viewed.Content, fragmentKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "only the link holder sees this" {
		t.Errorf("got %q", plaintext)
	}
}
