package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hushbox/internal/domain"
)

func newSecret(id, owner string, createdAt time.Time) *domain.Secret {
	return &domain.Secret{
		ID:         id,
		Owner:      owner,
		Ciphertext: "v1:blob-" + id,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestMemoryStoreInsertFetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now().UTC()
	sec := newSecret("a", "alice", now)
	sec.PasswordHash = "hash"
	if err := s.Insert(ctx, sec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.FetchByID(ctx, "a")
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if got.Ciphertext != sec.Ciphertext || got.PasswordHash != "hash" || got.Owner != "alice" {
		t.Errorf("fetched record mismatch: %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Viewed = true
	again, _ := s.FetchByID(ctx, "a")
	if again.Viewed {
		t.Error("store returned a shared pointer, not a copy")
	}

	if _, err := s.FetchByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreMarkViewed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	_ = s.Insert(ctx, newSecret("a", "", now))

	ok, err := s.MarkViewed(ctx, "a", now)
	if err != nil || !ok {
		t.Fatalf("first MarkViewed: ok=%v err=%v", ok, err)
	}
	ok, err = s.MarkViewed(ctx, "a", now)
	if err != nil || ok {
		t.Fatalf("second MarkViewed should not transition: ok=%v err=%v", ok, err)
	}
	if _, err := s.MarkViewed(ctx, "missing", now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreMarkViewedConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	_ = s.Insert(ctx, newSecret("a", "", now))

	const n = 20
	wins := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkViewed(ctx, "a", now)
			if err != nil {
				t.Errorf("MarkViewed: %v", err)
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for ok := range wins {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one winning transition, got %d", count)
	}
}

func TestMemoryStoreDeleteDead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := newSecret("expired", "", now)
	expired.ExpiresAt = &past
	active := newSecret("active", "", now)
	active.ExpiresAt = &future
	consumed := newSecret("consumed", "", now)
	consumed.OneTimeAccess = true
	consumed.Viewed = true
	viewedMulti := newSecret("viewed-multi", "", now)
	viewedMulti.Viewed = true // not one-time, must survive

	for _, sec := range []*domain.Secret{expired, active, consumed, viewedMulti} {
		_ = s.Insert(ctx, sec)
	}

	removed, err := s.DeleteDead(ctx, now)
	if err != nil {
		t.Fatalf("DeleteDead: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	for _, id := range []string{"active", "viewed-multi"} {
		if _, err := s.FetchByID(ctx, id); err != nil {
			t.Errorf("%s should survive: %v", id, err)
		}
	}
	for _, id := range []string{"expired", "consumed"} {
		if _, err := s.FetchByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s should be deleted, got %v", id, err)
		}
	}

	// Idempotent: nothing newly qualifies.
	removed, err = s.DeleteDead(ctx, now)
	if err != nil || removed != 0 {
		t.Errorf("second sweep: removed=%d err=%v", removed, err)
	}
}

func TestMemoryStoreListByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Now().UTC()

	_ = s.Insert(ctx, newSecret("old", "alice", base.Add(-2*time.Hour)))
	_ = s.Insert(ctx, newSecret("new", "alice", base))
	_ = s.Insert(ctx, newSecret("mid", "alice", base.Add(-time.Hour)))
	_ = s.Insert(ctx, newSecret("other", "bob", base))
	_ = s.Insert(ctx, newSecret("anon", "", base))

	got, err := s.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	var ids []string
	for _, sec := range got {
		ids = append(ids, sec.ID)
	}
	want := []string{"new", "mid", "old"}
	if len(ids) != len(want) {
		t.Fatalf("got %v want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}

	empty, err := s.ListByOwner(ctx, "")
	if err != nil || len(empty) != 0 {
		t.Errorf("empty owner should list nothing, got %v err=%v", empty, err)
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()
	_ = s.Insert(ctx, newSecret("a", "alice", now))

	upd := newSecret("a", "alice", now)
	upd.Ciphertext = "v1:updated"
	if err := s.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.FetchByID(ctx, "a")
	if got.Ciphertext != "v1:updated" {
		t.Errorf("update not applied: %q", got.Ciphertext)
	}

	if err := s.Update(ctx, newSecret("missing", "", now)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
