package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"hushbox/internal/domain"
	"hushbox/internal/store"
)

func TestSweepDeletesOnlyDeadSecrets(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := &domain.Secret{ID: "expired", Ciphertext: "v1:a", ExpiresAt: &past, CreatedAt: past, UpdatedAt: past}
	active := &domain.Secret{ID: "active", Ciphertext: "v1:b", ExpiresAt: &future, CreatedAt: now, UpdatedAt: now}
	consumed := &domain.Secret{ID: "consumed", Ciphertext: "v1:c", OneTimeAccess: true, Viewed: true, CreatedAt: now, UpdatedAt: now}
	eternal := &domain.Secret{ID: "eternal", Ciphertext: "v1:d", CreatedAt: now, UpdatedAt: now}

	for _, s := range []*domain.Secret{expired, active, consumed, eternal} {
		if err := st.Insert(ctx, s); err != nil {
			t.Fatalf("Insert %s: %v", s.ID, err)
		}
	}

	r := New(st, WithClock(func() time.Time { return now }))
	removed, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	for _, id := range []string{"active", "eternal"} {
		if _, err := st.FetchByID(ctx, id); err != nil {
			t.Errorf("%s should survive: %v", id, err)
		}
	}
	for _, id := range []string{"expired", "consumed"} {
		if _, err := st.FetchByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s should be deleted, got %v", id, err)
		}
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	_ = st.Insert(ctx, &domain.Secret{ID: "x", Ciphertext: "v1:x", ExpiresAt: &past, CreatedAt: past, UpdatedAt: past})

	r := New(st, WithClock(func() time.Time { return now }))
	if removed, _ := r.Sweep(ctx); removed != 1 {
		t.Fatalf("first sweep: expected 1, got %d", removed)
	}
	if removed, _ := r.Sweep(ctx); removed != 0 {
		t.Errorf("second sweep: expected 0, got %d", removed)
	}
}
