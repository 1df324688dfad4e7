// Package store persists secret records. Implementations must make
// MarkViewed a single conditional transition: under concurrent view
// attempts on a one-time secret, exactly one caller may win it.
package store

import (
	"context"
	"time"

	"hushbox/internal/domain"
)

type Store interface {
	// Insert persists a new record.
	Insert(ctx context.Context, s *domain.Secret) error

	// FetchByID returns the record or domain.ErrNotFound.
	FetchByID(ctx context.Context, id string) (*domain.Secret, error)

	// MarkViewed atomically flips the viewed flag. It returns true iff
	// this call performed the transition, false if the record was
	// already viewed, and domain.ErrNotFound if the record is gone.
	MarkViewed(ctx context.Context, id string, now time.Time) (bool, error)

	// Update replaces the record's mutable fields.
	Update(ctx context.Context, s *domain.Secret) error

	// DeleteByID removes a record unconditionally.
	DeleteByID(ctx context.Context, id string) error

	// DeleteDead removes every record that is expired or consumed by a
	// one-time view, returning how many were removed. It is idempotent.
	DeleteDead(ctx context.Context, now time.Time) (int, error)

	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, owner string) ([]*domain.Secret, error)

	Close() error
}
