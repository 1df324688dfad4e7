// Package secret implements the secret lifecycle: creation, gated
// viewing, update, deletion and owner listing.
package secret

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"hushbox/internal/crypto"
	"hushbox/internal/domain"
	"hushbox/internal/ratelimit"
	"hushbox/internal/store"
)

// Service orchestrates the secret lifecycle over an injected store,
// cipher and rate limiter. It holds no secret state of its own, so it
// is safe for concurrent per-request use.
type Service struct {
	store   store.Store
	cipher  *crypto.Cipher
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, cipher *crypto.Cipher, limiter *ratelimit.Limiter, opts ...Option) *Service {
	s := &Service{
		store:   st,
		cipher:  cipher,
		limiter: limiter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new secret. ExpiresAt nil means the secret
// never expires; Owner empty means anonymous.
type CreateParams struct {
	Content       string
	Password      string
	ExpiresAt     *time.Time
	OneTimeAccess bool
	Owner         string
}

// ViewResult is a successfully revealed secret.
type ViewResult struct {
	Content       string
	OneTimeAccess bool
}

// UpdateParams replaces a secret's fields. Content is re-encrypted
// unconditionally. A nil Password keeps the existing hash; a nil
// OneTimeAccess keeps the flag; a nil ExpiresAt clears the expiry.
type UpdateParams struct {
	Content       string
	Password      *string
	ExpiresAt     *time.Time
	OneTimeAccess *bool
}

// Create encrypts and persists a new secret and returns its id. The
// plaintext is never stored and never returned.
func (s *Service) Create(ctx context.Context, p CreateParams) (string, error) {
	if p.Content == "" {
		return "", domain.ErrEmptyContent
	}

	ciphertext, err := s.cipher.Seal([]byte(p.Content))
	if err != nil {
		return "", fmt.Errorf("encrypt content: %w", err)
	}

	var passwordHash string
	if p.Password != "" {
		passwordHash, err = crypto.HashPassword(p.Password)
		if err != nil {
			return "", err
		}
	}

	now := s.now().UTC()
	rec := &domain.Secret{
		ID:            uuid.NewString(),
		Owner:         p.Owner,
		Ciphertext:    ciphertext,
		PasswordHash:  passwordHash,
		ExpiresAt:     p.ExpiresAt,
		OneTimeAccess: p.OneTimeAccess,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return "", s.storeErr(ctx, "insert", err)
	}
	return rec.ID, nil
}

// View runs the ordered access checks and reveals the secret's content.
// Each check fails with its own error, first match wins: rate limit,
// existence, one-time consumption, expiry, password. For one-time
// secrets the viewed flag is claimed with a conditional store write
// before the content is returned, so two concurrent views can never
// both succeed.
func (s *Service) View(ctx context.Context, id, password, requester string) (ViewResult, error) {
	if allowed, retryAfter := s.limiter.Allow(requester + ":" + id); !allowed {
		return ViewResult{}, &domain.RateLimitError{RetryAfter: retryAfter}
	}

	rec, err := s.store.FetchByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ViewResult{}, domain.ErrNotFound
		}
		return ViewResult{}, s.storeErr(ctx, "fetch", err)
	}

	if rec.Viewed && rec.OneTimeAccess {
		return ViewResult{}, domain.ErrAlreadyConsumed
	}
	if rec.Expired(s.now()) {
		return ViewResult{}, domain.ErrExpired
	}

	if rec.PasswordHash != "" {
		if password == "" {
			return ViewResult{}, domain.ErrPasswordRequired
		}
		if !crypto.VerifyPassword(password, rec.PasswordHash) {
			return ViewResult{}, domain.ErrInvalidPassword
		}
	}

	if rec.OneTimeAccess {
		won, err := s.store.MarkViewed(ctx, id, s.now().UTC())
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Reaped between fetch and claim.
				return ViewResult{}, domain.ErrNotFound
			}
			return ViewResult{}, s.storeErr(ctx, "mark viewed", err)
		}
		if !won {
			// A concurrent view claimed the secret first.
			return ViewResult{}, domain.ErrAlreadyConsumed
		}
	}

	plaintext, err := s.cipher.Open(rec.Ciphertext)
	if err != nil {
		clog.FromContext(ctx).Errorf("secret %s: %v", id, err)
		return ViewResult{}, domain.ErrDecryption
	}

	return ViewResult{Content: string(plaintext), OneTimeAccess: rec.OneTimeAccess}, nil
}

// Update rewrites a secret. When the record has an owner, the caller
// must present a matching owner id; anonymous secrets remain
// bearer-style, where id possession is authority enough.
func (s *Service) Update(ctx context.Context, id, caller string, p UpdateParams) error {
	if p.Content == "" {
		return domain.ErrEmptyContent
	}

	rec, err := s.store.FetchByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return s.storeErr(ctx, "fetch", err)
	}
	if rec.Owner != "" && rec.Owner != caller {
		return domain.ErrForbidden
	}

	rec.Ciphertext, err = s.cipher.Seal([]byte(p.Content))
	if err != nil {
		return fmt.Errorf("encrypt content: %w", err)
	}
	if p.Password != nil {
		rec.PasswordHash, err = crypto.HashPassword(*p.Password)
		if err != nil {
			return err
		}
	}
	rec.ExpiresAt = p.ExpiresAt
	if p.OneTimeAccess != nil {
		rec.OneTimeAccess = *p.OneTimeAccess
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return s.storeErr(ctx, "update", err)
	}
	return nil
}

// Delete removes a secret by id, subject to the same ownership rule as
// Update.
func (s *Service) Delete(ctx context.Context, id, caller string) error {
	rec, err := s.store.FetchByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return s.storeErr(ctx, "fetch", err)
	}
	if rec.Owner != "" && rec.Owner != caller {
		return domain.ErrForbidden
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return s.storeErr(ctx, "delete", err)
	}
	return nil
}

// ListByOwner returns the owner's secrets, newest first, with the
// derived status. Content and password material are never included.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]domain.Summary, error) {
	recs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.storeErr(ctx, "list", err)
	}
	now := s.now()
	out := make([]domain.Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, domain.Summary{
			ID:            rec.ID,
			ExpiresAt:     rec.ExpiresAt,
			OneTimeAccess: rec.OneTimeAccess,
			Viewed:        rec.Viewed,
			CreatedAt:     rec.CreatedAt,
			Status:        rec.Status(now),
		})
	}
	return out, nil
}

// storeErr logs the underlying persistence failure with detail and
// returns the wrapped form that callers surface generically.
func (s *Service) storeErr(ctx context.Context, op string, err error) error {
	serr := &domain.StoreError{Op: op, Err: err}
	clog.FromContext(ctx).Errorf("%v", serr)
	return serr
}
