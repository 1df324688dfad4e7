package domain

import (
	"fmt"
	"time"
)

// Protocol failures surfaced verbatim to callers. Each distinct check
// in the viewing path fails with its own error so clients can give
// accurate feedback.
var (
	ErrEmptyContent     = fmt.Errorf("secret content is required")
	ErrNotFound         = fmt.Errorf("secret not found or has been deleted")
	ErrAlreadyConsumed  = fmt.Errorf("this secret has already been viewed and is no longer available")
	ErrExpired          = fmt.Errorf("this secret has expired and is no longer available")
	ErrPasswordRequired = fmt.Errorf("this secret is password protected")
	ErrInvalidPassword  = fmt.Errorf("incorrect password")
	ErrForbidden        = fmt.Errorf("not the owner of this secret")
	ErrDecryption       = fmt.Errorf("failed to decrypt secret content")
)

// RateLimitError reports a denied attempt along with how long the
// caller must wait before the window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %d seconds",
		int(e.RetryAfter.Round(time.Second).Seconds()))
}

// StoreError wraps an underlying persistence failure. It is logged
// with detail but surfaced generically, so storage internals never
// leak to callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
