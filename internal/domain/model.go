package domain

import "time"

// Status is the derived lifecycle state of a secret. It is computed on
// read and never persisted, so it can't go stale against ExpiresAt or
// the viewed flag.
type Status string

const (
	StatusActive  Status = "active"
	StatusViewed  Status = "viewed"
	StatusExpired Status = "expired"
)

// Secret is the stored record. Ciphertext holds the server-side
// encrypted content; PasswordHash is empty unless the secret is
// password protected.
type Secret struct {
	ID            string
	Owner         string
	Ciphertext    string
	PasswordHash  string
	ExpiresAt     *time.Time
	OneTimeAccess bool
	Viewed        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Status derives the lifecycle state at the given instant.
func (s *Secret) Status(now time.Time) Status {
	if s.Viewed && s.OneTimeAccess {
		return StatusViewed
	}
	if s.Expired(now) {
		return StatusExpired
	}
	return StatusActive
}

// Expired reports whether the secret's expiry is set and in the past.
func (s *Secret) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Dead reports whether the secret qualifies for physical deletion:
// expired, or consumed by a one-time view.
func (s *Secret) Dead(now time.Time) bool {
	return s.Expired(now) || (s.Viewed && s.OneTimeAccess)
}

// Summary is the owner-facing listing view of a secret. It never
// carries content or password material.
type Summary struct {
	ID            string     `json:"id"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OneTimeAccess bool       `json:"one_time_access"`
	Viewed        bool       `json:"viewed"`
	CreatedAt     time.Time  `json:"created_at"`
	Status        Status     `json:"status"`
}

type CreateReq struct {
	Content       string     `json:"content"`
	Password      string     `json:"password,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OneTimeAccess bool       `json:"one_time_access"`
	Owner         string     `json:"owner,omitempty"`
}

type CreateRes struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ViewReq struct {
	Password string `json:"password,omitempty"`
}

type ViewRes struct {
	Content       string `json:"content"`
	OneTimeAccess bool   `json:"one_time_access"`
}

// UpdateReq replaces content unconditionally. Password and
// OneTimeAccess are pointers so that omission means "leave unchanged";
// a null expiry clears it.
type UpdateReq struct {
	Content       string     `json:"content"`
	Password      *string    `json:"password,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OneTimeAccess *bool      `json:"one_time_access,omitempty"`
}
