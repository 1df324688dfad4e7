package domain

import "time"

const (
	// MaxSecretSize is the maximum allowed size for a secret's content
	// (64 KB).
	MaxSecretSize = 64 * 1024

	// MaxRequestBodySize is the maximum allowed request body size.
	// Set slightly larger than MaxSecretSize to account for JSON
	// overhead and the client-side encryption envelope.
	MaxRequestBodySize = MaxSecretSize + 4096

	// RateLimitWindow is the sliding window over which view attempts
	// are counted per requester and secret.
	RateLimitWindow = 5 * time.Minute

	// RateLimitMaxAttempts is the number of view attempts allowed per
	// window before further attempts are rejected.
	RateLimitMaxAttempts = 5
)
