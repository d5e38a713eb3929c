package models

import "time"

// EndpointClass groups routes that share a per-IP budget.
type EndpointClass string

const (
	// ClassAuth covers wallet sign-in: /auth/nonce, /auth/login.
	ClassAuth EndpointClass = "auth"
	// ClassWrite covers unauthenticated writes: content pinning, simulated chain registration.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) IsValid() bool {
	return c == ClassAuth || c == ClassWrite
}

// Limit is a sliding window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the API response when rate limit is exceeded.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, minimum one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
