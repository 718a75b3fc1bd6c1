package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks malformed request parameters. Fatal, never retried.
	ErrValidation = errors.New("invalid parameters")
	// ErrScopeNotAllowed marks an owner/repo pair outside the configured allowlist.
	ErrScopeNotAllowed = errors.New("scope not allowed")
	// ErrNotFound marks an object absent upstream.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamThrottled marks an exhausted upstream quota (403/429).
	ErrUpstreamThrottled = errors.New("upstream throttled")
	// ErrUpstreamUnavailable marks a transient upstream or transport failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ThrottledError carries the upstream retry-after hint alongside
// ErrUpstreamThrottled.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream throttled, retry after %s", e.RetryAfter)
	}
	return "upstream throttled"
}

func (e *ThrottledError) Unwrap() error {
	return ErrUpstreamThrottled
}
