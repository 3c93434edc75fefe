// internal/errors/errors.go
package apperrors

import "fmt"

// ErrNotFound is returned by repositories when an entity row is missing.
type ErrNotFound struct {
	Entity string
	ID     int
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func NewNotFound(entity string, id int) error {
	return &ErrNotFound{Entity: entity, ID: id}
}

// ErrInvalidTransition marks a pipeline-state change that is not in the
// adjacency table. Callers treat it as a logged no-op, never a failure.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid pipeline transition %s -> %s", e.From, e.To)
}

// SkipError is a business-rule denial (quota, cooldown, business hours,
// circuit breaker). It is an expected condition, distinguishable from
// provider failures, and never aborts a batch.
type SkipError struct {
	Channel string
	Reason  string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s action skipped: %s", e.Channel, e.Reason)
}

func NewSkip(channel, reason string) error {
	return &SkipError{Channel: channel, Reason: reason}
}

// ProviderError wraps an external-provider failure with enough detail to
// decide on retries: 5xx and 429 are transient, other 4xx are permanent.
type ProviderError struct {
	Provider   string
	StatusCode int
	RetryAfter int // seconds, from a Retry-After hint; 0 when absent
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether the adapter may retry the call.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
