package govalert_errors

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrRateLimited         = errors.New("rate limited")
	ErrQueueFull           = errors.New("queue full")
	ErrServiceUnavailable  = errors.New("service unavailable")
	ErrAlreadyExists       = errors.New("already exists")
	ErrServiceInactive     = errors.New("service is inactive")
	ErrNoProviderAvailable = errors.New("no provider available")
)

// ProviderSendError wraps a transient failure raised by a delivery provider
// client. The dispatch pipeline treats it as retryable.
type ProviderSendError struct {
	Provider string
	Err      error
}

func (e *ProviderSendError) Error() string {
	return fmt.Sprintf("provider %s send failed: %v", e.Provider, e.Err)
}

func (e *ProviderSendError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the dispatch pipeline should schedule another
// attempt for this error.
func IsRetryable(err error) bool {
	var pse *ProviderSendError
	if errors.As(err, &pse) {
		return true
	}
	return errors.Is(err, ErrNoProviderAvailable)
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now().UTC()
	return &now
}
