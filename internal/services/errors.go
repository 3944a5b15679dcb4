// Package services implements the bot's decision logic: onboarding flows,
// random recommendation sampling, the per-user request quota, reactions and
// the administrator operations. This file centralizes the service-level error
// values so callers can branch on them with errors.Is / errors.As.
//
// Translation into user-facing replies or HTTP status codes happens in the
// dispatcher (Bot) and the HTTP handlers, never here.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound indicates an operation on a user id with no profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrAlreadyPresent is returned by conditional adds when the item is
	// already in the target list. It is a normal outcome, not a failure.
	ErrAlreadyPresent = errors.New("item already present")

	// ErrQuotaExhausted is returned by Consume when a parallel request took
	// the last slot of the window first.
	ErrQuotaExhausted = errors.New("request quota exhausted")

	// ErrNoneFound is returned by the sampler when no unseen, non-disliked
	// item could be gathered from the chosen pages.
	ErrNoneFound = errors.New("no matching item found")

	// ErrStoreUnavailable wraps every unexpected persistence failure. It must
	// reach the transport layer; profile mutations may have been lost.
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrNotAdmin is returned when a privileged operation is attempted by
	// anyone but the configured administrator.
	ErrNotAdmin = errors.New("administrator only")
)

// ValidationError is a rejected user input. The step does not advance and
// Message is shown to the user as a retry prompt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
