package ratelimit

import (
	"fmt"

	gferrors "github.com/arjuncodes/ratelimitd/pkg/common/errors"
)

// ConfigurationError reports a programmer-facing mistake: an unknown
// strategy, a missing script file at startup, or a non-positive quota or
// window. It is fatal to the call.
type ConfigurationError struct {
	*gferrors.ValidationError
}

// NewConfigurationError wraps a field-level validation failure as a
// ConfigurationError.
func NewConfigurationError(field string, value interface{}, reason string) *ConfigurationError {
	return &ConfigurationError{gferrors.NewValidationError("ratelimit", field, value, reason)}
}

// StoreError reports a network failure, timeout, authentication failure,
// or otherwise unhealthy store. It is surfaced to the caller, who decides
// whether to fail open or fail closed; the engine never substitutes a
// verdict.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ratelimit: store error during %s: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CancelledError is surfaced when the caller's context is cancelled
// before the store reply arrives. The engine never retries in this case:
// the script has either executed or not, and retrying could double-deduct.
type CancelledError struct {
	Operation string
	Err       error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("ratelimit: %s cancelled: %v", e.Operation, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}
