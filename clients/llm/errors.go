package llm

import (
	"errors"
	"fmt"
)

// RetryableError marks an upstream failure worth retrying against another
// backend: throttling, timeouts, transient server errors.
type RetryableError struct {
	Cause error
}

// NewRetryableError wraps cause as a retryable failure
func NewRetryableError(cause error) *RetryableError {
	return &RetryableError{Cause: cause}
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable upstream error: %v", e.Cause)
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// FatalError marks a failure that retrying cannot fix: auth failures,
// malformed requests, anything unclassified. Retrying a guaranteed-to-fail
// request wastes rate-limiter budget and remaining attempts.
type FatalError struct {
	Cause error
}

// NewFatalError wraps cause as a non-retryable failure
func NewFatalError(cause error) *FatalError {
	return &FatalError{Cause: cause}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal upstream error: %v", e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err carries a RetryableError tag anywhere in
// its chain
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// CauseMessage returns the underlying failure message with the
// classification wrapper stripped, suitable for user-visible output
func CauseMessage(err error) string {
	var retryable *RetryableError
	if errors.As(err, &retryable) && retryable.Cause != nil {
		return retryable.Cause.Error()
	}
	var fatal *FatalError
	if errors.As(err, &fatal) && fatal.Cause != nil {
		return fatal.Cause.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
