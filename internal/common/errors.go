// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Taxonomy and corpus errors.
	ErrInvalidTaxonomy  = errors.New("invalid taxonomy")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidCorpus    = errors.New("invalid corpus")
	ErrEmptyCorpusFile  = errors.New("corpus file has no header")
	ErrMissingColumn    = errors.New("missing required column")
	ErrInvalidStatement = errors.New("invalid statement file")

	// Correction errors.
	ErrInvalidCorrection = errors.New("invalid correction")
	ErrSinkClosed        = errors.New("correction sink closed")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry. Validation,
// duplicate and shutdown errors never succeed on a second attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSinkClosed) ||
		errors.Is(err, ErrInvalidCorrection) ||
		errors.Is(err, ErrDuplicateEntry) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return true
}
