// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrValidation = errors.New("validation failed")
	ErrEmptyInput = errors.New("no sales records")

	// Stage errors.
	ErrCollaborator = errors.New("collaborator failed")
	ErrPartialTask  = errors.New("research task failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes malformed or missing input. Row is 1-based over
// data rows; zero means the problem is not tied to a row.
type ValidationError struct {
	Field  string
	Reason string
	Row    int
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError.
func NewValidationError(row int, field, reason string) error {
	return &ValidationError{Row: row, Field: field, Reason: reason}
}

// CollaboratorError wraps a failure raised by an advisory stage.
type CollaboratorError struct {
	Err   error
	Stage string
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s stage failed", e.Stage)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCollaborator.
func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaborator
}

// NewCollaboratorError creates a CollaboratorError for the named stage.
func NewCollaboratorError(stage string, err error) error {
	return &CollaboratorError{Stage: stage, Err: err}
}

// PartialTaskError records a single failed research task. It never aborts the
// research stage.
type PartialTaskError struct {
	Err    error
	Query  string
	TaskID int
}

func (e *PartialTaskError) Error() string {
	return fmt.Sprintf("task %d (%q): %v", e.TaskID, e.Query, e.Err)
}

func (e *PartialTaskError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPartialTask.
func (e *PartialTaskError) Is(target error) bool {
	return target == ErrPartialTask
}

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

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
