// Package apperror defines the error taxonomy shared by the interview engine,
// its persistence layer and the HTTP boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Conflict reasons carried by StateConflictError. Match them with errors.Is.
var (
	ErrAlreadyConcluded  = errors.New("session already concluded")
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrVersionConflict   = errors.New("session was modified concurrently")
	ErrSessionNotActive  = errors.New("session is not active")
)

// ValidationError reports malformed input: checklist, phase, request body or
// structured model output.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// StateConflictError reports an operation that is not allowed in the current
// state of a session.
type StateConflictError struct {
	Reason  error
	Message string
}

func (e *StateConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s", e.Reason, e.Message)
	}
	return e.Reason.Error()
}

func (e *StateConflictError) Unwrap() error {
	return e.Reason
}

// ProviderError reports a failed or timed out language-model call.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// FieldError is a single structured-output violation.
type FieldError struct {
	Field   string
	Message string
}

// SchemaValidationError reports model output that does not match the expected
// structure. It is never coerced into a valid value.
type SchemaValidationError struct {
	Source string
	Errors []FieldError
	Cause  error
}

func (e *SchemaValidationError) Error() string {
	msg := fmt.Sprintf("%s output failed validation", e.Source)
	for i, fe := range e.Errors {
		if i == 0 {
			msg += ":"
		} else {
			msg += ";"
		}
		msg += fmt.Sprintf(" %s: %s", fe.Field, fe.Message)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}

// SummarizationError reports a failure of the consensus summarizer pass.
type SummarizationError struct {
	Cause error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Cause)
}

func (e *SummarizationError) Unwrap() error {
	return e.Cause
}

// PersistenceError reports a storage failure.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// AlreadyConcluded builds the conflict returned for a repeated conclude.
func AlreadyConcluded(status string) error {
	return &StateConflictError{Reason: ErrAlreadyConcluded, Message: "status is " + status}
}

// HTTPStatus returns the status code the HTTP boundary answers with for err.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		schemaErr     *SchemaValidationError
		notFoundErr   *NotFoundError
		conflictErr   *StateConflictError
		providerErr   *ProviderError
		summaryErr    *SummarizationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &schemaErr), errors.As(err, &providerErr), errors.As(err, &summaryErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err is recovered at the request boundary as a
// client error rather than logged as a server failure.
func IsClientError(err error) bool {
	status := HTTPStatus(err)
	return status >= 400 && status < 500
}
