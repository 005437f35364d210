package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of a reconciliation error.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates a malformed field spec.
	// Raised at normalization time, before any network activity.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassResolution indicates a named reference that could not be
	// resolved to exactly one record (not found or ambiguous).
	ErrorClassResolution ErrorClass = "resolution"

	// ErrorClassRemote indicates a failed create/update/delete/action call
	// reported by the API client.
	ErrorClassRemote ErrorClass = "remote"

	// ErrorClassState indicates an unsupported state value, or a custom verb
	// requested against a nonexistent entity.
	ErrorClassState ErrorClass = "state"
)

// Error represents a classified reconciliation error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the API resource type involved, if applicable.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information, such as the
	// search string of a failed lookup or the HTTP status of a remote call.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Resource != "" && e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s (resource=%s, operation=%s)", e.Class, e.Message, e.Resource, e.Operation)
	} else if e.Resource != "" {
		msg = fmt.Sprintf("[%s] %s (resource=%s)", e.Class, e.Message, e.Resource)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *Error {
	return &Error{Class: ErrorClassConfiguration, Message: message, Err: err}
}

// NewResolutionError creates a new resolution error.
func NewResolutionError(message string, err error) *Error {
	return &Error{Class: ErrorClassResolution, Message: message, Err: err}
}

// NewRemoteError creates a new remote-call error.
func NewRemoteError(message string, err error) *Error {
	return &Error{Class: ErrorClassRemote, Message: message, Err: err}
}

// NewStateError creates a new state error.
func NewStateError(message string, err error) *Error {
	return &Error{Class: ErrorClassState, Message: message, Err: err}
}

// WithResource adds resource context to an error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsConfiguration returns true if the error is classified as a configuration error.
func IsConfiguration(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassConfiguration
	}
	return false
}

// IsResolution returns true if the error is classified as a resolution error.
func IsResolution(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassResolution
	}
	return false
}

// IsRemote returns true if the error is classified as a remote-call error.
func IsRemote(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassRemote
	}
	return false
}

// IsState returns true if the error is classified as a state error.
func IsState(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassState
	}
	return false
}

// Common error codes.
const (
	ErrCodeUnknownFieldType  = "UNKNOWN_FIELD_TYPE"
	ErrCodeDuplicateFlatName = "DUPLICATE_FLAT_NAME"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAmbiguous         = "AMBIGUOUS"
	ErrCodeMissingScope      = "MISSING_SCOPE"
	ErrCodeUnsupportedState  = "UNSUPPORTED_STATE"
	ErrCodeMissingEntity     = "MISSING_ENTITY"
	ErrCodeRemoteCall        = "REMOTE_CALL_FAILED"
)
