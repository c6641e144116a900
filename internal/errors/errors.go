// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors
var (
	ErrNotFound         = errors.New("not found")
	ErrNotConnected     = errors.New("not connected")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrMalformedPayload = errors.New("malformed payload")
)

// RequestError represents a failed remote request. Network failures,
// non-2xx responses and decode failures all normalize to this one type.
type RequestError struct {
	Method   string
	Endpoint string
	Status   int // 0 when the request never produced a response
	Message  string
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request error [%s %s]: status %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("request error [%s %s]: %s: %v", e.Method, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("request error [%s %s]: %s", e.Method, e.Endpoint, e.Message)
}

func (e *RequestError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return e.Err
}

// NewRequestError creates a new RequestError.
func NewRequestError(method, endpoint string, status int, message string, err error) *RequestError {
	return &RequestError{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Message:  message,
		Err:      err,
	}
}

// IsNotFound reports whether err represents a not-found condition,
// either the sentinel or a 404 response.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status == http.StatusNotFound
	}
	return false
}

// FeedError represents an error on the live feed connection.
type FeedError struct {
	Op      string // connect, read, write, subscribe
	Channel string
	Err     error
}

func (e *FeedError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("feed error [%s] channel %s: %v", e.Op, e.Channel, e.Err)
	}
	return fmt.Sprintf("feed error [%s]: %v", e.Op, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(op, channel string, err error) *FeedError {
	return &FeedError{Op: op, Channel: channel, Err: err}
}

// ValidationError represents a shape/type validation error on a payload.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
