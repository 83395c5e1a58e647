// Package apierr carries the one error shape every component surfaces:
// message, HTTP status and the three flags callers branch on. Validation
// errors are built locally and never reach the network.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Message      string
	Status       int
	Details      map[string][]string
	Retryable    bool
	AuthError    bool
	NetworkError bool
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// Validation builds a local pre-network error.
func Validation(message string) *Error {
	return &Error{Message: message, Status: http.StatusBadRequest}
}

// Unauthorized marks an operation attempted without an authenticated session.
func Unauthorized(message string) *Error {
	return &Error{Message: message, Status: http.StatusUnauthorized, AuthError: true}
}

// FromTransport wraps a failed round trip: no response, timeout, connection
// refused. Always retryable from the caller's point of view.
func FromTransport(err error) *Error {
	return &Error{
		Message:      fmt.Sprintf("network error: %v", err),
		NetworkError: true,
		Retryable:    true,
	}
}

// FromStatus classifies a non-2xx response.
func FromStatus(status int, message string, details map[string][]string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		Message:   message,
		Status:    status,
		Details:   details,
		Retryable: IsRetryableStatus(status),
		AuthError: status == http.StatusUnauthorized || status == http.StatusForbidden,
	}
}

func IsRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// As unwraps err into *Error if possible.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsAuth(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.AuthError
}

func IsNotFound(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == http.StatusNotFound
}

func IsConflict(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == http.StatusConflict
}
