// Package apierr defines the error taxonomy for client/backend interaction.
package apierr

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when the refresh path is exhausted.
// Both stored tokens are cleared before this error is surfaced; it is
// the one error with a mandated side effect beyond display.
var ErrSessionExpired = errors.New("session expired (run: tdo login)")

// ValidationError reports malformed or missing input, caught before
// any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NetworkError reports that no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a 4xx/5xx response, carrying the status code and
// the server's message.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}
