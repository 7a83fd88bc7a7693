package auth

import (
	"errors"
	"fmt"
)

// ErrAuthentication matches every AuthenticationError via errors.Is.
var ErrAuthentication = errors.New("authentication failed")

// AuthenticationError reports a failed token exchange.
// StatusCode is 0 when the request never produced a response.
type AuthenticationError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("authentication failed at %s (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed at %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("authentication failed at %s (status %d): %s", e.Endpoint, e.StatusCode, e.Body)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}
