package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAPI matches every APIError via errors.Is.
var ErrAPI = errors.New("order api error")

// ErrorClass represents a classification of search failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 200 response whose body could not be decoded.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError reports a failed search request. Searches are never retried.
type APIError struct {
	Endpoint   string
	Page       int
	StatusCode int
	Class      ErrorClass
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order api %s error on page %d (status %d): %v",
			e.Class, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("order api %s error on page %d (status %d): %s",
		e.Class, e.Page, e.StatusCode, e.Body)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// classify categorizes a failed response or transport error.
func classify(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// Unexpected non-200 success or redirect codes.
		return ErrorClassClient
	}
}
