package vocab

import (
	"errors"
	"fmt"
)

// Common errors returned by the vocabulary client and cache.
var (
	// ErrNotFound indicates the vocabulary has no version for the requested language.
	ErrNotFound = errors.New("vocabulary not found")

	// ErrRateLimited indicates the vocabulary service is throttling requests.
	ErrRateLimited = errors.New("vocabulary service rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with vocabulary service")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response from vocabulary service")

	// ErrFetch wraps every failure of Cache.Ensure to obtain a vocabulary.
	ErrFetch = errors.New("fetching vocabulary")
)

// APIError represents a non-success HTTP response from the vocabulary service.
type APIError struct {
	StatusCode int
	Message    string
	Language   string
}

func (e *APIError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("vocabulary API error (status %d): %s (language: %s)", e.StatusCode, e.Message, e.Language)
	}
	return fmt.Sprintf("vocabulary API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a missing vocabulary.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
