package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorClass buckets a failed platform call by how the pipeline reacts to it.
type ErrorClass string

const (
	// ClassTransient marks failures worth retrying with the same request.
	ClassTransient ErrorClass = "transient"
	// ClassPermanent marks requests the platform rejected outright; the same
	// shape cannot succeed, but another strategy still might.
	ClassPermanent ErrorClass = "permanent"
	// ClassTerminal marks account or store misconfiguration. Nothing succeeds
	// until the operator fixes it, so no retry and no further strategies.
	ClassTerminal ErrorClass = "terminal"
)

// APIError is a classified failure from a platform call.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s platform error (status %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s platform error: %s", e.Class, e.Message)
}

// ClassifyStatus maps an HTTP status onto the retry taxonomy: 429 and 5xx
// are transient, every other 4xx is permanent.
func ClassifyStatus(status int, message string) *APIError {
	if status == 429 || status >= 500 {
		return &APIError{Class: ClassTransient, StatusCode: status, Message: message}
	}
	return &APIError{Class: ClassPermanent, StatusCode: status, Message: message}
}

// IsTransient reports whether err should be retried with the same request.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ClassTransient
}

// IsTerminal reports whether err rules out any further attempt.
func IsTerminal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ClassTerminal
}

// RetryAfterHint extracts the server-provided backoff, when one was given.
func RetryAfterHint(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
