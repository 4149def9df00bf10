package domain

import "errors"

// -----------------------------------------------------------------------------
// Client Errors
// Every failure surfaced by the api, saver and generation code wraps one of
// these so callers can branch with errors.Is.
// -----------------------------------------------------------------------------

var (
	// ErrValidation marks an exercise that failed shape checks before any I/O
	ErrValidation = errors.New("validation failed")

	// ErrTransport marks a network failure or non-2xx response
	ErrTransport = errors.New("transport error")

	// ErrAuthExpired is returned after a 401/403; the stored token is gone
	ErrAuthExpired = errors.New("session expired, please log in again")

	// ErrTimeout marks a generation request that exceeded its bound
	ErrTimeout = errors.New("request timed out")

	// ErrParse marks a response body that is not valid JSON or lacks fields
	ErrParse = errors.New("invalid response")
)

// Lookup errors
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)
