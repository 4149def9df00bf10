package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

// APIError represents a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match every APIError against domain.ErrTransport
func (e *APIError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return domain.ErrTransport
}

// Is reports whether target is one of the status sentinels below
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrInvalidData:
		return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// Status sentinels for errors.Is against *APIError
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalidData = errors.New("invalid data")
	ErrServer      = errors.New("server error")
)

// StatusMessage is the message shown when the error body carries none
func StatusMessage(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "invalid credentials"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusConflict:
		return "a user with this email already exists"
	case http.StatusUnprocessableEntity:
		return "invalid data"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return fmt.Sprintf("error %d", code)
	}
}

type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// newAPIError reads resp.Body and builds an APIError from a
// {message|error} body, falling back to StatusMessage.
func newAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(data, resp.StatusCode),
	}
}

func errorMessage(data []byte, code int) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if msg := rawErrorText(body.Error); msg != "" {
			return msg
		}
	}
	return StatusMessage(code)
}

// rawErrorText accepts "error": "text" and "error": {"message": "text"}
func rawErrorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
