package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTimeout      = errors.New("gateway: request timed out")
	ErrUnavailable  = errors.New("gateway: backend unavailable")
	ErrUnauthorized = errors.New("gateway: not signed in")
	ErrNotFound     = errors.New("gateway: resource not found")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: unexpected status %d", e.StatusCode)
}

// Is lets callers match auth and not-found responses with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func decodeStatusError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = strings.TrimSpace(payload.Error)
		}
	}
	return &StatusError{StatusCode: status, Message: msg}
}

// UserMessage renders err as text suitable for a notice. It prefers the
// server-supplied message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrTimeout):
		return "The server took too long to respond."
	case errors.Is(err, ErrUnavailable):
		return "Can't reach the server right now."
	}
	return fallback
}
