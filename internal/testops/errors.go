package testops

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by APIError via errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

// APIError describes a failed API call.
type APIError struct {
	Op         string // "create run", "upload results", ...
	Project    string
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error class.
func (e *APIError) Is(target error) bool {
	return target == e.class()
}

func (e *APIError) class() error {
	switch {
	case e.StatusCode == 0 && e.Cause != nil:
		return ErrNetwork
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	default:
		// Other 4xx, and 2xx carrying a status:false envelope.
		return ErrValidation
	}
}

// Temporary reports whether retrying the call may succeed.
func (e *APIError) Temporary() bool {
	switch e.class() {
	case ErrNetwork, ErrRateLimited, ErrServer:
		return true
	}
	return false
}
