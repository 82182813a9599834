// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/quranchat-tui/internal/util"
)

// Error variables for chat service failures.
var (
	// ErrUnauthorized indicates the bearer token was rejected or is missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoCredential indicates no token was available; no request was made.
	ErrNoCredential = fmt.Errorf("%w: no credential", ErrUnauthorized)

	// ErrNotFound indicates the chat or message no longer exists.
	ErrNotFound = errors.New("not found")
)

// ServiceError is any other failure of a chat service call, including
// transport errors (Status 0) and malformed responses.
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("chat service: %s: %v", e.Message, e.Err)
	case e.Status == 0:
		return "chat service: " + e.Message
	default:
		return fmt.Sprintf("chat service error (HTTP %d): %s", e.Status, e.Message)
	}
}

// Unwrap returns the underlying transport error, if any.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same request may succeed.
func (e *ServiceError) Temporary() bool {
	return e.Status == 0 || e.Status >= 500
}

// IsUnauthorized reports whether err means the user must log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err means the resource is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// errorBody covers the FastAPI {"detail": ...} shape and {"error": ...}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

// handleErrorResponse converts HTTP error responses to the package errors.
func handleErrorResponse(statusCode int, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return &ServiceError{Status: statusCode, Message: msg}
	}
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(util.TruncateRunes(string(body), maxErrorRunes))
	}
	if eb.Error != "" {
		return eb.Error
	}
	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s
		}
		return util.TruncateRunes(string(eb.Detail), maxErrorRunes)
	}
	return ""
}

// maxErrorRunes bounds server error text carried in returned errors.
const maxErrorRunes = 200
