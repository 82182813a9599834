// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// Errors returned by the Controller. Service failures are passed through
// unchanged and can be matched with the chatapi helpers.
var (
	// ErrBusy rejects a send, regenerate or load while another is in flight.
	ErrBusy = errors.New("session: a request is already in flight")

	// ErrNothingToRegenerate means the log has no user message to resend.
	ErrNothingToRegenerate = errors.New("session: no user message to regenerate")

	// ErrMessageNotFound means the id is not in the current log.
	ErrMessageNotFound = errors.New("session: message not found")

	// ErrNotBookmarkable rejects bookmarks on unconfirmed or synthetic
	// messages.
	ErrNotBookmarkable = errors.New("session: message cannot be bookmarked")

	// ErrSuperseded is returned when NewChat or another load replaced the
	// chat while a request was in flight. The response was discarded.
	ErrSuperseded = errors.New("session: chat changed while request was in flight")
)

// ValidationError is a local rejection of input. No request was made.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
