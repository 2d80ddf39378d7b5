package liveclass

import (
	"errors"
	"fmt"
)

// Severity classifies a session error by how the surrounding application
// should react to it.
type Severity int

const (
	// SeverityTransient errors are surfaced as dismissible messages; the
	// user retries the action manually.
	SeverityTransient Severity = iota

	// SeverityDegraded errors force the session into data-only mode
	// (audio/video flags off) but never abort the join.
	SeverityDegraded

	// SeverityFatal errors block the session entirely, e.g. a missing
	// authentication token.
	SeverityFatal
)

// String returns a short label for logging.
func (s Severity) String() string {
	switch s {
	case SeverityDegraded:
		return "degraded"
	case SeverityFatal:
		return "fatal"
	default:
		return "transient"
	}
}

var (
	// ErrMissingAuthToken blocks the session before any channel is opened.
	ErrMissingAuthToken = errors.New("liveclass: missing authentication token")

	// ErrSessionClosed is returned by operations invoked after Cleanup.
	ErrSessionClosed = errors.New("liveclass: session closed")

	// ErrNotConnected is returned when an operation needs a live channel.
	ErrNotConnected = errors.New("liveclass: channel not connected")

	// ErrNotTeacher guards teacher-only operations such as settings updates.
	ErrNotTeacher = errors.New("liveclass: operation requires class control")

	// ErrChatDisabled is returned by SendChat when the caller lacks chat rights.
	ErrChatDisabled = errors.New("liveclass: chat not permitted")

	// ErrHandRaiseDisabled is returned by RaiseHand when the class has hand
	// raising switched off.
	ErrHandRaiseDisabled = errors.New("liveclass: hand raise disabled")

	errEmptyMessage       = errors.New("liveclass: empty chat message")
	errMessageTooLong     = errors.New("liveclass: chat message too long")
	errWhiteboardDisabled = errors.New("liveclass: whiteboard disabled")
)

// SessionError pairs an error with its severity so the embedding layer can
// route it (banner, data-only notice, or hard stop) without string matching.
type SessionError struct {
	Severity Severity
	Err      error
}

// Error implements the error interface.
func (e SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Severity, e.Err)
}

// Unwrap exposes the wrapped error for errors.Is/As.
func (e SessionError) Unwrap() error { return e.Err }
