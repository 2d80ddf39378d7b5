/*
Package classapi is the REST client a live-class session uses to talk to the
education platform: joining a class by token or id, persisting settings
updates, and loading/saving whiteboard notes.

Responses use the platform's standard envelope {code, message, data}; a
non-zero code is surfaced as an *APIError carrying the business code so
callers can branch on conditions like "password required".
*/
package classapi

import (
	"encoding/json"
	"fmt"

	"edulive/internal/app/perms"
)

// LiveClass is the class descriptor returned by the join endpoints.
type LiveClass struct {
	ID               string              `json:"id"`
	Code             string              `json:"code"`
	Title            string              `json:"title"`
	TeacherID        string              `json:"teacherId"`
	Sections         []string            `json:"sections,omitempty"`
	MaxParticipants  int                 `json:"maxParticipants"`
	Settings         perms.ClassSettings `json:"settings"`
	RequiresPassword bool                `json:"requiresPassword,omitempty"`
}

// GuestDetails carries the name (and optional email) collected from an
// unauthenticated participant before a token join can proceed. ID may hold
// the guest id from a previous join to keep the same identity.
type GuestDetails struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// JoinResult is the payload of a successful join-by-token call.
type JoinResult struct {
	Class       LiveClass           `json:"liveClass"`
	Role        string              `json:"userRole"`
	Permissions perms.PermissionSet `json:"permissions"`
	Settings    perms.ClassSettings `json:"settings"`

	// ChannelToken authorizes the websocket channel for this class. Empty
	// when the caller's existing token already covers the class.
	ChannelToken string `json:"token,omitempty"`
}

// envelope is the platform's standard JSON response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// APIError is a platform business error (envelope code != 0).
type APIError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("class API error %d: %s", e.Code, e.Message)
}
