package wire

import (
	"encoding/json"

	"edulive/internal/app/perms"
)

// ParticipantInfo is the wire-level view of one room participant, used in
// participants-list snapshots and user-joined events.
type ParticipantInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	IsTeacher     bool   `json:"isTeacher"`
	AudioOn       bool   `json:"audioOn"`
	VideoOn       bool   `json:"videoOn"`
	ScreenSharing bool   `json:"screenSharing"`
	HandRaised    bool   `json:"handRaised"`
	// RaisedAt is a Unix millisecond timestamp, zero when the hand is down.
	RaisedAt int64 `json:"raisedAt,omitempty"`
}

// JoinRoomPayload asks the server to place the sender in a room.
type JoinRoomPayload struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Role      string `json:"role"`
	IsTeacher bool   `json:"isTeacher"`
}

// JoinedRoomPayload confirms a join to the sender.
type JoinedRoomPayload struct {
	RoomID           string `json:"roomId"`
	IsTeacher        bool   `json:"isTeacher"`
	ParticipantCount int    `json:"participantCount"`
}

// ParticipantsListPayload is the authoritative membership snapshot sent on
// join and on explicit refresh.
type ParticipantsListPayload struct {
	Participants []ParticipantInfo `json:"participants"`
}

// UserJoinedPayload announces a new participant to the rest of the room.
type UserJoinedPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsTeacher bool   `json:"isTeacher"`
}

// UserLeftPayload announces a departure.
type UserLeftPayload struct {
	ID string `json:"id"`
}

// ChatMessagePayload carries one chat message. RecipientID empty means public.
// The server sets ID, SenderID, Timestamp and SenderIsPrivileged before
// delivery; clients must not trust the inbound values of those fields.
type ChatMessagePayload struct {
	ID                 string `json:"id,omitempty"`
	SenderID           string `json:"senderId,omitempty"`
	SenderName         string `json:"senderName,omitempty"`
	RecipientID        string `json:"recipient,omitempty"`
	Content            string `json:"content"`
	IsPrivate          bool   `json:"isPrivate"`
	SenderIsPrivileged bool   `json:"senderIsPrivileged,omitempty"`
	// Timestamp is Unix milliseconds at the server.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// HandRaisePayload reports a raise or lower for one participant.
// Timestamp is Unix milliseconds and only meaningful on hand-raised.
type HandRaisePayload struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ClassSettingsPayload broadcasts the full class policy.
type ClassSettingsPayload struct {
	Settings perms.ClassSettings `json:"settings"`
}

// TogglePermissionsPayload is a moderation action flipping one capability of
// one participant.
type TogglePermissionsPayload struct {
	TargetID       string `json:"targetId"`
	PermissionType string `json:"permissionType"`
	Enabled        bool   `json:"enabled"`
}

// TargetPayload addresses moderation events that only need a target:
// remove-participant, force-mute, force-disable-camera.
type TargetPayload struct {
	TargetID string `json:"targetId"`
}

// PermissionsUpdatedPayload informs clients that a participant's override
// changed. TargetID tells everyone whose permissions to re-derive.
type PermissionsUpdatedPayload struct {
	TargetID    string         `json:"targetId"`
	Permissions perms.Override `json:"permissions"`
}

// RecordingStatusPayload reports the room's recording state.
type RecordingStatusPayload struct {
	IsRecording bool   `json:"isRecording"`
	StartedBy   string `json:"startedBy,omitempty"`
}

// WhiteboardUpdatePayload relays an opaque whiteboard drawing delta. The
// drawing format is owned by the whiteboard renderer, not this protocol.
type WhiteboardUpdatePayload struct {
	DrawingData json.RawMessage `json:"drawingData"`
}

// ErrorPayload surfaces a channel-level error to the client.
type ErrorPayload struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}
