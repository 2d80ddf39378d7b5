/*
Package wire defines the event-channel protocol spoken between a live-class
session and the class session server.

Every frame is a JSON envelope carrying an event type and a raw payload. The
payload types in payloads.go are shared by both ends so the client session and
the server hub cannot drift apart.
*/
package wire

import (
	"encoding/json"
	"fmt"
)

// EventType names one kind of channel event.
type EventType string

// Client-to-server events.
const (
	EventJoinRoom             EventType = "join-room"
	EventChatMessage          EventType = "chat-message"
	EventRaiseHand            EventType = "raise-hand"
	EventLowerHand            EventType = "lower-hand"
	EventClassSettingsUpdated EventType = "class-settings-updated"
	EventTogglePermissions    EventType = "toggle-student-permissions"
	EventRemoveParticipant    EventType = "remove-participant"
	EventForceMute            EventType = "force-mute"
	EventForceDisableCamera   EventType = "force-disable-camera"
	EventRecordingStarted     EventType = "recording-started"
	EventRecordingStopped     EventType = "recording-stopped"
	EventScreenShareStarted   EventType = "screen-share-started"
	EventScreenShareStopped   EventType = "screen-share-stopped"
	EventWhiteboardUpdate     EventType = "whiteboard-update"
)

// Server-to-client events. EventChatMessage, EventClassSettingsUpdated and
// EventWhiteboardUpdate travel in both directions.
const (
	EventJoinedRoom             EventType = "joined-room"
	EventParticipantsList       EventType = "participants-list"
	EventUserJoined             EventType = "user-joined"
	EventUserLeft               EventType = "user-left"
	EventHandRaised             EventType = "hand-raised"
	EventHandLowered            EventType = "hand-lowered"
	EventPermissionsUpdated     EventType = "permissions-updated"
	EventRecordingStatusChanged EventType = "recording-status-changed"
	EventError                  EventType = "error"
)

// Envelope is one channel frame: an event type plus its JSON payload.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals an event type and payload into a wire frame.
func Encode(t EventType, payload any) ([]byte, error) {
	env := Envelope{Type: t}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// Decode parses a wire frame into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event type")
	}
	return env, nil
}

// Bind unmarshals the envelope payload into dst.
func (e Envelope) Bind(dst any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("bind %s payload: %w", e.Type, err)
	}
	return nil
}
