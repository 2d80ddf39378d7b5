package liveclass

import (
	"context"
	"encoding/json"
	"fmt"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
)

// UpdateSettings persists a new class policy through the REST collaborator,
// applies it locally and broadcasts it on the channel. Teacher only. The
// local apply uses the same path as an inbound broadcast, so the author
// converges exactly like every other client.
func (s *Session) UpdateSettings(ctx context.Context, settings perms.ClassSettings) error {
	if !s.HasPermission(ActionControlClass) {
		return SessionError{Severity: SeverityDegraded, Err: ErrNotTeacher}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	if s.api != nil {
		if err := s.api.UpdateSettings(ctx, s.class.ID, settings); err != nil {
			return SessionError{Severity: SeverityTransient, Err: fmt.Errorf("persist settings: %w", err)}
		}
	}

	s.applySettings(settings)

	if err := s.send(wire.EventClassSettingsUpdated, wire.ClassSettingsPayload{Settings: settings}); err != nil {
		// Persisted but not broadcast; the metadata poll converges the room.
		return SessionError{Severity: SeverityTransient, Err: fmt.Errorf("broadcast settings: %w", err)}
	}
	return nil
}

// StartRecording marks the class as recording and announces it. Requires the
// record permission.
func (s *Session) StartRecording() error {
	if !s.HasPermission(ActionRecord) {
		return SessionError{Severity: SeverityDegraded, Err: ErrNotTeacher}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.send(wire.EventRecordingStarted, wire.RecordingStatusPayload{
		IsRecording: true,
		StartedBy:   s.identity.UserID,
	})
}

// StopRecording ends a running recording. Stopping when not recording is a
// no-op.
func (s *Session) StopRecording() error {
	if !s.HasPermission(ActionRecord) {
		return SessionError{Severity: SeverityDegraded, Err: ErrNotTeacher}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.send(wire.EventRecordingStopped, wire.RecordingStatusPayload{IsRecording: false})
}

// SendWhiteboardUpdate relays a drawing delta to the room. The drawing data
// is opaque to the session.
func (s *Session) SendWhiteboardUpdate(drawingData json.RawMessage) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	enabled := s.settings.EnableWhiteboard
	s.mu.Unlock()

	if !enabled {
		return SessionError{Severity: SeverityDegraded, Err: errWhiteboardDisabled}
	}

	return s.send(wire.EventWhiteboardUpdate, wire.WhiteboardUpdatePayload{DrawingData: drawingData})
}

// SaveWhiteboardNotes persists the current whiteboard snapshot through the
// REST collaborator. Teacher only.
func (s *Session) SaveWhiteboardNotes(ctx context.Context, notes json.RawMessage) error {
	if !s.HasPermission(ActionControlClass) {
		return SessionError{Severity: SeverityDegraded, Err: ErrNotTeacher}
	}
	if s.api == nil {
		return ErrNotConnected
	}
	if err := s.api.SaveWhiteboardNotes(ctx, s.class.ID, notes); err != nil {
		return SessionError{Severity: SeverityTransient, Err: err}
	}
	return nil
}

// WhiteboardNotes fetches the persisted whiteboard snapshot.
func (s *Session) WhiteboardNotes(ctx context.Context) (json.RawMessage, error) {
	if s.api == nil {
		return nil, ErrNotConnected
	}
	notes, err := s.api.WhiteboardNotes(ctx, s.class.ID)
	if err != nil {
		return nil, SessionError{Severity: SeverityTransient, Err: err}
	}
	return notes, nil
}
