package liveclass

import (
	"edulive/internal/app/wire"
)

// TogglePermission flips one capability override on one participant.
// permissionType is "audio", "video", "chat" or "screenShare". Requires class
// control; the authoritative state change arrives back as permissions-updated.
func (s *Session) TogglePermission(targetID, permissionType string, enabled bool) error {
	if err := s.requireControl(); err != nil {
		return err
	}

	return s.send(wire.EventTogglePermissions, wire.TogglePermissionsPayload{
		TargetID:       targetID,
		PermissionType: permissionType,
		Enabled:        enabled,
	})
}

// ForceMute cuts a participant's microphone right. Unlike TogglePermission
// this is a hard moderation action: the server applies it even mid-speech.
func (s *Session) ForceMute(targetID string) error {
	if err := s.requireControl(); err != nil {
		return err
	}
	return s.send(wire.EventForceMute, wire.TargetPayload{TargetID: targetID})
}

// ForceDisableCamera cuts a participant's camera right.
func (s *Session) ForceDisableCamera(targetID string) error {
	if err := s.requireControl(); err != nil {
		return err
	}
	return s.send(wire.EventForceDisableCamera, wire.TargetPayload{TargetID: targetID})
}

// RemoveParticipant ejects a participant from the class.
func (s *Session) RemoveParticipant(targetID string) error {
	if err := s.requireControl(); err != nil {
		return err
	}
	return s.send(wire.EventRemoveParticipant, wire.TargetPayload{TargetID: targetID})
}

// MuteAll force-mutes every non-moderating participant, walking the registry
// in canonical order so moderation applies deterministically.
func (s *Session) MuteAll() error {
	if err := s.requireControl(); err != nil {
		return err
	}

	for _, p := range s.registry.All() {
		if p.Role.CanModerate() {
			continue
		}
		if err := s.send(wire.EventForceMute, wire.TargetPayload{TargetID: p.UserID}); err != nil {
			return err
		}
	}
	return nil
}

// LowerAllHands clears every raised hand in the room, again in canonical
// order.
func (s *Session) LowerAllHands() error {
	if err := s.requireControl(); err != nil {
		return err
	}

	for _, p := range s.registry.All() {
		if !p.Hand.Raised {
			continue
		}
		if err := s.send(wire.EventLowerHand, wire.HandRaisePayload{ID: p.UserID}); err != nil {
			return err
		}
	}
	return nil
}

// requireControl rejects moderation calls from sessions without class
// control or after cleanup.
func (s *Session) requireControl() error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if !active {
		return ErrSessionClosed
	}
	if !s.HasPermission(ActionControlClass) {
		return SessionError{Severity: SeverityDegraded, Err: ErrNotTeacher}
	}
	return nil
}
