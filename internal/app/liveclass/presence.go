package liveclass

import (
	"time"

	"edulive/internal/app/media"
	"edulive/internal/app/roster"
	"edulive/internal/app/wire"
)

// RaiseHand flags the local participant as requesting attention. Teachers
// cannot raise; a second raise while already raised keeps the original
// timestamp and sends nothing.
func (s *Session) RaiseHand() error {
	if s.IsTeacher() {
		return nil
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.settings.EnableHandRaise {
		s.mu.Unlock()
		return SessionError{Severity: SeverityDegraded, Err: ErrHandRaiseDisabled}
	}
	if s.selfHand.Raised {
		s.mu.Unlock()
		return nil
	}
	now := time.Now()
	s.selfHand = roster.HandRaise{Raised: true, RaisedAt: now}
	s.mu.Unlock()

	return s.send(wire.EventRaiseHand, wire.HandRaisePayload{
		ID:        s.identity.UserID,
		Timestamp: now.UnixMilli(),
	})
}

// LowerHand clears the local hand flag. Lowering an already lowered hand is
// a no-op.
func (s *Session) LowerHand() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.selfHand.Raised {
		s.mu.Unlock()
		return nil
	}
	s.selfHand = roster.HandRaise{}
	s.mu.Unlock()

	return s.send(wire.EventLowerHand, wire.HandRaisePayload{ID: s.identity.UserID})
}

// HandRaised reports the local hand state.
func (s *Session) HandRaised() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfHand.Raised
}

// ToggleAudio flips the local microphone through the delegate. Enabling is
// refused when the derived permission set forbids speaking.
func (s *Session) ToggleAudio() (bool, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	enabling := !s.selfMedia.AudioOn
	allowed := s.selfPerms.CanSpeak
	s.mu.Unlock()

	if enabling && !allowed {
		return false, SessionError{Severity: SeverityDegraded, Err: media.ErrPermissionDenied}
	}

	state := s.delegate.ToggleAudio()

	s.mu.Lock()
	s.selfMedia.AudioOn = state
	s.mu.Unlock()

	return state, nil
}

// ToggleVideo flips the local camera through the delegate, guarded by the
// derived video permission.
func (s *Session) ToggleVideo() (bool, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	enabling := !s.selfMedia.VideoOn
	allowed := s.selfPerms.CanVideo
	s.mu.Unlock()

	if enabling && !allowed {
		return false, SessionError{Severity: SeverityDegraded, Err: media.ErrPermissionDenied}
	}

	state := s.delegate.ToggleVideo()

	s.mu.Lock()
	s.selfMedia.VideoOn = state
	s.mu.Unlock()

	return state, nil
}

// StartScreenShare requests a screen capture from the delegate and announces
// it on the channel.
func (s *Session) StartScreenShare() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.selfMedia.ScreenSharing {
		s.mu.Unlock()
		return nil
	}
	allowed := s.selfPerms.CanScreenShare
	s.mu.Unlock()

	if !allowed {
		return SessionError{Severity: SeverityDegraded, Err: media.ErrPermissionDenied}
	}

	if err := s.delegate.StartScreenShare(); err != nil {
		return SessionError{Severity: SeverityDegraded, Err: err}
	}

	s.mu.Lock()
	s.selfMedia.ScreenSharing = true
	s.mu.Unlock()

	return s.send(wire.EventScreenShareStarted, wire.TargetPayload{TargetID: s.identity.UserID})
}

// StopScreenShare ends a running screen share. Stopping when nothing is
// shared is a no-op.
func (s *Session) StopScreenShare() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.selfMedia.ScreenSharing {
		s.mu.Unlock()
		return nil
	}
	s.selfMedia.ScreenSharing = false
	s.mu.Unlock()

	if err := s.delegate.StopScreenShare(); err != nil {
		s.logger.Warn().Err(err).Msg("screen share stop reported an error")
	}

	return s.send(wire.EventScreenShareStopped, wire.TargetPayload{TargetID: s.identity.UserID})
}

// MediaState returns the local media flags.
func (s *Session) MediaState() roster.MediaFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfMedia
}
