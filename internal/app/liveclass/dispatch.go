package liveclass

import (
	"errors"
	"time"

	"edulive/internal/app/perms"
	"edulive/internal/app/roster"
	"edulive/internal/app/wire"
)

// dispatch routes one inbound frame. Events are dropped when the session has
// been cleaned up or when they arrive on a channel instance that has since
// been replaced, so a stale socket can never mutate live state.
func (s *Session) dispatch(conn *channelConn, env wire.Envelope) {
	s.mu.Lock()
	if !s.active || s.conn != conn {
		s.mu.Unlock()
		s.logger.Debug().Str("event", string(env.Type)).Msg("dropping event on inactive channel")
		return
	}
	s.mu.Unlock()

	var err error

	switch env.Type {
	case wire.EventJoinedRoom:
		err = s.handleJoinedRoom(env)
	case wire.EventParticipantsList:
		err = s.handleParticipantsList(env)
	case wire.EventUserJoined:
		err = s.handleUserJoined(env)
	case wire.EventUserLeft:
		err = s.handleUserLeft(env)
	case wire.EventChatMessage:
		err = s.handleChatMessage(env)
	case wire.EventHandRaised:
		err = s.handleHandRaise(env, true)
	case wire.EventHandLowered:
		err = s.handleHandRaise(env, false)
	case wire.EventClassSettingsUpdated:
		err = s.handleSettingsUpdated(env)
	case wire.EventPermissionsUpdated:
		err = s.handlePermissionsUpdated(env)
	case wire.EventRecordingStatusChanged:
		err = s.handleRecordingStatus(env)
	case wire.EventWhiteboardUpdate:
		err = s.handleWhiteboardUpdate(env)
	case wire.EventRemoveParticipant:
		err = s.handleRemoved(env)
	case wire.EventError:
		err = s.handleServerError(env)
	default:
		s.logger.Warn().Str("event", string(env.Type)).Msg("unknown channel event")
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("event", string(env.Type)).Msg("failed to apply channel event")
	}
}

func (s *Session) handleJoinedRoom(env wire.Envelope) error {
	var p wire.JoinedRoomPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	s.logger.Info().
		Str("room_id", p.RoomID).
		Int("participant_count", p.ParticipantCount).
		Msg("join confirmed")

	s.setStatus(StatusConnected)
	return nil
}

func (s *Session) handleParticipantsList(env wire.Envelope) error {
	var p wire.ParticipantsListPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	list := make([]roster.Participant, 0, len(p.Participants))
	for _, info := range p.Participants {
		list = append(list, participantFromWire(info))
	}

	s.registry.ApplySnapshot(list)
	s.emitRoster()
	return nil
}

func (s *Session) handleUserJoined(env wire.Envelope) error {
	var p wire.UserJoinedPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	s.registry.ApplyJoin(roster.Participant{
		UserID:      p.ID,
		DisplayName: p.Name,
		Role:        roleFromWire(p.Role, p.IsTeacher),
	})
	s.emitRoster()
	return nil
}

func (s *Session) handleUserLeft(env wire.Envelope) error {
	var p wire.UserLeftPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	if _, ok := s.registry.ApplyLeave(p.ID); ok {
		s.mu.Lock()
		delete(s.remoteStreams, p.ID)
		s.mu.Unlock()
		s.emitRoster()
	}
	return nil
}

func (s *Session) handleChatMessage(env wire.Envelope) error {
	var p wire.ChatMessagePayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	msg := chatMessageFromWire(p)
	s.chat.append(msg)

	// The log keeps everything; the notification respects read-time
	// visibility for the local viewer.
	if msg.VisibleTo(s.identity.UserID, s.identity.Role) {
		s.mu.Lock()
		h := s.handlers.OnChatMessage
		active := s.active
		s.mu.Unlock()
		if h != nil && active {
			h(msg)
		}
	}
	return nil
}

func (s *Session) handleHandRaise(env wire.Envelope, raised bool) error {
	var p wire.HandRaisePayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	if p.ID == s.identity.UserID {
		s.mu.Lock()
		s.selfHand = selfHandState(s.selfHand, raised, p.Timestamp)
		s.mu.Unlock()
	} else {
		s.registry.Update(p.ID, func(part roster.Participant) roster.Participant {
			if raised {
				if !part.Hand.Raised {
					part.Hand = roster.HandRaise{Raised: true, RaisedAt: time.UnixMilli(p.Timestamp)}
				}
			} else {
				part.Hand = roster.HandRaise{}
			}
			return part
		})
	}

	s.mu.Lock()
	h := s.handlers.OnHandRaise
	active := s.active
	s.mu.Unlock()
	if h != nil && active {
		h(p.ID, raised)
	}

	s.emitRoster()
	return nil
}

// selfHandState applies the raise/lower no-op rules to the local hand.
func selfHandState(current roster.HandRaise, raised bool, tsMillis int64) roster.HandRaise {
	if raised {
		if current.Raised {
			return current
		}
		return roster.HandRaise{Raised: true, RaisedAt: time.UnixMilli(tsMillis)}
	}
	return roster.HandRaise{}
}

func (s *Session) handleSettingsUpdated(env wire.Envelope) error {
	var p wire.ClassSettingsPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	// Every client applies the identical derivation, including the client
	// that authored the update: convergence never depends on origin.
	s.applySettings(p.Settings)
	return nil
}

func (s *Session) handlePermissionsUpdated(env wire.Envelope) error {
	var p wire.PermissionsUpdatedPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	override := p.Permissions

	if p.TargetID == s.identity.UserID {
		// Overrides never bind teachers or privileged roles.
		if s.identity.Role.CanModerate() {
			return nil
		}
		s.mu.Lock()
		if override.IsZero() {
			s.selfOverride = nil
		} else {
			s.selfOverride = &override
		}
		s.mu.Unlock()
		s.rederiveSelf()
		return nil
	}

	s.registry.Update(p.TargetID, func(part roster.Participant) roster.Participant {
		if part.Role.CanModerate() {
			return part
		}
		if override.IsZero() {
			part.Override = nil
		} else {
			o := override
			part.Override = &o
		}
		return part
	})
	s.emitRoster()
	return nil
}

func (s *Session) handleRecordingStatus(env wire.Envelope) error {
	var p wire.RecordingStatusPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.recording != p.IsRecording
	s.recording = p.IsRecording
	h := s.handlers.OnRecordingChange
	active := s.active
	s.mu.Unlock()

	if changed && h != nil && active {
		h(p.IsRecording)
	}
	return nil
}

func (s *Session) handleWhiteboardUpdate(env wire.Envelope) error {
	var p wire.WhiteboardUpdatePayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	s.mu.Lock()
	h := s.handlers.OnWhiteboardUpdate
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h(p.DrawingData)
	}
	return nil
}

// handleRemoved reacts to the server ejecting the local participant: notify,
// then tear the whole session down.
func (s *Session) handleRemoved(env wire.Envelope) error {
	var p wire.TargetPayload
	if err := env.Bind(&p); err != nil {
		return err
	}
	if p.TargetID != s.identity.UserID {
		return nil
	}

	s.mu.Lock()
	h := s.handlers.OnRemoved
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h("removed by moderator")
	}

	s.Cleanup()
	return nil
}

func (s *Session) handleServerError(env wire.Envelope) error {
	var p wire.ErrorPayload
	if err := env.Bind(&p); err != nil {
		return err
	}

	s.emitError(SessionError{
		Severity: SeverityTransient,
		Err:      errors.New("server: " + p.Message),
	})
	return nil
}

// applySettings installs a new class policy and independently re-derives the
// local permission set. It is idempotent: re-applying identical settings
// emits nothing.
func (s *Session) applySettings(settings perms.ClassSettings) {
	s.mu.Lock()
	if s.settings == settings {
		s.mu.Unlock()
		return
	}
	s.settings = settings
	h := s.handlers.OnSettingsChange
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h(settings)
	}

	s.rederiveSelf()
}

// rederiveSelf recomputes the local capability set from the current inputs
// and enforces the media consequences (a revoked mic right mutes the track).
func (s *Session) rederiveSelf() {
	s.mu.Lock()
	next := perms.Derive(s.identity.Role, s.settings, s.selfOverride)
	changed := next != s.selfPerms
	s.selfPerms = next

	muteAudio := !next.CanSpeak && s.selfMedia.AudioOn
	muteVideo := !next.CanVideo && s.selfMedia.VideoOn

	h := s.handlers.OnPermissionsChange
	active := s.active
	s.mu.Unlock()

	if muteAudio {
		state := s.delegate.ToggleAudio()
		s.mu.Lock()
		s.selfMedia.AudioOn = state
		s.mu.Unlock()
	}
	if muteVideo {
		state := s.delegate.ToggleVideo()
		s.mu.Lock()
		s.selfMedia.VideoOn = state
		s.mu.Unlock()
	}

	if changed && h != nil && active {
		h(next)
	}
}

// participantFromWire converts a snapshot entry into a registry value.
func participantFromWire(info wire.ParticipantInfo) roster.Participant {
	p := roster.Participant{
		UserID:          info.ID,
		DisplayName:     info.Name,
		Role:            roleFromWire(info.Role, info.IsTeacher),
		ConnectionState: roster.StateConnected,
		Media: roster.MediaFlags{
			AudioOn:       info.AudioOn,
			VideoOn:       info.VideoOn,
			ScreenSharing: info.ScreenSharing,
		},
	}
	if info.HandRaised {
		p.Hand = roster.HandRaise{Raised: true, RaisedAt: time.UnixMilli(info.RaisedAt)}
	}
	return p
}

// roleFromWire resolves the role name, honoring the legacy isTeacher flag
// used by older server builds that omit the role field.
func roleFromWire(name string, isTeacher bool) perms.Role {
	if name == "" && isTeacher {
		return perms.RoleTeacher
	}
	return perms.ParseRole(name)
}
