/*
Package hub contains the server side of the live-class event channel.

This file defines the Room struct, the per-class event loop. It owns the
authoritative participant set, class settings, hand-raise and recording state,
applies moderation rules, and fans events out to connected clients. All state
mutation happens on the Run goroutine.
*/
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/randx"
)

const eventChannelBuffer = 1024

const (
	// RoomInactivityTimeout is the duration after which an empty room shuts down.
	RoomInactivityTimeout = 5 * time.Minute

	// MaxChatContentBytes bounds chat message content.
	MaxChatContentBytes = 8000

	// settingsPersistTimeout bounds the settings write on an update event.
	settingsPersistTimeout = 5 * time.Second
)

// SettingsPersister is the slice of the class store the room needs to persist
// settings updates before broadcasting them.
type SettingsPersister interface {
	UpdateSettings(ctx context.Context, classID string, settings perms.ClassSettings) error
}

// RoomCleanupMsg notifies the Manager that a room finished its Run loop.
type RoomCleanupMsg struct {
	ClassID string
}

// inbound pairs a decoded frame with the client that sent it.
type inbound struct {
	client *Client
	env    wire.Envelope
}

// member is the room's authoritative state for one connected participant.
type member struct {
	client        *Client
	audioOn       bool
	videoOn       bool
	screenSharing bool
	handRaised    bool
	raisedAt      time.Time
	override      *perms.Override
}

// Room is the event loop for a single live class.
type Room struct {
	// ID is the class id the room serves.
	ID string

	// TeacherID identifies the participant who controls the class.
	TeacherID string

	// MaxClients caps unique participants; zero means unlimited.
	MaxClients int

	// settings is mutated only on the Run goroutine.
	settings perms.ClassSettings

	// recording is the room-wide recording flag.
	recording bool

	// members holds connected participants, keyed by user id.
	members map[string]*member

	events     chan inbound
	register   chan *Client
	unregister chan *Client

	// cleanupChan notifies the Manager to remove this room.
	cleanupChan chan<- RoomCleanupMsg

	// stopChan signals the Run loop to stop immediately.
	stopChan chan struct{}

	// shutdownTimer tracks room inactivity.
	shutdownTimer *time.Timer

	// persister writes settings updates through before they are broadcast.
	persister SettingsPersister

	// mu protects the members map for snapshot reads off the Run goroutine.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRoom creates and initializes a Room for one class.
func NewRoom(classID, teacherID string, maxClients int, settings perms.ClassSettings, persister SettingsPersister, cleanupChan chan<- RoomCleanupMsg) *Room {
	roomLogger := logx.Logger().With().
		Str("class_id", classID).
		Logger()

	return &Room{
		ID:            classID,
		TeacherID:     teacherID,
		MaxClients:    maxClients,
		settings:      settings,
		members:       make(map[string]*member),
		events:        make(chan inbound, eventChannelBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		shutdownTimer: time.NewTimer(RoomInactivityTimeout),
		persister:     persister,
		logger:        roomLogger,
	}
}

// Stop terminates the Room's Run loop immediately.
func (r *Room) Stop() {
	r.logger.Info().Msg("Received stop signal. Stopping room immediately.")

	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Submit queues an inbound frame for the Run loop.
func (r *Room) Submit(c *Client, env wire.Envelope) {
	select {
	case r.events <- inbound{client: c, env: env}:
	default:
		r.logger.Warn().Str("event", string(env.Type)).Msg("Room event channel blocked, frame dropped.")
		c.SendError(errs.NewError(errs.ErrUnknown))
	}
}

// RegisterClient safely adds a client to the registration queue.
func (r *Room) RegisterClient(client *Client) {
	select {
	case r.register <- client:
	default:
		r.logger.Warn().Msg("Room register channel blocked.")
		client.SendError(errs.NewError(errs.ErrUnknown))
	}
}

// IsFull checks if the room has reached its maximum participant capacity.
func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.MaxClients > 0 && len(r.members) >= r.MaxClients
}

// Run starts the main event loop for the Room.
func (r *Room) Run() {
	defer func() {
		r.logger.Info().Msg("Room Run loop finished. Notifying Manager for cleanup.")

		if r.shutdownTimer != nil {
			r.shutdownTimer.Stop()
		}

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logx.Warn("Recovered from panic during Manager cleanup notification (channel likely closed).")
				}
			}()

			select {
			case r.cleanupChan <- RoomCleanupMsg{ClassID: r.ID}:
			default:
				r.logger.Warn().Msg("Manager cleanup channel blocked/full. Skipping cleanup notification.")
			}
		}()

		r.mu.Lock()
		for _, m := range r.members {
			select {
			case <-m.client.send:
			default:
				close(m.client.send)
			}
		}
		r.mu.Unlock()
	}()

	timerChan := r.shutdownTimer.C

	for {
		select {
		case client := <-r.register:
			r.handleRegister(client)

		case client := <-r.unregister:
			r.handleUnregister(client)

		case ev := <-r.events:
			r.handleEvent(ev.client, ev.env)

		case <-timerChan:
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down.", RoomInactivityTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			return
		}
	}
}

// handleRegister admits a client: duplicate connections are replaced, the
// capacity limit enforced, and the room state snapshotted to the newcomer.
func (r *Room) handleRegister(client *Client) {
	r.mu.Lock()

	if existing, ok := r.members[client.id]; ok {
		r.logger.Warn().
			Str("client_id", client.id).
			Msg("Client ID already connected. Closing old connection for replacement.")

		existing.client.Kick(WsCloseCodeSessionKicked, "Session replaced by new connection.")
		// Keep hand-raise and override state across the replacement.
		existing.client = client
		r.mu.Unlock()

		r.resetInactivityTimer()
		r.sendRoomState(client)
		return
	}

	if r.MaxClients > 0 && len(r.members) >= r.MaxClients {
		r.logger.Warn().
			Int("max_clients", r.MaxClients).
			Str("client_id", client.id).
			Msg("Room is full. New client rejected.")

		// Close after queueing: the buffered channel still drains the error
		// frame, then WritePump writes the close frame and tears down.
		client.SendError(errs.NewError(errs.ErrClassFull))
		close(client.send)
		r.mu.Unlock()
		return
	}

	r.members[client.id] = &member{client: client}
	total := len(r.members)
	r.mu.Unlock()

	r.resetInactivityTimer()

	r.logger.Info().
		Str("client_id", client.id).
		Int("total_participants", total).
		Msg("Participant joined class.")

	r.sendRoomState(client)

	r.broadcastExcept(client.id, wire.EventUserJoined, wire.UserJoinedPayload{
		ID:        client.id,
		Name:      client.name,
		Role:      client.role.String(),
		IsTeacher: client.id == r.TeacherID,
	})

	// Auto-record classes start recording the moment the teacher arrives.
	if client.id == r.TeacherID && r.settings.AutoRecord {
		r.mu.Lock()
		start := !r.recording
		r.recording = true
		r.mu.Unlock()

		if start {
			r.broadcastAll(wire.EventRecordingStatusChanged, wire.RecordingStatusPayload{
				IsRecording: true,
				StartedBy:   client.id,
			})
		}
	}
}

// sendRoomState delivers the join confirmation and the authoritative
// participant snapshot to one client.
func (r *Room) sendRoomState(client *Client) {
	r.mu.RLock()
	count := len(r.members)
	snapshot := r.participantSnapshotLocked()
	recording := r.recording
	settings := r.settings
	r.mu.RUnlock()

	if err := client.sendEvent(wire.EventJoinedRoom, wire.JoinedRoomPayload{
		RoomID:           r.ID,
		IsTeacher:        client.id == r.TeacherID,
		ParticipantCount: count,
	}); err != nil {
		return
	}

	_ = client.sendEvent(wire.EventParticipantsList, wire.ParticipantsListPayload{Participants: snapshot})
	_ = client.sendEvent(wire.EventClassSettingsUpdated, wire.ClassSettingsPayload{Settings: settings})

	if recording {
		_ = client.sendEvent(wire.EventRecordingStatusChanged, wire.RecordingStatusPayload{IsRecording: true})
	}
}

// participantSnapshotLocked builds the wire view of the membership. Caller
// holds r.mu.
func (r *Room) participantSnapshotLocked() []wire.ParticipantInfo {
	snapshot := make([]wire.ParticipantInfo, 0, len(r.members))
	for id, m := range r.members {
		info := wire.ParticipantInfo{
			ID:            id,
			Name:          m.client.name,
			Role:          m.client.role.String(),
			IsTeacher:     id == r.TeacherID,
			AudioOn:       m.audioOn,
			VideoOn:       m.videoOn,
			ScreenSharing: m.screenSharing,
			HandRaised:    m.handRaised,
		}
		if m.handRaised {
			info.RaisedAt = m.raisedAt.UnixMilli()
		}
		snapshot = append(snapshot, info)
	}
	return snapshot
}

// handleUnregister removes a departing client, ignoring stale connections
// that were already replaced.
func (r *Room) handleUnregister(client *Client) {
	r.mu.Lock()

	current, ok := r.members[client.id]
	switch {
	case ok && current.client == client:
		delete(r.members, client.id)

		select {
		case <-client.send:
		default:
			close(client.send)
		}

		r.logger.Info().
			Str("client_id", client.id).
			Int("total_participants", len(r.members)).
			Msg("Participant left class.")

	case ok:
		r.logger.Info().
			Str("stale_client_id", client.id).
			Msg("Ignoring unregister for stale connection.")
		r.mu.Unlock()
		return

	default:
		r.logger.Warn().
			Str("client_id", client.id).
			Msg("Unregister for unknown/already removed client.")
		r.mu.Unlock()
		return
	}

	empty := len(r.members) == 0
	r.mu.Unlock()

	r.broadcastAll(wire.EventUserLeft, wire.UserLeftPayload{ID: client.id})

	if empty {
		r.logger.Info().Msg("Room is empty. Starting inactivity countdown.")
		r.resetInactivityTimer()
	}
}

// resetInactivityTimer rearms the shutdown timer.
func (r *Room) resetInactivityTimer() {
	if r.shutdownTimer == nil {
		return
	}
	if r.shutdownTimer.Stop() {
		select {
		case <-r.shutdownTimer.C:
		default:
		}
	}
	r.shutdownTimer.Reset(RoomInactivityTimeout)
}

// memberPerms derives the authoritative capability set for a member.
func (r *Room) memberPerms(m *member) perms.PermissionSet {
	return perms.Derive(m.client.role, r.settings, m.override)
}

// canModerate reports whether the client may perform moderation actions in
// this room.
func (r *Room) canModerate(c *Client) bool {
	return c.id == r.TeacherID || c.role.CanModerate()
}

// handleEvent routes one inbound frame from a connected client. Frames from
// clients no longer in the membership are dropped.
func (r *Room) handleEvent(c *Client, env wire.Envelope) {
	r.mu.RLock()
	m, ok := r.members[c.id]
	stale := ok && m.client != c
	r.mu.RUnlock()

	if !ok || stale {
		r.logger.Debug().
			Str("client_id", c.id).
			Str("event", string(env.Type)).
			Msg("Dropping event from non-member connection.")
		return
	}

	switch env.Type {
	case wire.EventJoinRoom:
		// Idempotent: the client is already registered; re-send the state.
		r.sendRoomState(c)

	case wire.EventChatMessage:
		r.handleChat(c, m, env)

	case wire.EventRaiseHand:
		r.handleRaiseHand(c, m)

	case wire.EventLowerHand:
		r.handleLowerHand(c, env)

	case wire.EventClassSettingsUpdated:
		r.handleSettingsUpdate(c, env)

	case wire.EventTogglePermissions:
		r.handleTogglePermissions(c, env)

	case wire.EventForceMute:
		r.handleForce(c, env, "audio")

	case wire.EventForceDisableCamera:
		r.handleForce(c, env, "video")

	case wire.EventRemoveParticipant:
		r.handleRemoveParticipant(c, env)

	case wire.EventRecordingStarted:
		r.handleRecording(c, m, true)

	case wire.EventRecordingStopped:
		r.handleRecording(c, m, false)

	case wire.EventScreenShareStarted:
		r.handleScreenShare(c, m, true)

	case wire.EventScreenShareStopped:
		r.handleScreenShare(c, m, false)

	case wire.EventWhiteboardUpdate:
		r.broadcastExcept(c.id, wire.EventWhiteboardUpdate, env.Payload)

	default:
		r.logger.Warn().Str("event", string(env.Type)).Msg("Client sent unsupported event type")
	}
}

// handleChat validates, stamps and routes one chat message. Private messages
// are delivered only to the sender, the recipient and moderating members, so
// a client never even receives private traffic it may not read.
func (r *Room) handleChat(c *Client, m *member, env wire.Envelope) {
	var p wire.ChatMessagePayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if !r.memberPerms(m).CanChat {
		c.SendError(errs.NewError(errs.ErrChatDisabled))
		return
	}

	if p.Content == "" {
		return
	}
	if len(p.Content) > MaxChatContentBytes {
		c.SendError(errs.NewError(errs.ErrMessageTooLong))
		return
	}

	// Authoritative fields always come from the server.
	p.ID = randx.MessageID()
	p.SenderID = c.id
	p.SenderName = c.name
	p.Timestamp = time.Now().UnixMilli()
	p.IsPrivate = p.RecipientID != ""
	p.SenderIsPrivileged = r.canModerate(c)

	if !p.IsPrivate {
		r.broadcastAll(wire.EventChatMessage, p)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, target := range r.members {
		if id == c.id || id == p.RecipientID || r.canModerate(target.client) {
			_ = target.client.sendEvent(wire.EventChatMessage, p)
		}
	}
}

// handleRaiseHand flags the sender's hand. Teachers never raise; raising an
// already raised hand keeps the original timestamp and broadcasts nothing.
func (r *Room) handleRaiseHand(c *Client, m *member) {
	if c.id == r.TeacherID {
		return
	}
	if !r.settings.EnableHandRaise {
		c.SendError(errs.NewError(errs.ErrHandRaiseDisabled))
		return
	}

	r.mu.Lock()
	if m.handRaised {
		r.mu.Unlock()
		return
	}
	m.handRaised = true
	m.raisedAt = time.Now()
	ts := m.raisedAt.UnixMilli()
	r.mu.Unlock()

	r.broadcastAll(wire.EventHandRaised, wire.HandRaisePayload{ID: c.id, Timestamp: ts})
}

// handleLowerHand clears a hand. A participant lowers their own; moderators
// may lower anyone's. Lowering a lowered hand is a no-op.
func (r *Room) handleLowerHand(c *Client, env wire.Envelope) {
	var p wire.HandRaisePayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	targetID := p.ID
	if targetID == "" {
		targetID = c.id
	}
	if targetID != c.id && !r.canModerate(c) {
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	r.mu.Lock()
	target, ok := r.members[targetID]
	if !ok || !target.handRaised {
		r.mu.Unlock()
		return
	}
	target.handRaised = false
	target.raisedAt = time.Time{}
	r.mu.Unlock()

	r.broadcastAll(wire.EventHandLowered, wire.HandRaisePayload{ID: targetID})
}

// handleSettingsUpdate persists a new class policy and rebroadcasts it to the
// whole room, sender included, so every client converges through the same
// event.
func (r *Room) handleSettingsUpdate(c *Client, env wire.Envelope) {
	if !r.canModerate(c) {
		c.SendError(errs.NewError(errs.ErrNotClassTeacher))
		return
	}

	var p wire.ClassSettingsPayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if r.persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), settingsPersistTimeout)
		err := r.persister.UpdateSettings(ctx, r.ID, p.Settings)
		cancel()
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to persist settings update.")
			c.SendError(errs.NewError(errs.ErrUnknown))
			return
		}
	}

	r.mu.Lock()
	r.settings = p.Settings
	r.mu.Unlock()

	r.broadcastAll(wire.EventClassSettingsUpdated, p)
}

// handleTogglePermissions flips one capability override on a target and tells
// the whole room to re-derive, regardless of which event arrives first on any
// given client.
func (r *Room) handleTogglePermissions(c *Client, env wire.Envelope) {
	if !r.canModerate(c) {
		c.SendError(errs.NewError(errs.ErrNotClassTeacher))
		return
	}

	var p wire.TogglePermissionsPayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	r.mu.Lock()
	target, ok := r.members[p.TargetID]
	if !ok || r.canModerate(target.client) {
		r.mu.Unlock()
		return
	}
	if target.override == nil {
		target.override = &perms.Override{}
	}
	target.override.Set(p.PermissionType, p.Enabled)
	override := *target.override
	r.mu.Unlock()

	r.broadcastAll(wire.EventPermissionsUpdated, wire.PermissionsUpdatedPayload{
		TargetID:    p.TargetID,
		Permissions: override,
	})
}

// handleForce is the hard moderation path for force-mute and
// force-disable-camera: the capability is revoked via override and the live
// media flag cut immediately.
func (r *Room) handleForce(c *Client, env wire.Envelope, permissionType string) {
	if !r.canModerate(c) {
		c.SendError(errs.NewError(errs.ErrNotClassTeacher))
		return
	}

	var p wire.TargetPayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	r.mu.Lock()
	target, ok := r.members[p.TargetID]
	if !ok || r.canModerate(target.client) {
		r.mu.Unlock()
		return
	}
	if target.override == nil {
		target.override = &perms.Override{}
	}
	target.override.Set(permissionType, false)
	switch permissionType {
	case "audio":
		target.audioOn = false
	case "video":
		target.videoOn = false
	}
	override := *target.override
	r.mu.Unlock()

	r.broadcastAll(wire.EventPermissionsUpdated, wire.PermissionsUpdatedPayload{
		TargetID:    p.TargetID,
		Permissions: override,
	})
}

// handleRemoveParticipant ejects a participant: the target is notified, then
// kicked with a dedicated close code.
func (r *Room) handleRemoveParticipant(c *Client, env wire.Envelope) {
	if !r.canModerate(c) {
		c.SendError(errs.NewError(errs.ErrNotClassTeacher))
		return
	}

	var p wire.TargetPayload
	if err := env.Bind(&p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	r.mu.RLock()
	target, ok := r.members[p.TargetID]
	r.mu.RUnlock()

	if !ok || r.canModerate(target.client) {
		return
	}

	_ = target.client.sendEvent(wire.EventRemoveParticipant, wire.TargetPayload{TargetID: p.TargetID})
	target.client.Kick(WsCloseCodeRemoved, "Removed by moderator.")
	r.handleUnregister(target.client)
}

// handleRecording flips the room recording flag. Requires the record
// capability; redundant transitions broadcast nothing.
func (r *Room) handleRecording(c *Client, m *member, start bool) {
	if !r.memberPerms(m).CanRecord {
		c.SendError(errs.NewError(errs.ErrNotClassTeacher))
		return
	}

	r.mu.Lock()
	if r.recording == start {
		r.mu.Unlock()
		return
	}
	r.recording = start
	r.mu.Unlock()

	payload := wire.RecordingStatusPayload{IsRecording: start}
	if start {
		payload.StartedBy = c.id
	}
	r.broadcastAll(wire.EventRecordingStatusChanged, payload)
}

// handleScreenShare tracks and relays a participant's screen share state.
func (r *Room) handleScreenShare(c *Client, m *member, sharing bool) {
	if sharing && !r.memberPerms(m).CanScreenShare {
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	r.mu.Lock()
	if m.screenSharing == sharing {
		r.mu.Unlock()
		return
	}
	m.screenSharing = sharing
	r.mu.Unlock()

	event := wire.EventScreenShareStopped
	if sharing {
		event = wire.EventScreenShareStarted
	}
	r.broadcastExcept(c.id, event, wire.TargetPayload{TargetID: c.id})
}

// broadcastAll fans one event out to every connected member.
func (r *Room) broadcastAll(t wire.EventType, payload any) {
	r.broadcast(t, payload, "")
}

// broadcastExcept fans one event out to every member but the excluded one.
func (r *Room) broadcastExcept(excludeID string, t wire.EventType, payload any) {
	r.broadcast(t, payload, excludeID)
}

func (r *Room) broadcast(t wire.EventType, payload any, excludeID string) {
	frame, err := wire.Encode(t, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", string(t)).Msg("Error encoding event for broadcast.")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, m := range r.members {
		if id == excludeID {
			continue
		}
		select {
		case m.client.send <- frame:
		default:
			r.logger.Warn().
				Str("client_id", id).
				Msg("Client send channel full or closed, unregistering.")

			select {
			case r.unregister <- m.client:
			default:
				r.logger.Warn().Msg("Unregister channel full, skipping client cleanup.")
			}
		}
	}
}
