/*
Package liveclass implements the client-side coordination logic of one live
class: channel lifecycle, room membership, permission state, presence,
chat partitioning and settings propagation.

A Session owns exactly one event channel and one media delegate. All inbound
channel events are dispatched sequentially by a single goroutine, so handlers
run to completion and never overlap for the same session. Every session is
constructed per room and destroyed on leave; there is no process-wide state.
*/
package liveclass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"edulive/internal/app/classapi"
	"edulive/internal/app/media"
	"edulive/internal/app/perms"
	"edulive/internal/app/roster"
	"edulive/internal/app/wire"
	"edulive/internal/pkg/logx"
)

// Status is the session connection state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Identity is the local participant: who we are in this class.
type Identity struct {
	UserID      string
	DisplayName string
	Role        perms.Role

	// AuthToken authorizes the channel. An empty token is fatal: the
	// session refuses to connect.
	AuthToken string
}

// ClassInfo describes the class being joined.
type ClassInfo struct {
	ID              string
	Title           string
	TeacherID       string
	Sections        []string
	MaxParticipants int
}

// Handlers is the typed notification surface between the session and the
// embedding layer (UI, bot, recorder). Nil handlers are skipped. Handlers
// are invoked outside the session lock and after cleanup they are never
// invoked again.
type Handlers struct {
	OnStatusChange      func(Status)
	OnRosterChange      func([]roster.Participant)
	OnChatMessage       func(ChatMessage)
	OnSettingsChange    func(perms.ClassSettings)
	OnPermissionsChange func(perms.PermissionSet)
	OnHandRaise         func(userID string, raised bool)
	OnRecordingChange   func(isRecording bool)
	OnWhiteboardUpdate  func(drawingData json.RawMessage)
	OnRemoved           func(reason string)
	OnSessionError      func(SessionError)
}

// Session coordinates one live-class room membership.
type Session struct {
	logger   zerolog.Logger
	identity Identity
	class    ClassInfo
	opts     Options

	api      *classapi.Client
	delegate media.Delegate
	registry *roster.Registry
	chat     *chatLog
	handlers Handlers

	mu            sync.Mutex
	active        bool
	status        Status
	settings      perms.ClassSettings
	selfOverride  *perms.Override
	selfPerms     perms.PermissionSet
	selfMedia     roster.MediaFlags
	selfHand      roster.HandRaise
	recording     bool
	remoteStreams map[string]media.Stream
	conn          *channelConn
	pollStop      chan struct{}

	reconnectAttempts int
}

// New constructs a session for the given identity and class. The delegate
// may be nil, in which case a data-only delegate is used.
func New(identity Identity, class ClassInfo, api *classapi.Client, delegate media.Delegate, opts ...Option) *Session {
	if delegate == nil {
		delegate = media.NewDataOnlyDelegate()
	}

	options := newOptions(opts)

	s := &Session{
		logger: logx.Logger().With().
			Str("component", "liveclass.session").
			Str("class_id", class.ID).
			Str("user_id", identity.UserID).
			Logger(),
		identity:      identity,
		class:         class,
		opts:          options,
		api:           api,
		delegate:      delegate,
		registry:      roster.New(identity.UserID),
		chat:          newChatLog(),
		active:        true,
		status:        StatusIdle,
		settings:      perms.DefaultClassSettings(),
		remoteStreams: make(map[string]media.Stream),
	}
	s.selfPerms = perms.Derive(identity.Role, s.settings, nil)

	return s
}

// SetHandlers installs the notification sinks. Call before Connect.
func (s *Session) SetHandlers(h Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

// IsTeacher reports whether the local identity controls this class.
func (s *Session) IsTeacher() bool {
	return s.identity.Role == perms.RoleTeacher || s.identity.UserID == s.class.TeacherID
}

// Connect establishes the event channel. Calling Connect while a channel
// exists first tears the previous instance down completely (handlers
// detached, socket closed) so no event is ever delivered twice.
func (s *Session) Connect(ctx context.Context) error {
	if s.identity.AuthToken == "" {
		s.setStatus(StatusError)
		s.emitError(SessionError{Severity: SeverityFatal, Err: ErrMissingAuthToken})
		return ErrMissingAuthToken
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.detachChannelLocked()
	s.mu.Unlock()

	s.setStatus(StatusConnecting)

	dialURL := fmt.Sprintf("%s/%s?token=%s",
		s.opts.ChannelURL, url.PathEscape(s.class.ID), url.QueryEscape(s.identity.AuthToken))

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		s.setStatus(StatusError)
		connErr := SessionError{Severity: SeverityTransient, Err: fmt.Errorf("channel connect: %w", err)}
		s.emitError(connErr)
		s.scheduleReconnect(ctx)
		return connErr
	}

	conn := newChannelConn(ws)

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		conn.close()
		return ErrSessionClosed
	}
	s.conn = conn
	s.reconnectAttempts = 0
	s.mu.Unlock()

	s.initializeMedia(ctx, conn)

	joinErr := conn.sendEvent(wire.EventJoinRoom, wire.JoinRoomPayload{
		RoomID:    s.class.ID,
		UserID:    s.identity.UserID,
		UserName:  s.identity.DisplayName,
		Role:      s.identity.Role.String(),
		IsTeacher: s.IsTeacher(),
	})
	if joinErr != nil {
		conn.close()
		s.setStatus(StatusError)
		sendErr := SessionError{Severity: SeverityTransient, Err: fmt.Errorf("join-room: %w", joinErr)}
		s.emitError(sendErr)
		return sendErr
	}

	go s.readLoop(conn)
	s.startPolling()
	s.setStatus(StatusConnected)

	s.logger.Info().Msg("channel established")
	return nil
}

// initializeMedia wires the delegate to this channel and acquires local
// media according to the current permission set. Delegate failures degrade
// the session to data-only mode; they never abort the join.
func (s *Session) initializeMedia(ctx context.Context, conn *channelConn) {
	s.delegate.SetCallbacks(media.Callbacks{
		OnRemoteStream:          s.onRemoteStream,
		OnUserLeft:              s.onDelegateUserLeft,
		OnConnectionStateChange: s.onPeerStateChange,
	})

	if err := s.delegate.Initialize(ctx, s.class.ID, s.identity.UserID, s.IsTeacher(), conn); err != nil {
		s.degradeMedia(fmt.Errorf("media delegate initialize: %w", err))
		return
	}

	s.mu.Lock()
	wantAudio := s.selfPerms.CanSpeak
	wantVideo := s.selfPerms.CanVideo
	s.mu.Unlock()

	stream, err := s.delegate.AcquireUserMedia(media.Constraints{Audio: wantAudio, Video: wantVideo})
	if err != nil {
		s.degradeMedia(err)
		return
	}

	s.mu.Lock()
	if stream == nil {
		s.selfMedia = roster.MediaFlags{}
	} else {
		s.selfMedia = roster.MediaFlags{
			AudioOn: wantAudio && stream.HasAudio,
			VideoOn: wantVideo && stream.HasVideo,
		}
	}
	s.mu.Unlock()
}

// degradeMedia records a data-only downgrade: flags forced off, error
// surfaced with degraded severity.
func (s *Session) degradeMedia(cause error) {
	s.mu.Lock()
	s.selfMedia = roster.MediaFlags{}
	s.mu.Unlock()

	s.logger.Warn().Err(cause).Msg("continuing in data-only mode")
	s.emitError(SessionError{Severity: SeverityDegraded, Err: cause})
}

// readLoop dispatches inbound frames sequentially until the channel dies.
// Sequential dispatch is the session's run-to-completion guarantee.
func (s *Session) readLoop(conn *channelConn) {
	defer conn.close()

	for {
		env, err := conn.readFrame()
		if err != nil {
			s.handleChannelDown(conn, err)
			return
		}
		s.dispatch(conn, env)
	}
}

// handleChannelDown reacts to a read failure. If the channel was already
// replaced or the session cleaned up, the failure is ignored.
func (s *Session) handleChannelDown(conn *channelConn, cause error) {
	s.mu.Lock()
	if !s.active || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.status = StatusDisconnected
	s.mu.Unlock()

	s.emitStatus(StatusDisconnected)
	s.logger.Warn().Err(cause).Msg("channel disconnected")
	s.emitError(SessionError{Severity: SeverityTransient, Err: fmt.Errorf("channel closed: %w", cause)})

	s.scheduleReconnect(context.Background())
}

// scheduleReconnect applies the bounded exponential backoff policy. With the
// default (disabled) policy this is a no-op and the user reconnects manually.
func (s *Session) scheduleReconnect(ctx context.Context) {
	s.mu.Lock()
	policy := s.opts.Reconnect
	attempt := s.reconnectAttempts
	active := s.active
	s.mu.Unlock()

	if !active || !policy.Enabled || attempt >= policy.MaxAttempts {
		return
	}

	delay := policy.BaseDelay << uint(attempt)
	if delay > policy.MaxDelay || delay <= 0 {
		delay = policy.MaxDelay
	}

	s.mu.Lock()
	s.reconnectAttempts++
	s.mu.Unlock()

	s.logger.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("scheduling reconnect")

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		s.mu.Lock()
		stillDown := s.active && s.conn == nil
		s.mu.Unlock()

		if stillDown {
			_ = s.Connect(ctx)
		}
	}()
}

// startPolling launches the periodic class metadata refresh. The poll is the
// ordering backstop: settings re-derivation must not depend on broadcast and
// join events arriving in any particular order.
func (s *Session) startPolling() {
	if s.opts.PollInterval < 0 || s.api == nil {
		return
	}

	stop := make(chan struct{})

	s.mu.Lock()
	if s.pollStop != nil {
		close(s.pollStop)
	}
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.refreshClassMetadata()
			}
		}
	}()
}

// refreshClassMetadata re-reads the class from the REST collaborator and
// re-applies its settings.
func (s *Session) refreshClassMetadata() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	class, err := s.api.JoinByClassID(ctx, s.class.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("class metadata refresh failed")
		return
	}

	s.applySettings(class.Settings)
}

// send writes one event on the current channel.
func (s *Session) send(t wire.EventType, payload any) error {
	s.mu.Lock()
	conn := s.conn
	active := s.active
	s.mu.Unlock()

	if !active {
		return ErrSessionClosed
	}
	if conn == nil {
		return ErrNotConnected
	}
	return conn.sendEvent(t, payload)
}

// detachChannelLocked closes the current channel and detaches it from the
// session so late frames on the old socket are ignored. Caller holds s.mu.
func (s *Session) detachChannelLocked() {
	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

// --- accessors ---

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Settings returns the current class settings.
func (s *Session) Settings() perms.ClassSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SelfPermissions returns the local identity's derived capability set.
func (s *Session) SelfPermissions() perms.PermissionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfPerms
}

// Participants returns the registry in canonical order.
func (s *Session) Participants() []roster.Participant {
	return s.registry.All()
}

// Recording reports whether the class is currently being recorded.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Action names a capability for HasPermission checks.
type Action string

const (
	ActionSpeak        Action = "speak"
	ActionVideo        Action = "video"
	ActionChat         Action = "chat"
	ActionScreenShare  Action = "screenShare"
	ActionControlClass Action = "controlClass"
	ActionRecord       Action = "record"
)

// HasPermission reports whether the local identity may perform the action.
func (s *Session) HasPermission(a Action) bool {
	set := s.SelfPermissions()

	switch a {
	case ActionSpeak:
		return set.CanSpeak
	case ActionVideo:
		return set.CanVideo
	case ActionChat:
		return set.CanChat
	case ActionScreenShare:
		return set.CanScreenShare
	case ActionControlClass:
		return set.CanControlClass
	case ActionRecord:
		return set.CanRecord
	default:
		return false
	}
}

// --- delegate callbacks ---

// onRemoteStream caches a delegate-owned stream reference and links it to
// the participant entry.
func (s *Session) onRemoteStream(userID string, stream media.Stream) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.remoteStreams[userID] = stream
	s.mu.Unlock()

	s.registry.Update(userID, func(p roster.Participant) roster.Participant {
		p.StreamID = stream.ID
		p.ConnectionState = roster.StateConnected
		return p
	})
	s.emitRoster()
}

// onDelegateUserLeft mirrors a transport-level departure into the registry.
func (s *Session) onDelegateUserLeft(userID string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	delete(s.remoteStreams, userID)
	s.mu.Unlock()

	if _, ok := s.registry.ApplyLeave(userID); ok {
		s.emitRoster()
	}
}

// onPeerStateChange tracks delegate connection state per participant.
func (s *Session) onPeerStateChange(userID string, state media.ConnectionState) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	changed := s.registry.Update(userID, func(p roster.Participant) roster.Participant {
		switch state {
		case media.PeerConnected:
			p.ConnectionState = roster.StateConnected
		case media.PeerConnecting:
			p.ConnectionState = roster.StateConnecting
		default:
			// disconnected/failed keeps membership; the authoritative
			// user-left event removes the entry.
		}
		return p
	})
	if changed {
		s.emitRoster()
	}
}

// --- emit helpers (always called without the lock held) ---

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	if !s.active && st != StatusDisconnected {
		s.mu.Unlock()
		return
	}
	if s.status == st {
		s.mu.Unlock()
		return
	}
	s.status = st
	s.mu.Unlock()

	s.emitStatus(st)
}

func (s *Session) emitStatus(st Status) {
	s.mu.Lock()
	h := s.handlers.OnStatusChange
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h(st)
	}
}

func (s *Session) emitRoster() {
	s.mu.Lock()
	h := s.handlers.OnRosterChange
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h(s.registry.All())
	}
}

func (s *Session) emitError(se SessionError) {
	s.mu.Lock()
	h := s.handlers.OnSessionError
	active := s.active
	s.mu.Unlock()

	if h != nil && active {
		h(se)
	}
}
