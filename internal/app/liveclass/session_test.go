package liveclass

import (
	"context"
	"errors"
	"testing"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
)

func newTestSession(t *testing.T, role perms.Role) *Session {
	t.Helper()
	return New(
		Identity{UserID: "me", DisplayName: "Me", Role: role, AuthToken: "tok"},
		ClassInfo{ID: "class-1", Title: "Algebra", TeacherID: "t1"},
		nil, nil,
		WithPollInterval(-1),
	)
}

func mustEnv(t *testing.T, typ wire.EventType, payload any) wire.Envelope {
	t.Helper()
	frame, err := wire.Encode(typ, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	env, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("decode %s: %v", typ, err)
	}
	return env
}

func TestConnectRequiresAuthToken(t *testing.T) {
	s := New(
		Identity{UserID: "me", Role: perms.RoleStudent},
		ClassInfo{ID: "class-1"},
		nil, nil,
		WithPollInterval(-1),
	)

	var got SessionError
	s.SetHandlers(Handlers{OnSessionError: func(se SessionError) { got = se }})

	err := s.Connect(context.Background())
	if !errors.Is(err, ErrMissingAuthToken) {
		t.Fatalf("Connect = %v, want ErrMissingAuthToken", err)
	}
	if s.Status() != StatusError {
		t.Fatalf("status = %s, want %s", s.Status(), StatusError)
	}
	if got.Severity != SeverityFatal || !errors.Is(got, ErrMissingAuthToken) {
		t.Fatalf("emitted error = %+v, want fatal ErrMissingAuthToken", got)
	}
}

func TestSendChatValidation(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	err := s.SendChat("   ", "")
	var se SessionError
	if !errors.As(err, &se) || se.Severity != SeverityTransient {
		t.Fatalf("blank message err = %v, want transient", err)
	}

	long := make([]rune, MaxChatMessageLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := s.SendChat(string(long), ""); !errors.As(err, &se) || se.Severity != SeverityTransient {
		t.Fatalf("oversized message err = %v, want transient", err)
	}

	// Valid message with no channel attached.
	if err := s.SendChat("hello", ""); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("no-channel err = %v, want ErrNotConnected", err)
	}
}

func TestSendChatHonorsChatPolicy(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	settings := perms.DefaultClassSettings()
	settings.AllowChat = false
	s.applySettings(settings)

	err := s.SendChat("hello", "")
	if !errors.Is(err, ErrChatDisabled) {
		t.Fatalf("err = %v, want ErrChatDisabled", err)
	}
	var se SessionError
	if !errors.As(err, &se) || se.Severity != SeverityDegraded {
		t.Fatalf("err = %v, want degraded severity", err)
	}
}

func TestSendChatAfterCleanup(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)
	s.Cleanup()

	err := s.SendChat("hello", "")
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
	var se SessionError
	if !errors.As(err, &se) || se.Severity != SeverityFatal {
		t.Fatalf("err = %v, want fatal severity", err)
	}
}

func TestChatVisibilityForStudent(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	var emitted []ChatMessage
	s.SetHandlers(Handlers{OnChatMessage: func(m ChatMessage) { emitted = append(emitted, m) }})

	public := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m1", SenderID: "u2", SenderName: "Alice", Content: "hi all",
	})
	privateForMe := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m2", SenderID: "u2", RecipientID: "me", Content: "psst", IsPrivate: true,
	})
	privateForOthers := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m3", SenderID: "u2", RecipientID: "u3", Content: "secret", IsPrivate: true,
	})

	s.dispatch(nil, public)
	s.dispatch(nil, privateForMe)
	s.dispatch(nil, privateForOthers)

	if len(emitted) != 2 {
		t.Fatalf("emitted %d messages, want 2 (public + private-to-me)", len(emitted))
	}

	history := s.ChatHistory()
	if len(history) != 2 {
		t.Fatalf("history has %d messages, want 2", len(history))
	}
	for _, m := range history {
		if m.ID == "m3" {
			t.Fatal("student transcript exposed a foreign private message")
		}
	}
}

func TestChatVisibilityForModerator(t *testing.T) {
	s := newTestSession(t, perms.RoleTeacher)

	foreign := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m1", SenderID: "u2", RecipientID: "u3", Content: "secret", IsPrivate: true,
	})
	s.dispatch(nil, foreign)

	history := s.ChatHistory()
	if len(history) != 1 || history[0].ID != "m1" {
		t.Fatalf("moderator transcript = %+v, want the private message", history)
	}
}

func TestApplySettingsIsIdempotent(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	var settingsCalls, permCalls int
	s.SetHandlers(Handlers{
		OnSettingsChange:    func(perms.ClassSettings) { settingsCalls++ },
		OnPermissionsChange: func(perms.PermissionSet) { permCalls++ },
	})

	next := perms.DefaultClassSettings()
	next.AllowStudentMic = false

	s.applySettings(next)
	s.applySettings(next)

	if settingsCalls != 1 {
		t.Fatalf("OnSettingsChange fired %d times, want 1", settingsCalls)
	}
	if permCalls != 1 {
		t.Fatalf("OnPermissionsChange fired %d times, want 1", permCalls)
	}
	if s.SelfPermissions().CanSpeak {
		t.Fatal("mic right survived a policy that disables student mics")
	}
}

func TestPermissionsUpdatedOverridesSelf(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	off := false
	env := mustEnv(t, wire.EventPermissionsUpdated, wire.PermissionsUpdatedPayload{
		TargetID:    "me",
		Permissions: perms.Override{CanChat: &off},
	})
	s.dispatch(nil, env)

	if s.SelfPermissions().CanChat {
		t.Fatal("chat right survived a moderator override")
	}

	// The empty override clears the exception.
	env = mustEnv(t, wire.EventPermissionsUpdated, wire.PermissionsUpdatedPayload{TargetID: "me"})
	s.dispatch(nil, env)

	if !s.SelfPermissions().CanChat {
		t.Fatal("chat right not restored after override cleared")
	}
}

func TestPermissionsUpdatedNeverBindsModerators(t *testing.T) {
	s := newTestSession(t, perms.RoleTeacher)

	off := false
	env := mustEnv(t, wire.EventPermissionsUpdated, wire.PermissionsUpdatedPayload{
		TargetID:    "me",
		Permissions: perms.Override{CanSpeak: &off, CanChat: &off},
	})
	s.dispatch(nil, env)

	set := s.SelfPermissions()
	if !set.CanSpeak || !set.CanChat {
		t.Fatalf("teacher permissions restricted by override: %+v", set)
	}
}

func TestUserJoinedLegacyTeacherFlag(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	env := mustEnv(t, wire.EventUserJoined, wire.UserJoinedPayload{
		ID: "t1", Name: "Prof", IsTeacher: true,
	})
	s.dispatch(nil, env)

	list := s.Participants()
	if len(list) != 1 || list[0].Role != perms.RoleTeacher {
		t.Fatalf("participants = %+v, want one teacher", list)
	}
}

func TestSelfHandRaiseKeepsOriginalTimestamp(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	s.dispatch(nil, mustEnv(t, wire.EventHandRaised, wire.HandRaisePayload{ID: "me", Timestamp: 1000}))
	if !s.HandRaised() {
		t.Fatal("hand not raised after hand-raised event")
	}

	s.dispatch(nil, mustEnv(t, wire.EventHandRaised, wire.HandRaisePayload{ID: "me", Timestamp: 9999}))

	s.mu.Lock()
	raisedAt := s.selfHand.RaisedAt
	s.mu.Unlock()
	if raisedAt.UnixMilli() != 1000 {
		t.Fatalf("raise timestamp = %d, want the original 1000", raisedAt.UnixMilli())
	}

	s.dispatch(nil, mustEnv(t, wire.EventHandLowered, wire.HandRaisePayload{ID: "me"}))
	if s.HandRaised() {
		t.Fatal("hand still raised after hand-lowered event")
	}
}

func TestRecordingStatusEmitsOnChangeOnly(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	var calls int
	s.SetHandlers(Handlers{OnRecordingChange: func(bool) { calls++ }})

	on := mustEnv(t, wire.EventRecordingStatusChanged, wire.RecordingStatusPayload{IsRecording: true})
	s.dispatch(nil, on)
	s.dispatch(nil, on)

	if calls != 1 {
		t.Fatalf("OnRecordingChange fired %d times, want 1", calls)
	}
	if !s.Recording() {
		t.Fatal("recording flag not set")
	}
}

func TestRemovedByModeratorTearsDown(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	var reason string
	s.SetHandlers(Handlers{OnRemoved: func(r string) { reason = r }})

	// Removal of someone else leaves the session alone.
	s.dispatch(nil, mustEnv(t, wire.EventRemoveParticipant, wire.TargetPayload{TargetID: "u9"}))
	if s.Closed() {
		t.Fatal("session closed for another participant's removal")
	}

	s.dispatch(nil, mustEnv(t, wire.EventRemoveParticipant, wire.TargetPayload{TargetID: "me"}))
	if reason == "" {
		t.Fatal("OnRemoved not invoked")
	}
	if !s.Closed() {
		t.Fatal("session still active after being removed")
	}
}

func TestCleanupIsIdempotentAndDropsLateEvents(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	var chats int
	s.SetHandlers(Handlers{OnChatMessage: func(ChatMessage) { chats++ }})

	s.Cleanup()
	s.Cleanup()

	if s.Status() != StatusIdle {
		t.Fatalf("status = %s, want %s", s.Status(), StatusIdle)
	}

	late := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m1", SenderID: "u2", Content: "too late",
	})
	s.dispatch(nil, late)

	if chats != 0 {
		t.Fatal("late event reached a handler after cleanup")
	}
	if len(s.ChatHistory()) != 0 {
		t.Fatal("late event appended to a cleaned-up transcript")
	}
}

func TestDispatchDropsFramesFromReplacedChannel(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	current := &channelConn{}
	s.mu.Lock()
	s.conn = current
	s.mu.Unlock()

	msg := mustEnv(t, wire.EventChatMessage, wire.ChatMessagePayload{
		ID: "m1", SenderID: "u2", Content: "hello",
	})

	// A frame arriving on a channel instance that is no longer current is
	// dropped before any handler runs.
	stale := &channelConn{}
	s.dispatch(stale, msg)
	if len(s.ChatHistory()) != 0 {
		t.Fatal("stale channel frame mutated session state")
	}

	s.dispatch(current, msg)
	if len(s.ChatHistory()) != 1 {
		t.Fatal("current channel frame was not applied")
	}
}

func TestHasPermissionActionMapping(t *testing.T) {
	s := newTestSession(t, perms.RoleTeacher)

	for _, a := range []Action{ActionSpeak, ActionVideo, ActionChat, ActionScreenShare, ActionControlClass, ActionRecord} {
		if !s.HasPermission(a) {
			t.Errorf("teacher denied %s", a)
		}
	}
	if s.HasPermission(Action("no-such-action")) {
		t.Error("unknown action granted")
	}

	guest := newTestSession(t, perms.RoleGuest)
	if guest.HasPermission(ActionSpeak) || guest.HasPermission(ActionControlClass) {
		t.Error("guest granted media or control rights")
	}
	if !guest.HasPermission(ActionChat) {
		t.Error("guest denied chat under default settings")
	}
}

func TestRaiseHandGuards(t *testing.T) {
	teacher := newTestSession(t, perms.RoleTeacher)
	if err := teacher.RaiseHand(); err != nil {
		t.Fatalf("teacher RaiseHand = %v, want silent no-op", err)
	}
	if teacher.HandRaised() {
		t.Fatal("teacher hand raised")
	}

	s := newTestSession(t, perms.RoleStudent)
	settings := perms.DefaultClassSettings()
	settings.EnableHandRaise = false
	s.applySettings(settings)

	err := s.RaiseHand()
	if !errors.Is(err, ErrHandRaiseDisabled) {
		t.Fatalf("RaiseHand = %v, want ErrHandRaiseDisabled", err)
	}

	// Lowering a hand that is not raised is a no-op.
	if err := s.LowerHand(); err != nil {
		t.Fatalf("LowerHand = %v, want nil", err)
	}
}

func TestUpdateSettingsRequiresControl(t *testing.T) {
	s := newTestSession(t, perms.RoleStudent)

	err := s.UpdateSettings(context.Background(), perms.DefaultClassSettings())
	if !errors.Is(err, ErrNotTeacher) {
		t.Fatalf("UpdateSettings = %v, want ErrNotTeacher", err)
	}
	var se SessionError
	if !errors.As(err, &se) || se.Severity != SeverityDegraded {
		t.Fatalf("UpdateSettings = %v, want degraded severity", err)
	}
}
