package liveclass

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
)

// channelServer accepts websocket upgrades and hands each connection to the
// test once its join-room frame has arrived.
type channelServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newChannelServer(t *testing.T) *channelServer {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	cs := &channelServer{conns: make(chan *websocket.Conn, 4)}

	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
		cs.conns <- conn
	}))
	t.Cleanup(cs.srv.Close)

	return cs
}

func (cs *channelServer) url() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *channelServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-cs.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no channel connection arrived")
		return nil
	}
}

func TestConnectTwiceLeavesOneChannel(t *testing.T) {
	cs := newChannelServer(t)

	s := New(
		Identity{UserID: "me", DisplayName: "Me", Role: perms.RoleStudent, AuthToken: "tok"},
		ClassInfo{ID: "class-1", TeacherID: "t1"},
		nil, nil,
		WithChannelURL(cs.url()),
		WithPollInterval(-1),
	)
	defer s.Cleanup()

	chats := make(chan ChatMessage, 4)
	s.SetHandlers(Handlers{OnChatMessage: func(m ChatMessage) { chats <- m }})

	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	first := cs.accept(t)

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	second := cs.accept(t)

	if s.Status() != StatusConnected {
		t.Fatalf("status = %s, want %s", s.Status(), StatusConnected)
	}

	// The first server-side connection observes the teardown initiated by
	// the second Connect.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("first connection still alive after reconnect")
	}

	send := func(id, content string) {
		t.Helper()
		frame, err := wire.Encode(wire.EventChatMessage, wire.ChatMessagePayload{
			ID: id, SenderID: "u2", SenderName: "Alice", Content: content,
		})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := second.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatalf("write on surviving connection: %v", err)
		}
	}
	recv := func() ChatMessage {
		t.Helper()
		select {
		case m := <-chats:
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("frame on surviving channel not delivered")
			return ChatMessage{}
		}
	}

	// Each frame on the surviving channel is applied exactly once: the
	// second message arriving right after the first proves the first was
	// not delivered twice.
	send("m1", "hello")
	if m := recv(); m.ID != "m1" {
		t.Fatalf("first delivery = %+v, want m1", m)
	}
	send("m2", "again")
	if m := recv(); m.ID != "m2" {
		t.Fatalf("second delivery = %+v, want m2", m)
	}

	if history := s.ChatHistory(); len(history) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(history))
	}
}
