package liveclass

import (
	"strings"
	"sync"
	"time"

	"edulive/internal/app/perms"
	"edulive/internal/app/wire"
)

// MaxChatMessageLength bounds outbound chat content in runes.
const MaxChatMessageLength = 2000

// ChatMessage is one entry in the session transcript. Private messages are
// stored for everyone but surfaced only to their participants and to
// privileged viewers.
type ChatMessage struct {
	ID                 string
	SenderID           string
	SenderName         string
	RecipientID        string
	Content            string
	IsPrivate          bool
	SenderIsPrivileged bool
	SentAt             time.Time
}

// VisibleTo reports whether the viewer may see this message. Public messages
// are visible to all; private ones to the sender, the recipient, and any
// viewer with moderation rights.
func (m ChatMessage) VisibleTo(viewerID string, viewerRole perms.Role) bool {
	if !m.IsPrivate {
		return true
	}
	if m.SenderID == viewerID || m.RecipientID == viewerID {
		return true
	}
	return viewerRole.CanModerate()
}

func chatMessageFromWire(p wire.ChatMessagePayload) ChatMessage {
	return ChatMessage{
		ID:                 p.ID,
		SenderID:           p.SenderID,
		SenderName:         p.SenderName,
		RecipientID:        p.RecipientID,
		Content:            p.Content,
		IsPrivate:          p.IsPrivate,
		SenderIsPrivileged: p.SenderIsPrivileged,
		SentAt:             time.UnixMilli(p.Timestamp),
	}
}

// chatLog is the append-only transcript for one session.
type chatLog struct {
	mu       sync.Mutex
	messages []ChatMessage
}

func newChatLog() *chatLog {
	return &chatLog{}
}

func (l *chatLog) append(msg ChatMessage) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

// visibleTo returns the viewer's filtered transcript in arrival order.
func (l *chatLog) visibleTo(viewerID string, viewerRole perms.Role) []ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ChatMessage, 0, len(l.messages))
	for _, msg := range l.messages {
		if msg.VisibleTo(viewerID, viewerRole) {
			out = append(out, msg)
		}
	}
	return out
}

func (l *chatLog) clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}

// SendChat publishes a chat message. An empty recipientID sends a public
// message; a non-empty one sends a private message to that participant.
// The local transcript gains the message only when the server echoes it back,
// so every viewer orders chat identically.
func (s *Session) SendChat(content, recipientID string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return SessionError{Severity: SeverityTransient, Err: errEmptyMessage}
	}
	if len([]rune(content)) > MaxChatMessageLength {
		return SessionError{Severity: SeverityTransient, Err: errMessageTooLong}
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return SessionError{Severity: SeverityFatal, Err: ErrSessionClosed}
	}
	if !s.selfPerms.CanChat {
		s.mu.Unlock()
		return SessionError{Severity: SeverityDegraded, Err: ErrChatDisabled}
	}
	s.mu.Unlock()

	return s.send(wire.EventChatMessage, wire.ChatMessagePayload{
		SenderName:  s.identity.DisplayName,
		RecipientID: recipientID,
		Content:     content,
		IsPrivate:   recipientID != "",
	})
}

// ChatHistory returns the transcript filtered for the local viewer.
func (s *Session) ChatHistory() []ChatMessage {
	return s.chat.visibleTo(s.identity.UserID, s.identity.Role)
}
