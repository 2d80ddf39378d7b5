package wire

import (
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame, err := Encode(EventChatMessage, ChatMessagePayload{
		Content:     "hello",
		RecipientID: "u2",
		IsPrivate:   true,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != EventChatMessage {
		t.Fatalf("type = %s, want %s", env.Type, EventChatMessage)
	}

	var msg ChatMessagePayload
	if err := env.Bind(&msg); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if msg.Content != "hello" || msg.RecipientID != "u2" || !msg.IsPrivate {
		t.Fatalf("payload did not survive the round trip: %+v", msg)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	frame, err := Encode(EventLowerHand, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != EventLowerHand {
		t.Fatalf("type = %s, want %s", env.Type, EventLowerHand)
	}
	if len(env.Payload) != 0 {
		t.Fatalf("payload = %q, want empty", env.Payload)
	}
	if err := env.Bind(&struct{}{}); err != nil {
		t.Fatalf("Bind on empty payload: %v", err)
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("Decode accepted malformed JSON")
	}
	if _, err := Decode([]byte(`{"payload":{"id":"x"}}`)); err == nil {
		t.Fatal("Decode accepted a frame without an event type")
	}
}

func TestBindReportsPayloadMismatch(t *testing.T) {
	env := Envelope{Type: EventUserLeft, Payload: []byte(`{"id":42}`)}
	var p UserLeftPayload
	if err := env.Bind(&p); err == nil {
		t.Fatal("Bind accepted a payload with the wrong field type")
	}
}
