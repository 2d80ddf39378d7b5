/*
Package media defines the contract between a live-class session and the
external component that owns the actual audio/video/screen-share transport.

The session never touches peer connections, ICE or codecs; it only asks the
delegate to acquire and control local media and reacts to the callbacks the
delegate fires. Transport failures are degraded-mode conditions, never fatal
to the room join.
*/
package media

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied is returned when the user refuses the media
	// permission prompt. The session continues in data-only mode.
	ErrPermissionDenied = errors.New("media: permission denied")

	// ErrNoDevices is returned when no capture devices exist. Also a
	// data-only condition.
	ErrNoDevices = errors.New("media: no capture devices found")

	// ErrNotInitialized is returned by operations invoked before Initialize.
	ErrNotInitialized = errors.New("media: delegate not initialized")
)

// Stream identifies a media stream owned by the delegate. The session holds
// these values as weak references only; track lifecycle stays with the
// delegate.
type Stream struct {
	ID       string
	OwnerID  string
	HasAudio bool
	HasVideo bool
}

// Device describes one capture or playback device.
type Device struct {
	ID    string
	Label string
	// Kind is "audioinput", "videoinput" or "audiooutput".
	Kind string
}

// Constraints selects which kinds of local media to acquire.
type Constraints struct {
	Audio bool
	Video bool
}

// ConnectionState is the delegate-reported state of one remote peer link.
type ConnectionState string

const (
	PeerConnecting   ConnectionState = "connecting"
	PeerConnected    ConnectionState = "connected"
	PeerDisconnected ConnectionState = "disconnected"
	PeerFailed       ConnectionState = "failed"
)

// ChannelSender is the slice of the session channel the delegate may use for
// its own signalling. It is intentionally narrow: the delegate can send, but
// never installs handlers or closes the channel.
type ChannelSender interface {
	SendEvent(eventType string, payload any) error
}

// Callbacks are fired by the delegate into the session. All callbacks are
// invoked on the session's dispatch goroutine contract: the session guards
// them with its active flag, so late callbacks after cleanup are dropped.
type Callbacks struct {
	OnRemoteStream          func(userID string, stream Stream)
	OnUserLeft              func(userID string)
	OnConnectionStateChange func(userID string, state ConnectionState)
}

// Delegate is the external media collaborator contract. Exactly one delegate
// instance exists per active session; reinitialization requires cleaning up
// the prior instance first.
type Delegate interface {
	// Initialize binds the delegate to a room, an identity and the channel.
	Initialize(ctx context.Context, roomID, userID string, isTeacher bool, ch ChannelSender) error

	// SetCallbacks installs the session-side event sinks. Must be called
	// before Initialize so no early event is lost.
	SetCallbacks(cb Callbacks)

	// AcquireUserMedia prompts for and acquires local media. A nil stream
	// with a nil error means the delegate chose data-only mode on its own.
	AcquireUserMedia(c Constraints) (*Stream, error)

	// ToggleAudio and ToggleVideo flip the local track state and return the
	// new value.
	ToggleAudio() bool
	ToggleVideo() bool

	StartScreenShare() error
	StopScreenShare() error

	SwitchMicrophone(deviceID string) error
	SwitchCamera(deviceID string) error
	SetAudioOutput(deviceID string) error

	// MediaDevices enumerates the available capture/playback devices.
	MediaDevices() ([]Device, error)

	// StopLocalTracks stops every local capture track. Idempotent.
	StopLocalTracks()

	// Cleanup releases every delegate resource. Idempotent; the session
	// calls it from its own cleanup coordinator.
	Cleanup()
}
