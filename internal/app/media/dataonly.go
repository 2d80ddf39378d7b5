package media

import (
	"context"
	"sync"
)

// DataOnlyDelegate is a Delegate that never acquires media. It backs degraded
// (data-only) sessions where media permission was denied or no devices exist,
// and doubles as the delegate used in tests. All operations are safe on the
// zero value.
type DataOnlyDelegate struct {
	mu          sync.Mutex
	initialized bool
	cleaned     bool
	callbacks   Callbacks

	roomID string
	userID string
}

// NewDataOnlyDelegate returns a delegate for data-only participation.
func NewDataOnlyDelegate() *DataOnlyDelegate {
	return &DataOnlyDelegate{}
}

// Initialize records the room binding. The data-only delegate has no
// transport to set up, so it never fails.
func (d *DataOnlyDelegate) Initialize(_ context.Context, roomID, userID string, _ bool, _ ChannelSender) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = true
	d.cleaned = false
	d.roomID = roomID
	d.userID = userID
	return nil
}

// SetCallbacks stores the session sinks. They are never fired: a data-only
// participant receives no remote streams.
func (d *DataOnlyDelegate) SetCallbacks(cb Callbacks) {
	d.mu.Lock()
	d.callbacks = cb
	d.mu.Unlock()
}

// AcquireUserMedia reports data-only mode: no stream, no error.
func (d *DataOnlyDelegate) AcquireUserMedia(Constraints) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}
	return nil, nil
}

// ToggleAudio always reports audio off.
func (d *DataOnlyDelegate) ToggleAudio() bool { return false }

// ToggleVideo always reports video off.
func (d *DataOnlyDelegate) ToggleVideo() bool { return false }

func (d *DataOnlyDelegate) StartScreenShare() error { return ErrNoDevices }
func (d *DataOnlyDelegate) StopScreenShare() error  { return nil }

func (d *DataOnlyDelegate) SwitchMicrophone(string) error { return ErrNoDevices }
func (d *DataOnlyDelegate) SwitchCamera(string) error     { return ErrNoDevices }
func (d *DataOnlyDelegate) SetAudioOutput(string) error   { return ErrNoDevices }

// MediaDevices reports an empty device list.
func (d *DataOnlyDelegate) MediaDevices() ([]Device, error) {
	return nil, nil
}

// StopLocalTracks is a no-op; there are no local tracks.
func (d *DataOnlyDelegate) StopLocalTracks() {}

// Cleanup marks the delegate released. Safe to call repeatedly.
func (d *DataOnlyDelegate) Cleanup() {
	d.mu.Lock()
	d.cleaned = true
	d.initialized = false
	d.mu.Unlock()
}
