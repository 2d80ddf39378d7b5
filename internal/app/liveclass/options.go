package liveclass

import "time"

const (
	// defaultPollInterval is how often the session refreshes class metadata
	// from the REST collaborator as a backstop against missed broadcasts.
	defaultPollInterval = 30 * time.Second

	// defaultReconnectBase and defaultReconnectMax bound the exponential
	// backoff when reconnection is enabled.
	defaultReconnectBase = time.Second
	defaultReconnectMax  = 30 * time.Second
)

// ReconnectPolicy controls automatic channel reconnection. It is disabled by
// default: connection errors are reported and the user retries manually.
// Enabling it gives bounded exponential backoff.
type ReconnectPolicy struct {
	Enabled     bool
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Options tunes one session. The zero value plus defaults from newOptions is
// a working configuration.
type Options struct {
	// ChannelURL is the websocket endpoint base, e.g. "ws://host/ws".
	// The class id is appended as a path segment.
	ChannelURL string

	// PollInterval is the period of the class metadata refresh poll.
	// Zero selects the default; negative disables polling.
	PollInterval time.Duration

	// Reconnect is the automatic reconnection policy.
	Reconnect ReconnectPolicy
}

// Option mutates Options during session construction.
type Option func(*Options)

// WithChannelURL sets the websocket endpoint base.
func WithChannelURL(url string) Option {
	return func(o *Options) { o.ChannelURL = url }
}

// WithPollInterval overrides the metadata refresh period.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) { o.PollInterval = d }
}

// WithReconnect enables automatic reconnection with bounded exponential
// backoff.
func WithReconnect(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(o *Options) {
		o.Reconnect = ReconnectPolicy{
			Enabled:     true,
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			MaxDelay:    maxDelay,
		}
	}
}

// newOptions applies opts over the defaults.
func newOptions(opts []Option) Options {
	o := Options{
		PollInterval: defaultPollInterval,
		Reconnect: ReconnectPolicy{
			BaseDelay: defaultReconnectBase,
			MaxDelay:  defaultReconnectMax,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Reconnect.BaseDelay <= 0 {
		o.Reconnect.BaseDelay = defaultReconnectBase
	}
	if o.Reconnect.MaxDelay < o.Reconnect.BaseDelay {
		o.Reconnect.MaxDelay = defaultReconnectMax
	}
	return o
}
