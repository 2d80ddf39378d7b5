package liveclass

import (
	"edulive/internal/app/media"
	"edulive/internal/app/roster"
)

// Cleanup tears the session down completely: local tracks stopped, delegate
// released, channel closed, registry and transcript cleared. It is idempotent
// and safe to call from any goroutine; every channel or delegate event that
// arrives afterwards is dropped silently.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.status = StatusIdle
	s.selfMedia = roster.MediaFlags{}
	s.selfHand = roster.HandRaise{}
	s.selfOverride = nil
	s.recording = false
	s.remoteStreams = make(map[string]media.Stream)
	s.detachChannelLocked()
	s.mu.Unlock()

	// Delegate teardown happens outside the lock; both calls are required
	// to be idempotent by the delegate contract.
	s.delegate.StopLocalTracks()
	s.delegate.Cleanup()

	s.registry.Clear()
	s.chat.clear()

	s.logger.Info().Msg("session cleaned up")
}

// Closed reports whether Cleanup has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active
}
