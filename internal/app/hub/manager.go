/*
Package hub contains the server side of the live-class event channel.

This file defines the Manager struct, which creates, tracks, retrieves and
cleans up all active Room instances.
*/
package hub

import (
	"sync"

	"github.com/rs/zerolog"

	"edulive/internal/app/perms"
	"edulive/internal/configs"
	"edulive/internal/pkg/logx"
)

// Manager coordinates all active class rooms.
type Manager struct {
	// rooms stores all Room instances, keyed by class id.
	rooms map[string]*Room

	// config holds the application's read-only configuration settings.
	config *configs.AppConfig

	// persister is handed to every room so settings updates hit the store
	// before they are broadcast.
	persister SettingsPersister

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// cleanup is used by Rooms to request their own removal.
	cleanup chan RoomCleanupMsg

	// wg waits for the runCleanupLoop goroutine during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
func NewManager(cfg *configs.AppConfig, persister SettingsPersister) *Manager {
	managerLogger := logx.Logger().With().Str("component", "Manager").Logger()

	m := &Manager{
		rooms:     make(map[string]*Room),
		cleanup:   make(chan RoomCleanupMsg, 10),
		config:    cfg,
		persister: persister,
		logger:    managerLogger,
	}

	m.wg.Add(1)

	go m.runCleanupLoop()

	return m
}

// runCleanupLoop listens on the cleanup channel and removes finished rooms.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Info().Msg("Cleanup loop started.")

	for msg := range m.cleanup {
		m.deleteRoom(msg.ClassID)
	}

	m.logger.Info().Msg("Cleanup loop stopped.")
}

// deleteRoom removes the specified room from the Manager's rooms map.
func (m *Manager) deleteRoom(classID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[classID]; ok {
		delete(m.rooms, classID)
		m.logger.Info().Str("class_id", classID).Msg("Room successfully removed.")
	}
}

// GetOrCreateRoom returns the running room for a class, starting one from the
// persisted class record when none exists yet.
func (m *Manager) GetOrCreateRoom(classID, teacherID string, maxClients int, settings perms.ClassSettings) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[classID]; ok {
		return room
	}

	room := NewRoom(classID, teacherID, maxClients, settings, m.persister, m.cleanup)
	m.rooms[classID] = room

	go room.Run()

	m.logger.Info().
		Str("class_id", classID).
		Int("max_clients", maxClients).
		Msg("New room created and started.")
	return room
}

// GetRoom retrieves a running room by class id, or nil.
func (m *Manager) GetRoom(classID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[classID]
	if !ok {
		return nil
	}
	return room
}

// Shutdown stops every room, closes the cleanup channel and waits for the
// cleanup goroutine to exit.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager cleanup loop...")

	m.mu.Lock()

	for _, room := range m.rooms {
		room.Stop()
	}
	m.rooms = nil

	m.mu.Unlock()

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
