/*
Package roster maintains the authoritative merged view of room membership for
one live-class session.

The registry stores participants by value and every read hands out a copy, so
callers can never alias an entry and mutate it behind the registry's back.
All changes go through pure update functions that produce a replacement value.
*/
package roster

import (
	"sort"
	"strings"
	"sync"
	"time"

	"edulive/internal/app/perms"
)

// ConnectionState tracks how far along a participant's channel and media
// setup is. A participant appears as "joined" from the membership event and
// flips to "connected" once their presence is confirmed.
type ConnectionState string

const (
	StateJoined     ConnectionState = "joined"
	StateConnecting ConnectionState = "connecting"
	StateConnected  ConnectionState = "connected"
)

// MediaFlags mirrors the remote participant's reported media state.
type MediaFlags struct {
	AudioOn       bool
	VideoOn       bool
	ScreenSharing bool
}

// HandRaise records whether the participant's hand is up and since when.
// At most one active raise exists per participant.
type HandRaise struct {
	Raised   bool
	RaisedAt time.Time
}

// Participant is one remote room member. The local identity is never stored
// here; the session tracks itself separately.
type Participant struct {
	UserID          string
	DisplayName     string
	Role            perms.Role
	ConnectionState ConnectionState
	Media           MediaFlags
	Hand            HandRaise

	// Override is the moderator-applied permission exception, nil for most
	// participants.
	Override *perms.Override

	// StreamID is a weak reference to the remote media stream owned by the
	// media delegate. Empty until the delegate reports the stream.
	StreamID string
}

// Registry is the session-owned membership store. It is safe for concurrent
// use, although the session dispatch loop is its only writer in practice.
type Registry struct {
	selfID string

	mu   sync.RWMutex
	byID map[string]Participant
}

// New creates an empty registry that will exclude selfID from all writes.
func New(selfID string) *Registry {
	return &Registry{
		selfID: selfID,
		byID:   make(map[string]Participant),
	}
}

// ApplySnapshot replaces the whole registry with the given membership list,
// excluding the local identity by id comparison.
func (r *Registry) ApplySnapshot(list []Participant) {
	next := make(map[string]Participant, len(list))
	for _, p := range list {
		if p.UserID == r.selfID || p.UserID == "" {
			continue
		}
		next[p.UserID] = p
	}

	r.mu.Lock()
	r.byID = next
	r.mu.Unlock()
}

// ApplyJoin inserts or refreshes one participant. The operation is
// idempotent: an existing entry only merges identity and role fields and
// flips to connected, preserving media flags, hand state and the stream
// reference. A new entry starts in StateJoined with no stream.
func (r *Registry) ApplyJoin(entry Participant) Participant {
	if entry.UserID == r.selfID || entry.UserID == "" {
		return Participant{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[entry.UserID]; ok {
		merged := existing
		merged.DisplayName = entry.DisplayName
		merged.Role = entry.Role
		merged.ConnectionState = StateConnected
		r.byID[entry.UserID] = merged
		return merged
	}

	fresh := entry
	fresh.ConnectionState = StateJoined
	fresh.StreamID = ""
	r.byID[entry.UserID] = fresh
	return fresh
}

// ApplyLeave removes a participant, returning the removed entry so the caller
// can drop any associated remote-stream cache.
func (r *Registry) ApplyLeave(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return Participant{}, false
	}
	delete(r.byID, id)
	return p, true
}

// Get returns a copy of the participant with the given id.
func (r *Registry) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	return p, ok
}

// Update applies a pure update function to one entry and stores the result.
// It returns false when the participant does not exist. The function receives
// a copy, so it cannot alias registry state.
func (r *Registry) Update(id string, fn func(Participant) Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return false
	}
	r.byID[id] = fn(p)
	return true
}

// Len returns the number of remote participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Clear empties the registry. Used by session cleanup.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]Participant)
	r.mu.Unlock()
}

// All returns every participant in canonical order: teachers before students,
// connected before connecting, raised hands before lowered ones (earliest
// raise first), display name as the final tiebreak. This order is also the
// iteration order for moderation batch actions.
func (r *Registry) All() []Participant {
	r.mu.RLock()
	out := make([]Participant, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		aTeach, bTeach := a.Role == perms.RoleTeacher, b.Role == perms.RoleTeacher
		if aTeach != bTeach {
			return aTeach
		}

		aConn, bConn := a.ConnectionState == StateConnected, b.ConnectionState == StateConnected
		if aConn != bConn {
			return aConn
		}

		if a.Hand.Raised != b.Hand.Raised {
			return a.Hand.Raised
		}
		if a.Hand.Raised && b.Hand.Raised && !a.Hand.RaisedAt.Equal(b.Hand.RaisedAt) {
			return a.Hand.RaisedAt.Before(b.Hand.RaisedAt)
		}

		return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
	})

	return out
}
