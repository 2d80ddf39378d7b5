package roster

import (
	"testing"
	"time"

	"edulive/internal/app/perms"
)

func student(id, name string) Participant {
	return Participant{UserID: id, DisplayName: name, Role: perms.RoleStudent}
}

func TestApplySnapshotExcludesSelf(t *testing.T) {
	r := New("me")
	r.ApplySnapshot([]Participant{
		student("me", "Self"),
		student("", "Nobody"),
		student("u1", "Alice"),
		student("u2", "Bob"),
	})

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if _, ok := r.Get("me"); ok {
		t.Fatal("snapshot stored the local identity")
	}
	if _, ok := r.Get("u1"); !ok {
		t.Fatal("snapshot dropped a remote participant")
	}
}

func TestApplySnapshotReplacesPreviousState(t *testing.T) {
	r := New("me")
	r.ApplyJoin(student("old", "Old"))

	r.ApplySnapshot([]Participant{student("u1", "Alice")})

	if _, ok := r.Get("old"); ok {
		t.Fatal("snapshot did not replace stale membership")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestApplyJoinFreshEntry(t *testing.T) {
	r := New("me")

	entry := student("u1", "Alice")
	entry.StreamID = "should-be-cleared"
	got := r.ApplyJoin(entry)

	if got.ConnectionState != StateJoined {
		t.Fatalf("fresh join state = %s, want %s", got.ConnectionState, StateJoined)
	}
	if got.StreamID != "" {
		t.Fatal("fresh join must not carry a stream reference")
	}
}

func TestApplyJoinIdempotentMerge(t *testing.T) {
	r := New("me")
	r.ApplyJoin(student("u1", "Alice"))

	raisedAt := time.Now()
	r.Update("u1", func(p Participant) Participant {
		p.Media.AudioOn = true
		p.Hand = HandRaise{Raised: true, RaisedAt: raisedAt}
		p.StreamID = "stream-1"
		return p
	})

	got := r.ApplyJoin(Participant{UserID: "u1", DisplayName: "Alice Renamed", Role: perms.RoleTeacher})

	if got.ConnectionState != StateConnected {
		t.Fatalf("re-join state = %s, want %s", got.ConnectionState, StateConnected)
	}
	if got.DisplayName != "Alice Renamed" || got.Role != perms.RoleTeacher {
		t.Fatalf("re-join did not merge identity: %+v", got)
	}
	if !got.Media.AudioOn || !got.Hand.Raised || !got.Hand.RaisedAt.Equal(raisedAt) || got.StreamID != "stream-1" {
		t.Fatalf("re-join lost live state: %+v", got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d after duplicate join, want 1", r.Len())
	}
}

func TestSnapshotThenJoinKeepsOneEntry(t *testing.T) {
	r := New("me")
	r.ApplySnapshot([]Participant{{UserID: "u2", DisplayName: "Bob", Role: perms.RoleStudent, ConnectionState: StateConnected}})

	r.ApplyJoin(student("u2", "Bob"))

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want exactly one entry for u2", r.Len())
	}
	got, _ := r.Get("u2")
	if got.ConnectionState != StateConnected {
		t.Fatalf("state = %s, want %s", got.ConnectionState, StateConnected)
	}
}

func TestApplyJoinIgnoresSelf(t *testing.T) {
	r := New("me")
	if got := r.ApplyJoin(student("me", "Self")); got.UserID != "" {
		t.Fatalf("self join returned %+v", got)
	}
	if r.Len() != 0 {
		t.Fatal("self join inserted an entry")
	}
}

func TestApplyLeave(t *testing.T) {
	r := New("me")
	r.Update("u1", func(p Participant) Participant { return p }) // no entry yet
	r.ApplyJoin(student("u1", "Alice"))

	p, ok := r.ApplyLeave("u1")
	if !ok || p.UserID != "u1" {
		t.Fatalf("ApplyLeave = %+v, %v", p, ok)
	}
	if _, ok := r.ApplyLeave("u1"); ok {
		t.Fatal("second leave reported a removal")
	}
}

func TestUpdateCopiesNotAliases(t *testing.T) {
	r := New("me")
	r.ApplyJoin(student("u1", "Alice"))

	if r.Update("missing", func(p Participant) Participant { return p }) {
		t.Fatal("Update succeeded for unknown participant")
	}

	got, _ := r.Get("u1")
	got.DisplayName = "mutated copy"
	stored, _ := r.Get("u1")
	if stored.DisplayName != "Alice" {
		t.Fatal("Get handed out an aliased entry")
	}
}

func TestAllCanonicalOrder(t *testing.T) {
	r := New("me")
	now := time.Now()

	r.ApplySnapshot([]Participant{
		{UserID: "s1", DisplayName: "zoe", Role: perms.RoleStudent, ConnectionState: StateConnected},
		{UserID: "s2", DisplayName: "Adam", Role: perms.RoleStudent, ConnectionState: StateConnected},
		{UserID: "t1", DisplayName: "Prof", Role: perms.RoleTeacher, ConnectionState: StateConnecting},
		{UserID: "s3", DisplayName: "carl", Role: perms.RoleStudent, ConnectionState: StateJoined},
		{UserID: "h1", DisplayName: "Beth", Role: perms.RoleStudent, ConnectionState: StateConnected,
			Hand: HandRaise{Raised: true, RaisedAt: now.Add(time.Second)}},
		{UserID: "h2", DisplayName: "Dana", Role: perms.RoleStudent, ConnectionState: StateConnected,
			Hand: HandRaise{Raised: true, RaisedAt: now}},
	})

	var ids []string
	for _, p := range r.All() {
		ids = append(ids, p.UserID)
	}

	want := []string{"t1", "h2", "h1", "s2", "s1", "s3"}
	if len(ids) != len(want) {
		t.Fatalf("All returned %d entries, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}
