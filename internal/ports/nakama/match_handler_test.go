package nakama

import (
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
)

// fakePresence is a minimal runtime.Presence test double.
type fakePresence struct {
	userID    string
	sessionID string
}

func (p *fakePresence) GetUserId() string    { return p.userID }
func (p *fakePresence) GetSessionId() string { return p.sessionID }
func (p *fakePresence) GetNodeId() string    { return "node-1" }
func (p *fakePresence) GetHidden() bool      { return false }
func (p *fakePresence) GetPersistence() bool { return false }
func (p *fakePresence) GetUsername() string  { return p.userID }
func (p *fakePresence) GetStatus() string    { return "" }
func (p *fakePresence) GetReason() runtime.PresenceReason {
	return runtime.PresenceReasonJoin
}

func newTestState(presences ...*fakePresence) *MatchState {
	conns := make(map[string]runtime.Presence, len(presences))
	for _, p := range presences {
		conns[p.sessionID] = p
	}
	return &MatchState{MatchID: "match-1", conns: conns}
}

func TestMatchStateRoomConnIDs(t *testing.T) {
	state := newTestState(
		&fakePresence{userID: "u1", sessionID: "c1"},
		&fakePresence{userID: "u2", sessionID: "c2"},
	)

	ids := state.roomConnIDs()
	if len(ids) != 2 {
		t.Fatalf("roomConnIDs() len = %d, want 2", len(ids))
	}
}

func TestMatchStateRoomConnIDsExcept(t *testing.T) {
	state := newTestState(
		&fakePresence{userID: "u1", sessionID: "c1"},
		&fakePresence{userID: "u2", sessionID: "c2"},
	)

	ids := state.roomConnIDsExcept("c1")
	if len(ids) != 1 || ids[0] != "c2" {
		t.Fatalf("roomConnIDsExcept(c1) = %v, want [c2]", ids)
	}
}

func TestMatchStateRoomUserIDs(t *testing.T) {
	state := newTestState(
		&fakePresence{userID: "u1", sessionID: "c1"},
		&fakePresence{userID: "u2", sessionID: "c2"},
	)

	got := make(map[string]bool)
	for _, u := range state.roomUserIDs() {
		got[u] = true
	}
	if !got["u1"] || !got["u2"] {
		t.Fatalf("roomUserIDs() = %v, want u1 and u2 present", state.roomUserIDs())
	}
}

func TestMatchStatePresencesFor(t *testing.T) {
	tests := []struct {
		name    string
		userIDs []string
		want    int
	}{
		{name: "SingleMatch", userIDs: []string{"u1"}, want: 1},
		{name: "BothUsers", userIDs: []string{"u1", "u2"}, want: 2},
		{name: "NoMatch", userIDs: []string{"ghost"}, want: 0},
		{name: "DuplicateConnsSameUser", userIDs: []string{"u1"}, want: 2},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			state := newTestState(
				&fakePresence{userID: "u1", sessionID: "c1"},
				&fakePresence{userID: "u2", sessionID: "c2"},
			)
			if test.name == "DuplicateConnsSameUser" {
				state.conns["c3"] = &fakePresence{userID: "u1", sessionID: "c3"}
			}

			got := state.presencesFor(test.userIDs)
			if len(got) != test.want {
				t.Fatalf("presencesFor(%v) len = %d, want %d", test.userIDs, len(got), test.want)
			}
		})
	}
}

func TestFailedAck(t *testing.T) {
	err := errTest("boom")
	ack := failedAck(err)
	if ack.Success {
		t.Fatalf("failedAck().Success = true, want false")
	}
	if ack.Error != "boom" {
		t.Fatalf("failedAck().Error = %q, want %q", ack.Error, "boom")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestConnEvent(t *testing.T) {
	ev := connEvent("SOME_KIND", "u1", nil)
	if ev.Scope != 1 {
		t.Fatalf("connEvent scope = %v, want ScopeConnection", ev.Scope)
	}
	if len(ev.Recipients) != 1 || ev.Recipients[0] != "u1" {
		t.Fatalf("connEvent recipients = %v, want [u1]", ev.Recipients)
	}
}
