package app

import (
	"context"
	"testing"
	"time"
)

func TestTimeoutManagerExpiredPopsOnlyPastDeadlines(t *testing.T) {
	m := NewTimeoutManager()
	ephemeral := newFakeEphemeral()
	now := fixedNow()

	if err := m.Start(context.Background(), ephemeral, "m1", "u1", 10*time.Second, now); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := m.Start(context.Background(), ephemeral, "m2", "u2", 30*time.Second, now); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	expired := m.Expired(now.Add(15 * time.Second))
	if len(expired) != 1 || expired[0] != "m1" {
		t.Fatalf("Expired() = %v, want [m1]", expired)
	}

	// m1 was popped; only m2 remains, and it expires later.
	if again := m.Expired(now.Add(15 * time.Second)); len(again) != 0 {
		t.Fatalf("Expired() second call = %v, want none", again)
	}
	if late := m.Expired(now.Add(31 * time.Second)); len(late) != 1 || late[0] != "m2" {
		t.Fatalf("Expired() = %v, want [m2]", late)
	}
}

func TestTimeoutManagerStartReplacesExistingDeadline(t *testing.T) {
	m := NewTimeoutManager()
	ephemeral := newFakeEphemeral()
	now := fixedNow()

	_ = m.Start(context.Background(), ephemeral, "m1", "u1", 10*time.Second, now)
	_ = m.Start(context.Background(), ephemeral, "m1", "u2", 30*time.Second, now)

	if expired := m.Expired(now.Add(15 * time.Second)); len(expired) != 0 {
		t.Fatalf("Expired() = %v, want none after restart pushed the deadline", expired)
	}

	owner, ok, _ := ephemeral.GetTurnTimeoutOwner(context.Background(), "m1")
	if !ok || owner != "u2" {
		t.Fatalf("turnTimeout owner = %q, want u2", owner)
	}
}

func TestTimeoutManagerCancelLeavesStoreUntouched(t *testing.T) {
	m := NewTimeoutManager()
	ephemeral := newFakeEphemeral()
	now := fixedNow()

	_ = m.Start(context.Background(), ephemeral, "m1", "u1", 10*time.Second, now)
	m.Cancel("m1")

	if expired := m.Expired(now.Add(time.Minute)); len(expired) != 0 {
		t.Fatalf("Expired() = %v, want none after Cancel", expired)
	}
	if _, ok, _ := ephemeral.GetTurnTimeoutOwner(context.Background(), "m1"); !ok {
		t.Fatal("Cancel must not clear the stored expected owner")
	}
}

func TestTimeoutManagerClearRemovesStoredOwner(t *testing.T) {
	m := NewTimeoutManager()
	ephemeral := newFakeEphemeral()
	now := fixedNow()

	_ = m.Start(context.Background(), ephemeral, "m1", "u1", 10*time.Second, now)
	if err := m.Clear(context.Background(), ephemeral, "m1"); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok, _ := ephemeral.GetTurnTimeoutOwner(context.Background(), "m1"); ok {
		t.Fatal("Clear must remove the stored expected owner")
	}

	// Clear is idempotent: a second call is a no-op, not an error.
	if err := m.Clear(context.Background(), ephemeral, "m1"); err != nil {
		t.Fatalf("second Clear error: %v", err)
	}
}
