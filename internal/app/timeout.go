package app

import (
	"context"
	"time"

	"github.com/alejandrorodrom/navark-core-sub000/internal/metrics"
	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
)

// TimeoutManager tracks the turn deadline for each match. Nakama only
// allows match state to be mutated from inside a MatchLoop invocation, so
// a time.AfterFunc callback firing from another goroutine would race the
// per-match serialization the runtime guarantees. TimeoutManager is
// therefore tick-driven: the gateway calls Expired once per MatchLoop
// tick and processes whatever comes back inside that same tick. On expiry
// HandleTimeout acts only while an expected owner is still stored, and
// charges the missed turn to whichever user is stored at that moment; it
// does not compare that value with the user the expired deadline was
// started for.
type TimeoutManager struct {
	deadlines map[string]timeoutEntry
}

type timeoutEntry struct {
	userID   string
	deadline time.Time
}

// NewTimeoutManager constructs an empty manager.
func NewTimeoutManager() *TimeoutManager {
	return &TimeoutManager{deadlines: make(map[string]timeoutEntry)}
}

// Start writes the expected turn owner to the ephemeral store and
// (re)schedules the in-process deadline for matchID, cancelling whatever
// deadline was previously tracked for it.
func (m *TimeoutManager) Start(ctx context.Context, ephemeral ports.EphemeralStore, matchID, userID string, d time.Duration, now time.Time) error {
	if err := ephemeral.SetTurnTimeoutOwner(ctx, matchID, userID); err != nil {
		return err
	}
	m.deadlines[matchID] = timeoutEntry{userID: userID, deadline: now.Add(d)}
	return nil
}

// Cancel stops the in-process timer without touching the ephemeral store.
func (m *TimeoutManager) Cancel(matchID string) {
	delete(m.deadlines, matchID)
}

// Clear clears the stored expected user. The in-process entry is dropped
// too, but that is local bookkeeping, not a correctness requirement: the
// expiry guard against the ephemeral store's stored value already makes a
// stale in-process entry harmless.
func (m *TimeoutManager) Clear(ctx context.Context, ephemeral ports.EphemeralStore, matchID string) error {
	delete(m.deadlines, matchID)
	return ephemeral.ClearTurnTimeoutOwner(ctx, matchID)
}

// Expired pops and returns the matchIds whose deadline has passed as of
// now, in no particular order. Each returned matchID is removed from the
// tracked set so a single expiry is only ever surfaced once per Start.
func (m *TimeoutManager) Expired(now time.Time) []string {
	var out []string
	for matchID, entry := range m.deadlines {
		if !now.Before(entry.deadline) {
			out = append(out, matchID)
			delete(m.deadlines, matchID)
		}
	}
	return out
}

// HandleTimeout processes one turn-timer expiry. The gateway calls this
// once per matchID returned by Timeout.Expired, inside the same per-match
// serialized tick.
func (s *Service) HandleTimeout(ctx context.Context, matchID string, now time.Time) ([]Event, error) {
	expectedUserID, ok, err := s.Ephemeral.GetTurnTimeoutOwner(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Stale timer: the guard value is gone, cleared by a Fire that
		// raced ahead of this expiry.
		return nil, nil
	}

	missed, err := s.Ephemeral.IncrMissed(ctx, matchID, expectedUserID)
	if err != nil {
		return nil, err
	}

	metrics.TurnTimeouts.Inc()

	maxMissed := s.maxMissedTurns()
	if missed >= maxMissed {
		return s.abandonForTimeout(ctx, matchID, expectedUserID, now)
	}

	events := []Event{roomEvent(EventTurnTimeout, TurnTimeoutPayload{UserID: expectedUserID})}

	passEvents, err := s.PassTurn(ctx, matchID, expectedUserID, now)
	if err != nil {
		return nil, err
	}
	events = append(events, passEvents...)

	if next, ok, err := s.Ephemeral.GetTurn(ctx, matchID); err == nil && ok {
		if err := s.Timeout.Start(ctx, s.Ephemeral, matchID, next, s.turnTimeoutDuration(), now); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// abandonForTimeout marks a player abandoned after MaxMissedTurns
// consecutive expiries, ejects every one of their connections, then hands
// the turn to the next alive player via the ordinary orchestrator path.
func (s *Service) abandonForTimeout(ctx context.Context, matchID, userID string, now time.Time) ([]Event, error) {
	if err := s.Ephemeral.MarkAbandoned(ctx, matchID, userID); err != nil {
		return nil, err
	}
	if err := s.Players.MarkDefeatedByUser(ctx, matchID, userID); err != nil {
		return nil, err
	}

	events := []Event{
		roomEvent(EventPlayerEliminated, PlayerEliminatedPayload{OwnerID: userID}),
		ackEvent(EventPlayerKicked, userID, PlayerKickedPayload{Reason: "max_missed_turns"}),
	}

	passEvents, err := s.PassTurn(ctx, matchID, userID, now)
	if err != nil {
		return nil, err
	}
	events = append(events, passEvents...)

	if next, ok, err := s.Ephemeral.GetTurn(ctx, matchID); err == nil && ok {
		if err := s.Timeout.Start(ctx, s.Ephemeral, matchID, next, s.turnTimeoutDuration(), now); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *Service) maxMissedTurns() int {
	if s.Config != nil && s.Config.MaxMissedTurns > 0 {
		return s.Config.MaxMissedTurns
	}
	return 3
}
