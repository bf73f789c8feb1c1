package app

import (
	"context"
	"time"

	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
	"github.com/alejandrorodrom/navark-core-sub000/internal/metrics"
)

// PassTurn runs the elimination sweep, checks for victory (individual
// last-one-standing, or single-surviving-team), and otherwise rotates the
// turn to the next alive player. A failed repository call is returned to
// the caller (the Fire/HandleTimeout handler), which already runs inside
// the match's serialized loop, so no error escapes that boundary
// uncaught.
func (s *Service) PassTurn(ctx context.Context, matchID, actorUserID string, now time.Time) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		if err == ErrMatchNotFound {
			return nil, nil
		}
		return nil, err
	}
	if mctx.match.Board == nil {
		// An in_progress match must have a board. Finalize as abandoned
		// rather than leave the match stuck.
		return s.finalizeAbandoned(ctx, mctx, now)
	}

	eliminated, err := s.runElimination(ctx, mctx)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(eliminated)+2)
	for _, userID := range eliminated {
		events = append(events, roomEvent(EventPlayerEliminated, PlayerEliminatedPayload{OwnerID: userID}))
	}

	alivePlayers := make([]*domain.MatchPlayer, 0, len(mctx.players))
	for _, p := range mctx.players {
		if p.LeftAt == nil {
			alivePlayers = append(alivePlayers, p)
		}
	}
	alive := aliveUserIDs(alivePlayers)

	if len(alive) == 0 {
		finEvents, err := s.finalizeAbandoned(ctx, mctx, now)
		if err != nil {
			return nil, err
		}
		return append(events, finEvents...), nil
	}

	if mctx.match.Mode == domain.ModeIndividual && domain.IsLastOne(alive) {
		winnerID := alive[0]
		if err := s.Players.MarkWinner(ctx, matchID, winnerID); err != nil {
			return nil, err
		}
		markPlayersWinners(mctx.players, func(p *domain.MatchPlayer) bool { return p.UserID == winnerID })
		finEvents, err := s.finalizeVictory(ctx, mctx, now)
		if err != nil {
			return nil, err
		}
		events = append(events, roomEvent(EventGameEnded, GameEndedPayload{Mode: domain.ModeIndividual, WinnerUserID: winnerID}))
		return append(events, finEvents...), nil
	}

	if mctx.match.Mode == domain.ModeTeams {
		if team := domain.SingleAliveTeam(alivePlayers); team != 0 {
			if err := s.Players.MarkTeamPlayersAsWinners(ctx, matchID, team); err != nil {
				return nil, err
			}
			markPlayersWinners(mctx.players, func(p *domain.MatchPlayer) bool { return p.Team == team })
			finEvents, err := s.finalizeVictory(ctx, mctx, now)
			if err != nil {
				return nil, err
			}
			events = append(events, roomEvent(EventGameEnded, GameEndedPayload{Mode: domain.ModeTeams, WinningTeam: team}))
			return append(events, finEvents...), nil
		}
	}

	next := domain.NextUserId(alive, actorUserID)
	if err := s.Ephemeral.SetTurn(ctx, matchID, next); err != nil {
		return nil, err
	}
	events = append(events, roomEvent(EventTurnChanged, TurnChangedPayload{UserID: next}))
	return events, nil
}

// markPlayersWinners flips IsWinner on the in-memory players matching
// pred. The persistence repos (MarkWinner/MarkTeamPlayersAsWinners) are
// the durable source of truth, but finalizeVictory's stats computation
// reads mctx.players directly rather than re-querying the repo, so the
// in-memory copy must agree before domain.ComputeStats runs.
func markPlayersWinners(players []*domain.MatchPlayer, pred func(*domain.MatchPlayer) bool) {
	for _, p := range players {
		if pred(p) {
			p.IsWinner = true
		}
	}
}

// runElimination marks every still-active player with no live ships as
// defeated, in stable join order.
func (s *Service) runElimination(ctx context.Context, mctx *matchContext) ([]string, error) {
	var eliminated []string
	for _, p := range mctx.players {
		if p.LeftAt != nil {
			continue
		}
		if domain.HasShipsAlive(mctx.match.Board, p.UserID) {
			continue
		}
		if err := s.Players.MarkDefeatedByUser(ctx, mctx.match.ID, p.UserID); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		p.LeftAt = &now
		eliminated = append(eliminated, p.UserID)
	}
	return eliminated, nil
}

// finalizeAbandoned marks the match finished with no winner and clears
// ephemeral state. Unlike Leave's cascade-delete, a match that reached
// this point had real gameplay; the durable row and its shot/stat history
// are kept, only finalized.
func (s *Service) finalizeAbandoned(ctx context.Context, mctx *matchContext, now time.Time) ([]Event, error) {
	matchID := mctx.match.ID
	if err := s.Matches.MarkFinished(ctx, matchID); err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(mctx.players))
	for _, p := range mctx.players {
		userIDs = append(userIDs, p.UserID)
	}
	if err := s.Ephemeral.ClearMatch(ctx, matchID, userIDs); err != nil {
		return nil, err
	}
	s.Timeout.Cancel(matchID)
	metrics.ActiveMatches.Dec()
	observeMatchDuration(mctx.match, now)
	return []Event{roomEvent(EventGameAbandoned, nil)}, nil
}

// observeMatchDuration records the wall-clock span from match creation to
// finalization. Guarded against a zero CreatedAt (e.g. a fake/test fixture
// that never set it) so a bogus multi-decade bucket isn't recorded.
func observeMatchDuration(match *domain.Match, now time.Time) {
	if match.CreatedAt.IsZero() {
		return
	}
	metrics.MatchDuration.Observe(now.Sub(match.CreatedAt).Seconds())
}

// finalizeVictory marks the match finished, clears ephemeral state and
// computes+persists per-match and global stats.
func (s *Service) finalizeVictory(ctx context.Context, mctx *matchContext, now time.Time) ([]Event, error) {
	if err := s.Matches.MarkFinished(ctx, mctx.match.ID); err != nil {
		return nil, err
	}

	perPlayer := domain.ComputeStats(mctx.match.Board, mctx.players)
	if s.Stats != nil {
		if err := s.Stats.SaveMany(ctx, mctx.match.ID, perPlayer); err != nil {
			return nil, err
		}
	}
	if s.GlobalStats != nil {
		for userID, stat := range perPlayer {
			existing, err := s.GlobalStats.FindByUserId(ctx, userID)
			if err != nil {
				return nil, err
			}
			merged := domain.MergeGlobalStats(existing, stat, now)
			if err := s.GlobalStats.UpsertFromMatchStats(ctx, userID, merged); err != nil {
				return nil, err
			}
		}
	}

	userIDs := make([]string, 0, len(mctx.players))
	for _, p := range mctx.players {
		userIDs = append(userIDs, p.UserID)
	}
	if err := s.Ephemeral.ClearMatch(ctx, mctx.match.ID, userIDs); err != nil {
		return nil, err
	}
	s.Timeout.Cancel(mctx.match.ID)
	metrics.ActiveMatches.Dec()
	observeMatchDuration(mctx.match, now)
	return nil, nil
}
