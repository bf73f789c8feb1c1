// Package app holds the use-case layer: the inbound message handlers, the
// turn orchestrator and the turn-timeout manager. It depends on
// internal/domain for pure rules and internal/ports for the ephemeral and
// persistence contracts, but never on a concrete store or on Nakama.
package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/alejandrorodrom/navark-core-sub000/internal/config"
	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
	"github.com/alejandrorodrom/navark-core-sub000/internal/metrics"
	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
	"github.com/google/uuid"
)

// Service implements every inbound message handler (Join, Ready,
// ChooseTeam, Leave, TransferCreator, Start, Fire, Reconnect, Disconnect)
// plus turn orchestration and timeout expiry handling. Every exported
// method returns ([]Event, error): the caller (the session gateway)
// dispatches the events and turns a non-nil error into an ACK or failure
// event. No method here ever addresses a connection directly.
type Service struct {
	Ephemeral   ports.EphemeralStore
	Matches     ports.MatchRepo
	Players     ports.PlayerRepo
	Shots       ports.ShotRepo
	Spectators  ports.SpectatorRepo
	Stats       ports.StatsRepo
	GlobalStats ports.UserGlobalStatsRepo

	Config  *config.Config
	Timeout *TimeoutManager

	rng *rand.Rand
}

// NewService wires a Service from its collaborators. rng may be nil, in
// which case a time-seeded source is used; tests pass a seeded *rand.Rand
// so board generation stays deterministic.
func NewService(
	ephemeral ports.EphemeralStore,
	matches ports.MatchRepo,
	players ports.PlayerRepo,
	shots ports.ShotRepo,
	spectators ports.SpectatorRepo,
	stats ports.StatsRepo,
	globalStats ports.UserGlobalStatsRepo,
	cfg *config.Config,
	rng *rand.Rand,
) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		Ephemeral:   ephemeral,
		Matches:     matches,
		Players:     players,
		Shots:       shots,
		Spectators:  spectators,
		Stats:       stats,
		GlobalStats: globalStats,
		Config:      cfg,
		Timeout:     NewTimeoutManager(),
		rng:         rng,
	}
}

// matchContext bundles the pieces most handlers need loaded together.
type matchContext struct {
	match      *domain.Match
	players    []*domain.MatchPlayer
	spectators []*domain.Spectator
}

func (s *Service) loadMatch(ctx context.Context, matchID string, withSpectators bool) (*matchContext, error) {
	match, players, spectators, err := s.Matches.FindById(ctx, matchID, ports.FindOptions{
		WithPlayers:    true,
		WithUsers:      true,
		WithSpectators: withSpectators,
	})
	if err != nil {
		return nil, fmt.Errorf("app: loadMatch(%s): %w", matchID, err)
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	return &matchContext{match: match, players: players, spectators: spectators}, nil
}

func findPlayer(players []*domain.MatchPlayer, userID string) *domain.MatchPlayer {
	for _, p := range players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// aliveUserIDs returns the userIds of every player with LeftAt == nil, in
// join order. Turn rotation walks this order.
func aliveUserIDs(players []*domain.MatchPlayer) []string {
	var out []string
	for _, p := range players {
		if p.LeftAt == nil {
			out = append(out, p.UserID)
		}
	}
	return out
}

func userLookupFrom(players []*domain.MatchPlayer) domain.UserLookup {
	byID := make(map[string]*domain.User, len(players))
	for _, p := range players {
		if p.User != nil {
			byID[p.UserID] = p.User
		}
	}
	return func(userID string) (string, string) {
		if u, ok := byID[userID]; ok {
			return u.Nickname, u.Color
		}
		return "", ""
	}
}

func teamOfFrom(players []*domain.MatchPlayer) func(string) int {
	byID := make(map[string]int, len(players))
	for _, p := range players {
		byID[p.UserID] = p.Team
	}
	return func(userID string) int { return byID[userID] }
}

func boardView(mctx *matchContext, viewerID string) *domain.BoardView {
	if mctx.match.Board == nil {
		return nil
	}
	view := domain.BuildBoardView(mctx.match.Board, viewerID, mctx.match.Mode, teamOfFrom(mctx.players), userLookupFrom(mctx.players))
	return &view
}

// --- Join ---

// Join validates and processes a PLAYER_JOIN message. connID identifies
// the connection that sent it; role is RolePlayer or RoleSpectator.
// nickname is the authenticated display name the session gateway already
// holds for this connection; the Service never looks it up itself, only
// forwards it into the PLAYER_JOINED broadcast.
func (s *Service) Join(ctx context.Context, matchID, userID, connID, role, nickname string) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, true)
	if err != nil {
		return nil, err
	}

	if abandoned, err := s.Ephemeral.IsAbandoned(ctx, matchID, userID); err != nil {
		return nil, err
	} else if abandoned {
		return nil, ErrAlreadyAbandoned
	}

	if role == RoleSpectator {
		return s.joinAsSpectator(ctx, mctx, userID, connID)
	}
	return s.joinAsPlayer(ctx, mctx, userID, connID, nickname)
}

func (s *Service) joinAsPlayer(ctx context.Context, mctx *matchContext, userID, connID, nickname string) ([]Event, error) {
	existing := findPlayer(mctx.players, userID)
	if existing != nil && existing.LeftAt == nil {
		return s.bindAndAckJoin(ctx, mctx, userID, connID, nickname, false)
	}

	if mctx.match.Status != domain.StatusWaiting {
		return nil, ErrMatchNotWaiting
	}
	if len(aliveUserIDs(mctx.players)) >= mctx.match.MaxPlayers {
		return nil, ErrMatchFull
	}

	if _, err := s.Matches.AddPlayer(ctx, mctx.match.ID, userID); err != nil {
		return nil, err
	}

	return s.bindAndAckJoin(ctx, mctx, userID, connID, nickname, true)
}

func (s *Service) bindAndAckJoin(ctx context.Context, mctx *matchContext, userID, connID, nickname string, isNew bool) ([]Event, error) {
	if err := s.Ephemeral.SaveConn(ctx, connID, userID, mctx.match.ID); err != nil {
		return nil, err
	}
	if err := s.Ephemeral.SetLastMatchByUser(ctx, userID, mctx.match.ID); err != nil {
		return nil, err
	}

	var view *domain.BoardView
	if mctx.match.Status == domain.StatusInProgress {
		view = boardView(mctx, userID)
	}

	events := []Event{
		ackEvent(EventPlayerJoinedAck, userID, PlayerJoinedAckPayload{Ack: Ack{Success: true}, Board: view}),
	}
	if isNew {
		events = append(events, roomEvent(EventPlayerJoined, PlayerJoinedPayload{UserID: userID, Nickname: nickname}))
	}
	return events, nil
}

func (s *Service) joinAsSpectator(ctx context.Context, mctx *matchContext, userID, connID string) ([]Event, error) {
	existing, err := s.Spectators.FindFirst(ctx, mctx.match.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := s.Spectators.Create(ctx, mctx.match.ID, userID); err != nil {
			return nil, err
		}
	}

	if err := s.Ephemeral.SaveConn(ctx, connID, userID, mctx.match.ID); err != nil {
		return nil, err
	}
	if err := s.Ephemeral.SetLastMatchByUser(ctx, userID, mctx.match.ID); err != nil {
		return nil, err
	}

	var view *domain.BoardView
	if mctx.match.Status == domain.StatusInProgress {
		view = boardView(mctx, userID)
	}

	return []Event{
		ackEvent(EventSpectatorJoinedAck, userID, SpectatorJoinedAckPayload{Ack: Ack{Success: true}, Board: view}),
	}, nil
}

// --- Ready ---

func (s *Service) Ready(ctx context.Context, matchID, userID, connID string, roomConnIDs []string) ([]Event, error) {
	if err := s.Ephemeral.MarkReady(ctx, matchID, connID); err != nil {
		return nil, err
	}

	events := []Event{
		roomEvent(EventPlayerReadyNotify, PlayerReadyNotifyPayload{UserID: userID}),
		ackEvent(EventPlayerReadyAck, userID, PlayerReadyAckPayload{Ack: Ack{Success: true}}),
	}

	ready, err := s.Ephemeral.AllReady(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if allReady(roomConnIDs, ready) {
		events = append(events, roomEvent(EventAllReady, nil))
	}
	return events, nil
}

// --- ChooseTeam ---

func (s *Service) ChooseTeam(ctx context.Context, matchID, userID, connID string, team int) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	if mctx.match.Mode != domain.ModeTeams {
		return nil, ErrNotTeamsMode
	}
	if team < 1 || team > mctx.match.TeamCount {
		return nil, ErrInvalidTeam
	}
	if err := s.Ephemeral.SetTeam(ctx, matchID, connID, team); err != nil {
		return nil, err
	}
	return []Event{
		roomEvent(EventPlayerTeamAssigned, PlayerTeamAssignedPayload{UserID: userID, Team: team}),
	}, nil
}

// --- CreatorTransfer ---

func (s *Service) TransferCreator(ctx context.Context, matchID, actorUserID, targetUserID string, roomUserIDs []string) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	if mctx.match.CreatedByID != actorUserID {
		return nil, ErrNotCreator
	}
	if !contains(roomUserIDs, targetUserID) {
		return nil, ErrTargetNotInRoom
	}
	if err := s.Matches.UpdateCreator(ctx, matchID, targetUserID); err != nil {
		return nil, err
	}
	return []Event{
		roomEvent(EventCreatorChanged, CreatorChangedPayload{NewCreatorID: targetUserID}),
		ackEvent(EventCreatorTransferAck, actorUserID, CreatorTransferAckPayload{Ack: Ack{Success: true}}),
	}, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// --- Start ---

// Start validates and starts a match. readyConnIDs and roomConnIDs are
// supplied by the gateway from its own presence bookkeeping (the
// connections currently in the room and the ones that are ready);
// connTeams is the ephemeral team map (connId -> team).
func (s *Service) Start(ctx context.Context, matchID, actorUserID string, roomConnIDs, readyConnIDs []string, connTeams map[string]int) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	if mctx.match.CreatedByID != actorUserID {
		return nil, ErrNotCreator
	}
	if mctx.match.Status != domain.StatusWaiting {
		return nil, ErrMatchNotWaiting
	}
	if !allReady(roomConnIDs, readyConnIDs) {
		return nil, ErrNotReady
	}

	userByConn := make(map[string]string, len(roomConnIDs))
	for _, connID := range roomConnIDs {
		userID, _, ok, err := s.Ephemeral.GetConn(ctx, connID)
		if err != nil {
			return nil, err
		}
		if ok {
			userByConn[connID] = userID
		}
	}

	var teamOf func(string) int
	if mctx.match.Mode == domain.ModeTeams {
		if err := validateTeamsAssignment(roomConnIDs, connTeams); err != nil {
			return nil, err
		}
		teamByUser := make(map[string]int, len(connTeams))
		for connID, team := range connTeams {
			if userID, ok := userByConn[connID]; ok {
				teamByUser[userID] = team
			}
		}
		teamOf = func(userID string) int { return teamByUser[userID] }
	}

	playerIDs := aliveUserIDs(mctx.players)
	board, err := domain.GenerateBoard(s.rng, playerIDs, mctx.match.Difficulty, mctx.match.Mode, teamOf, s.maxBoardSize(), s.maxPlacementAttempts())
	if err != nil {
		return nil, err
	}

	if err := s.Matches.UpdateStartBoard(ctx, matchID, board); err != nil {
		return nil, err
	}
	mctx.match.Board = board
	if err := s.Ephemeral.SetTurn(ctx, matchID, actorUserID); err != nil {
		return nil, err
	}
	if err := s.Timeout.Start(ctx, s.Ephemeral, matchID, actorUserID, s.turnTimeoutDuration(), time.Now().UTC()); err != nil {
		return nil, err
	}

	metrics.ActiveMatches.Inc()

	events := []Event{
		roomEvent(EventTurnChanged, TurnChangedPayload{UserID: actorUserID}),
		roomEvent(EventGameStarted, GameStartedPayload{MatchID: matchID}),
		ackEvent(EventGameStartAck, actorUserID, GameStartAckPayload{Ack: Ack{Success: true}}),
	}

	// Every connected user gets their own filtered projection of the
	// fresh board.
	seenUsers := make(map[string]bool, len(userByConn))
	for _, userID := range userByConn {
		if seenUsers[userID] {
			continue
		}
		seenUsers[userID] = true
		if view := boardView(mctx, userID); view != nil {
			events = append(events, ackEvent(EventBoardUpdate, userID, BoardUpdatePayload{Board: *view}))
		}
	}

	return events, nil
}

func (s *Service) maxBoardSize() int {
	if s.Config != nil && s.Config.MaxBoardSize > 0 {
		return s.Config.MaxBoardSize
	}
	return domain.MaxBoardSize
}

func (s *Service) maxPlacementAttempts() int {
	if s.Config != nil && s.Config.MaxPlacementAttempts > 0 {
		return s.Config.MaxPlacementAttempts
	}
	return domain.MaxPlacementAttempts
}

func allReady(room, ready []string) bool {
	if len(room) == 0 {
		return false
	}
	readySet := make(map[string]bool, len(ready))
	for _, r := range ready {
		readySet[r] = true
	}
	for _, c := range room {
		if !readySet[c] {
			return false
		}
	}
	return true
}

// validateTeamsAssignment checks every room connection has a team and
// that at least one team has >= minPlayersForTeams members.
func validateTeamsAssignment(room []string, connTeams map[string]int) error {
	counts := make(map[int]int)
	for _, connID := range room {
		team, ok := connTeams[connID]
		if !ok || team == 0 {
			return ErrTeamsIncomplete
		}
		counts[team]++
	}
	for _, n := range counts {
		if n >= minPlayersForTeams {
			return nil
		}
	}
	return ErrTeamsTooSmall
}

// --- Fire ---

// Fire validates and resolves a PLAYER_FIRE message, advances the turn and
// restarts the timeout timer. now is supplied by the caller (Nakama's tick
// clock) rather than taken from time.Now so resolution stays deterministic
// in tests.
func (s *Service) Fire(ctx context.Context, matchID, shooterID string, target domain.Target, shotType domain.ShotType, now time.Time) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}
	if mctx.match.Status != domain.StatusInProgress {
		return nil, ErrMatchNotPlaying
	}

	turnUserID, ok, err := s.Ephemeral.GetTurn(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !ok || turnUserID != shooterID {
		return nil, ErrNotYourTurn
	}

	if shotType == domain.ShotNuclear {
		available, err := s.Ephemeral.HasNuclearAvailable(ctx, matchID, shooterID)
		if err != nil {
			return nil, err
		}
		used, err := s.Ephemeral.HasNuclearUsed(ctx, matchID, shooterID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, ErrNuclearUnavailable
		}
		if used {
			return nil, ErrNuclearAlreadyUsed
		}
	}

	shotID := uuid.NewString()
	outcome, err := domain.ResolveShot(mctx.match.Board, shooterID, shotType, target, shotID, now)
	if err != nil {
		return nil, err
	}

	if err := s.Matches.UpdateBoard(ctx, matchID, mctx.match.Board); err != nil {
		return nil, err
	}
	if _, err := s.Shots.Register(ctx, matchID, shooterID, shotType, target, outcome.Hit); err != nil {
		return nil, err
	}

	metrics.ShotsResolved.WithLabelValues(string(shotType), strconvBool(outcome.Hit)).Inc()

	events := []Event{
		roomEvent(EventPlayerFired, PlayerFiredPayload{
			ShooterID: shooterID,
			X:         target.Row,
			Y:         target.Col,
			ShotType:  shotType,
			Hit:       outcome.Hit,
			Sunk:      outcome.SunkShipID != "",
		}),
	}

	if outcome.SunkShipID != "" {
		if ownerID := shipOwner(mctx.match.Board, outcome.SunkShipID); ownerID != "" && !domain.HasShipsAlive(mctx.match.Board, ownerID) {
			if owner := findPlayer(mctx.players, ownerID); owner != nil && owner.LeftAt == nil {
				if err := s.Players.MarkDefeatedByUser(ctx, matchID, ownerID); err != nil {
					return nil, err
				}
				eliminatedAt := now
				owner.LeftAt = &eliminatedAt
				events = append(events, roomEvent(EventPlayerEliminated, PlayerEliminatedPayload{OwnerID: ownerID}))
			}
		}
	}

	nuclearEvent, err := s.updateNuclearProgress(ctx, matchID, shooterID, shotType, outcome.Hit)
	if err != nil {
		return nil, err
	}
	events = append(events, nuclearEvent)
	events = append(events, ackEvent(EventPlayerFireAck, shooterID, PlayerFireAckPayload{
		Ack:  Ack{Success: true},
		Hit:  outcome.Hit,
		Sunk: outcome.SunkShipID != "",
	}))

	if err := s.Timeout.Clear(ctx, s.Ephemeral, matchID); err != nil {
		return nil, err
	}
	// A completed turn resets the shooter's missed-turn streak; only
	// consecutive expirations count toward abandonment.
	if err := s.Ephemeral.ResetMissed(ctx, matchID, shooterID); err != nil {
		return nil, err
	}

	passEvents, err := s.PassTurn(ctx, matchID, shooterID, now)
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

func strconvBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func shipOwner(board *domain.Board, shipID string) string {
	for _, ship := range board.Ships {
		if ship.ShipID == shipID {
			return ship.OwnerID
		}
	}
	return ""
}

func (s *Service) updateNuclearProgress(ctx context.Context, matchID, userID string, shotType domain.ShotType, hit bool) (Event, error) {
	if shotType == domain.ShotNuclear {
		if err := s.Ephemeral.MarkNuclearUsed(ctx, matchID, userID); err != nil {
			return Event{}, err
		}
		return ackEvent(EventNuclearStatus, userID, NuclearStatusPayload{HasNuclear: true, Used: true}), nil
	}
	if shotType != domain.ShotSimple {
		// Only simple shots affect nuclear progress; cross/multi/area/scan
		// leave it untouched, but the shooter still gets a status snapshot.
		hasNuclear, _ := s.Ephemeral.HasNuclearAvailable(ctx, matchID, userID)
		return ackEvent(EventNuclearStatus, userID, NuclearStatusPayload{HasNuclear: hasNuclear}), nil
	}

	if !hit {
		if err := s.Ephemeral.ResetNuclearProgress(ctx, matchID, userID); err != nil {
			return Event{}, err
		}
		return ackEvent(EventNuclearStatus, userID, NuclearStatusPayload{Progress: 0}), nil
	}

	progress, err := s.Ephemeral.IncrNuclearProgress(ctx, matchID, userID)
	if err != nil {
		return Event{}, err
	}
	threshold := defaultNuclearProgressThreshold
	if s.Config != nil && s.Config.NuclearProgressThreshold > 0 {
		threshold = s.Config.NuclearProgressThreshold
	}
	hasNuclear := false
	if progress >= threshold {
		if err := s.Ephemeral.UnlockNuclear(ctx, matchID, userID); err != nil {
			return Event{}, err
		}
		hasNuclear = true
	} else {
		hasNuclear, _ = s.Ephemeral.HasNuclearAvailable(ctx, matchID, userID)
	}
	return ackEvent(EventNuclearStatus, userID, NuclearStatusPayload{Progress: progress, HasNuclear: hasNuclear}), nil
}

func (s *Service) turnTimeoutDuration() time.Duration {
	if s.Config != nil && s.Config.TurnTimeoutMS > 0 {
		return time.Duration(s.Config.TurnTimeoutMS) * time.Millisecond
	}
	return 30 * time.Second
}

// --- Leave ---

func (s *Service) Leave(ctx context.Context, matchID, userID string, roomRemainingConnIDs []string) ([]Event, error) {
	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		return nil, err
	}

	if p := findPlayer(mctx.players, userID); p != nil && p.LeftAt == nil {
		if err := s.Players.MarkDefeatedByUser(ctx, matchID, userID); err != nil {
			return nil, err
		}
	}

	events := []Event{roomEvent(EventPlayerLeft, PlayerLeftPayload{UserID: userID})}

	if len(roomRemainingConnIDs) == 0 {
		abandonEvents, err := s.abandonMatch(ctx, matchID, mctx.players, mctx.match.Status == domain.StatusInProgress)
		if err != nil {
			return nil, err
		}
		return append(events, abandonEvents...), nil
	}

	if mctx.match.CreatedByID == userID {
		newCreatorConn := roomRemainingConnIDs[0]
		newCreatorID, _, ok, err := s.Ephemeral.GetConn(ctx, newCreatorConn)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := s.Matches.UpdateCreator(ctx, matchID, newCreatorID); err != nil {
				return nil, err
			}
			events = append(events, roomEvent(EventCreatorChanged, CreatorChangedPayload{NewCreatorID: newCreatorID}))
		}
	}

	return events, nil
}

func (s *Service) abandonMatch(ctx context.Context, matchID string, players []*domain.MatchPlayer, inProgress bool) ([]Event, error) {
	userIDs := make([]string, 0, len(players))
	for _, p := range players {
		userIDs = append(userIDs, p.UserID)
	}
	if err := s.Matches.RemoveAbandoned(ctx, matchID); err != nil {
		return nil, err
	}
	if err := s.Ephemeral.ClearMatch(ctx, matchID, userIDs); err != nil {
		return nil, err
	}
	s.Timeout.Cancel(matchID)
	metrics.MatchesAbandoned.Inc()
	if inProgress {
		metrics.ActiveMatches.Dec()
	}
	return []Event{roomEvent(EventGameAbandoned, nil)}, nil
}

// --- Disconnect ---

func (s *Service) Disconnect(ctx context.Context, connID string, roomRemainingConnIDs []string) ([]Event, error) {
	userID, matchID, ok, err := s.Ephemeral.GetConn(ctx, connID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := s.Ephemeral.DeleteConn(ctx, connID); err != nil {
		return nil, err
	}
	return s.Leave(ctx, matchID, userID, roomRemainingConnIDs)
}

// --- Reconnect ---

func (s *Service) Reconnect(ctx context.Context, userID, connID string) ([]Event, error) {
	matchID, ok, err := s.Ephemeral.GetLastMatchByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Event{ackEvent(EventReconnectFailed, userID, ReconnectFailedPayload{Ack: Ack{Success: false}, Reason: "no_last_match"})}, nil
	}

	mctx, err := s.loadMatch(ctx, matchID, false)
	if err != nil {
		if err == ErrMatchNotFound {
			return []Event{ackEvent(EventReconnectFailed, userID, ReconnectFailedPayload{Ack: Ack{Success: false}, Reason: "match_not_found"})}, nil
		}
		return nil, err
	}

	player := findPlayer(mctx.players, userID)
	if player == nil || player.LeftAt != nil {
		return []Event{ackEvent(EventReconnectFailed, userID, ReconnectFailedPayload{Ack: Ack{Success: false}, Reason: "not_a_player"})}, nil
	}
	if abandoned, err := s.Ephemeral.IsAbandoned(ctx, matchID, userID); err != nil {
		return nil, err
	} else if abandoned {
		return []Event{ackEvent(EventReconnectFailed, userID, ReconnectFailedPayload{Ack: Ack{Success: false}, Reason: "abandoned"})}, nil
	}

	if err := s.Ephemeral.SaveConn(ctx, connID, userID, matchID); err != nil {
		return nil, err
	}

	view := boardView(mctx, userID)
	events := []Event{}
	if view != nil {
		events = append(events, ackEvent(EventBoardUpdate, userID, BoardUpdatePayload{Board: *view}))
	}
	events = append(events,
		roomEvent(EventPlayerReconnected, PlayerReconnectedPayload{UserID: userID}),
		ackEvent(EventReconnectAck, userID, ReconnectAckPayload{Ack: Ack{Success: true}, Board: view}),
	)
	return events, nil
}
