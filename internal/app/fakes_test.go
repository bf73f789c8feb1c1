package app

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
	"github.com/google/uuid"
)

// fixedNow gives fakes a stable, non-time.Now timestamp so tests stay
// deterministic.
func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

// fakeEphemeral is an in-memory stand-in for ports.EphemeralStore, good
// enough to exercise every handler's ephemeral-state transitions without a
// real Redis instance.
type fakeEphemeral struct {
	mu sync.Mutex

	turn            map[string]string
	turnTimeout     map[string]string
	missed          map[string]int
	ready           map[string]map[string]bool
	teams           map[string]map[string]int
	nuclearProgress map[string]int
	nuclearUnlocked map[string]bool
	nuclearUsed     map[string]bool
	abandoned       map[string]map[string]bool
	conns           map[string][2]string // connID -> [userID, matchID]
	lastMatch       map[string]string
}

func newFakeEphemeral() *fakeEphemeral {
	return &fakeEphemeral{
		turn:            make(map[string]string),
		turnTimeout:     make(map[string]string),
		missed:          make(map[string]int),
		ready:           make(map[string]map[string]bool),
		teams:           make(map[string]map[string]int),
		nuclearProgress: make(map[string]int),
		nuclearUnlocked: make(map[string]bool),
		nuclearUsed:     make(map[string]bool),
		abandoned:       make(map[string]map[string]bool),
		conns:           make(map[string][2]string),
		lastMatch:       make(map[string]string),
	}
}

func key2(a, b string) string { return a + "\x00" + b }

func (f *fakeEphemeral) SetTurn(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turn[matchID] = userID
	return nil
}

func (f *fakeEphemeral) GetTurn(ctx context.Context, matchID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.turn[matchID]
	return u, ok, nil
}

func (f *fakeEphemeral) ClearTurn(ctx context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turn, matchID)
	return nil
}

func (f *fakeEphemeral) SetTurnTimeoutOwner(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turnTimeout[matchID] = userID
	return nil
}

func (f *fakeEphemeral) GetTurnTimeoutOwner(ctx context.Context, matchID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.turnTimeout[matchID]
	return u, ok, nil
}

func (f *fakeEphemeral) ClearTurnTimeoutOwner(ctx context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turnTimeout, matchID)
	return nil
}

func (f *fakeEphemeral) IncrMissed(ctx context.Context, matchID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key2(matchID, userID)
	f.missed[k]++
	return f.missed[k], nil
}

func (f *fakeEphemeral) ResetMissed(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.missed, key2(matchID, userID))
	return nil
}

func (f *fakeEphemeral) MarkReady(ctx context.Context, matchID, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ready[matchID] == nil {
		f.ready[matchID] = make(map[string]bool)
	}
	f.ready[matchID][connID] = true
	return nil
}

func (f *fakeEphemeral) AllReady(ctx context.Context, matchID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for c := range f.ready[matchID] {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeEphemeral) ClearReady(ctx context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ready, matchID)
	return nil
}

func (f *fakeEphemeral) SetTeam(ctx context.Context, matchID, connID string, team int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.teams[matchID] == nil {
		f.teams[matchID] = make(map[string]int)
	}
	f.teams[matchID][connID] = team
	return nil
}

func (f *fakeEphemeral) AllTeams(ctx context.Context, matchID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.teams[matchID]))
	for k, v := range f.teams[matchID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeEphemeral) ClearTeams(ctx context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.teams, matchID)
	return nil
}

func (f *fakeEphemeral) IncrNuclearProgress(ctx context.Context, matchID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key2(matchID, userID)
	f.nuclearProgress[k]++
	return f.nuclearProgress[k], nil
}

func (f *fakeEphemeral) ResetNuclearProgress(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nuclearProgress, key2(matchID, userID))
	return nil
}

func (f *fakeEphemeral) UnlockNuclear(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nuclearUnlocked[key2(matchID, userID)] = true
	return nil
}

func (f *fakeEphemeral) HasNuclearAvailable(ctx context.Context, matchID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nuclearUnlocked[key2(matchID, userID)], nil
}

func (f *fakeEphemeral) MarkNuclearUsed(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nuclearUsed[key2(matchID, userID)] = true
	return nil
}

func (f *fakeEphemeral) HasNuclearUsed(ctx context.Context, matchID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nuclearUsed[key2(matchID, userID)], nil
}

func (f *fakeEphemeral) ClearNuclear(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key2(matchID, userID)
	delete(f.nuclearProgress, k)
	delete(f.nuclearUnlocked, k)
	delete(f.nuclearUsed, k)
	return nil
}

func (f *fakeEphemeral) MarkAbandoned(ctx context.Context, matchID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.abandoned[matchID] == nil {
		f.abandoned[matchID] = make(map[string]bool)
	}
	f.abandoned[matchID][userID] = true
	return nil
}

func (f *fakeEphemeral) IsAbandoned(ctx context.Context, matchID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandoned[matchID][userID], nil
}

func (f *fakeEphemeral) ClearAllAbandoned(ctx context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.abandoned, matchID)
	return nil
}

func (f *fakeEphemeral) SaveConn(ctx context.Context, connID, userID, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[connID] = [2]string{userID, matchID}
	return nil
}

func (f *fakeEphemeral) GetConn(ctx context.Context, connID string) (string, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.conns[connID]
	if !ok {
		return "", "", false, nil
	}
	return v[0], v[1], true, nil
}

func (f *fakeEphemeral) DeleteConn(ctx context.Context, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, connID)
	return nil
}

func (f *fakeEphemeral) GetLastMatchByUser(ctx context.Context, userID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.lastMatch[userID]
	return m, ok, nil
}

func (f *fakeEphemeral) SetLastMatchByUser(ctx context.Context, userID, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMatch[userID] = matchID
	return nil
}

func (f *fakeEphemeral) ClearMatch(ctx context.Context, matchID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.turn, matchID)
	delete(f.turnTimeout, matchID)
	delete(f.ready, matchID)
	delete(f.teams, matchID)
	delete(f.abandoned, matchID)
	for _, u := range userIDs {
		delete(f.missed, key2(matchID, u))
		delete(f.nuclearProgress, key2(matchID, u))
		delete(f.nuclearUnlocked, key2(matchID, u))
		delete(f.nuclearUsed, key2(matchID, u))
		if f.lastMatch[u] == matchID {
			delete(f.lastMatch, u)
		}
	}
	return nil
}

// fakeMatchRepo is an in-memory stand-in for ports.MatchRepo.
type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*domain.Match
	players map[string][]*domain.MatchPlayer
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{
		matches: make(map[string]*domain.Match),
		players: make(map[string][]*domain.MatchPlayer),
	}
}

func (r *fakeMatchRepo) CreateWithCreator(ctx context.Context, match *domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[match.ID] = match
	r.players[match.ID] = append(r.players[match.ID], &domain.MatchPlayer{
		ID: uuid.NewString(), MatchID: match.ID, UserID: match.CreatedByID,
	})
	return nil
}

func (r *fakeMatchRepo) FindOrCreateMatch(ctx context.Context, accessCode string, create *domain.Match) (*domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if m.AccessCode == accessCode {
			return m, nil
		}
	}
	r.matches[create.ID] = create
	return create, nil
}

func (r *fakeMatchRepo) FindById(ctx context.Context, matchID string, opts ports.FindOptions) (*domain.Match, []*domain.MatchPlayer, []*domain.Spectator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, nil, nil, nil
	}
	return m, r.players[matchID], nil, nil
}

func (r *fakeMatchRepo) AddPlayer(ctx context.Context, matchID, userID string) (*domain.MatchPlayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &domain.MatchPlayer{ID: uuid.NewString(), MatchID: matchID, UserID: userID}
	r.players[matchID] = append(r.players[matchID], p)
	return p, nil
}

func (r *fakeMatchRepo) UpdateCreator(ctx context.Context, matchID, newCreatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.CreatedByID = newCreatorID
	}
	return nil
}

func (r *fakeMatchRepo) UpdateStartBoard(ctx context.Context, matchID string, board *domain.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.Board = board
		m.Status = domain.StatusInProgress
	}
	return nil
}

func (r *fakeMatchRepo) UpdateBoard(ctx context.Context, matchID string, board *domain.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.Board = board
	}
	return nil
}

func (r *fakeMatchRepo) MarkFinished(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		m.Status = domain.StatusFinished
	}
	return nil
}

func (r *fakeMatchRepo) RemoveAbandoned(ctx context.Context, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, matchID)
	delete(r.players, matchID)
	return nil
}

// fakePlayerRepo is an in-memory stand-in for ports.PlayerRepo, operating
// directly against the same player slices the fakeMatchRepo owns.
type fakePlayerRepo struct {
	repo *fakeMatchRepo
}

func (r *fakePlayerRepo) MarkDefeatedByUser(ctx context.Context, matchID, userID string) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	now := fixedNow()
	for _, p := range r.repo.players[matchID] {
		if p.UserID == userID {
			p.LeftAt = &now
		}
	}
	return nil
}

func (r *fakePlayerRepo) MarkDefeatedById(ctx context.Context, playerID string) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	now := fixedNow()
	for _, ps := range r.repo.players {
		for _, p := range ps {
			if p.ID == playerID {
				p.LeftAt = &now
			}
		}
	}
	return nil
}

func (r *fakePlayerRepo) MarkWinner(ctx context.Context, matchID, userID string) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	for _, p := range r.repo.players[matchID] {
		if p.UserID == userID {
			p.IsWinner = true
		}
	}
	return nil
}

func (r *fakePlayerRepo) MarkTeamPlayersAsWinners(ctx context.Context, matchID string, team int) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	for _, p := range r.repo.players[matchID] {
		if p.Team == team {
			p.IsWinner = true
		}
	}
	return nil
}

// fakeShotRepo is an in-memory stand-in for ports.ShotRepo.
type fakeShotRepo struct {
	mu    sync.Mutex
	shots []*domain.Shot
}

func (r *fakeShotRepo) Register(ctx context.Context, matchID, shooterID string, shotType domain.ShotType, target domain.Target, hit bool) (*domain.Shot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &domain.Shot{ID: uuid.NewString(), MatchID: matchID, ShooterID: shooterID, Type: shotType, Target: target, Hit: hit}
	r.shots = append(r.shots, s)
	return s, nil
}

// fakeSpectatorRepo is an in-memory stand-in for ports.SpectatorRepo.
type fakeSpectatorRepo struct {
	mu   sync.Mutex
	rows map[string]bool
}

func newFakeSpectatorRepo() *fakeSpectatorRepo { return &fakeSpectatorRepo{rows: make(map[string]bool)} }

func (r *fakeSpectatorRepo) FindFirst(ctx context.Context, matchID, userID string) (*domain.Spectator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[key2(matchID, userID)] {
		return &domain.Spectator{MatchID: matchID, UserID: userID}, nil
	}
	return nil, nil
}

func (r *fakeSpectatorRepo) Create(ctx context.Context, matchID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key2(matchID, userID)] = true
	return nil
}

// fakeStatsRepo is an in-memory stand-in for ports.StatsRepo.
type fakeStatsRepo struct {
	mu      sync.Mutex
	byMatch map[string]map[string]*domain.PlayerStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{byMatch: make(map[string]map[string]*domain.PlayerStats)}
}

func (r *fakeStatsRepo) SaveMany(ctx context.Context, matchID string, stats map[string]*domain.PlayerStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMatch[matchID] = stats
	return nil
}

func (r *fakeStatsRepo) FindByMatchId(ctx context.Context, matchID string) ([]*domain.PlayerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PlayerStats
	for _, s := range r.byMatch[matchID] {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeStatsRepo) FindByUserIdWithMatch(ctx context.Context, userID, matchID string) (*domain.PlayerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byMatch[matchID][userID], nil
}

// fakeGlobalStatsRepo is an in-memory stand-in for ports.UserGlobalStatsRepo.
type fakeGlobalStatsRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.UserGlobalStats
}

func newFakeGlobalStatsRepo() *fakeGlobalStatsRepo {
	return &fakeGlobalStatsRepo{byID: make(map[string]*domain.UserGlobalStats)}
}

func (r *fakeGlobalStatsRepo) FindByUserId(ctx context.Context, userID string) (*domain.UserGlobalStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[userID], nil
}

func (r *fakeGlobalStatsRepo) UpsertFromMatchStats(ctx context.Context, userID string, stats *domain.UserGlobalStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[userID] = stats
	return nil
}
