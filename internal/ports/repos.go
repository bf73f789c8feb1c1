package ports

import (
	"context"

	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
)

// FindOptions controls which related rows MatchRepo.FindById joins in.
type FindOptions struct {
	WithPlayers    bool
	WithUsers      bool
	WithSpectators bool
}

// MatchRepo is the durable repository contract for Match rows.
type MatchRepo interface {
	CreateWithCreator(ctx context.Context, match *domain.Match) error
	FindOrCreateMatch(ctx context.Context, accessCode string, create *domain.Match) (*domain.Match, error)
	FindById(ctx context.Context, matchID string, opts FindOptions) (*domain.Match, []*domain.MatchPlayer, []*domain.Spectator, error)
	// AddPlayer inserts a MatchPlayer row for a user joining an existing
	// waiting match (distinct from CreateWithCreator, which seats only
	// the creator at match creation time).
	AddPlayer(ctx context.Context, matchID, userID string) (*domain.MatchPlayer, error)
	UpdateCreator(ctx context.Context, matchID, newCreatorID string) error
	UpdateStartBoard(ctx context.Context, matchID string, board *domain.Board) error
	UpdateBoard(ctx context.Context, matchID string, board *domain.Board) error
	MarkFinished(ctx context.Context, matchID string) error
	// RemoveAbandoned cascades in one transaction: shots, spectators,
	// players, then the match row itself.
	RemoveAbandoned(ctx context.Context, matchID string) error
}

// PlayerRepo is the durable repository contract for MatchPlayer rows.
type PlayerRepo interface {
	MarkDefeatedByUser(ctx context.Context, matchID, userID string) error
	MarkDefeatedById(ctx context.Context, playerID string) error
	MarkWinner(ctx context.Context, matchID, userID string) error
	MarkTeamPlayersAsWinners(ctx context.Context, matchID string, team int) error
}

// ShotRepo is the durable repository contract for persisted shots.
type ShotRepo interface {
	Register(ctx context.Context, matchID, shooterID string, shotType domain.ShotType, target domain.Target, hit bool) (*domain.Shot, error)
}

// SpectatorRepo is the durable repository contract for Spectator rows.
type SpectatorRepo interface {
	FindFirst(ctx context.Context, matchID, userID string) (*domain.Spectator, error)
	Create(ctx context.Context, matchID, userID string) error
}

// StatsRepo is the durable repository contract for per-match PlayerStats.
type StatsRepo interface {
	SaveMany(ctx context.Context, matchID string, stats map[string]*domain.PlayerStats) error
	FindByMatchId(ctx context.Context, matchID string) ([]*domain.PlayerStats, error)
	FindByUserIdWithMatch(ctx context.Context, userID, matchID string) (*domain.PlayerStats, error)
}

// UserGlobalStatsRepo is the durable repository contract for cross-match
// accumulated stats.
type UserGlobalStatsRepo interface {
	FindByUserId(ctx context.Context, userID string) (*domain.UserGlobalStats, error)
	UpsertFromMatchStats(ctx context.Context, userID string, stats *domain.UserGlobalStats) error
}
