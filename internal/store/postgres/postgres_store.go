// Package postgres implements the durable repository contracts over
// PostgreSQL via github.com/jackc/pgx/v5: matches, players, shots and
// stats, with transactional cascades where removal spans tables.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
)

// Store adapts a *pgxpool.Pool to every repository contract; it is small
// enough (and shares a single pool/transaction story) that one adapter
// type satisfies MatchRepo, PlayerRepo, ShotRepo, SpectatorRepo,
// StatsRepo and UserGlobalStatsRepo, rather than six separate structs
// each wrapping the same pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool to the given Postgres URL.
func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an already-constructed pool, for tests.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

var (
	_ ports.MatchRepo           = (*Store)(nil)
	_ ports.PlayerRepo          = (*Store)(nil)
	_ ports.ShotRepo            = (*Store)(nil)
	_ ports.SpectatorRepo       = (*Store)(nil)
	_ ports.StatsRepo           = (*Store)(nil)
	_ ports.UserGlobalStatsRepo = (*Store)(nil)
)

// --- MatchRepo ---

func (s *Store) CreateWithCreator(ctx context.Context, match *domain.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	if match.Status == "" {
		match.Status = domain.StatusWaiting
	}
	if match.CreatedAt.IsZero() {
		match.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (id, name, access_code, is_public, is_matchmaking, max_players, mode, difficulty, team_count, created_by_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, match.ID, match.Name, match.AccessCode, match.IsPublic, match.IsMatchmaking, match.MaxPlayers,
		match.Mode, match.Difficulty, match.TeamCount, match.CreatedByID, match.Status, match.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: CreateWithCreator: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO match_players (id, match_id, user_id, team, is_winner, joined_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.NewString(), match.ID, match.CreatedByID, 0, false, match.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: CreateWithCreator (creator player row): %w", err)
	}
	return nil
}

// AddPlayer seats a joining user in an already-existing match.
func (s *Store) AddPlayer(ctx context.Context, matchID, userID string) (*domain.MatchPlayer, error) {
	player := &domain.MatchPlayer{
		ID:       uuid.NewString(),
		MatchID:  matchID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_players (id, match_id, user_id, team, is_winner, joined_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (match_id, user_id) DO NOTHING
	`, player.ID, player.MatchID, player.UserID, 0, false, player.JoinedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: AddPlayer: %w", err)
	}
	return player, nil
}

func (s *Store) FindOrCreateMatch(ctx context.Context, accessCode string, create *domain.Match) (*domain.Match, error) {
	if accessCode != "" {
		row := s.pool.QueryRow(ctx, `SELECT id FROM matches WHERE access_code = $1 AND status = 'waiting'`, accessCode)
		var id string
		if err := row.Scan(&id); err == nil {
			match, _, _, err := s.FindById(ctx, id, ports.FindOptions{})
			return match, err
		} else if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: FindOrCreateMatch lookup: %w", err)
		}
	}
	if err := s.CreateWithCreator(ctx, create); err != nil {
		return nil, err
	}
	return create, nil
}

func (s *Store) FindById(ctx context.Context, matchID string, opts ports.FindOptions) (*domain.Match, []*domain.MatchPlayer, []*domain.Spectator, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, access_code, is_public, is_matchmaking, max_players, mode, difficulty, team_count, created_by_id, status, board, created_at
		FROM matches WHERE id = $1
	`, matchID)

	var (
		match     domain.Match
		boardJSON []byte
	)
	if err := row.Scan(&match.ID, &match.Name, &match.AccessCode, &match.IsPublic, &match.IsMatchmaking,
		&match.MaxPlayers, &match.Mode, &match.Difficulty, &match.TeamCount, &match.CreatedByID,
		&match.Status, &boardJSON, &match.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("postgres: FindById scan match: %w", err)
	}
	if len(boardJSON) > 0 {
		var board domain.Board
		if err := json.Unmarshal(boardJSON, &board); err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: FindById unmarshal board: %w", err)
		}
		match.Board = &board
	}

	var players []*domain.MatchPlayer
	if opts.WithPlayers {
		var err error
		players, err = s.loadPlayers(ctx, matchID, opts.WithUsers)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var spectators []*domain.Spectator
	if opts.WithSpectators {
		rows, err := s.pool.Query(ctx, `SELECT match_id, user_id FROM spectators WHERE match_id = $1`, matchID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: FindById spectators: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var sp domain.Spectator
			if err := rows.Scan(&sp.MatchID, &sp.UserID); err != nil {
				return nil, nil, nil, fmt.Errorf("postgres: FindById scan spectator: %w", err)
			}
			spectators = append(spectators, &sp)
		}
	}

	return &match, players, spectators, nil
}

func (s *Store) loadPlayers(ctx context.Context, matchID string, withUsers bool) ([]*domain.MatchPlayer, error) {
	query := `SELECT id, match_id, user_id, team, is_winner, left_at, joined_at FROM match_players WHERE match_id = $1 ORDER BY joined_at ASC`
	rows, err := s.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: loadPlayers: %w", err)
	}
	defer rows.Close()

	var players []*domain.MatchPlayer
	for rows.Next() {
		var p domain.MatchPlayer
		if err := rows.Scan(&p.ID, &p.MatchID, &p.UserID, &p.Team, &p.IsWinner, &p.LeftAt, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("postgres: loadPlayers scan: %w", err)
		}
		players = append(players, &p)
	}

	if withUsers {
		for _, p := range players {
			row := s.pool.QueryRow(ctx, `SELECT id, nickname, color FROM users WHERE id = $1`, p.UserID)
			var u domain.User
			if err := row.Scan(&u.ID, &u.Nickname, &u.Color); err == nil {
				p.User = &u
			}
		}
	}

	return players, nil
}

func (s *Store) UpdateCreator(ctx context.Context, matchID, newCreatorID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE matches SET created_by_id = $2 WHERE id = $1`, matchID, newCreatorID)
	if err != nil {
		return fmt.Errorf("postgres: UpdateCreator: %w", err)
	}
	return nil
}

func (s *Store) UpdateStartBoard(ctx context.Context, matchID string, board *domain.Board) error {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("postgres: UpdateStartBoard marshal: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE matches SET board = $2, status = 'in_progress' WHERE id = $1`, matchID, boardJSON)
	if err != nil {
		return fmt.Errorf("postgres: UpdateStartBoard: %w", err)
	}
	return nil
}

func (s *Store) UpdateBoard(ctx context.Context, matchID string, board *domain.Board) error {
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("postgres: UpdateBoard marshal: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE matches SET board = $2 WHERE id = $1`, matchID, boardJSON)
	if err != nil {
		return fmt.Errorf("postgres: UpdateBoard: %w", err)
	}
	return nil
}

func (s *Store) MarkFinished(ctx context.Context, matchID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE matches SET status = 'finished' WHERE id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("postgres: MarkFinished: %w", err)
	}
	return nil
}

// RemoveAbandoned transactionally cascades: shots, spectators, players,
// then the match row.
func (s *Store) RemoveAbandoned(ctx context.Context, matchID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM shots WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned shots: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM spectators WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned spectators: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM match_players WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned players: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM matches WHERE id = $1`, matchID); err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned match: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: RemoveAbandoned commit: %w", err)
	}
	return nil
}

// --- PlayerRepo ---

func (s *Store) MarkDefeatedByUser(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET left_at = now() WHERE match_id = $1 AND user_id = $2 AND left_at IS NULL`, matchID, userID)
	if err != nil {
		return fmt.Errorf("postgres: MarkDefeatedByUser: %w", err)
	}
	return nil
}

func (s *Store) MarkDefeatedById(ctx context.Context, playerID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET left_at = now() WHERE id = $1 AND left_at IS NULL`, playerID)
	if err != nil {
		return fmt.Errorf("postgres: MarkDefeatedById: %w", err)
	}
	return nil
}

func (s *Store) MarkWinner(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET is_winner = true WHERE match_id = $1 AND user_id = $2`, matchID, userID)
	if err != nil {
		return fmt.Errorf("postgres: MarkWinner: %w", err)
	}
	return nil
}

func (s *Store) MarkTeamPlayersAsWinners(ctx context.Context, matchID string, team int) error {
	_, err := s.pool.Exec(ctx, `UPDATE match_players SET is_winner = true WHERE match_id = $1 AND team = $2`, matchID, team)
	if err != nil {
		return fmt.Errorf("postgres: MarkTeamPlayersAsWinners: %w", err)
	}
	return nil
}

// --- ShotRepo ---

func (s *Store) Register(ctx context.Context, matchID, shooterID string, shotType domain.ShotType, target domain.Target, hit bool) (*domain.Shot, error) {
	shot := &domain.Shot{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		ShooterID: shooterID,
		Type:      shotType,
		Target:    target,
		Hit:       hit,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO shots (id, match_id, shooter_id, type, target_row, target_col, hit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, shot.ID, shot.MatchID, shot.ShooterID, shot.Type, shot.Target.Row, shot.Target.Col, shot.Hit, shot.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: Register shot: %w", err)
	}
	return shot, nil
}

// --- SpectatorRepo ---

func (s *Store) FindFirst(ctx context.Context, matchID, userID string) (*domain.Spectator, error) {
	row := s.pool.QueryRow(ctx, `SELECT match_id, user_id FROM spectators WHERE match_id = $1 AND user_id = $2`, matchID, userID)
	var sp domain.Spectator
	if err := row.Scan(&sp.MatchID, &sp.UserID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: FindFirst spectator: %w", err)
	}
	return &sp, nil
}

func (s *Store) Create(ctx context.Context, matchID, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO spectators (match_id, user_id) VALUES ($1,$2)
		ON CONFLICT (match_id, user_id) DO NOTHING
	`, matchID, userID)
	if err != nil {
		return fmt.Errorf("postgres: Create spectator: %w", err)
	}
	return nil
}

// --- StatsRepo ---

func (s *Store) SaveMany(ctx context.Context, matchID string, stats map[string]*domain.PlayerStats) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: SaveMany begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for userID, stat := range stats {
		shotsByType, err := json.Marshal(stat.ShotsByType)
		if err != nil {
			return fmt.Errorf("postgres: SaveMany marshal shotsByType: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO player_stats (match_id, user_id, total_shots, successful_shots, accuracy, ships_sunk,
				was_winner, turns_taken, ships_remaining, was_eliminated, hit_streak, last_shot_was_hit, shots_by_type)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`, matchID, userID, stat.TotalShots, stat.SuccessfulShots, stat.Accuracy, stat.ShipsSunk,
			stat.WasWinner, stat.TurnsTaken, stat.ShipsRemaining, stat.WasEliminated, stat.HitStreak,
			stat.LastShotWasHit, shotsByType)
		if err != nil {
			return fmt.Errorf("postgres: SaveMany insert for %s: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: SaveMany commit: %w", err)
	}
	return nil
}

func (s *Store) FindByMatchId(ctx context.Context, matchID string) ([]*domain.PlayerStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, user_id, total_shots, successful_shots, accuracy, ships_sunk, was_winner,
			turns_taken, ships_remaining, was_eliminated, hit_streak, last_shot_was_hit, shots_by_type
		FROM player_stats WHERE match_id = $1
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: FindByMatchId: %w", err)
	}
	defer rows.Close()
	return scanPlayerStats(rows)
}

func (s *Store) FindByUserIdWithMatch(ctx context.Context, userID, matchID string) (*domain.PlayerStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT match_id, user_id, total_shots, successful_shots, accuracy, ships_sunk, was_winner,
			turns_taken, ships_remaining, was_eliminated, hit_streak, last_shot_was_hit, shots_by_type
		FROM player_stats WHERE match_id = $1 AND user_id = $2
	`, matchID, userID)

	var stat domain.PlayerStats
	var shotsByType []byte
	if err := row.Scan(&stat.MatchID, &stat.UserID, &stat.TotalShots, &stat.SuccessfulShots, &stat.Accuracy,
		&stat.ShipsSunk, &stat.WasWinner, &stat.TurnsTaken, &stat.ShipsRemaining, &stat.WasEliminated,
		&stat.HitStreak, &stat.LastShotWasHit, &shotsByType); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: FindByUserIdWithMatch: %w", err)
	}
	stat.ShotsByType = map[domain.ShotType]int{}
	_ = json.Unmarshal(shotsByType, &stat.ShotsByType)
	return &stat, nil
}

func scanPlayerStats(rows pgx.Rows) ([]*domain.PlayerStats, error) {
	var out []*domain.PlayerStats
	for rows.Next() {
		var stat domain.PlayerStats
		var shotsByType []byte
		if err := rows.Scan(&stat.MatchID, &stat.UserID, &stat.TotalShots, &stat.SuccessfulShots, &stat.Accuracy,
			&stat.ShipsSunk, &stat.WasWinner, &stat.TurnsTaken, &stat.ShipsRemaining, &stat.WasEliminated,
			&stat.HitStreak, &stat.LastShotWasHit, &shotsByType); err != nil {
			return nil, fmt.Errorf("postgres: scanPlayerStats: %w", err)
		}
		stat.ShotsByType = map[domain.ShotType]int{}
		_ = json.Unmarshal(shotsByType, &stat.ShotsByType)
		out = append(out, &stat)
	}
	return out, nil
}

// --- UserGlobalStatsRepo ---

func (s *Store) FindByUserId(ctx context.Context, userID string) (*domain.UserGlobalStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, total_matches, total_wins, total_shots, total_hits, accuracy, max_hit_streak, nuclear_used, last_game_at
		FROM user_global_stats WHERE user_id = $1
	`, userID)

	var stats domain.UserGlobalStats
	if err := row.Scan(&stats.UserID, &stats.TotalMatches, &stats.TotalWins, &stats.TotalShots, &stats.TotalHits,
		&stats.Accuracy, &stats.MaxHitStreak, &stats.NuclearUsed, &stats.LastGameAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: FindByUserId: %w", err)
	}
	return &stats, nil
}

func (s *Store) UpsertFromMatchStats(ctx context.Context, userID string, stats *domain.UserGlobalStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_global_stats (user_id, total_matches, total_wins, total_shots, total_hits, accuracy, max_hit_streak, nuclear_used, last_game_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (user_id) DO UPDATE SET
			total_matches = EXCLUDED.total_matches,
			total_wins = EXCLUDED.total_wins,
			total_shots = EXCLUDED.total_shots,
			total_hits = EXCLUDED.total_hits,
			accuracy = EXCLUDED.accuracy,
			max_hit_streak = EXCLUDED.max_hit_streak,
			nuclear_used = EXCLUDED.nuclear_used,
			last_game_at = EXCLUDED.last_game_at
	`, userID, stats.TotalMatches, stats.TotalWins, stats.TotalShots, stats.TotalHits, stats.Accuracy,
		stats.MaxHitStreak, stats.NuclearUsed, stats.LastGameAt)
	if err != nil {
		return fmt.Errorf("postgres: UpsertFromMatchStats: %w", err)
	}
	return nil
}
