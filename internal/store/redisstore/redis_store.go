// Package redisstore implements ports.EphemeralStore over Redis
// (github.com/redis/go-redis/v9): a shared, atomic-increment-capable
// key-value store for per-match coordination state.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
)

// Store adapts a *redis.Client to ports.EphemeralStore.
type Store struct {
	client *redis.Client
}

// New connects to the given Redis URL (e.g. "redis://host:6379/0").
func New(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	return &Store{client: redis.NewClient(opts)}, nil
}

// NewFromClient wraps an already-constructed client, primarily for tests
// that want to point at a local/miniature redis instance.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

var _ ports.EphemeralStore = (*Store)(nil)

func turnKey(matchID string) string           { return "turn:" + matchID }
func turnTimeoutKey(matchID string) string    { return "turnTimeout:" + matchID }
func missedKey(matchID, userID string) string { return "missed:" + matchID + ":" + userID }
func readyKey(matchID string) string          { return "ready:" + matchID }
func teamKey(matchID string) string           { return "team:" + matchID }
func nuclearProgressKey(matchID, userID string) string {
	return "nuclear:" + matchID + ":" + userID + ":progress"
}
func nuclearAvailableKey(matchID, userID string) string {
	return "nuclear:" + matchID + ":" + userID + ":available"
}
func nuclearUsedKey(matchID, userID string) string {
	return "nuclear:" + matchID + ":" + userID + ":used"
}
func abandonedKey(matchID, userID string) string { return "abandoned:" + matchID + ":" + userID }
func connKey(connID string) string               { return "conn:" + connID }
func lastMatchKey(userID string) string          { return "lastMatchByUser:" + userID }

func (s *Store) SetTurn(ctx context.Context, matchID, userID string) error {
	return s.client.Set(ctx, turnKey(matchID), userID, 0).Err()
}

func (s *Store) GetTurn(ctx context.Context, matchID string) (string, bool, error) {
	return s.getString(ctx, turnKey(matchID))
}

func (s *Store) ClearTurn(ctx context.Context, matchID string) error {
	return s.del(ctx, turnKey(matchID))
}

func (s *Store) SetTurnTimeoutOwner(ctx context.Context, matchID, userID string) error {
	return s.client.Set(ctx, turnTimeoutKey(matchID), userID, 0).Err()
}

func (s *Store) GetTurnTimeoutOwner(ctx context.Context, matchID string) (string, bool, error) {
	return s.getString(ctx, turnTimeoutKey(matchID))
}

func (s *Store) ClearTurnTimeoutOwner(ctx context.Context, matchID string) error {
	return s.del(ctx, turnTimeoutKey(matchID))
}

func (s *Store) IncrMissed(ctx context.Context, matchID, userID string) (int, error) {
	n, err := s.client.Incr(ctx, missedKey(matchID, userID)).Result()
	return int(n), err
}

func (s *Store) ResetMissed(ctx context.Context, matchID, userID string) error {
	return s.del(ctx, missedKey(matchID, userID))
}

func (s *Store) MarkReady(ctx context.Context, matchID, connID string) error {
	return s.client.SAdd(ctx, readyKey(matchID), connID).Err()
}

func (s *Store) AllReady(ctx context.Context, matchID string) ([]string, error) {
	return s.client.SMembers(ctx, readyKey(matchID)).Result()
}

func (s *Store) ClearReady(ctx context.Context, matchID string) error {
	return s.del(ctx, readyKey(matchID))
}

func (s *Store) SetTeam(ctx context.Context, matchID, connID string, team int) error {
	return s.client.HSet(ctx, teamKey(matchID), connID, team).Err()
}

func (s *Store) AllTeams(ctx context.Context, matchID string) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, teamKey(matchID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for connID, val := range raw {
		var team int
		if _, err := fmt.Sscanf(val, "%d", &team); err != nil {
			continue
		}
		out[connID] = team
	}
	return out, nil
}

func (s *Store) ClearTeams(ctx context.Context, matchID string) error {
	return s.del(ctx, teamKey(matchID))
}

func (s *Store) IncrNuclearProgress(ctx context.Context, matchID, userID string) (int, error) {
	n, err := s.client.Incr(ctx, nuclearProgressKey(matchID, userID)).Result()
	return int(n), err
}

func (s *Store) ResetNuclearProgress(ctx context.Context, matchID, userID string) error {
	return s.del(ctx, nuclearProgressKey(matchID, userID))
}

func (s *Store) UnlockNuclear(ctx context.Context, matchID, userID string) error {
	return s.client.Set(ctx, nuclearAvailableKey(matchID, userID), "1", 0).Err()
}

func (s *Store) HasNuclearAvailable(ctx context.Context, matchID, userID string) (bool, error) {
	return s.exists(ctx, nuclearAvailableKey(matchID, userID))
}

func (s *Store) MarkNuclearUsed(ctx context.Context, matchID, userID string) error {
	return s.client.Set(ctx, nuclearUsedKey(matchID, userID), "1", 0).Err()
}

func (s *Store) HasNuclearUsed(ctx context.Context, matchID, userID string) (bool, error) {
	return s.exists(ctx, nuclearUsedKey(matchID, userID))
}

func (s *Store) ClearNuclear(ctx context.Context, matchID, userID string) error {
	return s.del(ctx,
		nuclearProgressKey(matchID, userID),
		nuclearAvailableKey(matchID, userID),
		nuclearUsedKey(matchID, userID),
	)
}

func (s *Store) MarkAbandoned(ctx context.Context, matchID, userID string) error {
	return s.client.Set(ctx, abandonedKey(matchID, userID), "1", 0).Err()
}

func (s *Store) IsAbandoned(ctx context.Context, matchID, userID string) (bool, error) {
	return s.exists(ctx, abandonedKey(matchID, userID))
}

func (s *Store) ClearAllAbandoned(ctx context.Context, matchID string) error {
	pattern := "abandoned:" + matchID + ":*"
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) SaveConn(ctx context.Context, connID, userID, matchID string) error {
	return s.client.HSet(ctx, connKey(connID), "userId", userID, "matchId", matchID).Err()
}

func (s *Store) GetConn(ctx context.Context, connID string) (string, string, bool, error) {
	raw, err := s.client.HGetAll(ctx, connKey(connID)).Result()
	if err != nil {
		return "", "", false, err
	}
	if len(raw) == 0 {
		return "", "", false, nil
	}
	return raw["userId"], raw["matchId"], true, nil
}

func (s *Store) DeleteConn(ctx context.Context, connID string) error {
	return s.del(ctx, connKey(connID))
}

func (s *Store) GetLastMatchByUser(ctx context.Context, userID string) (string, bool, error) {
	return s.getString(ctx, lastMatchKey(userID))
}

func (s *Store) SetLastMatchByUser(ctx context.Context, userID, matchID string) error {
	return s.client.Set(ctx, lastMatchKey(userID), matchID, 0).Err()
}

// ClearMatch fans the match-scoped clears out concurrently via an
// errgroup; one clear failing does not stop the others from running.
// errgroup.Group.Wait only surfaces the first error it sees, which would
// silently swallow the rest, so each clear's error is collected under a
// mutex and joined via errors.Join instead of being returned straight to
// the group.
func (s *Store) ClearMatch(ctx context.Context, matchID string, userIDs []string) error {
	var g errgroup.Group
	var mu sync.Mutex
	var errs []error

	record := func(err error) error {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
		return nil
	}

	g.Go(func() error { return record(s.ClearTurn(ctx, matchID)) })
	g.Go(func() error { return record(s.ClearTurnTimeoutOwner(ctx, matchID)) })
	g.Go(func() error { return record(s.ClearReady(ctx, matchID)) })
	g.Go(func() error { return record(s.ClearTeams(ctx, matchID)) })
	g.Go(func() error { return record(s.ClearAllAbandoned(ctx, matchID)) })

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error { return record(s.ResetMissed(ctx, matchID, userID)) })
		g.Go(func() error { return record(s.ClearNuclear(ctx, matchID, userID)) })
	}

	_ = g.Wait()
	if len(errs) > 0 {
		return fmt.Errorf("redisstore: ClearMatch(%s): %w", matchID, errors.Join(errs...))
	}
	return nil
}

func (s *Store) getString(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) del(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redisstore: del %v: %w", keys, err)
	}
	return nil
}
