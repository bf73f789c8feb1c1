// Package config loads the environment-driven runtime configuration
// exactly once per process via viper's AutomaticEnv binding. There is no
// config file in this deployment model, only environment variables.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// Config is the full set of runtime tunables.
type Config struct {
	JoinMatchPlayerLimit     int
	TeamCount                int
	TurnTimeoutMS            int
	MaxMissedTurns           int
	MaxPlacementAttempts     int
	MaxBoardSize             int
	NuclearProgressThreshold int

	EphemeralStoreURL   string
	PersistenceStoreURL string
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// Load reads and validates the environment-driven configuration, caching
// the result for the lifetime of the process. Safe to call repeatedly;
// only the first call does any work.
func Load() (*Config, error) {
	once.Do(func() {
		instance, loadErr = load()
	})
	return instance, loadErr
}

func load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("JOIN_MATCH_PLAYER_LIMIT", 6)
	v.SetDefault("TEAM_COUNT", 2)
	v.SetDefault("TURN_TIMEOUT_MS", 30000)
	v.SetDefault("MAX_MISSED_TURNS", 3)
	v.SetDefault("MAX_PLACEMENT_ATTEMPTS", 100)
	v.SetDefault("MAX_BOARD_SIZE", 20)
	v.SetDefault("NUCLEAR_PROGRESS_THRESHOLD", 6)

	cfg := &Config{
		JoinMatchPlayerLimit:     v.GetInt("JOIN_MATCH_PLAYER_LIMIT"),
		TeamCount:                v.GetInt("TEAM_COUNT"),
		TurnTimeoutMS:            v.GetInt("TURN_TIMEOUT_MS"),
		MaxMissedTurns:           v.GetInt("MAX_MISSED_TURNS"),
		MaxPlacementAttempts:     v.GetInt("MAX_PLACEMENT_ATTEMPTS"),
		MaxBoardSize:             v.GetInt("MAX_BOARD_SIZE"),
		NuclearProgressThreshold: v.GetInt("NUCLEAR_PROGRESS_THRESHOLD"),
		EphemeralStoreURL:        v.GetString("EPHEMERAL_STORE_URL"),
		PersistenceStoreURL:      v.GetString("PERSISTENCE_STORE_URL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JoinMatchPlayerLimit < 2 || c.JoinMatchPlayerLimit > 6 {
		return fmt.Errorf("config: JOIN_MATCH_PLAYER_LIMIT must be in 2..6, got %d", c.JoinMatchPlayerLimit)
	}
	if c.TeamCount < 2 || c.TeamCount > 5 {
		return fmt.Errorf("config: TEAM_COUNT must be in 2..5, got %d", c.TeamCount)
	}
	if c.TeamCount > c.JoinMatchPlayerLimit-1 {
		return fmt.Errorf("config: TEAM_COUNT (%d) must be <= JOIN_MATCH_PLAYER_LIMIT-1 (%d)", c.TeamCount, c.JoinMatchPlayerLimit-1)
	}
	if c.TurnTimeoutMS != 10000 && c.TurnTimeoutMS != 30000 {
		return fmt.Errorf("config: TURN_TIMEOUT_MS must be 10000 or 30000, got %d", c.TurnTimeoutMS)
	}
	if c.MaxBoardSize <= 0 || c.MaxBoardSize > 20 {
		return fmt.Errorf("config: MAX_BOARD_SIZE must be in 1..20, got %d", c.MaxBoardSize)
	}
	if c.EphemeralStoreURL == "" {
		return fmt.Errorf("config: EPHEMERAL_STORE_URL is required")
	}
	if c.PersistenceStoreURL == "" {
		return fmt.Errorf("config: PERSISTENCE_STORE_URL is required")
	}
	return nil
}
