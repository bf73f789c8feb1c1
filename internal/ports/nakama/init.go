package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/alejandrorodrom/navark-core-sub000/internal/app"
	"github.com/alejandrorodrom/navark-core-sub000/internal/config"
	"github.com/alejandrorodrom/navark-core-sub000/internal/ports"
	"github.com/alejandrorodrom/navark-core-sub000/internal/store/postgres"
	"github.com/alejandrorodrom/navark-core-sub000/internal/store/redisstore"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Process-wide collaborators, built once in InitModule and shared by
// every match actor Nakama spawns. Each matchHandler constructs its own
// *app.Service (and therefore its own TimeoutManager) from these in
// MatchInit, so no per-match state is ever shared across match
// goroutines. Only the underlying stores are shared, and both
// *redisstore.Store and *postgres.Store are safe for concurrent use (a
// pooled redis client and a pgxpool.Pool respectively).
var (
	ephemeralStore ports.EphemeralStore
	persistence    *postgres.Store
	cfg            *config.Config
)

// InitModule wires the ephemeral and persistence stores, then registers
// the resume-session RPC and the match handler. Lobby creation and
// matchmaking live on an external HTTP surface; this module only consumes
// the resulting match records.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	redis, err := redisstore.New(cfg.EphemeralStoreURL)
	if err != nil {
		return err
	}
	ephemeralStore = redis

	pg, err := postgres.New(ctx, cfg.PersistenceStoreURL)
	if err != nil {
		return err
	}
	persistence = pg

	if err := initializer.RegisterRpc(RpcResumeSession, RpcResumeSessionHandler); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameNavalCombat, NewMatch); err != nil {
		return err
	}

	logger.Info("navark-core match module loaded.")
	return nil
}

// newMatchService builds a fresh Service sharing the process-wide stores.
// Called once per match from MatchInit (see match_handler.go).
func newMatchService() *app.Service {
	return app.NewService(ephemeralStore, persistence, persistence, persistence, persistence, persistence, persistence, cfg, nil)
}

// resumeSessionResponse is the payload RpcResumeSession returns: the
// client's lastMatchByUser pointer, if any, so it knows whether to
// attempt rejoining a match before the player picks "new game".
type resumeSessionResponse struct {
	Found   bool   `json:"found"`
	MatchID string `json:"matchId,omitempty"`
}

// RpcResumeSessionHandler answers "what match was I last in?" for a
// freshly (re)authenticated session.
func RpcResumeSessionHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("missing user id in session", 3)
	}

	matchID, found, err := ephemeralStore.GetLastMatchByUser(ctx, userID)
	if err != nil {
		logger.Error("RpcResumeSession: lookup failed for %s: %v", userID, err)
		return "", runtime.NewError("failed to resolve last match", 13)
	}

	data, err := json.Marshal(resumeSessionResponse{Found: found, MatchID: matchID})
	if err != nil {
		return "", runtime.NewError("failed to encode response", 13)
	}
	return string(data), nil
}
