package main

import (
	"context"
	"database/sql"

	"github.com/alejandrorodrom/navark-core-sub000/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule proxies Nakama initialization to the nakama adapter package;
// this file stays a thin shim so the plugin's entrypoint symbol never has
// to change shape.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}
