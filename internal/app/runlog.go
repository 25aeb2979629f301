package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/shelf/internal/config"
	"horse.fit/shelf/internal/db"
)

// recordDedupRun stores one run row for `shelf history`. Recording is best
// effort: a command never fails because the snapshot store is down, and when
// DATABASE_URL is unset nothing is recorded at all.
func recordDedupRun(cfg *config.Config, logger zerolog.Logger, run db.DedupRun) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("snapshot store unavailable, run not recorded")
		return
	}
	defer pool.Close()

	if _, err := pool.InsertDedupRun(ctx, run); err != nil {
		logger.Warn().Err(err).Str("kind", run.Kind).Msg("failed to record run")
	}
}
