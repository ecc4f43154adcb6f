// Command syncd runs the translation index daemon. It opens the SQLite
// database, wires the sync and commit services, and then periodically
// discovers translation files under every component, reconciles them
// against the index, and sweeps out aged deferred commits.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/cache"
	"github.com/tbourn/go-translate-backend/internal/checks"
	"github.com/tbourn/go-translate-backend/internal/config"
	"github.com/tbourn/go-translate-backend/internal/format"
	"github.com/tbourn/go-translate-backend/internal/notify"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/services"
	"github.com/tbourn/go-translate-backend/internal/sysutil"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("component", "syncd").Logger()

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		logger.Fatal().Err(err).Str("data_root", cfg.DataRoot).Msg("create data root")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	gateways := services.NewGitGateways()
	formats := format.NewRegistry()
	registry := checks.Default()
	store := cache.New()
	notifier := notify.NewLogNotifier(logger, cfg.NotifyRPS, cfg.NotifyBurst)

	stats := services.NewStatsService(db, store)
	sync := services.NewSyncService(db, gateways, formats, registry, notifier, stats, logger)
	commits := services.NewCommitService(db, gateways, cfg.Commit.Lazy, cfg.Commit.RetryDelay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("db_path", cfg.DBPath).
		Dur("interval", cfg.SyncInterval).
		Msg("syncd started")

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	runPass(ctx, db, sync, commits, cfg.Commit.PendingAge, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("syncd stopping")
			return
		case <-ticker.C:
			runPass(ctx, db, sync, commits, cfg.Commit.PendingAge, logger)
		}
	}
}

// runPass walks every component, discovers translation files matching its
// mask, reconciles each translation, and forces out deferred commits older
// than the pending age. Failures are logged per translation so one broken
// file never stalls the rest of the pass.
func runPass(ctx context.Context, db *gorm.DB, sync *services.SyncService, commits *services.CommitService, pendingAge time.Duration, logger zerolog.Logger) {
	comps, err := repo.ListComponents(ctx, db)
	if err != nil {
		logger.Error().Err(err).Msg("list components")
		return
	}
	for _, comp := range comps {
		ids, err := sync.DiscoverTranslations(ctx, comp.ID)
		if err != nil {
			logger.Error().Err(err).
				Str("component", comp.Slug).
				Msg("discover translations")
			continue
		}
		for _, id := range ids {
			if err := sync.Reconcile(ctx, id, "", false); err != nil {
				logger.Error().Err(err).
					Str("component", comp.Slug).
					Str("translation", id).
					Msg("reconcile translation")
			}
			sweepPending(ctx, db, commits, id, pendingAge, logger)
		}
	}
}

// sweepPending force-commits a translation whose newest content change has
// aged past the deferral window. Clean working trees are skipped inside the
// commit service.
func sweepPending(ctx context.Context, db *gorm.DB, commits *services.CommitService, translationID string, pendingAge time.Duration, logger zerolog.Logger) {
	change, err := repo.LastContentChange(ctx, db, translationID)
	if errors.Is(err, repo.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("translation", translationID).Msg("load last change")
		return
	}
	if time.Since(change.CreatedAt) < pendingAge {
		return
	}
	t, err := repo.GetTranslation(ctx, db, translationID)
	if err != nil {
		logger.Error().Err(err).Str("translation", translationID).Msg("load translation")
		return
	}
	opts := services.CommitOptions{Force: true, SyncRevision: true}
	if _, err := commits.Commit(ctx, t, change.Actor, change.CreatedAt, opts); err != nil {
		logger.Error().Err(err).Str("translation", translationID).Msg("sweep pending commit")
	}
}
