package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/booksexchange/booksexchange-api/internal/config"
	"github.com/booksexchange/booksexchange-api/internal/domain/points"
	"github.com/booksexchange/booksexchange-api/internal/pkg/database"
	"github.com/booksexchange/booksexchange-api/internal/pkg/logger"
)

// One-shot ledger audit: recompute every account balance from the
// transaction log and repair any drift. The API runs the same check on a
// timer; this binary exists for cron jobs and manual runs after incidents.
func main() {
	userFlag := flag.String("user", "", "reconcile a single account instead of all (uuid)")
	timeout := flag.Duration("timeout", 10*time.Minute, "abort if the audit runs longer than this")
	flag.Parse()

	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to init logger")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	svc := points.NewService(points.NewRepository(db))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *userFlag != "" {
		userID, err := uuid.Parse(*userFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -user value")
		}
		res, err := svc.Reconcile(ctx, userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Reconcile failed")
		}
		if res.Fixed {
			log.Warn().
				Str("user_id", userID.String()).
				Int64("stored", res.Stored).
				Int64("computed", res.Computed).
				Msg("Balance drift repaired")
			os.Exit(1)
		}
		log.Info().Str("user_id", userID.String()).Int64("balance", res.Computed).Msg("Balance consistent")
		return
	}

	fixed, err := svc.ReconcileAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Reconcile failed")
	}
	if fixed > 0 {
		log.Warn().Int("repaired", fixed).Msg("Ledger audit repaired drifted balances")
		os.Exit(1)
	}
	log.Info().Msg("Ledger audit clean")
}
