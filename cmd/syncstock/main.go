// cmd/syncstock/main.go — one-shot legacy stock reconcile.
// Runs the same pass as POST /v1/admin/sync-stock; meant for cron.
// Usage: go run cmd/syncstock/main.go
package main

import (
	"context"
	"os"
	"time"

	"opticare/internal/config"
	"opticare/internal/infra"
	"opticare/internal/repository"
	"opticare/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	svc := service.NewSyncService(
		repository.NewBranchStockRepository(db),
		repository.NewProductRepository(db),
		repository.NewBranchRepository(db),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := svc.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("sync failed")
	}
	log.Info().
		Int("rows_created", report.RowsCreated).
		Int("statuses_fixed", report.StatusesFixed).
		Int("products_updated", report.ProductsUpdated).
		Msg("sync completed")
}
