package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opticare/internal/config"
	"opticare/internal/infra"
	"opticare/internal/repository"
	"opticare/internal/router"
	"opticare/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Start goroutine worker pool for async tasks (restock orders, alert
	// mails). Worker handlers are wired here (composition root) so that the
	// pool has full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supplierClient := infra.NewSupplierClient(cfg.SupplierAPIURL)
	supplierCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)

	stockRepo := repository.NewBranchStockRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	productRepo := repository.NewProductRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	restockOrderRepo := repository.NewRestockOrderRepository(db)

	restockWorker := worker.NewRestockWorker(
		supplierClient, restockOrderRepo, stockRepo, movementRepo, productRepo, branchRepo)
	workerHandlers := &worker.WorkerHandlers{
		Restock: restockWorker,
		Alerts:  worker.NewAlertWorker(mailer, cfg.AlertEmail),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	// Retry cron re-attempts stuck restock orders through the circuit breaker
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		RestockOrderRepo: restockOrderRepo,
		ProductRepo:      productRepo,
		BranchRepo:       branchRepo,
		SupplierClient:   supplierClient,
		CB:               supplierCB,
		RDB:              rdb,
		Restock:          restockWorker,
	})

	r := router.New(cfg, db, rdb, supplierCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("OptiCare backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
