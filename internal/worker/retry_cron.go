package worker

// retry_cron.go
// Background goroutine that periodically re-attempts supplier orders for
// restock orders stuck in status='pending' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed supplier gateway.

import (
	"context"
	"fmt"
	"time"

	"opticare/internal/infra"
	"opticare/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxRestockRetries is the total attempt budget across cron ticks
	// before an order is moved to error and the DLQ.
	MaxRestockRetries = 5
)

// computeRetryBackoff returns the wait before the next cron attempt:
// 1m, 2m, 4m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	backoff := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RestockOrderRepo repository.RestockOrderRepository
	ProductRepo      repository.ProductRepository
	BranchRepo       repository.BranchRepository
	SupplierClient   *infra.SupplierClient
	CB               *infra.CircuitBreaker
	RDB              *redis.Client
	Restock          *RestockWorker
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending restock orders, and re-attempts supplier calls through
// the CB. It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed gateway
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	orders, err := cfg.RestockOrderRepo.ListPendingRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}

	if len(orders) == 0 {
		return
	}

	log.Info().Int("count", len(orders)).Msg("retry_cron: processing pending restock orders")

	for i := range orders {
		order := &orders[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		product, err := cfg.ProductRepo.FindByID(ctx, order.ProductID)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.ID.String()).Msg("retry_cron: product lookup failed")
			continue
		}
		branch, err := cfg.BranchRepo.FindByID(ctx, order.BranchID)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.ID.String()).Msg("retry_cron: branch lookup failed")
			continue
		}

		var supplierResp *infra.SupplierOrderResponse
		cbErr := cfg.CB.Execute(func() error {
			resp, err := cfg.SupplierClient.PlaceOrder(ctx, infra.SupplierOrder{
				ProductSKU: product.SKU,
				BranchCode: branch.Code,
				Quantity:   order.Quantity,
				OrderID:    order.ID.String(),
			})
			if err != nil {
				return err
			}
			supplierResp = resp
			return nil
		})

		if cbErr != nil {
			// Failure — increment retry count, schedule next attempt
			order.RetryCount++
			errMsg := cbErr.Error()
			order.LastError = &errMsg
			nextRetry := time.Now().Add(computeRetryBackoff(order.RetryCount))
			order.NextRetryAt = &nextRetry

			if order.RetryCount >= MaxRestockRetries {
				order.Status = "error"
				order.NextRetryAt = nil
				log.Error().
					Str("order_id", order.ID.String()).
					Str("product_id", order.ProductID.String()).
					Int("retries", order.RetryCount).
					Msg("retry_cron: max retries exceeded, moving to error/DLQ")

				// Send to DLQ for manual inspection
				payload := fmt.Sprintf(`{"order_id":"%s","product_id":"%s","branch_id":"%s"}`,
					order.ID, order.ProductID, order.BranchID)
				SendToDLQ(ctx, cfg.RDB, QueueRestock, "restock", []byte(payload),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxRestockRetries, errMsg),
					order.RetryCount)
			} else {
				log.Warn().
					Str("order_id", order.ID.String()).
					Int("retry_count", order.RetryCount).
					Time("next_retry_at", *order.NextRetryAt).
					Msg("retry_cron: supplier retry failed, scheduled next attempt")
			}

			_ = cfg.RestockOrderRepo.Update(ctx, order)
			continue
		}

		// Success path
		if supplierResp != nil && !supplierResp.Accepted {
			order.Status = "error"
			msg := "supplier declined order: " + supplierResp.Message
			order.LastError = &msg
			order.NextRetryAt = nil
			_ = cfg.RestockOrderRepo.Update(ctx, order)
			log.Warn().
				Str("order_id", order.ID.String()).
				Str("message", supplierResp.Message).
				Msg("retry_cron: supplier declined on retry")
			continue
		}

		if err := cfg.Restock.applyConfirmedOrder(ctx, order, supplierResp.OrderRef); err != nil {
			log.Error().Err(err).Str("order_id", order.ID.String()).Msg("retry_cron: failed to apply confirmed order")
			continue
		}
		log.Info().
			Str("order_id", order.ID.String()).
			Str("supplier_ref", supplierResp.OrderRef).
			Int("total_retries", order.RetryCount).
			Msg("retry_cron: order confirmed after retry")
	}
}
