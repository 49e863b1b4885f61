package worker

// restock_worker.go
// Processes auto-restock jobs from QueueRestock.
// Places a purchase order at the supplier gateway and, once the gateway
// confirms, applies the incoming quantity to the branch stock row inside
// a single transaction. Implements exponential backoff (max 3 in-process
// attempts); orders that still fail stay pending for the retry cron.

import (
	"context"
	"encoding/json"
	"time"

	"opticare/internal/infra"
	"opticare/internal/model"
	"opticare/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RestockJobPayload is the job envelope sent to QueueRestock.
type RestockJobPayload struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Quantity  int    `json:"quantity"`
}

// RestockWorker places supplier orders for depleted branch stock rows
// and applies confirmed quantities back to inventory.
type RestockWorker struct {
	supplierClient   *infra.SupplierClient
	restockOrderRepo repository.RestockOrderRepository
	branchStockRepo  repository.BranchStockRepository
	movementRepo     repository.StockMovementRepository
	productRepo      repository.ProductRepository
	branchRepo       repository.BranchRepository
}

// NewRestockWorker wires all dependencies for the restock worker.
func NewRestockWorker(
	supplierClient *infra.SupplierClient,
	restockOrderRepo repository.RestockOrderRepository,
	branchStockRepo repository.BranchStockRepository,
	movementRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) *RestockWorker {
	return &RestockWorker{
		supplierClient:   supplierClient,
		restockOrderRepo: restockOrderRepo,
		branchStockRepo:  branchStockRepo,
		movementRepo:     movementRepo,
		productRepo:      productRepo,
		branchRepo:       branchRepo,
	}
}

// Process handles a single restock job:
//  1. Parse RestockJobPayload from the job envelope
//  2. Resolve product SKU and branch code for the supplier order
//  3. Create a RestockOrder record with status="pending"
//  4. Call the supplier gateway with exponential backoff (max 3 attempts)
//  5. On confirmation, apply the quantity to branch_stock in one transaction
//  6. On exhausted attempts, schedule the order for the retry cron
func (w *RestockWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload RestockJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("restock_worker: invalid payload")
		return
	}
	if payload.Quantity <= 0 {
		log.Warn().Int("quantity", payload.Quantity).Msg("restock_worker: non-positive quantity — skipping")
		return
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		log.Error().Str("product_id", payload.ProductID).Msg("restock_worker: invalid product_id")
		return
	}
	branchID, err := uuid.Parse(payload.BranchID)
	if err != nil {
		log.Error().Str("branch_id", payload.BranchID).Msg("restock_worker: invalid branch_id")
		return
	}

	product, err := w.productRepo.FindByID(ctx, productID)
	if err != nil {
		log.Error().Err(err).Str("product_id", payload.ProductID).Msg("restock_worker: product not found")
		return
	}
	branch, err := w.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		log.Error().Err(err).Str("branch_id", payload.BranchID).Msg("restock_worker: branch not found")
		return
	}

	order := &model.RestockOrder{
		ProductID: productID,
		BranchID:  branchID,
		Quantity:  payload.Quantity,
		Status:    "pending",
	}
	if err := w.restockOrderRepo.Create(ctx, order); err != nil {
		log.Error().Err(err).Str("product_id", payload.ProductID).Msg("restock_worker: failed to create restock order")
		return
	}

	var supplierResp *infra.SupplierOrderResponse
	supplierErr := withRetry(ctx, 3, func(attempt int) error {
		resp, err := w.supplierClient.PlaceOrder(ctx, infra.SupplierOrder{
			ProductSKU: product.SKU,
			BranchCode: branch.Code,
			Quantity:   payload.Quantity,
			OrderID:    order.ID.String(),
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("order_id", order.ID.String()).
				Msg("restock_worker: supplier attempt failed, retrying")
			return err
		}
		supplierResp = resp
		return nil
	})

	if supplierErr != nil {
		// Leave pending; the retry cron picks it up through the circuit breaker.
		order.RetryCount++
		errMsg := supplierErr.Error()
		order.LastError = &errMsg
		nextRetry := time.Now().Add(computeRetryBackoff(order.RetryCount))
		order.NextRetryAt = &nextRetry
		_ = w.restockOrderRepo.Update(ctx, order)
		log.Error().Err(supplierErr).
			Str("order_id", order.ID.String()).
			Time("next_retry_at", nextRetry).
			Msg("restock_worker: supplier failed after all attempts, scheduled for retry cron")
		return
	}

	if supplierResp != nil && !supplierResp.Accepted {
		order.Status = "error"
		msg := "supplier declined order: " + supplierResp.Message
		order.LastError = &msg
		_ = w.restockOrderRepo.Update(ctx, order)
		log.Warn().
			Str("order_id", order.ID.String()).
			Str("message", supplierResp.Message).
			Msg("restock_worker: supplier declined order")
		return
	}

	if err := w.applyConfirmedOrder(ctx, order, supplierResp.OrderRef); err != nil {
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("restock_worker: failed to apply confirmed order")
		return
	}
	log.Info().
		Str("order_id", order.ID.String()).
		Str("supplier_ref", supplierResp.OrderRef).
		Int("quantity", payload.Quantity).
		Msg("restock_worker: restock applied")
}

// applyConfirmedOrder increments the branch stock row and records the
// movement, then marks the order as ordered. Runs in one transaction so
// a crash cannot leave stock applied without the ledger entry.
func (w *RestockWorker) applyConfirmedOrder(ctx context.Context, order *model.RestockOrder, supplierRef string) error {
	return w.branchStockRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bs, err := w.branchStockRepo.FindByPairForUpdateTx(tx, order.ProductID, order.BranchID)
		if err != nil {
			return err
		}

		before := bs.StockQuantity
		bs.StockQuantity += order.Quantity
		now := time.Now()
		bs.LastRestockDate = &now
		bs.RecomputeStatus()
		if err := w.branchStockRepo.SaveTx(tx, bs); err != nil {
			return err
		}

		movement := &model.StockMovement{
			ProductID:   order.ProductID,
			BranchID:    order.BranchID,
			Type:        "restock",
			Quantity:    order.Quantity,
			StockBefore: before,
			StockAfter:  bs.StockQuantity,
			Reason:      "auto-restock order " + supplierRef,
			ReferenceID: &order.ID,
		}
		if err := w.movementRepo.CreateTx(tx, movement); err != nil {
			return err
		}

		order.Status = "ordered"
		order.SupplierRef = &supplierRef
		order.NextRetryAt = nil
		order.LastError = nil
		return tx.Save(order).Error
	})
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			// 1s, 2s … (exponential backoff)
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
