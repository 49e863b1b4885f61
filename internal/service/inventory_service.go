package service

import (
	"context"
	"errors"
	"fmt"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"
	"opticare/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobDispatcher enqueues async follow-up jobs after a committed write.
// Satisfied by *worker.Dispatcher; kept as an interface so unit tests can
// record enqueues without Redis.
type JobDispatcher interface {
	EnqueueRestock(ctx context.Context, payload interface{}) error
	EnqueueLowStockEmail(ctx context.Context, payload interface{}) error
}

// AvailabilityCache is the read-through cache for cross-branch lookups.
// Satisfied by *infra.Cache. All methods are best-effort: a cache outage
// degrades to database reads, never to request failures.
type AvailabilityCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{})
	Delete(ctx context.Context, keys ...string)
}

// availabilityKey is the cache key for one product's cross-branch view.
// Every quantity-mutating write to any of the product's rows must delete it.
func availabilityKey(productID uuid.UUID) string {
	return "availability:" + productID.String()
}

// InventoryService is the branch-stock core: quantity writes, status
// derivation, alerts and cross-branch lookups. Every quantity mutation
// recomputes the persisted status inside the same transaction so the
// cached label can never drift from the derived value.
type InventoryService interface {
	List(ctx context.Context, filter dto.BranchStockFilter) (*dto.BranchStockListResponse, error)
	AssignProduct(ctx context.Context, actorID uuid.UUID, req dto.AssignProductRequest) (*dto.BranchStockResponse, error)
	UpdateStock(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.UpdateStockRequest) (*dto.UpdateStockResponse, error)
	LowStockAlerts(ctx context.Context) ([]dto.BranchStockResponse, error)
	CrossBranchAvailability(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (*dto.CrossBranchAvailabilityResponse, error)
	ListMovements(ctx context.Context, filter dto.StockMovementFilter) (*dto.StockMovementListResponse, error)
}

type inventoryService struct {
	stockRepo    repository.BranchStockRepository
	productRepo  repository.ProductRepository
	branchRepo   repository.BranchRepository
	movementRepo repository.StockMovementRepository
	dispatcher   JobDispatcher
	cache        AvailabilityCache
}

func NewInventoryService(
	stockRepo repository.BranchStockRepository,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher JobDispatcher,
	cache AvailabilityCache,
) InventoryService {
	return &inventoryService{
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		branchRepo:   branchRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		cache:        cache,
	}
}

func (s *inventoryService) List(ctx context.Context, filter dto.BranchStockFilter) (*dto.BranchStockListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	rows, total, err := s.stockRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.BranchStockResponse, 0, len(rows))
	for i := range rows {
		data = append(data, *branchStockToResponse(&rows[i]))
	}
	return &dto.BranchStockListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// AssignProduct creates the branch_stock row for a (product, branch) pair.
// The composite unique index guards against duplicate pairs under races.
func (s *inventoryService) AssignProduct(ctx context.Context, actorID uuid.UUID, req dto.AssignProductRequest) (*dto.BranchStockResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("invalid branch_id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	branch, err := s.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		return nil, notFound(err)
	}

	if _, err := s.stockRepo.FindByPair(ctx, productID, branchID); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	threshold := 5
	if req.MinStockThreshold != nil {
		threshold = *req.MinStockThreshold
	}
	bs := &model.BranchStock{
		ProductID:           productID,
		BranchID:            branchID,
		StockQuantity:       req.StockQuantity,
		MinStockThreshold:   threshold,
		PriceOverride:       req.PriceOverride,
		AutoRestockEnabled:  req.AutoRestockEnabled,
		AutoRestockQuantity: req.AutoRestockQuantity,
		IsActive:            true,
	}
	bs.RecomputeStatus()

	txErr := runTx(ctx, s.stockRepo.DB(), func(tx *gorm.DB) error {
		if err := s.stockRepo.CreateTx(tx, bs); err != nil {
			return err
		}
		if bs.StockQuantity == 0 {
			return nil
		}
		mov := &model.StockMovement{
			ProductID:   productID,
			BranchID:    branchID,
			Type:        "adjustment",
			Quantity:    bs.StockQuantity,
			StockBefore: 0,
			StockAfter:  bs.StockQuantity,
			Reason:      "initial branch assignment",
			PerformedBy: &actorID,
		}
		return s.movementRepo.CreateTx(tx, mov)
	})
	if txErr != nil {
		return nil, txErr
	}
	if s.cache != nil {
		s.cache.Delete(ctx, availabilityKey(productID))
	}

	bs.Product = product
	bs.Branch = branch
	return branchStockToResponse(bs), nil
}

// UpdateStock sets the absolute on-hand quantity, records the movement and
// recomputes the status — all inside one transaction with the row locked.
func (s *inventoryService) UpdateStock(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.UpdateStockRequest) (*dto.UpdateStockResponse, error) {
	existing, err := s.stockRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if req.StockQuantity < 0 {
		return nil, ErrInvalidState
	}

	reason := "manual stock adjustment"
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}

	var updated *model.BranchStock
	var oldQty int
	txErr := runTx(ctx, s.stockRepo.DB(), func(tx *gorm.DB) error {
		bs, err := s.stockRepo.FindByPairForUpdateTx(tx, existing.ProductID, existing.BranchID)
		if err != nil {
			return notFound(err)
		}
		oldQty = bs.StockQuantity
		bs.StockQuantity = req.StockQuantity
		bs.RecomputeStatus()
		if err := s.stockRepo.SaveTx(tx, bs); err != nil {
			return err
		}
		mov := &model.StockMovement{
			ProductID:   bs.ProductID,
			BranchID:    bs.BranchID,
			Type:        "adjustment",
			Quantity:    req.StockQuantity - oldQty,
			StockBefore: oldQty,
			StockAfter:  req.StockQuantity,
			Reason:      reason,
			PerformedBy: &actorID,
		}
		if err := s.movementRepo.CreateTx(tx, mov); err != nil {
			return err
		}
		updated = bs
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.cache != nil {
		s.cache.Delete(ctx, availabilityKey(updated.ProductID))
	}
	updated.Product = existing.Product
	updated.Branch = existing.Branch
	notifyIfDepleted(ctx, s.dispatcher, updated)

	return &dto.UpdateStockResponse{
		OldQuantity: oldQty,
		NewQuantity: updated.StockQuantity,
		Difference:  updated.StockQuantity - oldQty,
		Stock:       *branchStockToResponse(updated),
	}, nil
}

func (s *inventoryService) LowStockAlerts(ctx context.Context) ([]dto.BranchStockResponse, error) {
	rows, err := s.stockRepo.ListBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.BranchStockResponse, 0, len(rows))
	for i := range rows {
		alerts = append(alerts, *branchStockToResponse(&rows[i]))
	}
	return alerts, nil
}

// CrossBranchAvailability returns per-branch stock info for a product.
// The full per-product view is served read-through from Redis; every
// quantity-mutating write deletes the key. branchID, when set, narrows
// the (cached or fresh) result to a single branch.
func (s *inventoryService) CrossBranchAvailability(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (*dto.CrossBranchAvailabilityResponse, error) {
	full, err := s.availabilityByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if branchID == nil {
		return full, nil
	}

	filtered := &dto.CrossBranchAvailabilityResponse{
		ProductID:   full.ProductID,
		ProductName: full.ProductName,
		Branches:    make([]dto.BranchAvailability, 0, 1),
	}
	want := branchID.String()
	for _, b := range full.Branches {
		if b.BranchID == want {
			filtered.Branches = append(filtered.Branches, b)
		}
	}
	return filtered, nil
}

func (s *inventoryService) availabilityByProduct(ctx context.Context, productID uuid.UUID) (*dto.CrossBranchAvailabilityResponse, error) {
	key := availabilityKey(productID)
	if s.cache != nil {
		var cached dto.CrossBranchAvailabilityResponse
		if s.cache.GetJSON(ctx, key, &cached) {
			return &cached, nil
		}
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}
	rows, err := s.stockRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	branches := make([]dto.BranchAvailability, 0, len(rows))
	for i := range rows {
		bs := &rows[i]
		name := ""
		if bs.Branch != nil {
			name = bs.Branch.Name
		}
		price := bs.PriceOverride
		if price == nil {
			p := product.Price
			price = &p
		}
		branches = append(branches, dto.BranchAvailability{
			BranchID:          bs.BranchID.String(),
			BranchName:        name,
			StockQuantity:     bs.StockQuantity,
			AvailableQuantity: bs.Available(),
			Status:            bs.DeriveStatus(),
			Price:             price,
		})
	}
	resp := &dto.CrossBranchAvailabilityResponse{
		ProductID:   productID.String(),
		ProductName: product.Name,
		Branches:    branches,
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, key, resp)
	}
	return resp, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter dto.StockMovementFilter) (*dto.StockMovementListResponse, error) {
	movements, total, err := s.movementRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.StockMovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, *movementToResponse(&movements[i]))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	return &dto.StockMovementListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// notifyIfDepleted enqueues async follow-ups after a committed write that
// left the row at or below its threshold: a restock purchase order when
// auto-restock is on, and an alert mail to the branch manager. Called from
// every stock-consuming path — manual adjustments, reservation holds and
// pickups, transfer completions. Best effort — queue failures never fail
// the request.
func notifyIfDepleted(ctx context.Context, dispatcher JobDispatcher, bs *model.BranchStock) {
	if dispatcher == nil || bs.Status == model.StatusInStock {
		return
	}
	productName := ""
	if bs.Product != nil {
		productName = bs.Product.Name
	}
	branchName := ""
	var managerEmail *string
	if bs.Branch != nil {
		branchName = bs.Branch.Name
		managerEmail = bs.Branch.ManagerEmail
	}

	if bs.AutoRestockEnabled && bs.AutoRestockQuantity > 0 {
		_ = dispatcher.EnqueueRestock(ctx, worker.RestockJobPayload{
			ProductID: bs.ProductID.String(),
			BranchID:  bs.BranchID.String(),
			Quantity:  bs.AutoRestockQuantity,
		})
	}
	to := ""
	if managerEmail != nil {
		to = *managerEmail
	}
	_ = dispatcher.EnqueueLowStockEmail(ctx, worker.LowStockEmailPayload{
		ToEmail:   to,
		Product:   productName,
		Branch:    branchName,
		Available: bs.Available(),
		Status:    bs.Status,
	})
}

// ─── Mappers ─────────────────────────────────────────────────────────────────

func branchStockToResponse(bs *model.BranchStock) *dto.BranchStockResponse {
	resp := &dto.BranchStockResponse{
		ID:                  bs.ID.String(),
		ProductID:           bs.ProductID.String(),
		BranchID:            bs.BranchID.String(),
		StockQuantity:       bs.StockQuantity,
		ReservedQuantity:    bs.ReservedQuantity,
		AvailableQuantity:   bs.Available(),
		MinStockThreshold:   bs.MinStockThreshold,
		Status:              bs.Status,
		PriceOverride:       bs.PriceOverride,
		AutoRestockEnabled:  bs.AutoRestockEnabled,
		AutoRestockQuantity: bs.AutoRestockQuantity,
		IsActive:            bs.IsActive,
	}
	if bs.Product != nil {
		resp.ProductName = bs.Product.Name
		resp.ProductSKU = bs.Product.SKU
	}
	if bs.Branch != nil {
		resp.BranchName = bs.Branch.Name
	}
	if bs.ExpiryDate != nil {
		d := bs.ExpiryDate.Format("2006-01-02")
		resp.ExpiryDate = &d
	}
	if bs.LastRestockDate != nil {
		d := bs.LastRestockDate.Format("2006-01-02T15:04:05Z")
		resp.LastRestockDate = &d
	}
	return resp
}

func movementToResponse(m *model.StockMovement) *dto.StockMovementResponse {
	resp := &dto.StockMovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		BranchID:    m.BranchID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}
