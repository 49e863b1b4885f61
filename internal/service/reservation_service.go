package service

import (
	"context"
	"fmt"
	"time"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationService manages customer holds on branch stock.
// Policy: reserved_quantity is incremented at approval, not at request,
// so inventory is never pinned by unreviewed requests. Every transition
// that touches the BranchStock counterpart runs in one transaction with
// the stock row locked.
type ReservationService interface {
	Create(ctx context.Context, customerID uuid.UUID, req dto.CreateReservationRequest) (*dto.ReservationResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error)
	List(ctx context.Context, filter dto.ReservationFilter) (*dto.ReservationListResponse, error)
	Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.UpdateReservationRequest) (*dto.ReservationResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reservationService struct {
	repo         repository.ReservationRepository
	stockRepo    repository.BranchStockRepository
	movementRepo repository.StockMovementRepository
	dispatcher   JobDispatcher
	cache        AvailabilityCache
}

func NewReservationService(
	repo repository.ReservationRepository,
	stockRepo repository.BranchStockRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher JobDispatcher,
	cache AvailabilityCache,
) ReservationService {
	return &reservationService{
		repo:         repo,
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		cache:        cache,
	}
}

func (s *reservationService) Create(ctx context.Context, customerID uuid.UUID, req dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("invalid branch_id: %w", err)
	}

	// The branch must actually carry this product.
	if _, err := s.stockRepo.FindByPair(ctx, productID, branchID); err != nil {
		return nil, notFound(err)
	}

	res := &model.Reservation{
		ProductID:  productID,
		BranchID:   branchID,
		CustomerID: customerID,
		Quantity:   req.Quantity,
		Status:     model.ReservationPending,
		Notes:      req.Notes,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return reservationToResponse(res), nil
}

func (s *reservationService) Get(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return reservationToResponse(res), nil
}

func (s *reservationService) List(ctx context.Context, filter dto.ReservationFilter) (*dto.ReservationListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		data = append(data, *reservationToResponse(&reservations[i]))
	}
	return &dto.ReservationListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// Update edits a pending reservation and/or advances its status.
// Transitions: pending → approved|rejected, approved → completed.
func (s *reservationService) Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.UpdateReservationRequest) (*dto.ReservationResponse, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if res.IsTerminal() {
		return nil, ErrInvalidState
	}

	// Field edits are only allowed while the request is unreviewed.
	if req.Quantity != nil || req.Notes != nil {
		if res.Status != model.ReservationPending {
			return nil, ErrInvalidState
		}
		if req.Quantity != nil {
			res.Quantity = *req.Quantity
		}
		if req.Notes != nil {
			res.Notes = req.Notes
		}
	}

	if req.Status == nil {
		if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.SaveTx(tx, res)
		}); err != nil {
			return nil, err
		}
		return reservationToResponse(res), nil
	}

	switch *req.Status {
	case model.ReservationApproved:
		err = s.approve(ctx, res, actorID)
	case model.ReservationRejected:
		err = s.reject(ctx, res, actorID)
	case model.ReservationCompleted:
		err = s.complete(ctx, res)
	default:
		err = ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return reservationToResponse(res), nil
}

// approve holds stock against the reservation: reserved_quantity grows by
// the reservation quantity. Fails when the request exceeds what is
// currently available — never clamps.
func (s *reservationService) approve(ctx context.Context, res *model.Reservation, actorID uuid.UUID) error {
	if res.Status != model.ReservationPending {
		return ErrInvalidState
	}
	var held *model.BranchStock
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		bs, err := s.stockRepo.FindByPairForUpdateTx(tx, res.ProductID, res.BranchID)
		if err != nil {
			return notFound(err)
		}
		if res.Quantity > bs.Available() {
			return ErrInvalidState
		}
		bs.ReservedQuantity += res.Quantity
		bs.RecomputeStatus()
		if err := s.stockRepo.SaveTx(tx, bs); err != nil {
			return err
		}
		held = bs

		now := time.Now()
		res.Status = model.ReservationApproved
		res.ProcessedBy = &actorID
		res.ProcessedAt = &now
		return s.repo.SaveTx(tx, res)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, availabilityKey(res.ProductID))
	}
	notifyIfDepleted(ctx, s.dispatcher, held)
	return nil
}

// reject closes an unreviewed request. No stock was held, so nothing to
// release.
func (s *reservationService) reject(ctx context.Context, res *model.Reservation, actorID uuid.UUID) error {
	if res.Status != model.ReservationPending {
		return ErrInvalidState
	}
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		now := time.Now()
		res.Status = model.ReservationRejected
		res.ProcessedBy = &actorID
		res.ProcessedAt = &now
		return s.repo.SaveTx(tx, res)
	})
}

// complete hands the units over: both stock_quantity and reserved_quantity
// drop by the reservation quantity. A quantity that would go negative means
// the ledger is already corrupt — fail loudly instead of clamping.
func (s *reservationService) complete(ctx context.Context, res *model.Reservation) error {
	if res.Status != model.ReservationApproved {
		return ErrInvalidState
	}
	var drained *model.BranchStock
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		bs, err := s.stockRepo.FindByPairForUpdateTx(tx, res.ProductID, res.BranchID)
		if err != nil {
			return notFound(err)
		}
		if bs.StockQuantity < res.Quantity || bs.ReservedQuantity < res.Quantity {
			return ErrInvalidState
		}
		before := bs.StockQuantity
		bs.StockQuantity -= res.Quantity
		bs.ReservedQuantity -= res.Quantity
		bs.RecomputeStatus()
		if err := s.stockRepo.SaveTx(tx, bs); err != nil {
			return err
		}
		drained = bs

		ref := res.ID
		mov := &model.StockMovement{
			ProductID:   res.ProductID,
			BranchID:    res.BranchID,
			Type:        "reservation",
			Quantity:    -res.Quantity,
			StockBefore: before,
			StockAfter:  bs.StockQuantity,
			Reason:      "reservation picked up",
			ReferenceID: &ref,
		}
		if err := s.movementRepo.CreateTx(tx, mov); err != nil {
			return err
		}

		now := time.Now()
		res.Status = model.ReservationCompleted
		res.CompletedAt = &now
		return s.repo.SaveTx(tx, res)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, availabilityKey(res.ProductID))
	}
	notifyIfDepleted(ctx, s.dispatcher, drained)
	return nil
}

// Delete removes a reservation that never held stock (pending or rejected).
// Approved holds must be completed; completed reservations are audit history.
func (s *reservationService) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if res.Status != model.ReservationPending && res.Status != model.ReservationRejected {
		return ErrInvalidState
	}
	return s.repo.Delete(ctx, id)
}

func reservationToResponse(res *model.Reservation) *dto.ReservationResponse {
	resp := &dto.ReservationResponse{
		ID:         res.ID.String(),
		ProductID:  res.ProductID.String(),
		BranchID:   res.BranchID.String(),
		CustomerID: res.CustomerID.String(),
		Quantity:   res.Quantity,
		Status:     res.Status,
		Notes:      res.Notes,
		CreatedAt:  res.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if res.Product != nil {
		resp.ProductName = res.Product.Name
	}
	if res.Branch != nil {
		resp.BranchName = res.Branch.Name
	}
	if res.ProcessedBy != nil {
		v := res.ProcessedBy.String()
		resp.ProcessedBy = &v
	}
	if res.ProcessedAt != nil {
		v := res.ProcessedAt.Format("2006-01-02T15:04:05Z")
		resp.ProcessedAt = &v
	}
	if res.CompletedAt != nil {
		v := res.CompletedAt.Format("2006-01-02T15:04:05Z")
		resp.CompletedAt = &v
	}
	return resp
}
