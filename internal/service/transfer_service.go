package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferService moves stock between branches through a
// pending → approved → in_transit → completed workflow. The request-time
// availability check is optimistic; completion re-validates under a row
// lock and moves both quantities in one transaction, so two concurrent
// completions can never double-decrement the source below zero.
type TransferService interface {
	Request(ctx context.Context, actorID uuid.UUID, req dto.TransferRequest) (*dto.TransferResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.TransferResponse, error)
	List(ctx context.Context, filter dto.TransferFilter) (*dto.TransferListResponse, error)
	Process(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.ProcessTransferRequest) (*dto.TransferResponse, error)
}

type transferService struct {
	repo         repository.StockTransferRepository
	stockRepo    repository.BranchStockRepository
	movementRepo repository.StockMovementRepository
	dispatcher   JobDispatcher
	cache        AvailabilityCache
}

func NewTransferService(
	repo repository.StockTransferRepository,
	stockRepo repository.BranchStockRepository,
	movementRepo repository.StockMovementRepository,
	dispatcher JobDispatcher,
	cache AvailabilityCache,
) TransferService {
	return &transferService{
		repo:         repo,
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
		dispatcher:   dispatcher,
		cache:        cache,
	}
}

func (s *transferService) Request(ctx context.Context, actorID uuid.UUID, req dto.TransferRequest) (*dto.TransferResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %w", err)
	}
	fromID, err := uuid.Parse(req.FromBranchID)
	if err != nil {
		return nil, fmt.Errorf("invalid from_branch_id: %w", err)
	}
	toID, err := uuid.Parse(req.ToBranchID)
	if err != nil {
		return nil, fmt.Errorf("invalid to_branch_id: %w", err)
	}
	if fromID == toID {
		return nil, ErrInvalidState
	}

	// Optimistic check only — no lock held. Completion re-validates.
	source, err := s.stockRepo.FindByPair(ctx, productID, fromID)
	if err != nil {
		return nil, notFound(err)
	}
	if source.StockQuantity < req.Quantity {
		return nil, ErrInsufficientStock
	}

	t := &model.StockTransfer{
		ProductID:    productID,
		FromBranchID: fromID,
		ToBranchID:   toID,
		Quantity:     req.Quantity,
		Status:       model.TransferPending,
		Reason:       req.Reason,
		RequestedBy:  actorID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return transferToResponse(t), nil
}

func (s *transferService) Get(ctx context.Context, id uuid.UUID) (*dto.TransferResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return transferToResponse(t), nil
}

func (s *transferService) List(ctx context.Context, filter dto.TransferFilter) (*dto.TransferListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	transfers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		data = append(data, *transferToResponse(&transfers[i]))
	}
	return &dto.TransferListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// Process advances the workflow. approve|reject act on pending transfers,
// ship on approved, complete on approved or in_transit (shipping is
// optional for same-day transfers), cancel on any non-terminal state.
func (s *transferService) Process(ctx context.Context, id uuid.UUID, actorID uuid.UUID, req dto.ProcessTransferRequest) (*dto.TransferResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if t.IsTerminal() {
		return nil, ErrInvalidState
	}
	if req.Notes != nil {
		t.Notes = req.Notes
	}

	now := time.Now()
	switch req.Action {
	case "approve":
		if t.Status != model.TransferPending {
			return nil, ErrInvalidState
		}
		t.Status = model.TransferApproved
		t.ApprovedBy = &actorID
		t.ApprovedAt = &now
		err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error { return s.repo.SaveTx(tx, t) })

	case "reject":
		if t.Status != model.TransferPending {
			return nil, ErrInvalidState
		}
		t.Status = model.TransferCancelled
		t.CancelledAt = &now
		err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error { return s.repo.SaveTx(tx, t) })

	case "ship":
		if t.Status != model.TransferApproved {
			return nil, ErrInvalidState
		}
		t.Status = model.TransferInTransit
		t.ShippedAt = &now
		err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error { return s.repo.SaveTx(tx, t) })

	case "complete":
		if t.Status != model.TransferApproved && t.Status != model.TransferInTransit {
			return nil, ErrInvalidState
		}
		err = s.complete(ctx, t, actorID)

	case "cancel":
		t.Status = model.TransferCancelled
		t.CancelledAt = &now
		err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error { return s.repo.SaveTx(tx, t) })

	default:
		err = ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	return transferToResponse(t), nil
}

// complete performs the stock move. Both branch rows are locked in
// deterministic order (branch id) so two completions touching the same
// pair cannot deadlock. The source is re-checked under the lock: time has
// passed since the optimistic request-time validation.
func (s *transferService) complete(ctx context.Context, t *model.StockTransfer, actorID uuid.UUID) error {
	var source *model.BranchStock
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		lockFromFirst := strings.Compare(t.FromBranchID.String(), t.ToBranchID.String()) < 0

		var src, dst *model.BranchStock
		var err error
		if lockFromFirst {
			if src, err = s.stockRepo.FindByPairForUpdateTx(tx, t.ProductID, t.FromBranchID); err != nil {
				return notFound(err)
			}
			dst, err = s.lockOrCreateDestination(tx, t)
		} else {
			if dst, err = s.lockOrCreateDestination(tx, t); err != nil {
				return err
			}
			src, err = s.stockRepo.FindByPairForUpdateTx(tx, t.ProductID, t.FromBranchID)
			if err != nil {
				err = notFound(err)
			}
		}
		if err != nil {
			return err
		}

		if src.StockQuantity < t.Quantity {
			return ErrInsufficientStock
		}

		srcBefore := src.StockQuantity
		src.StockQuantity -= t.Quantity
		src.RecomputeStatus()
		if err := s.stockRepo.SaveTx(tx, src); err != nil {
			return err
		}
		source = src

		dstBefore := dst.StockQuantity
		dst.StockQuantity += t.Quantity
		dst.RecomputeStatus()
		if err := s.stockRepo.SaveTx(tx, dst); err != nil {
			return err
		}

		ref := t.ID
		out := &model.StockMovement{
			ProductID:   t.ProductID,
			BranchID:    t.FromBranchID,
			Type:        "transfer_out",
			Quantity:    -t.Quantity,
			StockBefore: srcBefore,
			StockAfter:  src.StockQuantity,
			Reason:      t.Reason,
			ReferenceID: &ref,
			PerformedBy: &actorID,
		}
		if err := s.movementRepo.CreateTx(tx, out); err != nil {
			return err
		}
		in := &model.StockMovement{
			ProductID:   t.ProductID,
			BranchID:    t.ToBranchID,
			Type:        "transfer_in",
			Quantity:    t.Quantity,
			StockBefore: dstBefore,
			StockAfter:  dst.StockQuantity,
			Reason:      t.Reason,
			ReferenceID: &ref,
			PerformedBy: &actorID,
		}
		if err := s.movementRepo.CreateTx(tx, in); err != nil {
			return err
		}

		now := time.Now()
		t.Status = model.TransferCompleted
		t.CompletedAt = &now
		return s.repo.SaveTx(tx, t)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, availabilityKey(t.ProductID))
	}
	notifyIfDepleted(ctx, s.dispatcher, source)
	return nil
}

// lockOrCreateDestination locks the destination row, creating it on the
// fly when the product was never assigned to the receiving branch.
func (s *transferService) lockOrCreateDestination(tx *gorm.DB, t *model.StockTransfer) (*model.BranchStock, error) {
	dst, err := s.stockRepo.FindByPairForUpdateTx(tx, t.ProductID, t.ToBranchID)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	dst = &model.BranchStock{
		ProductID:         t.ProductID,
		BranchID:          t.ToBranchID,
		MinStockThreshold: 5,
		Status:            model.StatusOutOfStock,
		IsActive:          true,
	}
	if err := s.stockRepo.CreateTx(tx, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func transferToResponse(t *model.StockTransfer) *dto.TransferResponse {
	fmtTime := func(ts *time.Time) *string {
		if ts == nil {
			return nil
		}
		v := ts.Format("2006-01-02T15:04:05Z")
		return &v
	}
	resp := &dto.TransferResponse{
		ID:           t.ID.String(),
		ProductID:    t.ProductID.String(),
		FromBranchID: t.FromBranchID.String(),
		ToBranchID:   t.ToBranchID.String(),
		Quantity:     t.Quantity,
		Status:       t.Status,
		Reason:       t.Reason,
		Notes:        t.Notes,
		RequestedBy:  t.RequestedBy.String(),
		ApprovedAt:   fmtTime(t.ApprovedAt),
		ShippedAt:    fmtTime(t.ShippedAt),
		CompletedAt:  fmtTime(t.CompletedAt),
		CancelledAt:  fmtTime(t.CancelledAt),
		CreatedAt:    t.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if t.Product != nil {
		resp.ProductName = t.Product.Name
	}
	if t.FromBranch != nil {
		resp.FromBranchName = t.FromBranch.Name
	}
	if t.ToBranch != nil {
		resp.ToBranchName = t.ToBranch.Name
	}
	if t.ApprovedBy != nil {
		v := t.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	return resp
}
