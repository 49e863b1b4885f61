package service_test

import (
	"context"
	"errors"
	"testing"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransferFixture() (service.TransferService, *stubTransferRepo, *stubStockRepo, *stubMovementRepo) {
	svc, transferRepo, stockRepo, movRepo, _ := newTransferFixtureWithDispatcher()
	return svc, transferRepo, stockRepo, movRepo
}

func newTransferFixtureWithDispatcher() (service.TransferService, *stubTransferRepo, *stubStockRepo, *stubMovementRepo, *stubDispatcher) {
	transferRepo := newStubTransferRepo()
	stockRepo := newStubStockRepo()
	movRepo := newStubMovementRepo()
	dispatcher := newStubDispatcher()
	svc := service.NewTransferService(transferRepo, stockRepo, movRepo, dispatcher, newFakeCache())
	return svc, transferRepo, stockRepo, movRepo, dispatcher
}

func TestTransferRequest_InsufficientStock(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 5, 0, 5)

	_, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     6,
		Reason:       "rebalance",
	})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
}

func TestTransferRequest_SameBranch(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 20, 0, 5)

	_, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   src.BranchID.String(),
		Quantity:     1,
		Reason:       "rebalance",
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestTransferRequest_UnstockedSource(t *testing.T) {
	svc, _, _, _ := newTransferFixture()

	_, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    uuid.NewString(),
		FromBranchID: uuid.NewString(),
		ToBranchID:   uuid.NewString(),
		Quantity:     1,
		Reason:       "rebalance",
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTransferWorkflow_ApproveShipComplete(t *testing.T) {
	svc, _, stockRepo, movRepo := newTransferFixture()
	src := seedStock(stockRepo, 20, 0, 5)
	dst := &model.BranchStock{
		ProductID: src.ProductID, BranchID: uuid.New(),
		StockQuantity: 2, MinStockThreshold: 5, IsActive: true,
	}
	dst.RecomputeStatus()
	stockRepo.put(dst)

	requester, approver := uuid.New(), uuid.New()
	created, err := svc.Request(context.Background(), requester, dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   dst.BranchID.String(),
		Quantity:     8,
		Reason:       "rebalance before weekend",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransferPending, created.Status)
	id := uuid.MustParse(created.ID)

	// Nothing moves until completion.
	assert.Equal(t, 20, src.StockQuantity)
	assert.Equal(t, 2, dst.StockQuantity)

	resp, err := svc.Process(context.Background(), id, approver, dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.TransferApproved, resp.Status)
	require.NotNil(t, resp.ApprovedBy)
	assert.Equal(t, approver.String(), *resp.ApprovedBy)

	resp, err = svc.Process(context.Background(), id, approver, dto.ProcessTransferRequest{Action: "ship"})
	require.NoError(t, err)
	assert.Equal(t, model.TransferInTransit, resp.Status)
	assert.NotNil(t, resp.ShippedAt)

	resp, err = svc.Process(context.Background(), id, approver, dto.ProcessTransferRequest{Action: "complete"})
	require.NoError(t, err)
	assert.Equal(t, model.TransferCompleted, resp.Status)
	assert.NotNil(t, resp.CompletedAt)

	assert.Equal(t, 12, src.StockQuantity)
	assert.Equal(t, 10, dst.StockQuantity)
	assert.Equal(t, model.StatusInStock, dst.Status)

	require.Len(t, movRepo.movements, 2)
	out, in := movRepo.movements[0], movRepo.movements[1]
	assert.Equal(t, "transfer_out", out.Type)
	assert.Equal(t, -8, out.Quantity)
	assert.Equal(t, 20, out.StockBefore)
	assert.Equal(t, 12, out.StockAfter)
	assert.Equal(t, "transfer_in", in.Type)
	assert.Equal(t, 8, in.Quantity)
	assert.Equal(t, 2, in.StockBefore)
	assert.Equal(t, 10, in.StockAfter)
	require.NotNil(t, out.ReferenceID)
	assert.Equal(t, id, *out.ReferenceID)
}

func TestTransferComplete_DirectlyFromApproved(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     3,
		Reason:       "same-day move",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)
	resp, err := svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "complete"})
	require.NoError(t, err)
	assert.Equal(t, model.TransferCompleted, resp.Status)
	assert.Equal(t, 7, src.StockQuantity)
}

func TestTransferComplete_AutoCreatesDestination(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)
	toBranch := uuid.New()

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   toBranch.String(),
		Quantity:     4,
		Reason:       "seed new branch",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "complete"})
	require.NoError(t, err)

	dst, err := stockRepo.FindByPair(context.Background(), src.ProductID, toBranch)
	require.NoError(t, err)
	assert.Equal(t, 4, dst.StockQuantity)
	assert.Equal(t, 5, dst.MinStockThreshold)
	assert.Equal(t, model.StatusLowStock, dst.Status)
	assert.True(t, dst.IsActive)
}

func TestTransferComplete_RecheckUnderLock(t *testing.T) {
	svc, _, stockRepo, movRepo := newTransferFixture()
	src := seedStock(stockRepo, 25, 0, 5)

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     20,
		Reason:       "rebalance",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)

	// Stock drained between approval and completion.
	src.StockQuantity = 15
	src.RecomputeStatus()

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "complete"})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	// All-or-nothing: no quantities moved, no movements written.
	assert.Equal(t, 15, src.StockQuantity)
	assert.Empty(t, movRepo.movements)
}

func TestTransferComplete_WhenSourceDepletedEnqueuesRestockAndAlert(t *testing.T) {
	svc, _, stockRepo, _, dispatcher := newTransferFixtureWithDispatcher()
	src := seedStock(stockRepo, 10, 0, 5)
	src.AutoRestockEnabled = true
	src.AutoRestockQuantity = 20

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     10,
		Reason:       "empty the shelf",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "complete"})
	require.NoError(t, err)

	assert.Equal(t, 0, src.StockQuantity)
	assert.Equal(t, model.StatusOutOfStock, src.Status)
	require.Len(t, dispatcher.restocks, 1)
	assert.Equal(t, src.BranchID.String(), dispatcher.restocks[0].BranchID)
	assert.Equal(t, 20, dispatcher.restocks[0].Quantity)
	require.Len(t, dispatcher.alerts, 1)
	assert.Equal(t, model.StatusOutOfStock, dispatcher.alerts[0].Status)
}

func TestTransferComplete_LockFailurePropagates(t *testing.T) {
	svc, _, stockRepo, movRepo := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)
	toBranch := uuid.New()

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   toBranch.String(),
		Quantity:     3,
		Reason:       "rebalance",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)

	// The destination lookup fails with a non-not-found error: the
	// completion must surface it, not silently create a fresh row.
	connErr := errors.New("driver: bad connection")
	stockRepo.lockErrBranch = toBranch
	stockRepo.lockErr = connErr

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "complete"})
	assert.ErrorIs(t, err, connErr)

	_, lookupErr := stockRepo.FindByPair(context.Background(), src.ProductID, toBranch)
	assert.Error(t, lookupErr) // no destination row was created
	assert.Equal(t, 10, src.StockQuantity)
	assert.Empty(t, movRepo.movements)
}

func TestTransferCancel_FromInTransit(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     2,
		Reason:       "rebalance",
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "approve"})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "ship"})
	require.NoError(t, err)

	resp, err := svc.Process(context.Background(), id, uuid.New(), dto.ProcessTransferRequest{Action: "cancel"})
	require.NoError(t, err)
	assert.Equal(t, model.TransferCancelled, resp.Status)
	assert.NotNil(t, resp.CancelledAt)
	assert.Equal(t, 10, src.StockQuantity)
}

func TestTransferProcess_TerminalStates(t *testing.T) {
	svc, transferRepo, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)

	for _, status := range []string{model.TransferCompleted, model.TransferCancelled} {
		tr := &model.StockTransfer{
			ProductID: src.ProductID, FromBranchID: src.BranchID, ToBranchID: uuid.New(),
			Quantity: 1, Status: status, RequestedBy: uuid.New(),
		}
		require.NoError(t, transferRepo.Create(context.Background(), tr))

		_, err := svc.Process(context.Background(), tr.ID, uuid.New(), dto.ProcessTransferRequest{Action: "cancel"})
		assert.ErrorIs(t, err, service.ErrInvalidState, status)
	}
}

func TestTransferProcess_ShipRequiresApproved(t *testing.T) {
	svc, _, stockRepo, _ := newTransferFixture()
	src := seedStock(stockRepo, 10, 0, 5)

	created, err := svc.Request(context.Background(), uuid.New(), dto.TransferRequest{
		ProductID:    src.ProductID.String(),
		FromBranchID: src.BranchID.String(),
		ToBranchID:   uuid.NewString(),
		Quantity:     2,
		Reason:       "rebalance",
	})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), uuid.MustParse(created.ID), uuid.New(), dto.ProcessTransferRequest{Action: "ship"})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}
