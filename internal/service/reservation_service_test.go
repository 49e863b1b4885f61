package service_test

import (
	"context"
	"testing"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservationFixture() (service.ReservationService, *stubReservationRepo, *stubStockRepo, *stubMovementRepo) {
	svc, resRepo, stockRepo, movRepo, _ := newReservationFixtureWithDispatcher()
	return svc, resRepo, stockRepo, movRepo
}

func newReservationFixtureWithDispatcher() (service.ReservationService, *stubReservationRepo, *stubStockRepo, *stubMovementRepo, *stubDispatcher) {
	resRepo := newStubReservationRepo()
	stockRepo := newStubStockRepo()
	movRepo := newStubMovementRepo()
	dispatcher := newStubDispatcher()
	svc := service.NewReservationService(resRepo, stockRepo, movRepo, dispatcher, newFakeCache())
	return svc, resRepo, stockRepo, movRepo, dispatcher
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestReservationCreate_PendingAndHoldsNothing(t *testing.T) {
	svc, _, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	resp, err := svc.Create(context.Background(), uuid.New(), dto.CreateReservationRequest{
		ProductID: bs.ProductID.String(),
		BranchID:  bs.BranchID.String(),
		Quantity:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, resp.Status)

	// Nothing is held until a staff member approves.
	assert.Equal(t, 0, bs.ReservedQuantity)
	assert.Equal(t, 10, bs.Available())
}

func TestReservationCreate_UnstockedPairRejected(t *testing.T) {
	svc, _, _, _ := newReservationFixture()

	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateReservationRequest{
		ProductID: uuid.NewString(),
		BranchID:  uuid.NewString(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestReservationApprove_HoldsStock(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)
	staff := uuid.New()

	created, err := svc.Create(context.Background(), uuid.New(), dto.CreateReservationRequest{
		ProductID: bs.ProductID.String(),
		BranchID:  bs.BranchID.String(),
		Quantity:  6,
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	resp, err := svc.Update(context.Background(), id, staff, dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationApproved, resp.Status)
	require.NotNil(t, resp.ProcessedBy)
	assert.Equal(t, staff.String(), *resp.ProcessedBy)
	assert.NotNil(t, resp.ProcessedAt)

	assert.Equal(t, 6, bs.ReservedQuantity)
	assert.Equal(t, 10, bs.StockQuantity)
	// 4 available against threshold 5.
	assert.Equal(t, model.StatusLowStock, bs.Status)

	stored, err := resRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationApproved, stored.Status)
}

func TestReservationApprove_ExceedsAvailable(t *testing.T) {
	svc, _, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 7, 5)

	created, err := svc.Create(context.Background(), uuid.New(), dto.CreateReservationRequest{
		ProductID: bs.ProductID.String(),
		BranchID:  bs.BranchID.String(),
		Quantity:  4, // only 3 available
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.MustParse(created.ID), uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationApproved),
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
	// No partial hold.
	assert.Equal(t, 7, bs.ReservedQuantity)
}

func TestReservationReject_OnlyFromPending(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 2, Status: model.ReservationApproved,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	_, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationRejected),
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestReservationComplete_HandsOverStock(t *testing.T) {
	svc, resRepo, stockRepo, movRepo := newReservationFixture()
	bs := seedStock(stockRepo, 10, 4, 5)

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 4, Status: model.ReservationApproved,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	resp, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCompleted, resp.Status)
	assert.NotNil(t, resp.CompletedAt)

	assert.Equal(t, 6, bs.StockQuantity)
	assert.Equal(t, 0, bs.ReservedQuantity)
	assert.Equal(t, model.StatusInStock, bs.Status)

	require.Len(t, movRepo.movements, 1)
	mov := movRepo.movements[0]
	assert.Equal(t, "reservation", mov.Type)
	assert.Equal(t, -4, mov.Quantity)
	assert.Equal(t, 10, mov.StockBefore)
	assert.Equal(t, 6, mov.StockAfter)
	require.NotNil(t, mov.ReferenceID)
	assert.Equal(t, res.ID, *mov.ReferenceID)
}

func TestReservationComplete_WhenDepletedEnqueuesRestockAndAlert(t *testing.T) {
	svc, resRepo, stockRepo, _, dispatcher := newReservationFixtureWithDispatcher()
	bs := seedStock(stockRepo, 5, 5, 5)
	bs.AutoRestockEnabled = true
	bs.AutoRestockQuantity = 10

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 5, Status: model.ReservationApproved,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	_, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, bs.StockQuantity)
	assert.Equal(t, model.StatusOutOfStock, bs.Status)

	require.Len(t, dispatcher.restocks, 1)
	assert.Equal(t, bs.ProductID.String(), dispatcher.restocks[0].ProductID)
	assert.Equal(t, bs.BranchID.String(), dispatcher.restocks[0].BranchID)
	assert.Equal(t, 10, dispatcher.restocks[0].Quantity)
	require.Len(t, dispatcher.alerts, 1)
	assert.Equal(t, 0, dispatcher.alerts[0].Available)
	assert.Equal(t, model.StatusOutOfStock, dispatcher.alerts[0].Status)
}

func TestReservationApprove_WhenHoldDepletesEnqueuesAlert(t *testing.T) {
	svc, _, stockRepo, _, dispatcher := newReservationFixtureWithDispatcher()
	bs := seedStock(stockRepo, 8, 0, 5)

	created, err := svc.Create(context.Background(), uuid.New(), dto.CreateReservationRequest{
		ProductID: bs.ProductID.String(),
		BranchID:  bs.BranchID.String(),
		Quantity:  4,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), uuid.MustParse(created.ID), uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationApproved),
	})
	require.NoError(t, err)
	// 4 available against threshold 5 — the hold itself triggers the alert.
	assert.Equal(t, model.StatusLowStock, bs.Status)
	require.Len(t, dispatcher.alerts, 1)
	assert.Equal(t, 4, dispatcher.alerts[0].Available)
	assert.Empty(t, dispatcher.restocks) // auto-restock not enabled on this row
}

func TestReservationComplete_FromPendingFails(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 2, Status: model.ReservationPending,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	_, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Status: strPtr(model.ReservationCompleted),
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestReservationUpdate_TerminalIsFrozen(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	for _, status := range []string{model.ReservationRejected, model.ReservationCompleted} {
		res := &model.Reservation{
			ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
			Quantity: 1, Status: status,
		}
		require.NoError(t, resRepo.Create(context.Background(), res))

		_, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
			Notes: strPtr("late edit"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidState, status)
	}
}

func TestReservationUpdate_FieldEditRequiresPending(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 2, 5)

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 2, Status: model.ReservationApproved,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	_, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Quantity: intPtr(5),
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
	assert.Equal(t, 2, res.Quantity)
}

func TestReservationUpdate_PendingFieldEdit(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	res := &model.Reservation{
		ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
		Quantity: 2, Status: model.ReservationPending,
	}
	require.NoError(t, resRepo.Create(context.Background(), res))

	resp, err := svc.Update(context.Background(), res.ID, uuid.New(), dto.UpdateReservationRequest{
		Quantity: intPtr(5),
		Notes:    strPtr("customer called to bump the order"),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Quantity)
	assert.Equal(t, model.ReservationPending, resp.Status)
}

func TestReservationDelete(t *testing.T) {
	svc, resRepo, stockRepo, _ := newReservationFixture()
	bs := seedStock(stockRepo, 10, 0, 5)

	cases := []struct {
		status  string
		wantErr error
	}{
		{model.ReservationPending, nil},
		{model.ReservationRejected, nil},
		{model.ReservationApproved, service.ErrInvalidState},
		{model.ReservationCompleted, service.ErrInvalidState},
	}
	for _, tc := range cases {
		res := &model.Reservation{
			ProductID: bs.ProductID, BranchID: bs.BranchID, CustomerID: uuid.New(),
			Quantity: 1, Status: tc.status,
		}
		require.NoError(t, resRepo.Create(context.Background(), res))

		err := svc.Delete(context.Background(), res.ID)
		if tc.wantErr == nil {
			assert.NoError(t, err, tc.status)
			_, err = resRepo.FindByID(context.Background(), res.ID)
			assert.Error(t, err, tc.status)
		} else {
			assert.ErrorIs(t, err, tc.wantErr, tc.status)
		}
	}
}

func TestReservationDelete_Missing(t *testing.T) {
	svc, _, _, _ := newReservationFixture()
	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
