package service_test

// In-memory repository stubs. DB() returns nil so services run their
// transactional closures directly against the maps.

import (
	"context"
	"encoding/json"
	"time"

	"opticare/internal/dto"
	"opticare/internal/model"
	"opticare/internal/repository"
	"opticare/internal/service"
	"opticare/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func pairKey(productID, branchID uuid.UUID) string {
	return productID.String() + "|" + branchID.String()
}

// ── BranchStockRepository ────────────────────────────────────────────────────

type stubStockRepo struct {
	rows map[string]*model.BranchStock
	// lockErr is returned by FindByPairForUpdateTx for lockErrBranch,
	// simulating a connection failure on the locked lookup.
	lockErrBranch  uuid.UUID
	lockErr        error
	listAllTxCalls int
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{rows: make(map[string]*model.BranchStock)}
}

func (r *stubStockRepo) put(bs *model.BranchStock) *model.BranchStock {
	if bs.ID == uuid.Nil {
		bs.ID = uuid.New()
	}
	r.rows[pairKey(bs.ProductID, bs.BranchID)] = bs
	return bs
}

func (r *stubStockRepo) Create(_ context.Context, bs *model.BranchStock) error {
	r.put(bs)
	return nil
}

func (r *stubStockRepo) FindByID(_ context.Context, id uuid.UUID) (*model.BranchStock, error) {
	for _, bs := range r.rows {
		if bs.ID == id {
			return bs, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubStockRepo) FindByPair(_ context.Context, productID, branchID uuid.UUID) (*model.BranchStock, error) {
	bs, ok := r.rows[pairKey(productID, branchID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return bs, nil
}

func (r *stubStockRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]model.BranchStock, error) {
	var out []model.BranchStock
	for _, bs := range r.rows {
		if bs.ProductID == productID {
			out = append(out, *bs)
		}
	}
	return out, nil
}

func (r *stubStockRepo) List(_ context.Context, _ dto.BranchStockFilter) ([]model.BranchStock, int64, error) {
	var out []model.BranchStock
	for _, bs := range r.rows {
		out = append(out, *bs)
	}
	return out, int64(len(out)), nil
}

func (r *stubStockRepo) ListBelowThreshold(_ context.Context) ([]model.BranchStock, error) {
	var out []model.BranchStock
	for _, bs := range r.rows {
		if bs.Status == model.StatusLowStock || bs.Status == model.StatusOutOfStock {
			out = append(out, *bs)
		}
	}
	return out, nil
}

func (r *stubStockRepo) ListAll(_ context.Context) ([]model.BranchStock, error) {
	var out []model.BranchStock
	for _, bs := range r.rows {
		out = append(out, *bs)
	}
	return out, nil
}

func (r *stubStockRepo) FindByPairForUpdateTx(_ *gorm.DB, productID, branchID uuid.UUID) (*model.BranchStock, error) {
	if r.lockErr != nil && branchID == r.lockErrBranch {
		return nil, r.lockErr
	}
	return r.FindByPair(context.Background(), productID, branchID)
}

func (r *stubStockRepo) ListAllTx(_ *gorm.DB) ([]model.BranchStock, error) {
	r.listAllTxCalls++
	return r.ListAll(context.Background())
}

func (r *stubStockRepo) CreateTx(_ *gorm.DB, bs *model.BranchStock) error {
	r.put(bs)
	return nil
}

func (r *stubStockRepo) SaveTx(_ *gorm.DB, bs *model.BranchStock) error {
	r.put(bs)
	return nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

var _ repository.BranchStockRepository = (*stubStockRepo)(nil)

// ── ReservationRepository ────────────────────────────────────────────────────

type stubReservationRepo struct {
	reservations map[uuid.UUID]*model.Reservation
}

func newStubReservationRepo() *stubReservationRepo {
	return &stubReservationRepo{reservations: make(map[uuid.UUID]*model.Reservation)}
}

func (r *stubReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = time.Now()
	r.reservations[res.ID] = res
	return nil
}

func (r *stubReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return res, nil
}

func (r *stubReservationRepo) List(_ context.Context, filter dto.ReservationFilter) ([]model.Reservation, int64, error) {
	var out []model.Reservation
	for _, res := range r.reservations {
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		out = append(out, *res)
	}
	return out, int64(len(out)), nil
}

func (r *stubReservationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.reservations, id)
	return nil
}

func (r *stubReservationRepo) SaveTx(_ *gorm.DB, res *model.Reservation) error {
	r.reservations[res.ID] = res
	return nil
}

func (r *stubReservationRepo) DB() *gorm.DB { return nil }

var _ repository.ReservationRepository = (*stubReservationRepo)(nil)

// ── StockTransferRepository ──────────────────────────────────────────────────

type stubTransferRepo struct {
	transfers map[uuid.UUID]*model.StockTransfer
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{transfers: make(map[uuid.UUID]*model.StockTransfer)}
}

func (r *stubTransferRepo) Create(_ context.Context, t *model.StockTransfer) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *stubTransferRepo) List(_ context.Context, filter dto.TransferFilter) ([]model.StockTransfer, int64, error) {
	var out []model.StockTransfer
	for _, t := range r.transfers {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *stubTransferRepo) SaveTx(_ *gorm.DB, t *model.StockTransfer) error {
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) DB() *gorm.DB { return nil }

var _ repository.StockTransferRepository = (*stubTransferRepo)(nil)

// ── StockMovementRepository ──────────────────────────────────────────────────

type stubMovementRepo struct {
	movements []model.StockMovement
}

func newStubMovementRepo() *stubMovementRepo { return &stubMovementRepo{} }

func (r *stubMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	return r.CreateTx(nil, m)
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, _ dto.StockMovementFilter) ([]model.StockMovement, int64, error) {
	return r.movements, int64(len(r.movements)), nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// ── ProductRepository ────────────────────────────────────────────────────────

type stubProductRepo struct {
	products          []*model.Product
	listActiveTxCalls int
}

func newStubProductRepo() *stubProductRepo { return &stubProductRepo{} }

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products = append(r.products, p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) ListActive(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	for i := range r.products {
		if r.products[i].ID == p.ID {
			r.products[i] = p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	for _, p := range r.products {
		if p.ID == id {
			p.IsActive = false
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductRepo) ListActiveTx(_ *gorm.DB) ([]model.Product, error) {
	r.listActiveTxCalls++
	return r.ListActive(context.Background())
}

func (r *stubProductRepo) UpdateAggregateStockTx(_ *gorm.DB, id uuid.UUID, total int) error {
	for _, p := range r.products {
		if p.ID == id {
			p.StockQuantity = total
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── BranchRepository ─────────────────────────────────────────────────────────

type stubBranchRepo struct {
	branches          []*model.Branch
	listActiveTxCalls int
}

func newStubBranchRepo() *stubBranchRepo { return &stubBranchRepo{} }

func (r *stubBranchRepo) Create(_ context.Context, b *model.Branch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.branches = append(r.branches, b)
	return nil
}

func (r *stubBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	for _, b := range r.branches {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBranchRepo) ListActive(_ context.Context) ([]model.Branch, error) {
	var out []model.Branch
	for _, b := range r.branches {
		if b.IsActive {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *stubBranchRepo) ListActiveTx(_ *gorm.DB) ([]model.Branch, error) {
	r.listActiveTxCalls++
	return r.ListActive(context.Background())
}

func (r *stubBranchRepo) Update(_ context.Context, b *model.Branch) error {
	for i := range r.branches {
		if r.branches[i].ID == b.ID {
			r.branches[i] = b
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var _ repository.BranchRepository = (*stubBranchRepo)(nil)

// ── UserRepository ───────────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[u.ID] = u
	return nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── async / cache fakes ──────────────────────────────────────────────────────

type stubDispatcher struct {
	restocks []worker.RestockJobPayload
	alerts   []worker.LowStockEmailPayload
}

func newStubDispatcher() *stubDispatcher { return &stubDispatcher{} }

func (d *stubDispatcher) EnqueueRestock(_ context.Context, payload interface{}) error {
	d.restocks = append(d.restocks, payload.(worker.RestockJobPayload))
	return nil
}

func (d *stubDispatcher) EnqueueLowStockEmail(_ context.Context, payload interface{}) error {
	d.alerts = append(d.alerts, payload.(worker.LowStockEmailPayload))
	return nil
}

var _ service.JobDispatcher = (*stubDispatcher)(nil)

type fakeCache struct {
	store   map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (c *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) bool {
	data, ok := c.store[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *fakeCache) SetJSON(_ context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.store[key] = data
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		delete(c.store, k)
		c.deletes = append(c.deletes, k)
	}
}

var _ service.AvailabilityCache = (*fakeCache)(nil)

// ── fixtures ─────────────────────────────────────────────────────────────────

func seedStock(repo *stubStockRepo, stock, reserved, threshold int) *model.BranchStock {
	bs := &model.BranchStock{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		BranchID:          uuid.New(),
		StockQuantity:     stock,
		ReservedQuantity:  reserved,
		MinStockThreshold: threshold,
		IsActive:          true,
	}
	bs.RecomputeStatus()
	repo.put(bs)
	return bs
}
