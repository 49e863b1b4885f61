package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AssignProductRequest creates the branch_stock row for a (product, branch)
// pair. Conflicts with an existing pair are rejected.
type AssignProductRequest struct {
	ProductID           string           `json:"product_id"            validate:"required,uuid"`
	BranchID            string           `json:"branch_id"             validate:"required,uuid"`
	StockQuantity       int              `json:"stock_quantity"        validate:"min=0"`
	MinStockThreshold   *int             `json:"min_stock_threshold"   validate:"omitempty,min=0"`
	PriceOverride       *decimal.Decimal `json:"price_override"`
	AutoRestockEnabled  bool             `json:"auto_restock_enabled"`
	AutoRestockQuantity int              `json:"auto_restock_quantity" validate:"min=0"`
}

// UpdateStockRequest sets the absolute on-hand quantity of a row.
type UpdateStockRequest struct {
	StockQuantity int     `json:"stock_quantity" validate:"min=0"`
	Reason        *string `json:"reason"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type BranchStockFilter struct {
	ProductID string `form:"product_id"`
	BranchID  string `form:"branch_id"`
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type StockMovementFilter struct {
	ProductID string `form:"product_id"`
	BranchID  string `form:"branch_id"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BranchStockResponse struct {
	ID                  string           `json:"id"`
	ProductID           string           `json:"product_id"`
	ProductName         string           `json:"product_name"`
	ProductSKU          string           `json:"product_sku"`
	BranchID            string           `json:"branch_id"`
	BranchName          string           `json:"branch_name"`
	StockQuantity       int              `json:"stock_quantity"`
	ReservedQuantity    int              `json:"reserved_quantity"`
	AvailableQuantity   int              `json:"available_quantity"`
	MinStockThreshold   int              `json:"min_stock_threshold"`
	Status              string           `json:"status"`
	PriceOverride       *decimal.Decimal `json:"price_override"`
	ExpiryDate          *string          `json:"expiry_date"`
	AutoRestockEnabled  bool             `json:"auto_restock_enabled"`
	AutoRestockQuantity int              `json:"auto_restock_quantity"`
	LastRestockDate     *string          `json:"last_restock_date"`
	IsActive            bool             `json:"is_active"`
}

type BranchStockListResponse struct {
	Data  []BranchStockResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// UpdateStockResponse echoes the applied change alongside the updated row.
type UpdateStockResponse struct {
	OldQuantity int                 `json:"old_quantity"`
	NewQuantity int                 `json:"new_quantity"`
	Difference  int                 `json:"difference"`
	Stock       BranchStockResponse `json:"stock"`
}

// BranchAvailability is one branch's stock_info entry in the
// cross-branch availability response.
type BranchAvailability struct {
	BranchID          string           `json:"branch_id"`
	BranchName        string           `json:"branch_name"`
	StockQuantity     int              `json:"stock_quantity"`
	AvailableQuantity int              `json:"available_quantity"`
	Status            string           `json:"status"`
	Price             *decimal.Decimal `json:"price"`
}

type CrossBranchAvailabilityResponse struct {
	ProductID   string               `json:"product_id"`
	ProductName string               `json:"product_name"`
	Branches    []BranchAvailability `json:"branches"`
}

type StockMovementResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	BranchID    string  `json:"branch_id"`
	Type        string  `json:"type"`
	Quantity    int     `json:"quantity"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id"`
	CreatedAt   string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

// SyncReportResponse summarizes one reconcile run.
type SyncReportResponse struct {
	RowsCreated     int `json:"rows_created"`
	StatusesFixed   int `json:"statuses_fixed"`
	ProductsUpdated int `json:"products_updated"`
}
