package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateReservationRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	BranchID  string  `json:"branch_id"  validate:"required,uuid"`
	Quantity  int     `json:"quantity"   validate:"required,gt=0"`
	Notes     *string `json:"notes"`
}

// UpdateReservationRequest edits a pending reservation and/or advances its
// status. Status transitions: pending → approved|rejected, approved → completed.
type UpdateReservationRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gt=0"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"   validate:"omitempty,oneof=approved rejected completed"`
}

type ReservationFilter struct {
	ProductID  string `form:"product_id"`
	BranchID   string `form:"branch_id"`
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ReservationResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	BranchID    string  `json:"branch_id"`
	BranchName  string  `json:"branch_name"`
	CustomerID  string  `json:"customer_id"`
	Quantity    int     `json:"quantity"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	ProcessedBy *string `json:"processed_by"`
	ProcessedAt *string `json:"processed_at"`
	CompletedAt *string `json:"completed_at"`
	CreatedAt   string  `json:"created_at"`
}

type ReservationListResponse struct {
	Data  []ReservationResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}
