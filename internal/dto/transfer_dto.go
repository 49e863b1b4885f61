package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type TransferRequest struct {
	ProductID    string `json:"product_id"     validate:"required,uuid"`
	FromBranchID string `json:"from_branch_id" validate:"required,uuid"`
	ToBranchID   string `json:"to_branch_id"   validate:"required,uuid,nefield=FromBranchID"`
	Quantity     int    `json:"quantity"       validate:"required,gt=0"`
	Reason       string `json:"reason"         validate:"required,min=3"`
}

// ProcessTransferRequest advances a transfer through its workflow.
// approve|reject act on pending, ship on approved, complete on in_transit,
// cancel on any non-terminal state.
type ProcessTransferRequest struct {
	Action string  `json:"action" validate:"required,oneof=approve reject ship complete cancel"`
	Notes  *string `json:"notes"`
}

type TransferFilter struct {
	ProductID    string `form:"product_id"`
	FromBranchID string `form:"from_branch_id"`
	ToBranchID   string `form:"to_branch_id"`
	Status       string `form:"status"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TransferResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	FromBranchID   string  `json:"from_branch_id"`
	FromBranchName string  `json:"from_branch_name"`
	ToBranchID     string  `json:"to_branch_id"`
	ToBranchName   string  `json:"to_branch_name"`
	Quantity       int     `json:"quantity"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason"`
	Notes          *string `json:"notes"`
	RequestedBy    string  `json:"requested_by"`
	ApprovedBy     *string `json:"approved_by"`
	ApprovedAt     *string `json:"approved_at"`
	ShippedAt      *string `json:"shipped_at"`
	CompletedAt    *string `json:"completed_at"`
	CancelledAt    *string `json:"cancelled_at"`
	CreatedAt      string  `json:"created_at"`
}

type TransferListResponse struct {
	Data  []TransferResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
