package dto

import "github.com/shopspring/decimal"

// ─── Products ────────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	SKU         string          `json:"sku"         validate:"required,min=3,max=40"`
	Name        string          `json:"name"        validate:"required,min=2,max=120"`
	Description *string         `json:"description"`
	Category    string          `json:"category"    validate:"required"`
	Price       decimal.Decimal `json:"price"       validate:"required"`
}

type ProductFilter struct {
	SKU      string `form:"sku"`
	Name     string `form:"name"`
	Category string `form:"category"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ─── Branches ────────────────────────────────────────────────────────────────

type CreateBranchRequest struct {
	Code         string  `json:"code"          validate:"required,min=2,max=20"`
	Name         string  `json:"name"          validate:"required,min=2,max=120"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	ManagerEmail *string `json:"manager_email" validate:"omitempty,email"`
}

type BranchResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	ManagerEmail *string `json:"manager_email"`
	IsActive     bool    `json:"is_active"`
}
