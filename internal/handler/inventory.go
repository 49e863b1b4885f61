package handler

import (
	"net/http"

	"opticare/internal/apierror"
	"opticare/internal/dto"
	"opticare/internal/middleware"
	"opticare/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List godoc
// @Summary      List branch stock rows
// @Description  Paginated listing filterable by product, branch and status.
// @Tags         branch-stock
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query string false "Product UUID"
// @Param        branch_id  query string false "Branch UUID"
// @Param        status     query string false "In Stock | Low Stock | Out of Stock"
// @Param        page       query int    false "Page (default 1)"
// @Param        limit      query int    false "Rows per page (default 50)"
// @Success      200 {object} dto.BranchStockListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/branch-stock [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var filter dto.BranchStockFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AssignProduct godoc
// @Summary      Assign a product to a branch
// @Description  Creates the stock row for a (product, branch) pair. Each pair exists at most once.
// @Tags         branch-stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.AssignProductRequest true "Assignment"
// @Success      201 {object} dto.BranchStockResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/branch-stock [post]
func (h *InventoryHandler) AssignProduct(c *gin.Context) {
	var req dto.AssignProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.AssignProduct(c.Request.Context(), actorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateStock godoc
// @Summary      Set the on-hand quantity of a stock row
// @Description  Absolute update under row lock. Status is re-derived in the same transaction and a movement is recorded.
// @Tags         branch-stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "Branch stock UUID"
// @Param        body body dto.UpdateStockRequest true "New quantity"
// @Success      200 {object} dto.UpdateStockResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/branch-stock/{id} [put]
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.UpdateStock(c.Request.Context(), id, actorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStockAlerts returns every row at or below its threshold.
func (h *InventoryHandler) LowStockAlerts(c *gin.Context) {
	resp, err := h.svc.LowStockAlerts(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CrossBranchAvailability godoc
// @Summary      Per-branch availability of a product
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query string true  "Product UUID"
// @Param        branch_id  query string false "Restrict to a single branch"
// @Success      200 {object} dto.CrossBranchAvailabilityResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/cross-branch-availability [get]
func (h *InventoryHandler) CrossBranchAvailability(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product_id"))
		return
	}
	var preferred *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		branchID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid branch_id"))
			return
		}
		preferred = &branchID
	}
	resp, err := h.svc.CrossBranchAvailability(c.Request.Context(), productID, preferred)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMovements returns the audit ledger, newest first.
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var filter dto.StockMovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Sync Handler ─────────────────────────────────────────────────────────────

type SyncHandler struct{ svc service.SyncService }

func NewSyncHandler(svc service.SyncService) *SyncHandler { return &SyncHandler{svc: svc} }

// Run godoc
// @Summary      Reconcile legacy product stock against branch rows
// @Description  Seeds missing branch_stock rows, fixes drifted statuses and rewrites product aggregates. Idempotent.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.SyncReportResponse
// @Failure      500 {object} apierror.APIError
// @Router       /v1/admin/sync-stock [post]
func (h *SyncHandler) Run(c *gin.Context) {
	resp, err := h.svc.Run(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
