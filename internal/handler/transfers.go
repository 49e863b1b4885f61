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

type TransfersHandler struct{ svc service.TransferService }

func NewTransfersHandler(svc service.TransferService) *TransfersHandler {
	return &TransfersHandler{svc: svc}
}

// Request godoc
// @Summary      Request a stock transfer between branches
// @Description  Availability is checked optimistically at request time; the binding check happens at completion under row locks.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.TransferRequest true "Transfer"
// @Success      201 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/inventory/stock-transfer-request [post]
func (h *TransfersHandler) Request(c *gin.Context) {
	var req dto.TransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Request(c.Request.Context(), actorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TransfersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TransfersHandler) List(c *gin.Context) {
	var filter dto.TransferFilter
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

// Process godoc
// @Summary      Advance a transfer through its workflow
// @Description  approve/reject act on pending, ship on approved, complete moves the units atomically (all-or-nothing), cancel works from any non-terminal state.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "Transfer UUID"
// @Param        body body dto.ProcessTransferRequest true "Action"
// @Success      200 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/inventory/stock-transfers/{id}/process [put]
func (h *TransfersHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.ProcessTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Process(c.Request.Context(), id, actorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
