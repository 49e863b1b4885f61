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

type ReservationsHandler struct{ svc service.ReservationService }

func NewReservationsHandler(svc service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{svc: svc}
}

// Create godoc
// @Summary      Create a reservation
// @Description  Reservations start pending and hold nothing — stock is committed at approval.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateReservationRequest true "Reservation"
// @Success      201 {object} dto.ReservationResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/reservations [post]
func (h *ReservationsHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	customerID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Create(c.Request.Context(), customerID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ReservationsHandler) Get(c *gin.Context) {
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

func (h *ReservationsHandler) List(c *gin.Context) {
	var filter dto.ReservationFilter
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

// Update godoc
// @Summary      Edit or advance a reservation
// @Description  Field edits apply to pending reservations only. status=approved reserves stock under row lock, rejected releases nothing, completed hands over and decrements both quantities.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true "Reservation UUID"
// @Param        body body dto.UpdateReservationRequest true "Changes"
// @Success      200 {object} dto.ReservationResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/reservations/{id} [put]
func (h *ReservationsHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateReservationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Update(c.Request.Context(), id, actorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes a reservation. Only pending and rejected reservations can
// be deleted; approved ones hold reserved stock and must be completed or
// rejected first.
func (h *ReservationsHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
