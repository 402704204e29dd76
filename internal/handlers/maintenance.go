package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tendly/tendly/internal/middleware"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/internal/services"
	appErrors "github.com/tendly/tendly/pkg/errors"
	"github.com/tendly/tendly/pkg/response"
)

// MaintenanceHandler serves maintenance request filing and triage.
type MaintenanceHandler struct {
	maintenance *services.MaintenanceService
}

// NewMaintenanceHandler constructs a MaintenanceHandler.
func NewMaintenanceHandler(maintenance *services.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

type createMaintenanceRequest struct {
	UnitID      string `json:"unit_id" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description" validate:"omitempty,max=4096"`
	Urgency     string `json:"urgency" validate:"omitempty,oneof=emergency urgent routine"`
	Trade       string `json:"trade" validate:"omitempty,oneof=plumbing electrical hvac general"`
}

type setMaintenanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=assigned resolved"`
}

// POST /api/maintenance
func (h *MaintenanceHandler) Create(c *gin.Context) {
	var req createMaintenanceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.maintenance.Create(requestContext(c), c.GetString(middleware.CtxUserIDKey), services.CreateMaintenanceInput{
		UnitID:      req.UnitID,
		Title:       req.Title,
		Description: req.Description,
		Urgency:     req.Urgency,
		Trade:       req.Trade,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMaintenance):
			response.Error(c, appErrors.NewBadRequest(err.Error()))
		case errors.Is(err, services.ErrNoActiveLease):
			response.Error(c, appErrors.ErrForbidden)
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, request)
}

// GET /api/maintenance
func (h *MaintenanceHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var (
		requests []models.MaintenanceRequest
		err      error
	)
	if c.GetString(middleware.CtxRoleKey) == models.RoleLandlord {
		requests, err = h.maintenance.ListForLandlord(requestContext(c), userID)
	} else {
		requests, err = h.maintenance.ListForTenant(requestContext(c), userID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, requests)
}

// POST /api/maintenance/:id/status
func (h *MaintenanceHandler) SetStatus(c *gin.Context) {
	var req setMaintenanceStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	request, err := h.maintenance.SetStatus(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMaintenanceNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrNotPropertyOwner):
			response.Error(c, appErrors.ErrForbidden)
		case errors.Is(err, services.ErrInvalidStatusChange):
			response.Error(c, appErrors.NewBadRequest(err.Error()))
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, request)
}
