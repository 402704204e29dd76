package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tendly/tendly/internal/middleware"
	"github.com/tendly/tendly/internal/services"
	appErrors "github.com/tendly/tendly/pkg/errors"
	"github.com/tendly/tendly/pkg/response"
)

// PropertyHandler serves property and unit management plus the deletion guard.
type PropertyHandler struct {
	properties *services.PropertyService
}

// NewPropertyHandler constructs a PropertyHandler.
func NewPropertyHandler(properties *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

type createPropertyRequest struct {
	Address   string  `json:"address" validate:"required,max=256"`
	Nickname  *string `json:"nickname" validate:"omitempty,max=128"`
	Mortgage  *int64  `json:"mortgage" validate:"omitempty,gte=0"`
	Insurance *int64  `json:"insurance" validate:"omitempty,gte=0"`
	TaxAnnual *int64  `json:"tax_annual" validate:"omitempty,gte=0"`
}

type addUnitRequest struct {
	UnitNumber string  `json:"unit_number" validate:"required,max=32"`
	Bedrooms   int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms  float64 `json:"bathrooms" validate:"gte=0"`
	RentAmount int64   `json:"rent_amount" validate:"gte=0"`
}

type deletableResponse struct {
	Deletable bool   `json:"deletable"`
	Reason    string `json:"reason,omitempty"`
}

// POST /api/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	var req createPropertyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	property, err := h.properties.Create(requestContext(c), c.GetString(middleware.CtxUserIDKey), services.CreatePropertyInput{
		Address:   req.Address,
		Nickname:  req.Nickname,
		Mortgage:  req.Mortgage,
		Insurance: req.Insurance,
		TaxAnnual: req.TaxAnnual,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidProperty) {
			response.Error(c, appErrors.NewBadRequest(err.Error()))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, property)
}

// GET /api/properties
func (h *PropertyHandler) List(c *gin.Context) {
	properties, err := h.properties.List(requestContext(c), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, properties)
}

// POST /api/properties/:id/units
func (h *PropertyHandler) AddUnit(c *gin.Context) {
	var req addUnitRequest
	if !bindAndValidate(c, &req) {
		return
	}

	unit, err := h.properties.AddUnit(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("id"), services.AddUnitInput{
		UnitNumber: req.UnitNumber,
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		RentAmount: req.RentAmount,
	})
	if err != nil {
		h.writePropertyError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, unit)
}

// GET /api/properties/:id/deletable
func (h *PropertyHandler) Deletable(c *gin.Context) {
	reason, err := h.properties.CheckDeletable(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil {
		h.writePropertyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, deletableResponse{
		Deletable: reason == "",
		Reason:    reason,
	})
}

// DELETE /api/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	err := h.properties.Delete(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil {
		var blocked *services.PropertyBlockedError
		if errors.As(err, &blocked) {
			response.Error(c, appErrors.New(appErrors.ErrPropertyBlocked.Code, blocked.Reason, http.StatusConflict))
			return
		}
		h.writePropertyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *PropertyHandler) writePropertyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidProperty):
		response.Error(c, appErrors.NewBadRequest(err.Error()))
	case errors.Is(err, services.ErrPropertyNotFound):
		response.Error(c, appErrors.ErrNotFound)
	case errors.Is(err, services.ErrNotPropertyOwner):
		response.Error(c, appErrors.ErrForbidden)
	default:
		response.Error(c, err)
	}
}
