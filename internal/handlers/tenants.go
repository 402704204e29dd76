package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tendly/tendly/internal/middleware"
	"github.com/tendly/tendly/internal/services"
	appErrors "github.com/tendly/tendly/pkg/errors"
	"github.com/tendly/tendly/pkg/metrics"
	"github.com/tendly/tendly/pkg/response"
)

// TenantHandler serves the landlord's tenant roster and lease termination.
type TenantHandler struct {
	leases *services.LeaseService
}

// NewTenantHandler constructs a TenantHandler.
func NewTenantHandler(leases *services.LeaseService) *TenantHandler {
	return &TenantHandler{leases: leases}
}

// GET /api/tenants
func (h *TenantHandler) ListActive(c *gin.Context) {
	leases, err := h.leases.ListActive(requestContext(c), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, leases)
}

// POST /api/leases/:id/terminate
func (h *TenantHandler) Terminate(c *gin.Context) {
	lease, err := h.leases.Terminate(requestContext(c), c.Param("id"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLeaseNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrNotPropertyOwner):
			response.Error(c, appErrors.ErrForbidden)
		default:
			response.Error(c, err)
		}
		return
	}

	metrics.LeasesTerminated.Inc()
	response.Success(c, http.StatusOK, lease)
}
