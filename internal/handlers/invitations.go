package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tendly/tendly/internal/middleware"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/internal/services"
	appErrors "github.com/tendly/tendly/pkg/errors"
	"github.com/tendly/tendly/pkg/metrics"
	"github.com/tendly/tendly/pkg/response"
)

// InvitationHandler serves invitation issuance, listing, resend, and redemption.
type InvitationHandler struct {
	invites    *services.InvitationService
	onboarding *services.OnboardingService
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invites *services.InvitationService, onboarding *services.OnboardingService) *InvitationHandler {
	return &InvitationHandler{invites: invites, onboarding: onboarding}
}

type createInvitationRequest struct {
	UnitID        string `json:"unit_id" validate:"required,uuid4"`
	Email         string `json:"email" validate:"required,email"`
	RentAmount    int64  `json:"rent_amount" validate:"gte=0"`
	DepositAmount int64  `json:"deposit_amount" validate:"gte=0"`
	StartDate     string `json:"start_date" validate:"required"`
	EndDate       string `json:"end_date" validate:"required"`
}

type redeemRequest struct {
	Token string `json:"token" validate:"required"`
}

type deliveryInfo struct {
	Sent bool `json:"sent"`
}

type invitationCreatedResponse struct {
	Invitation *models.TenantInvitation `json:"invitation"`
	Token      string                   `json:"token"`
	Link       string                   `json:"link"`
	Delivery   deliveryInfo             `json:"delivery"`
}

// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req createInvitationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("start_date: "+err.Error()))
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("end_date: "+err.Error()))
		return
	}

	invite, token, link, err := h.invites.Issue(requestContext(c), services.IssueInvitationInput{
		LandlordID:    c.GetString(middleware.CtxUserIDKey),
		UnitID:        req.UnitID,
		Email:         req.Email,
		RentAmount:    req.RentAmount,
		DepositAmount: req.DepositAmount,
		StartDate:     startDate,
		EndDate:       endDate,
	})
	if err != nil && !errors.Is(err, services.ErrDeliveryFailed) {
		switch {
		case errors.Is(err, services.ErrInvalidInvitation):
			response.Error(c, appErrors.NewBadRequest(err.Error()))
		case errors.Is(err, services.ErrUnitNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrNotUnitOwner):
			response.Error(c, appErrors.ErrForbidden)
		default:
			response.Error(c, err)
		}
		return
	}

	// A failed email still created the invitation. Hand the link back so the
	// landlord can deliver it out of band.
	sent := err == nil
	if sent {
		metrics.InvitationsIssued.WithLabelValues("sent").Inc()
	} else {
		metrics.InvitationsIssued.WithLabelValues("failed").Inc()
	}

	response.Success(c, http.StatusCreated, invitationCreatedResponse{
		Invitation: invite,
		Token:      token,
		Link:       link,
		Delivery:   deliveryInfo{Sent: sent},
	})
}

// GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	invites, err := h.invites.List(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invites)
}

// POST /api/invitations/:id/resend
func (h *InvitationHandler) Resend(c *gin.Context) {
	invite, token, link, err := h.invites.Resend(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("id"))
	if err != nil && !errors.Is(err, services.ErrDeliveryFailed) {
		switch {
		case errors.Is(err, services.ErrInvitationNotFound):
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrInvitationUnusable):
			response.Error(c, appErrors.ErrInvitationExpired)
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, invitationCreatedResponse{
		Invitation: invite,
		Token:      token,
		Link:       link,
		Delivery:   deliveryInfo{Sent: err == nil},
	})
}

// POST /api/invitations/redeem
func (h *InvitationHandler) Redeem(c *gin.Context) {
	var req redeemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	caller, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.onboarding.Redeem(requestContext(c), req.Token, caller)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationNotFound):
			metrics.InvitationsRedeemed.WithLabelValues("not_found").Inc()
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, services.ErrEmailMismatch):
			metrics.InvitationsRedeemed.WithLabelValues("email_mismatch").Inc()
			response.Error(c, appErrors.ErrEmailMismatch)
		case errors.Is(err, services.ErrInvitationUnusable):
			metrics.InvitationsRedeemed.WithLabelValues("expired").Inc()
			response.Error(c, appErrors.ErrInvitationExpired)
		case errors.Is(err, services.ErrUnitOccupied):
			metrics.InvitationsRedeemed.WithLabelValues("error").Inc()
			response.Error(c, appErrors.New("UNIT_OCCUPIED", "Unit already has an active lease", http.StatusConflict))
		default:
			metrics.InvitationsRedeemed.WithLabelValues("error").Inc()
			response.Error(c, err)
		}
		return
	}

	metrics.InvitationsRedeemed.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, result)
}
