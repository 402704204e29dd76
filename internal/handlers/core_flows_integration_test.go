package handlers_test

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendly/tendly/internal/handlers/testutil"
	"github.com/tendly/tendly/internal/models"
)

func issueInvitation(t *testing.T, env *testutil.Env, landlordToken, unitID, email string) (inviteID, token, link string) {
	t.Helper()

	w := env.Request(http.MethodPost, "/api/invitations", map[string]any{
		"unit_id":        unitID,
		"email":          email,
		"rent_amount":    150000,
		"deposit_amount": 150000,
		"start_date":     "2026-03-01",
		"end_date":       "2027-02-28",
	}, landlordToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	payload := testutil.DecodeResponse(t, w)
	require.True(t, payload.Success)

	var created struct {
		Invitation models.TenantInvitation `json:"invitation"`
		Token      string                  `json:"token"`
		Link       string                  `json:"link"`
		Delivery   struct {
			Sent bool `json:"sent"`
		} `json:"delivery"`
	}
	testutil.DecodeInto(t, payload.Data, &created)
	require.NotEmpty(t, created.Token)
	require.True(t, created.Delivery.Sent)
	return created.Invitation.ID, created.Token, created.Link
}

func TestInvitationLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	tenantToken, tenant := env.Signup("tenant@example.com", "StrongPassw0rd!", "tenant")
	_, unit := env.SeedPropertyWithUnit(landlord.ID)

	_, token, link := issueInvitation(t, env, landlordToken, unit.ID, "tenant@example.com")

	// The deep link embeds the raw token.
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "tendly", parsed.Scheme)
	require.Equal(t, token, parsed.Query().Get("token"))

	// The invitation email went out to the tenant.
	require.Len(t, env.Mailer.Sent, 1)
	require.Equal(t, []string{"tenant@example.com"}, env.Mailer.Sent[0].To)

	// Landlord sees it pending.
	list := env.Request(http.MethodGet, "/api/invitations?status=pending", nil, landlordToken)
	require.Equal(t, http.StatusOK, list.Code)
	listPayload := testutil.DecodeResponse(t, list)
	var invites []models.TenantInvitation
	testutil.DecodeInto(t, listPayload.Data, &invites)
	require.Len(t, invites, 1)

	// Tenant redeems and receives the joined result.
	redeem := env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, tenantToken)
	require.Equal(t, http.StatusOK, redeem.Code, redeem.Body.String())
	redeemPayload := testutil.DecodeResponse(t, redeem)

	var result struct {
		Invitation models.TenantInvitation `json:"invitation"`
		Lease      models.Lease            `json:"lease"`
		Unit       models.Unit             `json:"unit"`
		Property   models.Property         `json:"property"`
	}
	testutil.DecodeInto(t, redeemPayload.Data, &result)
	require.Equal(t, "accepted", result.Invitation.Status)
	require.Equal(t, "active", result.Lease.Status)
	require.Equal(t, tenant.ID, result.Lease.TenantID)
	require.EqualValues(t, 150000, result.Lease.RentAmount)
	require.Equal(t, unit.ID, result.Unit.ID)
	require.Equal(t, result.Unit.PropertyID, result.Property.ID)

	// First rent payment exists with the lease start date.
	var payment models.RentPayment
	require.NoError(t, env.DB.Where("lease_id = ?", result.Lease.ID).First(&payment).Error)
	require.EqualValues(t, 150000, payment.Amount)
	require.Equal(t, "pending", payment.Status)
	require.Equal(t, "2026-03-01", payment.DueDate.Format("2006-01-02"))

	// A redeem retry succeeds with the same lease.
	again := env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, tenantToken)
	require.Equal(t, http.StatusOK, again.Code)
	againPayload := testutil.DecodeResponse(t, again)
	testutil.DecodeInto(t, againPayload.Data, &result)

	var leaseCount int64
	require.NoError(t, env.DB.Model(&models.Lease{}).Count(&leaseCount).Error)
	require.EqualValues(t, 1, leaseCount)

	// Landlord's tenant roster now shows the lease.
	roster := env.Request(http.MethodGet, "/api/tenants", nil, landlordToken)
	require.Equal(t, http.StatusOK, roster.Code)
	rosterPayload := testutil.DecodeResponse(t, roster)
	var leases []models.Lease
	testutil.DecodeInto(t, rosterPayload.Data, &leases)
	require.Len(t, leases, 1)
	require.NotNil(t, leases[0].Tenant)
	require.Equal(t, "tenant@example.com", leases[0].Tenant.Email)
}

func TestInvitationRedeemFailures(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	tenantToken, _ := env.Signup("tenant@example.com", "StrongPassw0rd!", "tenant")
	intruderToken, _ := env.Signup("other@example.com", "StrongPassw0rd!", "tenant")
	_, unit := env.SeedPropertyWithUnit(landlord.ID)

	inviteID, token, _ := issueInvitation(t, env, landlordToken, unit.ID, "tenant@example.com")

	// Unknown token.
	w := env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": "bogus"}, tenantToken)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)

	// Wrong account, even after expiry.
	require.NoError(t, env.DB.Model(&models.TenantInvitation{}).
		Where("id = ?", inviteID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	w = env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, intruderToken)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "EMAIL_MISMATCH", testutil.DecodeResponse(t, w).Error.Code)

	// Right account, but expired: 410 Gone.
	w = env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, tenantToken)
	require.Equal(t, http.StatusGone, w.Code)
	require.Equal(t, "INVITATION_EXPIRED", testutil.DecodeResponse(t, w).Error.Code)

	// No lease was created along the way.
	var leaseCount int64
	require.NoError(t, env.DB.Model(&models.Lease{}).Count(&leaseCount).Error)
	require.Zero(t, leaseCount)
}

func TestInvitationDeliveryFailureStillIssues(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	_, unit := env.SeedPropertyWithUnit(landlord.ID)

	env.Mailer.Err = errors.New("smtp: connection refused")

	w := env.Request(http.MethodPost, "/api/invitations", map[string]any{
		"unit_id":        unit.ID,
		"email":          "tenant@example.com",
		"rent_amount":    150000,
		"deposit_amount": 0,
		"start_date":     "2026-03-01",
		"end_date":       "2027-02-28",
	}, landlordToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	payload := testutil.DecodeResponse(t, w)
	var created struct {
		Token    string `json:"token"`
		Delivery struct {
			Sent bool `json:"sent"`
		} `json:"delivery"`
	}
	testutil.DecodeInto(t, payload.Data, &created)
	require.False(t, created.Delivery.Sent)
	require.NotEmpty(t, created.Token)

	// Resend works once delivery recovers.
	env.Mailer.Err = nil

	var invite models.TenantInvitation
	require.NoError(t, env.DB.First(&invite).Error)

	resend := env.Request(http.MethodPost, "/api/invitations/"+invite.ID+"/resend", nil, landlordToken)
	require.Equal(t, http.StatusOK, resend.Code, resend.Body.String())
	resendPayload := testutil.DecodeResponse(t, resend)
	var resent struct {
		Token    string `json:"token"`
		Delivery struct {
			Sent bool `json:"sent"`
		} `json:"delivery"`
	}
	testutil.DecodeInto(t, resendPayload.Data, &resent)
	require.True(t, resent.Delivery.Sent)
	require.NotEqual(t, created.Token, resent.Token)
}

func TestInvitationIssueAuthorization(t *testing.T) {
	env := testutil.NewEnv(t)

	_, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	otherToken, _ := env.Signup("other@example.com", "StrongPassw0rd!", "landlord")
	_, unit := env.SeedPropertyWithUnit(landlord.ID)

	w := env.Request(http.MethodPost, "/api/invitations", map[string]any{
		"unit_id":        unit.ID,
		"email":          "tenant@example.com",
		"rent_amount":    150000,
		"deposit_amount": 0,
		"start_date":     "2026-03-01",
		"end_date":       "2027-02-28",
	}, otherToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.TenantInvitation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestLeaseTerminationAndPropertyDeletion(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	tenantToken, _ := env.Signup("tenant@example.com", "StrongPassw0rd!", "tenant")
	property, unit := env.SeedPropertyWithUnit(landlord.ID)

	_, token, _ := issueInvitation(t, env, landlordToken, unit.ID, "tenant@example.com")
	redeem := env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, tenantToken)
	require.Equal(t, http.StatusOK, redeem.Code)

	// Tenant files a maintenance request.
	maint := env.Request(http.MethodPost, "/api/maintenance", map[string]string{
		"unit_id": unit.ID,
		"title":   "No hot water",
		"urgency": "urgent",
		"trade":   "plumbing",
	}, tenantToken)
	require.Equal(t, http.StatusCreated, maint.Code, maint.Body.String())
	var request models.MaintenanceRequest
	testutil.DecodeInto(t, testutil.DecodeResponse(t, maint).Data, &request)

	// Blocked by the active lease first.
	deletable := env.Request(http.MethodGet, "/api/properties/"+property.ID+"/deletable", nil, landlordToken)
	require.Equal(t, http.StatusOK, deletable.Code)
	var check struct {
		Deletable bool   `json:"deletable"`
		Reason    string `json:"reason"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, deletable).Data, &check)
	require.False(t, check.Deletable)
	require.Contains(t, check.Reason, "active tenants")

	// Delete refuses while blocked.
	blocked := env.Request(http.MethodDelete, "/api/properties/"+property.ID, nil, landlordToken)
	require.Equal(t, http.StatusConflict, blocked.Code)
	require.Equal(t, "PROPERTY_BLOCKED", testutil.DecodeResponse(t, blocked).Error.Code)

	// Terminate the lease.
	var lease models.Lease
	require.NoError(t, env.DB.First(&lease).Error)
	terminate := env.Request(http.MethodPost, "/api/leases/"+lease.ID+"/terminate", nil, landlordToken)
	require.Equal(t, http.StatusOK, terminate.Code)

	// Now blocked by the open maintenance request.
	deletable = env.Request(http.MethodGet, "/api/properties/"+property.ID+"/deletable", nil, landlordToken)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, deletable).Data, &check)
	require.False(t, check.Deletable)
	require.Contains(t, check.Reason, "maintenance")

	// Landlord resolves it.
	status := env.Request(http.MethodPost, "/api/maintenance/"+request.ID+"/status", map[string]string{"status": "resolved"}, landlordToken)
	require.Equal(t, http.StatusOK, status.Code, status.Body.String())

	deletable = env.Request(http.MethodGet, "/api/properties/"+property.ID+"/deletable", nil, landlordToken)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, deletable).Data, &check)
	require.True(t, check.Deletable)

	// Delete cascades.
	deleted := env.Request(http.MethodDelete, "/api/properties/"+property.ID, nil, landlordToken)
	require.Equal(t, http.StatusOK, deleted.Code, deleted.Body.String())

	for _, model := range []any{
		&models.Property{}, &models.Unit{}, &models.Lease{}, &models.MaintenanceRequest{},
	} {
		var count int64
		require.NoError(t, env.DB.Model(model).Count(&count).Error)
		require.Zero(t, count, "%T rows should be gone", model)
	}
}

func TestPropertyAndUnitEndpoints(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, _ := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")

	created := env.Request(http.MethodPost, "/api/properties", map[string]any{
		"address":  "34 Oak Ave",
		"nickname": "Oakhouse",
	}, landlordToken)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var property models.Property
	testutil.DecodeInto(t, testutil.DecodeResponse(t, created).Data, &property)

	unitResp := env.Request(http.MethodPost, "/api/properties/"+property.ID+"/units", map[string]any{
		"unit_number": "1A",
		"bedrooms":    1,
		"bathrooms":   1,
		"rent_amount": 95000,
	}, landlordToken)
	require.Equal(t, http.StatusCreated, unitResp.Code, unitResp.Body.String())

	list := env.Request(http.MethodGet, "/api/properties", nil, landlordToken)
	require.Equal(t, http.StatusOK, list.Code)
	var properties []models.Property
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &properties)
	require.Len(t, properties, 1)
	require.Len(t, properties[0].Units, 1)
	require.Equal(t, "1A", properties[0].Units[0].UnitNumber)

	missing := env.Request(http.MethodGet, "/api/properties/00000000-0000-0000-0000-000000000000/deletable", nil, landlordToken)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestMaintenanceList(t *testing.T) {
	env := testutil.NewEnv(t)

	landlordToken, landlord := env.Signup("landlord@example.com", "StrongPassw0rd!", "landlord")
	tenantToken, _ := env.Signup("tenant@example.com", "StrongPassw0rd!", "tenant")
	_, unit := env.SeedPropertyWithUnit(landlord.ID)

	_, token, _ := issueInvitation(t, env, landlordToken, unit.ID, "tenant@example.com")
	redeem := env.Request(http.MethodPost, "/api/invitations/redeem", map[string]string{"token": token}, tenantToken)
	require.Equal(t, http.StatusOK, redeem.Code)

	// Tenant without an active lease on another unit cannot file there.
	otherUnit := &models.Unit{PropertyID: unit.PropertyID, UnitNumber: "9Z"}
	require.NoError(t, env.DB.Create(otherUnit).Error)
	forbidden := env.Request(http.MethodPost, "/api/maintenance", map[string]string{
		"unit_id": otherUnit.ID,
		"title":   "Wrong unit",
	}, tenantToken)
	require.Equal(t, http.StatusForbidden, forbidden.Code)

	created := env.Request(http.MethodPost, "/api/maintenance", map[string]string{
		"unit_id": unit.ID,
		"title":   "Leaky faucet",
	}, tenantToken)
	require.Equal(t, http.StatusCreated, created.Code)

	// Both sides see the request in their listing.
	for _, token := range []string{landlordToken, tenantToken} {
		list := env.Request(http.MethodGet, "/api/maintenance", nil, token)
		require.Equal(t, http.StatusOK, list.Code)
		var requests []models.MaintenanceRequest
		testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &requests)
		require.Len(t, requests, 1)
		require.True(t, strings.Contains(requests[0].Title, "faucet"))
	}
}
