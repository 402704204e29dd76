package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/api"
	"github.com/tendly/tendly/internal/app"
	iauth "github.com/tendly/tendly/internal/auth"
	sharedtestutil "github.com/tendly/tendly/internal/database/testutil"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/pkg/mail"
	"github.com/tendly/tendly/pkg/response"
)

// RecordingMailer captures outbound messages instead of delivering them.
type RecordingMailer struct {
	Sent []mail.Message
	Err  error
}

// Send records the message, or fails with the configured error.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Mailer *RecordingMailer
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Invites: app.InviteConfig{
			Expiry:      7 * 24 * time.Hour,
			TokenLength: 32,
			LinkScheme:  "tendly://invite",
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	mailer := &RecordingMailer{}
	router, err := api.NewRouter(db, jwtSvc, cfg, mailer)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Mailer: mailer,
	}
}

// Signup registers an account through the API and returns the issued token
// and user payload.
func (e *Env) Signup(email, password, role string) (string, UserPayload) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":     email,
		"password":  password,
		"full_name": "Test User",
		"role":      role,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result.Token, result.User
}

// SeedPropertyWithUnit creates a property and unit owned by the landlord
// directly in the database.
func (e *Env) SeedPropertyWithUnit(landlordID string) (*models.Property, *models.Unit) {
	e.T.Helper()

	property := &models.Property{LandlordID: landlordID, Address: "12 Main St"}
	require.NoError(e.T, e.DB.Create(property).Error)

	unit := &models.Unit{
		PropertyID: property.ID,
		UnitNumber: "2B",
		Bedrooms:   2,
		Bathrooms:  1,
		RentAmount: 150000,
	}
	require.NoError(e.T, e.DB.Create(unit).Error)
	return property, unit
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// AuthResult bundles the JSON response from signup and login.
type AuthResult struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
