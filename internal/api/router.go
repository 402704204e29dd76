package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/app"
	iauth "github.com/tendly/tendly/internal/auth"
	"github.com/tendly/tendly/internal/handlers"
	"github.com/tendly/tendly/internal/middleware"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/internal/services"
	"github.com/tendly/tendly/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Services
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	invites, err := services.NewInvitationService(db, mailer,
		services.WithInviteExpiry(cfg.Invites.Expiry),
		services.WithInviteTokenSize(cfg.Invites.TokenLength),
		services.WithInviteLinkScheme(cfg.Invites.LinkScheme),
	)
	if err != nil {
		return nil, err
	}
	onboarding, err := services.NewOnboardingService(db)
	if err != nil {
		return nil, err
	}
	leases, err := services.NewLeaseService(db)
	if err != nil {
		return nil, err
	}
	properties, err := services.NewPropertyService(db)
	if err != nil {
		return nil, err
	}
	maintenance, err := services.NewMaintenanceService(db)
	if err != nil {
		return nil, err
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(users, jwt)
	invitationHandler := handlers.NewInvitationHandler(invites, onboarding)
	tenantHandler := handlers.NewTenantHandler(leases)
	propertyHandler := handlers.NewPropertyHandler(properties)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenance)

	// Public auth routes
	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)
	landlordOnly := middleware.RequireRole(models.RoleLandlord)
	tenantOnly := middleware.RequireRole(models.RoleTenant)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	invitations := api.Group("/invitations")
	{
		invitations.POST("", landlordOnly, invitationHandler.Create)
		invitations.GET("", landlordOnly, invitationHandler.List)
		invitations.POST("/:id/resend", landlordOnly, invitationHandler.Resend)
		invitations.POST("/redeem", tenantOnly, invitationHandler.Redeem)
	}

	api.GET("/tenants", landlordOnly, tenantHandler.ListActive)
	api.POST("/leases/:id/terminate", landlordOnly, tenantHandler.Terminate)

	props := api.Group("/properties", landlordOnly)
	{
		props.GET("", propertyHandler.List)
		props.POST("", propertyHandler.Create)
		props.POST("/:id/units", propertyHandler.AddUnit)
		props.GET("/:id/deletable", propertyHandler.Deletable)
		props.DELETE("/:id", propertyHandler.Delete)
	}

	maint := api.Group("/maintenance")
	{
		maint.POST("", tenantOnly, maintenanceHandler.Create)
		maint.GET("", maintenanceHandler.List)
		maint.POST("/:id/status", landlordOnly, maintenanceHandler.SetStatus)
	}

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
