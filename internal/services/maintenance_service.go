package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/models"
)

var (
	// ErrInvalidMaintenance indicates the request input failed validation.
	ErrInvalidMaintenance = errors.New("maintenance: invalid input")
	// ErrMaintenanceNotFound indicates no request matches the provided ID.
	ErrMaintenanceNotFound = errors.New("maintenance: not found")
	// ErrNoActiveLease indicates the tenant holds no active lease on the unit.
	ErrNoActiveLease = errors.New("maintenance: no active lease on unit")
	// ErrInvalidStatusChange indicates the requested transition is not allowed.
	ErrInvalidStatusChange = errors.New("maintenance: invalid status change")
)

// Requests only move forward: open to assigned or resolved, assigned to
// resolved. Resolved is terminal.
var maintenanceTransitions = map[string][]string{
	models.MaintenanceStatusOpen:     {models.MaintenanceStatusAssigned, models.MaintenanceStatusResolved},
	models.MaintenanceStatusAssigned: {models.MaintenanceStatusResolved},
	models.MaintenanceStatusResolved: {},
}

// MaintenanceService records tenant-reported issues and their resolution.
// Open and assigned requests count as blocking dependents for property
// deletion.
type MaintenanceService struct {
	db *gorm.DB
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(db *gorm.DB) (*MaintenanceService, error) {
	if db == nil {
		return nil, errors.New("maintenance service: db is required")
	}
	return &MaintenanceService{db: db}, nil
}

// CreateMaintenanceInput carries the fields a tenant submits for a new request.
type CreateMaintenanceInput struct {
	UnitID      string
	Title       string
	Description string
	Urgency     string
	Trade       string
}

func (in CreateMaintenanceInput) validate() error {
	if strings.TrimSpace(in.UnitID) == "" {
		return fmt.Errorf("%w: unit id is required", ErrInvalidMaintenance)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidMaintenance)
	}
	switch in.Urgency {
	case "", models.MaintenanceUrgencyEmergency, models.MaintenanceUrgencyUrgent, models.MaintenanceUrgencyRoutine:
	default:
		return fmt.Errorf("%w: unknown urgency %q", ErrInvalidMaintenance, in.Urgency)
	}
	switch in.Trade {
	case "", models.MaintenanceTradePlumbing, models.MaintenanceTradeElectrical,
		models.MaintenanceTradeHVAC, models.MaintenanceTradeGeneral:
	default:
		return fmt.Errorf("%w: unknown trade %q", ErrInvalidMaintenance, in.Trade)
	}
	return nil
}

// Create files a request against a unit the tenant actively leases.
func (s *MaintenanceService) Create(ctx context.Context, tenantID string, input CreateMaintenanceInput) (*models.MaintenanceRequest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var held int64
	if err := s.db.WithContext(ctx).
		Model(&models.Lease{}).
		Where("unit_id = ? AND tenant_id = ? AND status = ?", input.UnitID, tenantID, models.LeaseStatusActive).
		Count(&held).Error; err != nil {
		return nil, fmt.Errorf("maintenance service: check lease: %w", err)
	}
	if held == 0 {
		return nil, ErrNoActiveLease
	}

	request := &models.MaintenanceRequest{
		UnitID:      input.UnitID,
		TenantID:    tenantID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Urgency:     input.Urgency,
		Trade:       input.Trade,
		Status:      models.MaintenanceStatusOpen,
	}
	if request.Urgency == "" {
		request.Urgency = models.MaintenanceUrgencyRoutine
	}
	if request.Trade == "" {
		request.Trade = models.MaintenanceTradeGeneral
	}

	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("maintenance service: create: %w", err)
	}
	return request, nil
}

// ListForLandlord returns requests across all of the landlord's units,
// newest first.
func (s *MaintenanceService) ListForLandlord(ctx context.Context, landlordID string) ([]models.MaintenanceRequest, error) {
	var requests []models.MaintenanceRequest
	err := s.db.WithContext(ctx).
		Joins("JOIN units ON units.id = maintenance_requests.unit_id").
		Joins("JOIN properties ON properties.id = units.property_id").
		Where("properties.landlord_id = ?", landlordID).
		Preload("Unit").
		Preload("Tenant").
		Order("maintenance_requests.created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("maintenance service: list for landlord: %w", err)
	}
	return requests, nil
}

// ListForTenant returns the tenant's own requests, newest first.
func (s *MaintenanceService) ListForTenant(ctx context.Context, tenantID string) ([]models.MaintenanceRequest, error) {
	var requests []models.MaintenanceRequest
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Preload("Unit").
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("maintenance service: list for tenant: %w", err)
	}
	return requests, nil
}

// SetStatus advances a request's status on behalf of the owning landlord.
func (s *MaintenanceService) SetStatus(ctx context.Context, landlordID, requestID, status string) (*models.MaintenanceRequest, error) {
	var request models.MaintenanceRequest
	if err := s.db.WithContext(ctx).
		Preload("Unit.Property").
		Where("id = ?", requestID).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaintenanceNotFound
		}
		return nil, fmt.Errorf("maintenance service: find request: %w", err)
	}

	if request.Unit == nil || request.Unit.Property == nil || request.Unit.Property.LandlordID != landlordID {
		return nil, ErrNotPropertyOwner
	}

	allowed, known := maintenanceTransitions[request.Status]
	if !known {
		return nil, fmt.Errorf("%w: request is in unknown status %q", ErrInvalidStatusChange, request.Status)
	}
	permitted := false
	for _, next := range allowed {
		if next == status {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusChange, request.Status, status)
	}

	if err := s.db.WithContext(ctx).
		Model(&request).
		Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("maintenance service: set status: %w", err)
	}
	request.Status = status
	return &request, nil
}
