package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/pkg/logger"
)

// ErrLeaseNotFound indicates no lease matches the provided ID.
var ErrLeaseNotFound = errors.New("leases: not found")

// LeaseService owns lease state transitions. Leases are created by invitation
// redemption; from there the only transitions are active to expired (time) and
// active to terminated (landlord action, final).
type LeaseService struct {
	db *gorm.DB
}

// NewLeaseService constructs a LeaseService.
func NewLeaseService(db *gorm.DB) (*LeaseService, error) {
	if db == nil {
		return nil, errors.New("lease service: db is required")
	}
	return &LeaseService{db: db}, nil
}

// Terminate marks a lease terminated after walking lease -> unit -> property
// to confirm the caller is the owning landlord. There is no un-terminate.
func (s *LeaseService) Terminate(ctx context.Context, leaseID, callerID string) (*models.Lease, error) {
	var lease models.Lease
	if err := s.db.WithContext(ctx).
		Preload("Unit.Property").
		Where("id = ?", leaseID).
		First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaseNotFound
		}
		return nil, fmt.Errorf("lease service: find lease: %w", err)
	}

	if lease.Unit == nil || lease.Unit.Property == nil || lease.Unit.Property.LandlordID != callerID {
		return nil, ErrNotPropertyOwner
	}

	if lease.Status != models.LeaseStatusTerminated {
		if err := s.db.WithContext(ctx).
			Model(&lease).
			Update("status", models.LeaseStatusTerminated).Error; err != nil {
			return nil, fmt.Errorf("lease service: terminate: %w", err)
		}
		lease.Status = models.LeaseStatusTerminated

		logger.WithModule("leases").Info("lease terminated",
			zap.String("lease_id", lease.ID),
			zap.String("unit_id", lease.UnitID),
			zap.String("landlord_id", callerID))
	}

	return &lease, nil
}

// ActiveForUnit returns the unit's active lease, or nil when the unit is vacant.
func (s *LeaseService) ActiveForUnit(ctx context.Context, unitID string) (*models.Lease, error) {
	var lease models.Lease
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive).
		First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease service: active for unit: %w", err)
	}
	return &lease, nil
}

// ListActive returns the landlord's active leases joined with tenant,
// profile, unit, and property, payments newest first. This backs the
// "tenants" screen, so everything that screen renders is preloaded here.
func (s *LeaseService) ListActive(ctx context.Context, landlordID string) ([]models.Lease, error) {
	var leases []models.Lease
	err := s.db.WithContext(ctx).
		Joins("JOIN units ON units.id = leases.unit_id").
		Joins("JOIN properties ON properties.id = units.property_id").
		Where("properties.landlord_id = ? AND leases.status = ?", landlordID, models.LeaseStatusActive).
		Preload("Tenant").
		Preload("Tenant.Profile").
		Preload("Unit").
		Preload("Unit.Property").
		Preload("RentPayments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("due_date DESC")
		}).
		Order("leases.created_at DESC").
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("lease service: list active: %w", err)
	}
	return leases, nil
}

// ExpireEnded moves active leases whose end date has passed to expired.
// Run from the maintenance sweeper.
func (s *LeaseService) ExpireEnded(ctx context.Context, today time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Lease{}).
		Where("status = ? AND end_date < ?", models.LeaseStatusActive, today).
		Update("status", models.LeaseStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("lease service: expire ended: %w", result.Error)
	}
	return result.RowsAffected, nil
}
