package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/pkg/logger"
)

// Blocking reasons reported by CheckDeletable, surfaced verbatim to clients.
const (
	blockedByActiveTenants = "This property has active tenants. End all leases before deleting."
	blockedByMaintenance   = "This property has open maintenance requests. Resolve them first."
)

var (
	// ErrInvalidProperty indicates property or unit input failed validation.
	ErrInvalidProperty = errors.New("properties: invalid input")
	// ErrPropertyNotFound indicates no property matches the provided ID.
	ErrPropertyNotFound = errors.New("properties: not found")
	// ErrPropertyBlocked indicates deletion was refused because blocking
	// dependents still exist.
	ErrPropertyBlocked = errors.New("properties: blocking dependents exist")
)

// PropertyBlockedError carries the human-readable reason deletion was refused.
// It matches ErrPropertyBlocked under errors.Is.
type PropertyBlockedError struct {
	Reason string
}

func (e *PropertyBlockedError) Error() string {
	return "properties: blocked: " + e.Reason
}

func (e *PropertyBlockedError) Is(target error) bool {
	return target == ErrPropertyBlocked
}

// PropertyService manages properties and their units, and guards property
// deletion behind a dependent check.
type PropertyService struct {
	db *gorm.DB
}

// NewPropertyService constructs a PropertyService.
func NewPropertyService(db *gorm.DB) (*PropertyService, error) {
	if db == nil {
		return nil, errors.New("property service: db is required")
	}
	return &PropertyService{db: db}, nil
}

// CreatePropertyInput carries the fields for a new property. Monetary values
// are integer cents.
type CreatePropertyInput struct {
	Address   string
	Nickname  *string
	Mortgage  *int64
	Insurance *int64
	TaxAnnual *int64
}

// Create persists a property owned by the landlord.
func (s *PropertyService) Create(ctx context.Context, landlordID string, input CreatePropertyInput) (*models.Property, error) {
	if strings.TrimSpace(input.Address) == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidProperty)
	}

	property := &models.Property{
		LandlordID: landlordID,
		Address:    strings.TrimSpace(input.Address),
		Nickname:   input.Nickname,
		Mortgage:   input.Mortgage,
		Insurance:  input.Insurance,
		TaxAnnual:  input.TaxAnnual,
	}
	if err := s.db.WithContext(ctx).Create(property).Error; err != nil {
		return nil, fmt.Errorf("property service: create: %w", err)
	}
	return property, nil
}

// AddUnitInput carries the fields for a new unit.
type AddUnitInput struct {
	UnitNumber string
	Bedrooms   int
	Bathrooms  float64
	RentAmount int64
}

// AddUnit creates a unit under a property the landlord owns.
func (s *PropertyService) AddUnit(ctx context.Context, landlordID, propertyID string, input AddUnitInput) (*models.Unit, error) {
	if strings.TrimSpace(input.UnitNumber) == "" {
		return nil, fmt.Errorf("%w: unit number is required", ErrInvalidProperty)
	}
	if input.RentAmount < 0 {
		return nil, fmt.Errorf("%w: rent amount must not be negative", ErrInvalidProperty)
	}

	if _, err := s.findOwned(ctx, s.db, landlordID, propertyID); err != nil {
		return nil, err
	}

	unit := &models.Unit{
		PropertyID: propertyID,
		UnitNumber: strings.TrimSpace(input.UnitNumber),
		Bedrooms:   input.Bedrooms,
		Bathrooms:  input.Bathrooms,
		RentAmount: input.RentAmount,
	}
	if err := s.db.WithContext(ctx).Create(unit).Error; err != nil {
		return nil, fmt.Errorf("property service: add unit: %w", err)
	}
	return unit, nil
}

// List returns the landlord's properties with their units, newest first.
func (s *PropertyService) List(ctx context.Context, landlordID string) ([]models.Property, error) {
	var properties []models.Property
	if err := s.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Preload("Units").
		Order("created_at DESC").
		Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("property service: list: %w", err)
	}
	return properties, nil
}

// CheckDeletable reports whether the property can be removed. An empty reason
// means deletable; otherwise the reason names the blocking dependents. Active
// leases are checked before maintenance so the tenant-facing obstacle is
// reported first.
func (s *PropertyService) CheckDeletable(ctx context.Context, landlordID, propertyID string) (string, error) {
	if _, err := s.findOwned(ctx, s.db, landlordID, propertyID); err != nil {
		return "", err
	}
	return s.blockingReason(ctx, s.db, propertyID)
}

// Delete removes the property and everything under it. The dependent check is
// re-run inside the delete transaction so a lease or request created after a
// deletable poll still blocks the cascade.
func (s *PropertyService) Delete(ctx context.Context, landlordID, propertyID string) error {
	if _, err := s.findOwned(ctx, s.db, landlordID, propertyID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reason, err := s.blockingReason(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		if reason != "" {
			return &PropertyBlockedError{Reason: reason}
		}

		// Fresh subqueries per statement; reusing a chained *gorm.DB across
		// statements accumulates conditions.
		unitIDs := func() *gorm.DB {
			return tx.Model(&models.Unit{}).Select("id").Where("property_id = ?", propertyID)
		}
		leaseIDs := func() *gorm.DB {
			return tx.Model(&models.Lease{}).Select("id").Where("unit_id IN (?)", unitIDs())
		}

		if err := tx.Where("unit_id IN (?)", unitIDs()).
			Delete(&models.MaintenanceRequest{}).Error; err != nil {
			return fmt.Errorf("delete maintenance requests: %w", err)
		}
		if err := tx.Where("lease_id IN (?)", leaseIDs()).
			Delete(&models.RentPayment{}).Error; err != nil {
			return fmt.Errorf("delete rent payments: %w", err)
		}
		if err := tx.Where("unit_id IN (?)", unitIDs()).
			Delete(&models.Lease{}).Error; err != nil {
			return fmt.Errorf("delete leases: %w", err)
		}
		if err := tx.Where("unit_id IN (?)", unitIDs()).
			Delete(&models.TenantInvitation{}).Error; err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		if err := tx.Where("property_id = ?", propertyID).
			Delete(&models.Unit{}).Error; err != nil {
			return fmt.Errorf("delete units: %w", err)
		}
		if err := tx.Where("id = ?", propertyID).
			Delete(&models.Property{}).Error; err != nil {
			return fmt.Errorf("delete property: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPropertyBlocked) {
			return err
		}
		return fmt.Errorf("property service: delete: %w", err)
	}

	logger.WithModule("properties").Info("property deleted",
		zap.String("property_id", propertyID),
		zap.String("landlord_id", landlordID))
	return nil
}

func (s *PropertyService) findOwned(ctx context.Context, tx *gorm.DB, landlordID, propertyID string) (*models.Property, error) {
	var property models.Property
	if err := tx.WithContext(ctx).
		Where("id = ?", propertyID).
		First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("property service: find property: %w", err)
	}

	if property.LandlordID != landlordID {
		return nil, ErrNotPropertyOwner
	}
	return &property, nil
}

func (s *PropertyService) blockingReason(ctx context.Context, tx *gorm.DB, propertyID string) (string, error) {
	unitIDs := func() *gorm.DB {
		return tx.Model(&models.Unit{}).Select("id").Where("property_id = ?", propertyID)
	}

	var activeLeases int64
	if err := tx.WithContext(ctx).
		Model(&models.Lease{}).
		Where("unit_id IN (?) AND status = ?", unitIDs(), models.LeaseStatusActive).
		Count(&activeLeases).Error; err != nil {
		return "", fmt.Errorf("property service: count active leases: %w", err)
	}
	if activeLeases > 0 {
		return blockedByActiveTenants, nil
	}

	var openRequests int64
	if err := tx.WithContext(ctx).
		Model(&models.MaintenanceRequest{}).
		Where("unit_id IN (?) AND status IN ?", unitIDs(),
			[]string{models.MaintenanceStatusOpen, models.MaintenanceStatusAssigned}).
		Count(&openRequests).Error; err != nil {
		return "", fmt.Errorf("property service: count open maintenance: %w", err)
	}
	if openRequests > 0 {
		return blockedByMaintenance, nil
	}

	return "", nil
}
