package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tendly/tendly/internal/auth"
	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/pkg/logger"
)

var (
	// ErrEmailMismatch indicates the caller's address does not match the invitation.
	ErrEmailMismatch = errors.New("onboarding: invitation addressed to a different email")
	// ErrUnitOccupied indicates another tenant already holds an active lease on the unit.
	ErrUnitOccupied = errors.New("onboarding: unit already has an active lease")
)

// OnboardingOption customises OnboardingService behaviour.
type OnboardingOption func(*OnboardingService)

// WithOnboardingClock injects a custom clock primarily for testing.
func WithOnboardingClock(clock func() time.Time) OnboardingOption {
	return func(s *OnboardingService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OnboardingService turns a valid invitation token into a tenancy: it marks
// the invitation accepted and provisions the lease, the first rent payment,
// and a tenant profile stub in a single transaction. Two concurrent
// redemptions of one token cannot both create a lease: the accepted flip is a
// conditional update and losing the race aborts the transaction.
type OnboardingService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOnboardingService constructs an OnboardingService.
func NewOnboardingService(db *gorm.DB, opts ...OnboardingOption) (*OnboardingService, error) {
	if db == nil {
		return nil, errors.New("onboarding service: db is required")
	}

	service := &OnboardingService{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RedemptionResult is the joined view returned to a freshly onboarded tenant.
type RedemptionResult struct {
	Invitation *models.TenantInvitation `json:"invitation"`
	Lease      *models.Lease            `json:"lease"`
	Unit       *models.Unit             `json:"unit"`
	Property   *models.Property         `json:"property"`
}

// Redeem validates the token against the caller and provisions the tenancy.
//
// The email comparison runs before the expiry check so that the wrong account
// always learns "this is not for you" rather than "too late". A retry after a
// timeout is safe: an existing active lease for the same unit and tenant
// short-circuits to success with that lease, because marking the invitation
// accepted is the last durable signal and may not have landed.
func (s *OnboardingService) Redeem(ctx context.Context, rawToken string, caller auth.Identity) (*RedemptionResult, error) {
	invite, err := s.findByToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if caller.Email != invite.Email {
		return nil, ErrEmailMismatch
	}

	if existing, err := s.existingActiveLease(ctx, invite.UnitID, caller.UserID); err != nil {
		return nil, err
	} else if existing != nil {
		// Redemption already completed; the accepted flip may have been lost
		// to a crash, so settle it best effort and report success.
		if err := s.markAccepted(ctx, s.db, invite.ID); err != nil && !errors.Is(err, ErrInvitationUnusable) {
			logger.WithModule("onboarding").Warn("settle invitation status",
				zap.String("invitation_id", invite.ID),
				zap.Error(err))
		}
		invite.Status = models.InvitationStatusAccepted
		return s.buildResult(ctx, invite, existing)
	}

	now := s.now()
	if invite.Status != models.InvitationStatusPending || !invite.ExpiresAt.After(now) {
		logger.WithModule("onboarding").Info("rejected unusable invitation",
			zap.String("invitation_id", invite.ID),
			zap.String("status", invite.Status),
			zap.Time("expires_at", invite.ExpiresAt))
		return nil, ErrInvitationUnusable
	}

	var lease *models.Lease
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.markAccepted(ctx, tx, invite.ID); err != nil {
			return err
		}

		var occupied int64
		if err := tx.Model(&models.Lease{}).
			Where("unit_id = ? AND status = ?", invite.UnitID, models.LeaseStatusActive).
			Count(&occupied).Error; err != nil {
			return fmt.Errorf("count active leases: %w", err)
		}
		if occupied > 0 {
			return ErrUnitOccupied
		}

		lease = &models.Lease{
			UnitID:        invite.UnitID,
			TenantID:      caller.UserID,
			StartDate:     invite.StartDate,
			EndDate:       invite.EndDate,
			RentAmount:    invite.RentAmount,
			DepositAmount: invite.DepositAmount,
			Status:        models.LeaseStatusActive,
		}
		if err := tx.Create(lease).Error; err != nil {
			return fmt.Errorf("create lease: %w", err)
		}

		firstPayment := &models.RentPayment{
			LeaseID: lease.ID,
			Amount:  invite.RentAmount,
			DueDate: invite.StartDate,
			Status:  models.PaymentStatusPending,
		}
		if err := tx.Create(firstPayment).Error; err != nil {
			return fmt.Errorf("create first rent payment: %w", err)
		}

		profile := &models.TenantProfile{UserID: caller.UserID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(profile).Error; err != nil {
			return fmt.Errorf("create tenant profile: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvitationUnusable) || errors.Is(err, ErrUnitOccupied) {
			return nil, err
		}
		return nil, fmt.Errorf("onboarding service: redeem: %w", err)
	}

	invite.Status = models.InvitationStatusAccepted

	logger.WithModule("onboarding").Info("invitation redeemed",
		zap.String("invitation_id", invite.ID),
		zap.String("lease_id", lease.ID),
		zap.String("unit_id", invite.UnitID),
		zap.String("tenant_id", caller.UserID))

	return s.buildResult(ctx, invite, lease)
}

func (s *OnboardingService) findByToken(ctx context.Context, rawToken string) (*models.TenantInvitation, error) {
	if rawToken == "" {
		return nil, ErrInvitationNotFound
	}

	var invite models.TenantInvitation
	if err := s.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash(rawToken)).
		First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("onboarding service: find invitation: %w", err)
	}
	return &invite, nil
}

// markAccepted flips pending to accepted. The WHERE clause guards against a
// concurrent redemption: zero rows means someone else got there first.
func (s *OnboardingService) markAccepted(ctx context.Context, tx *gorm.DB, inviteID string) error {
	result := tx.WithContext(ctx).
		Model(&models.TenantInvitation{}).
		Where("id = ? AND status = ?", inviteID, models.InvitationStatusPending).
		Update("status", models.InvitationStatusAccepted)
	if result.Error != nil {
		return fmt.Errorf("mark invitation accepted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationUnusable
	}
	return nil
}

func (s *OnboardingService) existingActiveLease(ctx context.Context, unitID, tenantID string) (*models.Lease, error) {
	var lease models.Lease
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND tenant_id = ? AND status = ?", unitID, tenantID, models.LeaseStatusActive).
		First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("onboarding service: look up existing lease: %w", err)
	}
	return &lease, nil
}

func (s *OnboardingService) buildResult(ctx context.Context, invite *models.TenantInvitation, lease *models.Lease) (*RedemptionResult, error) {
	var unit models.Unit
	if err := s.db.WithContext(ctx).
		Preload("Property").
		Where("id = ?", lease.UnitID).
		First(&unit).Error; err != nil {
		return nil, fmt.Errorf("onboarding service: load unit: %w", err)
	}

	result := &RedemptionResult{
		Invitation: invite,
		Lease:      lease,
		Unit:       &unit,
		Property:   unit.Property,
	}
	result.Unit.Property = nil
	return result, nil
}
