package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/models"
	"github.com/tendly/tendly/pkg/crypto"
	pkgmail "github.com/tendly/tendly/pkg/mail"
)

const (
	defaultInviteExpiry      = 7 * 24 * time.Hour
	defaultInviteTokenBytes  = 32
	defaultInviteLinkScheme  = "tendly://invite"
	inviteTokenCreateRetries = 2
)

var (
	// ErrInvalidInvitation indicates the issuance input failed validation.
	ErrInvalidInvitation = errors.New("invitations: invalid input")
	// ErrUnitNotFound indicates the target unit does not exist.
	ErrUnitNotFound = errors.New("invitations: unit not found")
	// ErrNotUnitOwner indicates the caller does not own the unit's property.
	ErrNotUnitOwner = errors.New("invitations: caller does not own unit")
	// ErrInvitationNotFound indicates no invitation matches the provided token or ID.
	ErrInvitationNotFound = errors.New("invitations: not found")
	// ErrInvitationUnusable signals the invitation is consumed or stale.
	ErrInvitationUnusable = errors.New("invitations: expired or already used")
	// ErrDeliveryFailed reports that the invitation persisted but the email did not go out.
	ErrDeliveryFailed = errors.New("invitations: email delivery failed")
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInviteExpiry overrides the invitation token lifetime.
func WithInviteExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InvitationOption {
	return func(s *InvitationService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteLinkScheme configures the deep-link prefix embedded in invitation emails.
func WithInviteLinkScheme(scheme string) InvitationOption {
	return func(s *InvitationService) {
		if strings.TrimSpace(scheme) != "" {
			s.linkScheme = strings.TrimRight(scheme, "/")
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService issues, lists, and expires tenant invitations. Issuance
// performs the ownership check before any write: only the landlord owning the
// unit's property may invite a tenant to it.
type InvitationService struct {
	db          *gorm.DB
	mailer      pkgmail.Mailer
	expiry      time.Duration
	tokenLength int
	linkScheme  string
	now         func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, mailer pkgmail.Mailer, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}

	service := &InvitationService{
		db:          db,
		mailer:      mailer,
		expiry:      defaultInviteExpiry,
		tokenLength: defaultInviteTokenBytes,
		linkScheme:  defaultInviteLinkScheme,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueInvitationInput carries everything needed to create one invitation.
// Amounts are integer cents; dates are date-only values in UTC.
type IssueInvitationInput struct {
	LandlordID    string
	UnitID        string
	Email         string
	RentAmount    int64
	DepositAmount int64
	StartDate     time.Time
	EndDate       time.Time
}

func (in IssueInvitationInput) validate() error {
	if strings.TrimSpace(in.UnitID) == "" {
		return fmt.Errorf("%w: unit id is required", ErrInvalidInvitation)
	}
	if in.RentAmount < 0 {
		return fmt.Errorf("%w: rent amount must not be negative", ErrInvalidInvitation)
	}
	if in.DepositAmount < 0 {
		return fmt.Errorf("%w: deposit amount must not be negative", ErrInvalidInvitation)
	}
	if !in.EndDate.After(in.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidInvitation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInvitation)
	}
	return nil
}

// Issue verifies unit ownership, persists a pending invitation, and attempts
// email delivery. Delivery failure does not roll back the invitation: the
// persisted record and raw token are returned together with ErrDeliveryFailed
// so the caller can resend the link.
func (s *InvitationService) Issue(ctx context.Context, input IssueInvitationInput) (*models.TenantInvitation, string, string, error) {
	if err := input.validate(); err != nil {
		return nil, "", "", err
	}

	if err := s.assertOwnsUnit(ctx, input.LandlordID, input.UnitID); err != nil {
		return nil, "", "", err
	}

	now := s.now()

	var (
		invite   *models.TenantInvitation
		rawToken string
	)
	for attempt := 0; attempt <= inviteTokenCreateRetries; attempt++ {
		token, err := crypto.GenerateToken(s.tokenLength)
		if err != nil {
			return nil, "", "", fmt.Errorf("invitation service: generate token: %w", err)
		}

		candidate := models.TenantInvitation{
			LandlordID:    input.LandlordID,
			UnitID:        input.UnitID,
			Email:         input.Email,
			TokenHash:     tokenHash(token),
			RentAmount:    input.RentAmount,
			DepositAmount: input.DepositAmount,
			StartDate:     input.StartDate,
			EndDate:       input.EndDate,
			Status:        models.InvitationStatusPending,
			ExpiresAt:     now.Add(s.expiry),
		}

		if err := s.db.WithContext(ctx).Create(&candidate).Error; err != nil {
			// Token hash collisions are vanishingly rare; retry with a fresh token.
			if isUniqueConstraintError(err) && attempt < inviteTokenCreateRetries {
				continue
			}
			return nil, "", "", fmt.Errorf("invitation service: create invitation: %w", err)
		}

		invite = &candidate
		rawToken = token
		break
	}

	if invite == nil {
		return nil, "", "", errors.New("invitation service: could not allocate a unique token")
	}

	link := s.inviteLink(rawToken)

	if s.mailer != nil {
		message := pkgmail.Message{
			To:      []string{input.Email},
			Subject: "You're invited to Tendly",
			Body:    inviteBody(link),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, pkgmail.ErrSMTPDisabled) {
			return invite, rawToken, link, fmt.Errorf("%w: %v", ErrDeliveryFailed, mailErr)
		}
	}

	return invite, rawToken, link, nil
}

// List returns the landlord's invitations, optionally filtered by status,
// newest first.
func (s *InvitationService) List(ctx context.Context, landlordID, status string) ([]models.TenantInvitation, error) {
	query := s.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at DESC")

	if status = strings.TrimSpace(status); status != "" {
		query = query.Where("status = ?", status)
	}

	var invites []models.TenantInvitation
	if err := query.Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list: %w", err)
	}
	return invites, nil
}

// Resend rotates the token and expiry of a pending invitation and re-sends
// the email. Only the raw token's hash is stored, so resending always mints a
// fresh credential.
func (s *InvitationService) Resend(ctx context.Context, landlordID, inviteID string) (*models.TenantInvitation, string, string, error) {
	var invite models.TenantInvitation
	if err := s.db.WithContext(ctx).
		Where("id = ? AND landlord_id = ?", inviteID, landlordID).
		First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvitationNotFound
		}
		return nil, "", "", fmt.Errorf("invitation service: find invitation: %w", err)
	}

	if invite.Status != models.InvitationStatusPending {
		return nil, "", "", ErrInvitationUnusable
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, "", "", fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	updates := map[string]any{
		"token_hash": tokenHash(token),
		"expires_at": now.Add(s.expiry),
	}
	if err := s.db.WithContext(ctx).Model(&invite).Updates(updates).Error; err != nil {
		return nil, "", "", fmt.Errorf("invitation service: rotate token: %w", err)
	}
	invite.TokenHash = updates["token_hash"].(string)
	invite.ExpiresAt = updates["expires_at"].(time.Time)

	link := s.inviteLink(token)

	if s.mailer != nil {
		message := pkgmail.Message{
			To:      []string{invite.Email},
			Subject: "You're invited to Tendly",
			Body:    inviteBody(link),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, pkgmail.ErrSMTPDisabled) {
			return &invite, token, link, fmt.Errorf("%w: %v", ErrDeliveryFailed, mailErr)
		}
	}

	return &invite, token, link, nil
}

// FindByToken resolves an invitation from its raw bearer token.
func (s *InvitationService) FindByToken(ctx context.Context, token string) (*models.TenantInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationNotFound
	}

	var invite models.TenantInvitation
	if err := s.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash(token)).
		First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("invitation service: find by token: %w", err)
	}
	return &invite, nil
}

// ExpireOverdue moves pending invitations whose expiry timestamp has passed
// to the expired status. Redemption also checks the timestamp directly, so
// this sweep is bookkeeping, not a correctness requirement.
func (s *InvitationService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.TenantInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationStatusPending, now).
		Update("status", models.InvitationStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: expire overdue: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// assertOwnsUnit resolves the unit's parent property and compares its
// landlord to the caller. A missing unit is reported distinctly from an
// ownership failure so callers can tell a bad id from someone else's unit.
func (s *InvitationService) assertOwnsUnit(ctx context.Context, landlordID, unitID string) error {
	var unit models.Unit
	if err := s.db.WithContext(ctx).
		Preload("Property").
		Where("id = ?", unitID).
		First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		return fmt.Errorf("invitation service: find unit: %w", err)
	}

	if unit.Property == nil || unit.Property.LandlordID != landlordID {
		return ErrNotUnitOwner
	}
	return nil
}

func (s *InvitationService) inviteLink(token string) string {
	return fmt.Sprintf("%s?token=%s", s.linkScheme, url.QueryEscape(token))
}

func inviteBody(link string) string {
	return fmt.Sprintf("Hello,\n\nYour landlord has invited you to manage your tenancy in Tendly. Open the link below to accept the invitation and set up your lease:\n%s\n\nIf you did not expect this email, you can ignore it.\n", link)
}

func tokenHash(token string) string {
	checksum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(checksum[:])
}
