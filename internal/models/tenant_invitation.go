package models

import "time"

// Invitation statuses. The only application-driven transition is
// pending -> accepted; the maintenance sweeper moves stale rows to expired.
// Redemption checks the expiry timestamp as well, so a pending-but-stale
// row is never redeemable.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusExpired  = "expired"
)

// TenantInvitation is an offer to a prospective tenant to self-provision a
// lease on a unit. The raw token is a bearer credential handed to the tenant;
// only its SHA-256 hash is stored. Rows are never deleted; accepted and
// expired invitations remain as an audit trail.
type TenantInvitation struct {
	BaseModel

	LandlordID    string    `gorm:"type:uuid;not null;index" json:"landlord_id"`
	UnitID        string    `gorm:"type:uuid;not null;index" json:"unit_id"`
	Email         string    `gorm:"not null;index" json:"email"`
	TokenHash     string    `gorm:"uniqueIndex;not null" json:"-"`
	RentAmount    int64     `gorm:"not null" json:"rent_amount"`
	DepositAmount int64     `gorm:"not null;default:0" json:"deposit_amount"`
	StartDate     time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time `gorm:"type:date;not null" json:"end_date"`
	Status        string    `gorm:"not null;default:pending;index" json:"status"`
	ExpiresAt     time.Time `gorm:"index" json:"expires_at"`

	Unit *Unit `json:"unit,omitempty"`
}
