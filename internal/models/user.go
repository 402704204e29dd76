package models

// Roles a user can hold. A landlord owns properties; a tenant holds leases.
const (
	RoleLandlord = "landlord"
	RoleTenant   = "tenant"
)

// User describes an authenticated account, landlord or tenant.
type User struct {
	BaseModel

	// Email is stored exactly as supplied; invitation redemption compares it
	// byte for byte against the invitation's target address.
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     string `gorm:"not null;default:tenant" json:"role"`
	FullName string `json:"full_name"`

	Profile *TenantProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}
