package models

import "time"

// Lease statuses. A lease is created active, expires when its end date
// passes, and terminates on explicit landlord action. Termination is final.
const (
	LeaseStatusActive     = "active"
	LeaseStatusExpired    = "expired"
	LeaseStatusTerminated = "terminated"
)

// Lease is the authoritative tenancy record binding one tenant to one unit
// over a date range. Amounts are integer cents.
type Lease struct {
	BaseModel

	UnitID        string    `gorm:"type:uuid;not null;index" json:"unit_id"`
	TenantID      string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	StartDate     time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time `gorm:"type:date;not null" json:"end_date"`
	RentAmount    int64     `gorm:"not null" json:"rent_amount"`
	DepositAmount int64     `gorm:"not null;default:0" json:"deposit_amount"`
	DocumentURL   *string   `json:"document_url,omitempty"`
	Status        string    `gorm:"not null;default:active;index" json:"status"`

	Unit   *Unit `json:"unit,omitempty"`
	Tenant *User `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`

	RentPayments []RentPayment `gorm:"foreignKey:LeaseID" json:"rent_payments,omitempty"`
}
