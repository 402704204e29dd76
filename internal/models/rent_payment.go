package models

import "time"

// Rent payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusLate    = "late"
	PaymentStatusWaived  = "waived"
)

// Payment methods. Capture itself is handled by an external collaborator;
// the method is recorded when a payment settles.
const (
	PaymentMethodACH    = "ach"
	PaymentMethodCard   = "card"
	PaymentMethodManual = "manual"
)

// RentPayment is one payment obligation under a lease. The first row is
// created automatically at lease creation with the due date equal to the
// lease start date.
type RentPayment struct {
	BaseModel

	LeaseID string     `gorm:"type:uuid;not null;index" json:"lease_id"`
	Amount  int64      `gorm:"not null" json:"amount"`
	DueDate time.Time  `gorm:"type:date;not null" json:"due_date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
	Method  *string    `json:"method,omitempty"`
	Status  string     `gorm:"not null;default:pending;index" json:"status"`
}
