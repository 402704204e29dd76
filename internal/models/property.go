package models

// Property is a building owned by a single landlord, composed of one or more units.
// Monetary figures are integer cents; Insurance and TaxAnnual are per year.
type Property struct {
	BaseModel

	LandlordID string  `gorm:"type:uuid;not null;index" json:"landlord_id"`
	Address    string  `gorm:"not null" json:"address"`
	Nickname   *string `json:"nickname,omitempty"`
	Mortgage   *int64  `json:"mortgage,omitempty"`
	Insurance  *int64  `json:"insurance,omitempty"`
	TaxAnnual  *int64  `json:"tax_annual,omitempty"`

	Units []Unit `gorm:"foreignKey:PropertyID" json:"units,omitempty"`
}
