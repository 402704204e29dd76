package models

// Unit is one rentable space within a property.
type Unit struct {
	BaseModel

	PropertyID string  `gorm:"type:uuid;not null;index" json:"property_id"`
	UnitNumber string  `gorm:"not null" json:"unit_number"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	RentAmount int64   `json:"rent_amount"`

	Property *Property `json:"property,omitempty"`
	Leases   []Lease   `gorm:"foreignKey:UnitID" json:"leases,omitempty"`
}
