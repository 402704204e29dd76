package models

import (
	"time"

	"gorm.io/datatypes"
)

// TenantProfile holds supplemental tenant metadata, keyed 1:1 to a user.
// A stub row is created at onboarding so the record exists before the tenant
// fills in optional fields.
type TenantProfile struct {
	UserID                   string         `gorm:"primaryKey;type:uuid" json:"id"`
	Phone                    *string        `json:"phone,omitempty"`
	EmergencyContactName     *string        `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string        `json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string        `json:"emergency_contact_relation,omitempty"`
	Vehicles                 datatypes.JSON `json:"vehicles,omitempty"`
	Pets                     datatypes.JSON `json:"pets,omitempty"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// VehicleInfo describes one vehicle entry in the Vehicles JSON column.
type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Plate string `json:"plate"`
	Color string `json:"color"`
}

// PetInfo describes one pet entry in the Pets JSON column.
type PetInfo struct {
	Type      string  `json:"type"`
	Breed     string  `json:"breed"`
	Name      string  `json:"name"`
	WeightLbs float64 `json:"weight_lbs"`
}
