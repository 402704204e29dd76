package models

// Maintenance request statuses. Open and assigned requests block property
// deletion.
const (
	MaintenanceStatusOpen     = "open"
	MaintenanceStatusAssigned = "assigned"
	MaintenanceStatusResolved = "resolved"
)

// Maintenance urgency levels.
const (
	MaintenanceUrgencyEmergency = "emergency"
	MaintenanceUrgencyUrgent    = "urgent"
	MaintenanceUrgencyRoutine   = "routine"
)

// Maintenance trades.
const (
	MaintenanceTradePlumbing   = "plumbing"
	MaintenanceTradeElectrical = "electrical"
	MaintenanceTradeHVAC       = "hvac"
	MaintenanceTradeGeneral    = "general"
)

// MaintenanceRequest is a tenant-reported issue against a unit.
type MaintenanceRequest struct {
	BaseModel

	UnitID      string `gorm:"type:uuid;not null;index" json:"unit_id"`
	TenantID    string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Urgency     string `gorm:"not null;default:routine" json:"urgency"`
	Trade       string `gorm:"not null;default:general" json:"trade"`
	Status      string `gorm:"not null;default:open;index" json:"status"`

	Unit   *Unit `json:"unit,omitempty"`
	Tenant *User `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}
