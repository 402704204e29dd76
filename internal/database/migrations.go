package database

import (
	"gorm.io/gorm"

	"github.com/tendly/tendly/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
// Order matters for foreign-key creation: owners before dependents.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Unit{},
		&models.TenantInvitation{},
		&models.Lease{},
		&models.RentPayment{},
		&models.TenantProfile{},
		&models.MaintenanceRequest{},
	)
}
