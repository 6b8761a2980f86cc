package db

import (
	"fmt"

	"github.com/kvistad/renderloop/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Pipeline{},
		&models.Space{},
		&models.Asset{},
		&models.Attempt{},
		&models.StepRetryState{},
		&models.ReviewFeedback{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
