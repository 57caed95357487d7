package db

import (
	"fmt"

	"github.com/droverdev/drover/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Client{},
		&models.Site{},
		&models.Agent{},
		&models.CustomField{},
		&models.AgentCustomField{},
		&models.SiteCustomField{},
		&models.ClientCustomField{},
		&models.PendingAction{},
		&models.RecoveryAction{},
		&models.AgentHistory{},
		&models.Note{},
		&models.Script{},
		&models.ScriptSnippet{},
		&models.GlobalKV{},
		&models.Role{},
		&models.APIKey{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
