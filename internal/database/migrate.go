package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables of every persistent model.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Truncate deletes every row of every persistent model, children first.
func Truncate(ctx context.Context, db *gorm.DB) error {
	tables := PersistentModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(tables[i]).Error; err != nil {
			return fmt.Errorf("failed to truncate %T: %w", tables[i], err)
		}
	}
	return nil
}
