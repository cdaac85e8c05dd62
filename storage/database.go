package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"rentloop-server/models"
)

// NewDB opens the Postgres connection and runs migrations. The handle is
// passed to handlers explicitly; there is no package-level instance.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage: DB_CONNECTION_STRING is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	if err := performMigrations(db); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	return db, nil
}

func performMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Listing{},
		&models.Booking{},
		&models.Review{},
		&models.Notification{},
		&models.Agreement{},
	)
}
