package database

import (
	"roomlink-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres, possibly behind a pooler).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") with PgBouncer-style poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.VerificationRecord{},
		&domain.Listing{},
		&domain.MediaItem{},
		&domain.ListingEvent{},
	}
}

// AutoMigrate runs migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
