package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established")
	return nil
}

// AutoMigrate runs database migrations for all engine-owned tables
func AutoMigrate() error {
	log.Println("Running database migrations...")

	if err := Migrate(DB); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// Migrate runs migrations against a specific database handle.
// Accepts a db parameter so tests can migrate an in-memory database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Incident{},
		&SLAConfig{},
		&EscalationEvent{},
		&Supervisor{},
		&EmergencyContact{},
		&EmergencyLog{},
		&Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
