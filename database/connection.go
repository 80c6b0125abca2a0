package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Ananth-NQI/appointlab-backend/internal/config"
)

// Connect opens the PostgreSQL connection described by cfg
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	// For Cloud Run with Cloud SQL
	socketDir := "/cloudsql"

	var dsn string
	if cfg.InstanceConnectionName != "" {
		// Production: Connect via Unix socket
		dsn = fmt.Sprintf("host=%s/%s user=%s password=%s dbname=%s sslmode=disable",
			socketDir, cfg.InstanceConnectionName, cfg.User, cfg.Pass, cfg.Name)
		log.Printf("Connecting to Cloud SQL via socket: %s", cfg.InstanceConnectionName)
	} else {
		// Local development: Connect via TCP
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.User, cfg.Pass, cfg.Name, cfg.Port)
		log.Printf("Connecting to PostgreSQL at %s:%s", cfg.Host, cfg.Port)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connected successfully!")
	return db, nil
}

// Ping reports whether the database answers
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
