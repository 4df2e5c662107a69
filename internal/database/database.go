package database

import (
	"database/sql"
	"fmt"
	"time"

	"fitpass_backend/internal/config"
	"fitpass_backend/pkg/utils"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// InitDB opens and verifies the connection pool, then applies migrations when enabled.
func InitDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	utils.LogInfo("Successfully connected to the database", map[string]interface{}{"host": cfg.Host, "db": cfg.Name})

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}
