// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS ledger_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			base_apy_bps BIGINT NOT NULL,
			min_lock_principal BIGINT NOT NULL,
			early_exit_payout_bps BIGINT NOT NULL,
			referral_bonus_rate_bps BIGINT NOT NULL,
			oracle_max_age_seconds BIGINT NOT NULL,
			supported_assets TEXT[] NOT NULL,
			yield_asset_denom VARCHAR(64) NOT NULL,
			CONSTRAINT uq_ledger_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_parameters_config_active ON ledger_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS ledger_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			cycle_number INTEGER NOT NULL,
			cycle_id VARCHAR(64) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,

			total_value DECIMAL(38, 18) NOT NULL,
			yield_paid DECIMAL(38, 0) NOT NULL,
			reserve_balance DECIMAL(38, 0) NOT NULL,
			base_apy_bps BIGINT NOT NULL,

			pools JSONB,
			balances JSONB,
			locks JSONB,
			conversions JSONB,
			points JSONB,
			referrals JSONB,
			codes JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_snapshots_timestamp ON ledger_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_snapshots_cycle ON ledger_snapshots(cycle_number DESC);

		CREATE TABLE IF NOT EXISTS audit_events (
			event_row_id SERIAL PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			operation VARCHAR(64) NOT NULL,
			actor VARCHAR(255) NOT NULL,
			asset VARCHAR(64),
			amount VARCHAR(80),
			detail TEXT,
			success BOOLEAN NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_events_operation ON audit_events(operation);
		CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
