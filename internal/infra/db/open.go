// Package db opens and migrates the backing store. Two drivers are
// supported: SQLite for single-node deployments and PostgreSQL when the
// archive is shared.
package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open creates and configures a database connection pool. The driver is
// selected by DB_DRIVER (default sqlite) and the DSN comes from DATABASE_URL.
// SQLite gets a single connection because the modernc driver serializes
// writes anyway and concurrent writers would just hit SQLITE_BUSY.
func Open() (*sql.DB, string) {
	driver := Driver()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		if driver == DriverSQLite {
			dsn = "mouldwire.db"
		} else {
			log.Fatal("DATABASE_URL not set")
		}
	}

	sqlDriver := driver
	if driver == DriverPostgres {
		sqlDriver = "pgx"
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := getConnectionConfigFromEnv()
	if driver == DriverSQLite {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.String("driver", driver),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	slog.Info("database connection established")
	return conn, driver
}

// Driver returns the configured driver name, defaulting to sqlite.
func Driver() string {
	switch os.Getenv("DB_DRIVER") {
	case DriverPostgres:
		return DriverPostgres
	case DriverSQLite, "":
		return DriverSQLite
	default:
		log.Fatalf("unsupported DB_DRIVER %q (want %s or %s)",
			os.Getenv("DB_DRIVER"), DriverSQLite, DriverPostgres)
		return ""
	}
}

// getConnectionConfigFromEnv reads connection pool configuration from
// environment variables, falling back to defaults when unset.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil && val > 0 {
			cfg.MaxOpenConns = val
		}
	}

	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil && val > 0 {
			cfg.MaxIdleConns = val
		}
	}

	if lifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); lifetime != "" {
		if val, err := time.ParseDuration(lifetime); err == nil && val > 0 {
			cfg.ConnMaxLifetime = val
		}
	}

	if idleTime := os.Getenv("DB_CONN_MAX_IDLE_TIME"); idleTime != "" {
		if val, err := time.ParseDuration(idleTime); err == nil && val > 0 {
			cfg.ConnMaxIdleTime = val
		}
	}

	return cfg
}
