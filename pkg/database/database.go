// Package database manages the PostgreSQL connection pool and schema
// migrations for the platform services.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"

	"github.com/paxoscn/avalon-sub003/pkg/observability"
)

// Config holds database connection and migration settings
type Config struct {
	Driver          string
	DSN             string
	Host            string
	Port            int
	Database        string
	Username        string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// connectionURL builds the postgres:// URL used by both sqlx and the
// migrator. An explicit DSN wins over the individual fields.
func (c Config) connectionURL() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database wraps the sqlx connection pool
type Database struct {
	db     *sqlx.DB
	logger observability.Logger
}

// New opens a connection pool, verifies connectivity, and runs
// migrations when AutoMigrate is set.
func New(ctx context.Context, cfg Config, logger observability.Logger) (*Database, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	connURL := cfg.connectionURL()

	db, err := sqlx.Open(driver, connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{db: db, logger: logger}

	if cfg.AutoMigrate {
		if err := d.Migrate(cfg.MigrationsPath, connURL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return d, nil
}

// Migrate applies all pending schema migrations from the given path
func (d *Database) Migrate(path, connURL string) error {
	src := path
	if !strings.HasPrefix(src, "file://") {
		src = "file://" + src
	}

	m, err := migrate.New(src, connURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			d.logger.Warn("Failed to close migrator", map[string]interface{}{
				"source_error":   srcErr,
				"database_error": dbErr,
			})
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	d.logger.Info("Database migrations applied", map[string]interface{}{"path": path})
	return nil
}

// GetDB returns the underlying sqlx pool
func (d *Database) GetDB() *sqlx.DB { return d.db }

// Close closes the connection pool
func (d *Database) Close() error { return d.db.Close() }
