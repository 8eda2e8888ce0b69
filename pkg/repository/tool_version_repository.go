package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paxoscn/avalon-sub003/pkg/models"
)

// ToolVersionRepository defines the interface for tool version storage.
// Version rows are immutable: the only write is CreateVersion, and
// SetCurrentVersion touches the tools table alone.
type ToolVersionRepository interface {
	// CreateVersion writes a new version with the next sequential number
	// and makes it the tool's current version. The passed version's
	// Version field is populated with the allocated number.
	CreateVersion(ctx context.Context, version *models.ToolVersion) error

	// ListByTool retrieves all versions of a tool, newest first
	ListByTool(ctx context.Context, tenantID, toolID string) ([]*models.ToolVersion, error)

	// GetByToolAndVersion retrieves one version by its number
	GetByToolAndVersion(ctx context.Context, tenantID, toolID string, version int) (*models.ToolVersion, error)

	// SetCurrentVersion repoints the tool's current version at an
	// existing version. History is never modified.
	SetCurrentVersion(ctx context.Context, tenantID, toolID string, version int) error
}

type toolVersionRepository struct {
	db *sqlx.DB
}

// NewToolVersionRepository creates a new tool version repository
func NewToolVersionRepository(db *sqlx.DB) ToolVersionRepository {
	return &toolVersionRepository{db: db}
}

const versionColumns = `id, tool_id, tenant_id, version, config, change_log, created_by, created_at`

func (r *toolVersionRepository) CreateVersion(ctx context.Context, version *models.ToolVersion) error {
	configJSON, err := json.Marshal(version.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Lock the tool row so concurrent saves cannot allocate the same
	// version number.
	var currentVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT current_version FROM tools WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		version.TenantID, version.ToolID,
	).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock tool: %w", err)
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM tool_versions WHERE tool_id = $1`,
		version.ToolID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to allocate version number: %w", err)
	}
	version.Version = next

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tool_versions (
			id, tool_id, tenant_id, version, config, change_log, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		version.ID, version.ToolID, version.TenantID, version.Version,
		configJSON, version.ChangeLog, version.CreatedBy, version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tools SET current_version = $3, config = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`,
		version.TenantID, version.ToolID, version.Version, configJSON, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}

	return tx.Commit()
}

func (r *toolVersionRepository) ListByTool(ctx context.Context, tenantID, toolID string) ([]*models.ToolVersion, error) {
	query := `SELECT ` + versionColumns + `
		FROM tool_versions
		WHERE tenant_id = $1 AND tool_id = $2
		ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, toolID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var versions []*models.ToolVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *toolVersionRepository) GetByToolAndVersion(ctx context.Context, tenantID, toolID string, version int) (*models.ToolVersion, error) {
	query := `SELECT ` + versionColumns + `
		FROM tool_versions
		WHERE tenant_id = $1 AND tool_id = $2 AND version = $3`

	row := r.db.QueryRowContext(ctx, query, tenantID, toolID, version)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *toolVersionRepository) SetCurrentVersion(ctx context.Context, tenantID, toolID string, version int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The target version must exist; its snapshot becomes the tool's
	// active configuration.
	var configJSON []byte
	err = tx.QueryRowContext(ctx,
		`SELECT config FROM tool_versions WHERE tenant_id = $1 AND tool_id = $2 AND version = $3`,
		tenantID, toolID, version,
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return models.ErrVersionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load target version: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE tools SET current_version = $3, config = $4, updated_at = $5 WHERE tenant_id = $1 AND id = $2`,
		tenantID, toolID, version, configJSON, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to repoint current version: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row rowScanner) (*models.ToolVersion, error) {
	var v models.ToolVersion
	var configJSON []byte

	err := row.Scan(
		&v.ID, &v.ToolID, &v.TenantID, &v.Version,
		&configJSON, &v.ChangeLog, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &v.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	return &v, nil
}
