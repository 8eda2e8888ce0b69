// Package repository provides SQL-backed storage for the platform's
// domain entities. Every query is tenant-scoped; callers never see rows
// belonging to another tenant.
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

// ToolRepository defines the interface for tool storage
type ToolRepository interface {
	// Create stores a new tool
	Create(ctx context.Context, tool *models.Tool) error

	// GetByID retrieves a tool by ID within a tenant
	GetByID(ctx context.Context, tenantID, id string) (*models.Tool, error)

	// GetByName retrieves a tool by name within a tenant
	GetByName(ctx context.Context, tenantID, name string) (*models.Tool, error)

	// List retrieves tools for a tenant, optionally filtered by status
	List(ctx context.Context, tenantID, status string) ([]*models.Tool, error)

	// UpdateStatus updates the lifecycle status of a tool
	UpdateStatus(ctx context.Context, tenantID, id, status string) error

	// Delete removes a tool and its version history
	Delete(ctx context.Context, tenantID, id string) error
}

type toolRepository struct {
	db *sqlx.DB
}

// NewToolRepository creates a new tool repository
func NewToolRepository(db *sqlx.DB) ToolRepository {
	return &toolRepository{db: db}
}

const toolColumns = `id, tenant_id, name, display_name, description, current_version, config, status, created_by, created_at, updated_at`

func (r *toolRepository) Create(ctx context.Context, tool *models.Tool) error {
	configJSON, err := json.Marshal(tool.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO tools (
			id, tenant_id, name, display_name, description,
			current_version, config, status, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		tool.ID, tool.TenantID, tool.Name, tool.DisplayName, tool.Description,
		tool.CurrentVersion, configJSON, tool.Status, tool.CreatedBy,
		tool.CreatedAt, tool.UpdatedAt,
	)
	return err
}

func (r *toolRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, tenantID, id)
}

func (r *toolRepository) GetByName(ctx context.Context, tenantID, name string) (*models.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE tenant_id = $1 AND name = $2`
	return r.getOne(ctx, query, tenantID, name)
}

func (r *toolRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Tool, error) {
	var tool models.Tool
	var configJSON []byte

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&tool.ID, &tool.TenantID, &tool.Name, &tool.DisplayName, &tool.Description,
		&tool.CurrentVersion, &configJSON, &tool.Status, &tool.CreatedBy,
		&tool.CreatedAt, &tool.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &tool.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	return &tool, nil
}

func (r *toolRepository) List(ctx context.Context, tenantID, status string) ([]*models.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tools []*models.Tool
	for rows.Next() {
		var tool models.Tool
		var configJSON []byte
		err := rows.Scan(
			&tool.ID, &tool.TenantID, &tool.Name, &tool.DisplayName, &tool.Description,
			&tool.CurrentVersion, &configJSON, &tool.Status, &tool.CreatedBy,
			&tool.CreatedAt, &tool.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &tool.Config); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
		tools = append(tools, &tool)
	}
	return tools, rows.Err()
}

func (r *toolRepository) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	query := `UPDATE tools SET status = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id, status, time.Now())
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *toolRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `DELETE FROM tools WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// requireRow converts a zero-row update/delete into ErrNotFound
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}
