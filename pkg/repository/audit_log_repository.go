package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/paxoscn/avalon-sub003/pkg/models"
)

// AuditLogRepository defines append-only storage for audit records
type AuditLogRepository interface {
	// Create appends an audit record
	Create(ctx context.Context, entry *models.AuditLog) error

	// ListByEntity retrieves audit records for one entity, newest first
	ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]*models.AuditLog, error)
}

type auditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlx.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, tenant_id, actor_id, action, entity_type, entity_id, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.ActorID, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt,
	)
	return err
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, tenantID, entityType, entityID string) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.ActorID, &e.Action,
			&e.EntityType, &e.EntityID, &e.Detail, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
