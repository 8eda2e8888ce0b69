package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded by the tool service
const (
	AuditActionToolCreated     = "tool.created"
	AuditActionToolUpdated     = "tool.updated"
	AuditActionToolDeleted     = "tool.deleted"
	AuditActionVersionCreated  = "tool.version.created"
	AuditActionVersionRollback = "tool.version.rollback"
)

// AuditLog is an append-only record of an administrative action
type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	ActorID    string          `json:"actor_id,omitempty" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Detail     json.RawMessage `json:"detail,omitempty" db:"detail"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
