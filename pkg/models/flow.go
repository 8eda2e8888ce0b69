package models

import (
	"encoding/json"
	"time"
)

// Flow statuses
const (
	FlowStatusDraft     = "draft"
	FlowStatusPublished = "published"
	FlowStatusArchived  = "archived"
)

// Flow execution statuses
const (
	ExecutionStatusPending   = "pending"
	ExecutionStatusRunning   = "running"
	ExecutionStatusSucceeded = "succeeded"
	ExecutionStatusFailed    = "failed"
)

// Flow represents a workflow definition exchanged with the admin UI.
// Definition is an opaque graph document; the platform stores and
// versions it but does not interpret it here.
type Flow struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Definition  json.RawMessage `json:"definition" db:"definition"`
	Status      string          `json:"status" db:"status"`
	CreatedBy   string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// FlowExecution records a single run of a flow
type FlowExecution struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	FlowID     string          `json:"flow_id" db:"flow_id"`
	Status     string          `json:"status" db:"status"`
	Input      json.RawMessage `json:"input,omitempty" db:"input"`
	Output     json.RawMessage `json:"output,omitempty" db:"output"`
	Error      string          `json:"error,omitempty" db:"error"`
	StartedAt  time.Time       `json:"started_at" db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}
