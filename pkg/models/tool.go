package models

import (
	"strings"
	"time"
)

// Tool statuses
const (
	ToolStatusActive   = "active"
	ToolStatusInactive = "inactive"
)

// Parameter transport positions
const (
	ParamPositionBody   = "body"
	ParamPositionHeader = "header"
	ParamPositionPath   = "path"
	ParamPositionQuery  = "query"
)

// Tool represents a tenant-configured HTTP-callable tool. The active
// configuration is the snapshot of the version CurrentVersion points at;
// version history lives in tool_versions and is never mutated.
type Tool struct {
	ID             string             `json:"id" db:"id"`
	TenantID       string             `json:"tenant_id" db:"tenant_id"`
	Name           string             `json:"name" db:"name"`
	DisplayName    string             `json:"display_name" db:"display_name"`
	Description    string             `json:"description,omitempty" db:"description"`
	CurrentVersion int                `json:"current_version" db:"current_version"`
	Config         ToolConfigSnapshot `json:"config" db:"config"`
	Status         string             `json:"status" db:"status"`
	CreatedBy      string             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the tool is available for execution
func (t *Tool) IsActive() bool {
	return t.Status == ToolStatusActive
}

// ToolVersion is an immutable snapshot of a tool's configuration.
// Version numbers are unique and monotonically increasing per tool.
// Rollback repoints Tool.CurrentVersion; it never touches these rows.
type ToolVersion struct {
	ID        string             `json:"id" db:"id"`
	ToolID    string             `json:"tool_id" db:"tool_id"`
	TenantID  string             `json:"tenant_id" db:"tenant_id"`
	Version   int                `json:"version" db:"version"`
	Config    ToolConfigSnapshot `json:"config" db:"config"`
	ChangeLog string             `json:"change_log,omitempty" db:"change_log"`
	CreatedBy string             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// ToolConfigSnapshot holds the callable configuration captured by a version
type ToolConfigSnapshot struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	Parameters []ParameterSchema `json:"parameters,omitempty"`
	TimeoutSec int               `json:"timeout_seconds,omitempty"`
}

// Normalize canonicalizes a snapshot before validation: the HTTP method
// is upper-cased and parameters without a declared position default to
// the request body.
func (c *ToolConfigSnapshot) Normalize() {
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	for i := range c.Parameters {
		if c.Parameters[i].Position == "" {
			c.Parameters[i].Position = ParamPositionBody
		}
	}
}

// ParameterSchema declares a single tool parameter. The JSON field is
// "type"; the storage column keeps the longer parameter_type name.
type ParameterSchema struct {
	Name     string      `json:"name" db:"name"`
	Type     string      `json:"type" db:"parameter_type"`
	Required bool        `json:"required" db:"required"`
	Default  interface{} `json:"default,omitempty" db:"default_value"`
	Enum     []string    `json:"enum,omitempty" db:"enum_values"`
	Position string      `json:"position" db:"position"`
}

// RollbackRequest is the payload for the rollback endpoint
type RollbackRequest struct {
	Version int `json:"version" binding:"required"`
}
