package models

import "time"

// Agent statuses
const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
)

// Agent represents a configured AI agent. Tools lists the tool IDs the
// agent may call; ProviderID names the LLM provider configuration used
// for inference.
type Agent struct {
	ID           string    `json:"id" db:"id"`
	TenantID     string    `json:"tenant_id" db:"tenant_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	SystemPrompt string    `json:"system_prompt,omitempty" db:"system_prompt"`
	ProviderID   string    `json:"provider_id,omitempty" db:"provider_id"`
	Model        string    `json:"model,omitempty" db:"model"`
	Tools        []string  `json:"tools,omitempty" db:"tools"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
