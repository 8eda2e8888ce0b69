package models

import "time"

// Provider kinds
const (
	ProviderKindLLM    = "llm"
	ProviderKindVector = "vector"
)

// ProviderConfig represents an LLM or vector store provider configuration.
// Credentials are stored encrypted and never serialized back to clients.
type ProviderConfig struct {
	ID                   string            `json:"id" db:"id"`
	TenantID             string            `json:"tenant_id" db:"tenant_id"`
	Kind                 string            `json:"kind" db:"kind"`
	Provider             string            `json:"provider" db:"provider"`
	BaseURL              string            `json:"base_url,omitempty" db:"base_url"`
	DefaultModel         string            `json:"default_model,omitempty" db:"default_model"`
	Options              map[string]string `json:"options,omitempty" db:"options"`
	CredentialsEncrypted []byte            `json:"-" db:"credentials_encrypted"`
	Status               string            `json:"status" db:"status"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}
