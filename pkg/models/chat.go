package models

import "time"

// Chat session statuses
const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

// Chat message roles
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
	MessageRoleTool      = "tool"
)

// ChatSession represents a conversation between a user and an agent
type ChatSession struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	AgentID   string    `json:"agent_id" db:"agent_id"`
	Title     string    `json:"title,omitempty" db:"title"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChatMessage is a single turn in a chat session
type ChatMessage struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	ToolID    string    `json:"tool_id,omitempty" db:"tool_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
