// Package models defines database models for the application.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel provides common fields for all models.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the primary key before insert.
func (m *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AI roles select the capability narrative injected into the system prompt.
// They are a prompting convention, not an authorization boundary.
const (
	AIRoleViewer   = "viewer"
	AIRoleOperator = "operator"
	AIRoleAdmin    = "admin"
)

// AIConfig holds per-organization gateway configuration. One row per
// organization, maintained via upsert. API keys are stored encrypted and
// decrypted only at the point of use.
type AIConfig struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"organization_id"`

	Endpoint        string `gorm:"not null" json:"endpoint"`
	EncryptedAPIKey string `json:"-"`
	Model           string `gorm:"not null" json:"model"`

	// Fallback is attempted only when both FallbackEndpoint and
	// FallbackModel are set.
	FallbackEndpoint        string `json:"fallback_endpoint"`
	EncryptedFallbackAPIKey string `json:"-"`
	FallbackModel           string `json:"fallback_model"`

	// ToolCallModel, when set, overrides the model for requests that
	// include tools.
	ToolCallModel string `json:"tool_call_model"`

	IsEnabled     bool    `gorm:"default:true" json:"is_enabled"`
	MaxTokens     int     `gorm:"default:1024" json:"max_tokens"`
	Temperature   float64 `gorm:"default:0.7" json:"temperature"`
	ContextWindow int     `gorm:"default:8192" json:"context_window"`

	RequestsPerMinute int `gorm:"default:20" json:"requests_per_minute"`
	TokensPerDay      int `gorm:"default:100000" json:"tokens_per_day"`

	MCPEnabled     bool              `gorm:"default:false" json:"mcp_enabled"`
	ToolCategories datatypes.JSONMap `json:"tool_categories"`

	UseCustomPrompt bool   `json:"use_custom_prompt"`
	CustomPrompt    string `gorm:"type:text" json:"custom_prompt"`
	AIRole          string `gorm:"default:viewer" json:"ai_role"`
}

// AIUsageLog records a single completion attempt, successful or not.
// One row is written per endpoint attempt; rows are never mutated.
type AIUsageLog struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;index" json:"user_id"`

	EndpointUsed string `gorm:"index" json:"endpoint_used"`
	Model        string `json:"model"`
	RequestType  string `json:"request_type"`

	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	Latency          int64 `json:"latency"`

	IsToolCall bool                        `json:"is_tool_call"`
	ToolNames  datatypes.JSONSlice[string] `json:"tool_names"`

	Success      bool   `gorm:"index" json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// AIChatMessage stores a single message of a chat session. The unique
// (session_id, sequence) index makes the ordering invariant durable: two
// concurrent appends cannot mint the same sequence number.
type AIChatMessage struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	SessionID      string    `gorm:"not null;uniqueIndex:idx_chat_session_sequence,priority:1" json:"session_id"`
	Role           string    `gorm:"not null" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	TokenCount     int       `json:"token_count"`
	Sequence       int       `gorm:"not null;uniqueIndex:idx_chat_session_sequence,priority:2" json:"sequence"`
}
