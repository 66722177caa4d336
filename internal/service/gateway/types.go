package gateway

import "encoding/json"

// Message roles of the chat-completions protocol.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// EndpointTier identifies which configured backend served a request.
type EndpointTier string

const (
	TierPrimary  EndpointTier = "primary"
	TierFallback EndpointTier = "fallback"
)

// ChatMessage is a single message in a chat-completions conversation.
// Content may be empty when an assistant message carries only tool calls.
// ToolCallID and Name are set on tool-result messages and must reference a
// tool call emitted by a preceding assistant message in the same request.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Tool describes a function the model may invoke.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the schema-described function behind a tool.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is an invocation the model wants executed. Arguments is a
// JSON-encoded string and may be malformed; consumers must treat a parse
// failure as a recoverable per-tool error.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the name and raw arguments of a tool call.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage holds token counts reported by the upstream endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a request into the orchestrator. Zero Temperature
// and MaxTokens fall back to the organization's configured values.
type CompletionRequest struct {
	Messages    []ChatMessage
	Tools       []Tool
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is the normalized result of a completion.
// EndpointUsed records which tier actually served the request; callers use
// it for usage attribution and degraded-mode visibility.
type CompletionResponse struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Message      ChatMessage  `json:"message"`
	Usage        Usage        `json:"usage"`
	FinishReason string       `json:"finish_reason"`
	EndpointUsed EndpointTier `json:"endpoint_used"`
}

// Endpoint is one resolved inference backend.
type Endpoint struct {
	URL    string
	APIKey string
	Model  string
	Tier   EndpointTier
}
