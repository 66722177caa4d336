// Package assistant implements the chat turn orchestration: system prompt
// selection, session history, and the bounded tool-call resolution loop.
package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/metrics"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
	"github.com/gridworx/helios-ai-gateway/internal/service/history"
)

// maxToolIterations caps how many rounds of tool-call-then-resubmit are
// permitted per chat turn. With the initial request this means at most
// 1+maxToolIterations gateway calls. When the cap is reached with tool
// calls still pending, the last assistant message is returned as-is.
const maxToolIterations = 5

// Completer produces one completion; satisfied by the gateway service.
type Completer interface {
	Complete(ctx context.Context, orgID, userID uuid.UUID, req *gateway.CompletionRequest) (*gateway.CompletionResponse, error)
}

// HistoryStore persists and reads session messages.
type HistoryStore interface {
	Append(ctx context.Context, orgID, userID uuid.UUID, sessionID, role, content string) error
	Recent(ctx context.Context, orgID uuid.UUID, sessionID string, limit int) ([]gateway.ChatMessage, error)
}

// ToolExecutor runs one named tool and returns its textual result.
// A returned error is converted into a textual tool result, never a
// request-level failure.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, orgID uuid.UUID, params map[string]interface{}) (string, error)
}

// Service orchestrates chat turns.
type Service struct {
	gateway      Completer
	configs      gateway.ConfigSource
	history      HistoryStore
	dataTools    ToolExecutor
	knowledge    ToolExecutor
	historyLimit int
	logger       *zap.Logger
}

// NewService creates a new assistant service.
func NewService(
	gw Completer,
	configs gateway.ConfigSource,
	hist HistoryStore,
	dataTools ToolExecutor,
	knowledge ToolExecutor,
	historyLimit int,
	logger *zap.Logger,
) *Service {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		gateway:      gw,
		configs:      configs,
		history:      hist,
		dataTools:    dataTools,
		knowledge:    knowledge,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// ChatRequest is one user turn.
type ChatRequest struct {
	Message        string
	SessionID      string
	PageContext    string
	IncludeHistory bool
}

// ChatResult is the final outcome of a turn after all tool calls resolved
// (or the iteration cap was reached).
type ChatResult struct {
	SessionID    string               `json:"session_id"`
	Message      string               `json:"message"`
	Model        string               `json:"model"`
	Usage        gateway.Usage        `json:"usage"`
	EndpointUsed gateway.EndpointTier `json:"endpoint_used"`
}

// Chat runs one user turn, transparently resolving tool calls the model
// requests until it produces a plain reply or the iteration cap is hit.
func (s *Service) Chat(ctx context.Context, orgID, userID uuid.UUID, req *ChatRequest) (*ChatResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg, err := s.configs.GetByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, gateway.NewError(gateway.KindNotConfigured, "ai assistant is not configured")
	}

	messages := []gateway.ChatMessage{
		{Role: gateway.RoleSystem, Content: buildSystemPrompt(cfg, req.PageContext)},
	}

	if req.IncludeHistory && req.SessionID != "" {
		past, err := s.history.Recent(ctx, orgID, sessionID, s.historyLimit)
		if err != nil {
			s.logger.Warn("failed to load session history",
				zap.String("session_id", sessionID), zap.Error(err))
		} else {
			past = history.TrimToTokenBudget(past, cfg.ContextWindow)
			messages = append(messages, past...)
		}
	}

	messages = append(messages, gateway.ChatMessage{Role: gateway.RoleUser, Content: req.Message})

	// Persist the user message before calling the model; a history write
	// failure must not block the chat.
	if err := s.history.Append(ctx, orgID, userID, sessionID, gateway.RoleUser, req.Message); err != nil {
		s.logger.Warn("failed to persist user message",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	tools := availableTools(cfg)

	resp, err := s.gateway.Complete(ctx, orgID, userID, &gateway.CompletionRequest{
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}

	iterations := 0
	for len(resp.Message.ToolCalls) > 0 && iterations < maxToolIterations {
		iterations++

		messages = append(messages, resp.Message)

		for _, call := range resp.Message.ToolCalls {
			result := s.executeToolCall(ctx, orgID, call)
			messages = append(messages, gateway.ChatMessage{
				Role:       gateway.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			})
		}

		resp, err = s.gateway.Complete(ctx, orgID, userID, &gateway.CompletionRequest{
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.history.Append(ctx, orgID, userID, sessionID, gateway.RoleAssistant, resp.Message.Content); err != nil {
		s.logger.Warn("failed to persist assistant message",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return &ChatResult{
		SessionID:    sessionID,
		Message:      resp.Message.Content,
		Model:        resp.Model,
		Usage:        resp.Usage,
		EndpointUsed: resp.EndpointUsed,
	}, nil
}

// executeToolCall parses the call's argument string and dispatches it.
// Malformed arguments and executor errors both become textual results fed
// back to the model, so it can react instead of the turn failing.
func (s *Service) executeToolCall(ctx context.Context, orgID uuid.UUID, call gateway.ToolCall) string {
	name := call.Function.Name
	metrics.ToolInvocations.WithLabelValues(name).Inc()

	params := map[string]interface{}{}
	if args := strings.TrimSpace(call.Function.Arguments); args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "Error parsing arguments for " + name + ": " + err.Error()
		}
	}

	executor := s.knowledge
	if isDataQueryTool(name) {
		executor = s.dataTools
	}

	result, err := executor.Execute(ctx, name, orgID, params)
	if err != nil {
		return "Error executing " + name + ": " + err.Error()
	}
	return result
}
