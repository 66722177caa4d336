// Package handlers implements the HTTP handlers for the gateway API.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/api/middleware"
	"github.com/gridworx/helios-ai-gateway/internal/crypto"
	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/service/assistant"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
	"github.com/gridworx/helios-ai-gateway/internal/service/usage"
)

// ChatService runs one assistant turn.
type ChatService interface {
	Chat(ctx context.Context, orgID, userID uuid.UUID, req *assistant.ChatRequest) (*assistant.ChatResult, error)
}

// ConnectionTester probes an endpoint without touching budgets or usage logs.
type ConnectionTester interface {
	TestEndpoint(ctx context.Context, url, apiKey, model string) *gateway.ConnectionTestResult
}

// ConfigStore reads and upserts per-organization configuration.
type ConfigStore interface {
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.AIConfig, error)
	Upsert(ctx context.Context, cfg *models.AIConfig) error
}

// HistoryService reads and clears chat sessions.
type HistoryService interface {
	Recent(ctx context.Context, orgID uuid.UUID, sessionID string, limit int) ([]gateway.ChatMessage, error)
	Clear(ctx context.Context, orgID uuid.UUID, sessionID string) error
}

// UsageService reports usage aggregations.
type UsageService interface {
	GetSummary(ctx context.Context, orgID uuid.UUID, start, end time.Time) (*usage.Summary, error)
	GetDaily(ctx context.Context, orgID uuid.UUID, days int) ([]usage.DailyUsage, error)
	GetRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AIUsageLog, error)
}

// AIHandler handles assistant configuration, chat, and usage endpoints.
type AIHandler struct {
	chat    ChatService
	tester  ConnectionTester
	configs ConfigStore
	history HistoryService
	usage   UsageService
	logger  *zap.Logger
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(
	chat ChatService,
	tester ConnectionTester,
	configs ConfigStore,
	history HistoryService,
	usage UsageService,
	logger *zap.Logger,
) *AIHandler {
	return &AIHandler{
		chat:    chat,
		tester:  tester,
		configs: configs,
		history: history,
		usage:   usage,
		logger:  logger,
	}
}

func orgIDFrom(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(middleware.CtxOrganizationID)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid organization id"})
		return uuid.Nil, false
	}
	return id, true
}

func userIDFrom(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(middleware.CtxUserID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// configResponse is the sanitized view of an AIConfig. Stored API keys are
// never returned, only their presence.
type configResponse struct {
	Configured        bool                   `json:"configured"`
	Endpoint          string                 `json:"endpoint,omitempty"`
	Model             string                 `json:"model,omitempty"`
	HasAPIKey         bool                   `json:"has_api_key"`
	FallbackEndpoint  string                 `json:"fallback_endpoint,omitempty"`
	FallbackModel     string                 `json:"fallback_model,omitempty"`
	HasFallbackAPIKey bool                   `json:"has_fallback_api_key"`
	ToolCallModel     string                 `json:"tool_call_model,omitempty"`
	IsEnabled         bool                   `json:"is_enabled"`
	MaxTokens         int                    `json:"max_tokens"`
	Temperature       float64                `json:"temperature"`
	ContextWindow     int                    `json:"context_window"`
	RequestsPerMinute int                    `json:"requests_per_minute"`
	TokensPerDay      int                    `json:"tokens_per_day"`
	MCPEnabled        bool                   `json:"mcp_enabled"`
	ToolCategories    map[string]interface{} `json:"tool_categories,omitempty"`
	UseCustomPrompt   bool                   `json:"use_custom_prompt"`
	CustomPrompt      string                 `json:"custom_prompt,omitempty"`
	AIRole            string                 `json:"ai_role,omitempty"`
}

func sanitizeConfig(cfg *models.AIConfig) configResponse {
	return configResponse{
		Configured:        true,
		Endpoint:          cfg.Endpoint,
		Model:             cfg.Model,
		HasAPIKey:         cfg.EncryptedAPIKey != "",
		FallbackEndpoint:  cfg.FallbackEndpoint,
		FallbackModel:     cfg.FallbackModel,
		HasFallbackAPIKey: cfg.EncryptedFallbackAPIKey != "",
		ToolCallModel:     cfg.ToolCallModel,
		IsEnabled:         cfg.IsEnabled,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		ContextWindow:     cfg.ContextWindow,
		RequestsPerMinute: cfg.RequestsPerMinute,
		TokensPerDay:      cfg.TokensPerDay,
		MCPEnabled:        cfg.MCPEnabled,
		ToolCategories:    cfg.ToolCategories,
		UseCustomPrompt:   cfg.UseCustomPrompt,
		CustomPrompt:      cfg.CustomPrompt,
		AIRole:            cfg.AIRole,
	}
}

// GetConfig returns the organization's configuration with secrets masked.
func (h *AIHandler) GetConfig(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	cfg, err := h.configs.GetByOrganization(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to load ai config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusOK, configResponse{Configured: false})
		return
	}

	c.JSON(http.StatusOK, sanitizeConfig(cfg))
}

// updateConfigRequest carries a configuration update. API key fields are
// write-only: an empty key preserves the stored one.
type updateConfigRequest struct {
	Endpoint          string                 `json:"endpoint" binding:"required"`
	APIKey            string                 `json:"api_key"`
	Model             string                 `json:"model" binding:"required"`
	FallbackEndpoint  string                 `json:"fallback_endpoint"`
	FallbackAPIKey    string                 `json:"fallback_api_key"`
	FallbackModel     string                 `json:"fallback_model"`
	ToolCallModel     string                 `json:"tool_call_model"`
	IsEnabled         *bool                  `json:"is_enabled"`
	MaxTokens         int                    `json:"max_tokens"`
	Temperature       float64                `json:"temperature"`
	ContextWindow     int                    `json:"context_window"`
	RequestsPerMinute int                    `json:"requests_per_minute"`
	TokensPerDay      int                    `json:"tokens_per_day"`
	MCPEnabled        bool                   `json:"mcp_enabled"`
	ToolCategories    map[string]interface{} `json:"tool_categories"`
	UseCustomPrompt   bool                   `json:"use_custom_prompt"`
	CustomPrompt      string                 `json:"custom_prompt"`
	AIRole            string                 `json:"ai_role"`
}

// UpdateConfig creates or replaces the organization's configuration.
func (h *AIHandler) UpdateConfig(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.configs.GetByOrganization(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to load ai config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}

	cfg := &models.AIConfig{
		OrganizationID:    orgID,
		Endpoint:          req.Endpoint,
		Model:             req.Model,
		FallbackEndpoint:  req.FallbackEndpoint,
		FallbackModel:     req.FallbackModel,
		ToolCallModel:     req.ToolCallModel,
		IsEnabled:         true,
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
		ContextWindow:     req.ContextWindow,
		RequestsPerMinute: req.RequestsPerMinute,
		TokensPerDay:      req.TokensPerDay,
		MCPEnabled:        req.MCPEnabled,
		ToolCategories:    req.ToolCategories,
		UseCustomPrompt:   req.UseCustomPrompt,
		CustomPrompt:      req.CustomPrompt,
		AIRole:            req.AIRole,
	}
	if req.IsEnabled != nil {
		cfg.IsEnabled = *req.IsEnabled
	}
	if cfg.AIRole == "" {
		cfg.AIRole = models.AIRoleViewer
	}
	applyConfigDefaults(cfg)

	if existing != nil {
		cfg.EncryptedAPIKey = existing.EncryptedAPIKey
		cfg.EncryptedFallbackAPIKey = existing.EncryptedFallbackAPIKey
	}

	if req.APIKey != "" {
		encrypted, err := crypto.Encrypt(req.APIKey)
		if err != nil {
			h.logger.Error("failed to encrypt api key", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store configuration"})
			return
		}
		cfg.EncryptedAPIKey = encrypted
	}
	if req.FallbackAPIKey != "" {
		encrypted, err := crypto.Encrypt(req.FallbackAPIKey)
		if err != nil {
			h.logger.Error("failed to encrypt fallback api key", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store configuration"})
			return
		}
		cfg.EncryptedFallbackAPIKey = encrypted
	}

	if err := h.configs.Upsert(c.Request.Context(), cfg); err != nil {
		h.logger.Error("failed to save ai config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save configuration"})
		return
	}

	c.JSON(http.StatusOK, sanitizeConfig(cfg))
}

func applyConfigDefaults(cfg *models.AIConfig) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 8192
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 20
	}
	if cfg.TokensPerDay <= 0 {
		cfg.TokensPerDay = 100000
	}
}

// testConnectionRequest probes an endpoint. When the API key is omitted the
// stored primary key is used, so admins can re-test without re-entering it.
type testConnectionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model" binding:"required"`
}

// TestConnection probes an endpoint with a minimal completion.
func (h *AIHandler) TestConnection(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	var req testConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		cfg, err := h.configs.GetByOrganization(c.Request.Context(), orgID)
		if err == nil && cfg != nil && cfg.EncryptedAPIKey != "" {
			if stored, err := crypto.Decrypt(cfg.EncryptedAPIKey); err == nil {
				apiKey = stored
			}
		}
	}

	result := h.tester.TestEndpoint(c.Request.Context(), req.Endpoint, apiKey, req.Model)
	c.JSON(http.StatusOK, gin.H{
		"ok":         result.OK,
		"latency_ms": result.Latency.Milliseconds(),
		"error":      result.Error,
	})
}

// chatRequest is one user chat turn.
type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	SessionID      string `json:"session_id"`
	PageContext    string `json:"page_context"`
	IncludeHistory bool   `json:"include_history"`
}

// Chat runs one assistant turn and maps gateway error kinds to HTTP statuses.
func (h *AIHandler) Chat(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.chat.Chat(c.Request.Context(), orgID, userIDFrom(c), &assistant.ChatRequest{
		Message:        req.Message,
		SessionID:      req.SessionID,
		PageContext:    req.PageContext,
		IncludeHistory: req.IncludeHistory,
	})
	if err != nil {
		h.respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AIHandler) respondChatError(c *gin.Context, err error) {
	switch gateway.KindOf(err) {
	case gateway.KindNotConfigured, gateway.KindDisabled:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "configuration"})
	case gateway.KindRateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "code": "rate_limited"})
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ai request failed", "code": "upstream"})
	}
}

// GetChatHistory returns the messages of one session in order.
func (h *AIHandler) GetChatHistory(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	sessionID := c.Param("sessionId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.history.Recent(c.Request.Context(), orgID, sessionID, limit)
	if err != nil {
		h.logger.Error("failed to load chat history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}

// ClearChatSession deletes a session's messages.
func (h *AIHandler) ClearChatSession(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.history.Clear(c.Request.Context(), orgID, sessionID); err != nil {
		h.logger.Error("failed to clear chat session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "cleared": true})
}

// GetUsage returns the usage summary, per-day series, and recent rows.
func (h *AIHandler) GetUsage(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	summary, err := h.usage.GetSummary(c.Request.Context(), orgID, start, end)
	if err != nil {
		h.logger.Error("failed to load usage summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	daily, err := h.usage.GetDaily(c.Request.Context(), orgID, days)
	if err != nil {
		h.logger.Error("failed to load daily usage", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	recent, err := h.usage.GetRecent(c.Request.Context(), orgID, 20)
	if err != nil {
		h.logger.Error("failed to load recent usage", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"daily":   daily,
		"recent":  recent,
	})
}

// GetStatus returns a lightweight readiness view of the assistant for the
// organization, without secrets.
func (h *AIHandler) GetStatus(c *gin.Context) {
	orgID, ok := orgIDFrom(c)
	if !ok {
		return
	}

	cfg, err := h.configs.GetByOrganization(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to load ai config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false, "enabled": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":    true,
		"enabled":       cfg.IsEnabled,
		"model":         cfg.Model,
		"has_fallback":  cfg.FallbackEndpoint != "" && cfg.FallbackModel != "",
		"tools_enabled": cfg.MCPEnabled,
		"role":          cfg.AIRole,
	})
}
