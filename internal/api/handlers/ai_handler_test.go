package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/api/middleware"
	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/service/assistant"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
	"github.com/gridworx/helios-ai-gateway/internal/service/usage"
)

type stubChat struct {
	result *assistant.ChatResult
	err    error
}

func (s *stubChat) Chat(_ context.Context, _, _ uuid.UUID, _ *assistant.ChatRequest) (*assistant.ChatResult, error) {
	return s.result, s.err
}

type stubTester struct {
	result *gateway.ConnectionTestResult
	gotKey string
}

func (s *stubTester) TestEndpoint(_ context.Context, _, apiKey, _ string) *gateway.ConnectionTestResult {
	s.gotKey = apiKey
	return s.result
}

type stubConfigStore struct {
	cfg      *models.AIConfig
	upserted *models.AIConfig
	err      error
}

func (s *stubConfigStore) GetByOrganization(_ context.Context, _ uuid.UUID) (*models.AIConfig, error) {
	return s.cfg, s.err
}

func (s *stubConfigStore) Upsert(_ context.Context, cfg *models.AIConfig) error {
	s.upserted = cfg
	return nil
}

type stubHistoryService struct {
	messages []gateway.ChatMessage
	cleared  string
}

func (s *stubHistoryService) Recent(_ context.Context, _ uuid.UUID, _ string, _ int) ([]gateway.ChatMessage, error) {
	return s.messages, nil
}

func (s *stubHistoryService) Clear(_ context.Context, _ uuid.UUID, sessionID string) error {
	s.cleared = sessionID
	return nil
}

type stubUsageService struct{}

func (s *stubUsageService) GetSummary(_ context.Context, _ uuid.UUID, _, _ time.Time) (*usage.Summary, error) {
	return &usage.Summary{TotalRequests: 3}, nil
}

func (s *stubUsageService) GetDaily(_ context.Context, _ uuid.UUID, _ int) ([]usage.DailyUsage, error) {
	return []usage.DailyUsage{{Date: "2026-08-24", Requests: 3}}, nil
}

func (s *stubUsageService) GetRecent(_ context.Context, _ uuid.UUID, _ int) ([]models.AIUsageLog, error) {
	return nil, nil
}

type handlerDeps struct {
	chat    *stubChat
	tester  *stubTester
	configs *stubConfigStore
	history *stubHistoryService
}

func newTestRouter(deps handlerDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if deps.chat == nil {
		deps.chat = &stubChat{}
	}
	if deps.tester == nil {
		deps.tester = &stubTester{result: &gateway.ConnectionTestResult{OK: true}}
	}
	if deps.configs == nil {
		deps.configs = &stubConfigStore{}
	}
	if deps.history == nil {
		deps.history = &stubHistoryService{}
	}

	h := NewAIHandler(deps.chat, deps.tester, deps.configs, deps.history, &stubUsageService{}, zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.CtxOrganizationID, uuid.NewString())
		c.Set(middleware.CtxUserID, uuid.NewString())
		c.Set(middleware.CtxRole, "admin")
	})

	router.GET("/ai/config", h.GetConfig)
	router.PUT("/ai/config", h.UpdateConfig)
	router.POST("/ai/test-connection", h.TestConnection)
	router.POST("/ai/chat", h.Chat)
	router.GET("/ai/chat/:sessionId", h.GetChatHistory)
	router.DELETE("/ai/chat/:sessionId", h.ClearChatSession)
	router.GET("/ai/usage", h.GetUsage)
	router.GET("/ai/status", h.GetStatus)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestChatSuccess(t *testing.T) {
	chat := &stubChat{result: &assistant.ChatResult{
		SessionID:    "sess-1",
		Message:      "hello",
		Model:        "m1",
		EndpointUsed: gateway.TierPrimary,
	}}
	router := newTestRouter(handlerDeps{chat: chat})

	w := doJSON(router, http.MethodPost, "/ai/chat", gin.H{"message": "hi"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sess-1")
	assert.Contains(t, w.Body.String(), "hello")
}

func TestChatMissingMessage(t *testing.T) {
	router := newTestRouter(handlerDeps{})

	w := doJSON(router, http.MethodPost, "/ai/chat", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
	}{
		{"not configured", gateway.NewError(gateway.KindNotConfigured, "ai assistant is not configured"), http.StatusBadRequest, "configuration"},
		{"disabled", gateway.NewError(gateway.KindDisabled, "ai assistant is disabled"), http.StatusBadRequest, "configuration"},
		{"rate limited", gateway.NewError(gateway.KindRateLimited, "rate limit exceeded"), http.StatusTooManyRequests, "rate_limited"},
		{"upstream", gateway.NewError(gateway.KindUpstream, "connection refused"), http.StatusBadGateway, "upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(handlerDeps{chat: &stubChat{err: tt.err}})

			w := doJSON(router, http.MethodPost, "/ai/chat", gin.H{"message": "hi"})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantTag)
		})
	}
}

func TestChatUpstreamDetailNotLeaked(t *testing.T) {
	router := newTestRouter(handlerDeps{chat: &stubChat{
		err: gateway.NewError(gateway.KindUpstream, "dial tcp 10.0.0.1:443: connection refused"),
	}})

	w := doJSON(router, http.MethodPost, "/ai/chat", gin.H{"message": "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestGetConfigUnconfigured(t *testing.T) {
	router := newTestRouter(handlerDeps{})

	w := doJSON(router, http.MethodGet, "/ai/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"configured":false`)
}

func TestGetConfigMasksSecrets(t *testing.T) {
	configs := &stubConfigStore{cfg: &models.AIConfig{
		OrganizationID:  uuid.New(),
		Endpoint:        "https://api.example.com/v1",
		EncryptedAPIKey: "encrypted-secret-value",
		Model:           "m1",
		IsEnabled:       true,
	}}
	router := newTestRouter(handlerDeps{configs: configs})

	w := doJSON(router, http.MethodGet, "/ai/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_api_key":true`)
	assert.NotContains(t, w.Body.String(), "encrypted-secret-value")
}

func TestUpdateConfig(t *testing.T) {
	configs := &stubConfigStore{}
	router := newTestRouter(handlerDeps{configs: configs})

	w := doJSON(router, http.MethodPut, "/ai/config", gin.H{
		"endpoint": "https://api.example.com/v1",
		"api_key":  "sk-new",
		"model":    "m1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, configs.upserted)
	assert.Equal(t, "https://api.example.com/v1", configs.upserted.Endpoint)
	assert.NotEmpty(t, configs.upserted.EncryptedAPIKey)
	// Defaults fill unset tuning fields.
	assert.Equal(t, 20, configs.upserted.RequestsPerMinute)
	assert.Equal(t, 100000, configs.upserted.TokensPerDay)
	assert.Equal(t, models.AIRoleViewer, configs.upserted.AIRole)
	assert.True(t, configs.upserted.IsEnabled)

	// The response never echoes the key.
	assert.NotContains(t, w.Body.String(), "sk-new")
}

func TestUpdateConfigPreservesStoredKeys(t *testing.T) {
	configs := &stubConfigStore{cfg: &models.AIConfig{
		OrganizationID:          uuid.New(),
		Endpoint:                "https://api.example.com/v1",
		EncryptedAPIKey:         "stored-primary",
		EncryptedFallbackAPIKey: "stored-fallback",
		Model:                   "m1",
	}}
	router := newTestRouter(handlerDeps{configs: configs})

	w := doJSON(router, http.MethodPut, "/ai/config", gin.H{
		"endpoint": "https://api.example.com/v1",
		"model":    "m2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, configs.upserted)
	assert.Equal(t, "stored-primary", configs.upserted.EncryptedAPIKey)
	assert.Equal(t, "stored-fallback", configs.upserted.EncryptedFallbackAPIKey)
	assert.Equal(t, "m2", configs.upserted.Model)
}

func TestUpdateConfigRequiresEndpointAndModel(t *testing.T) {
	router := newTestRouter(handlerDeps{})

	w := doJSON(router, http.MethodPut, "/ai/config", gin.H{"model": "m1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, "/ai/config", gin.H{"endpoint": "https://x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestConnection(t *testing.T) {
	tester := &stubTester{result: &gateway.ConnectionTestResult{OK: true, Latency: 120 * time.Millisecond}}
	router := newTestRouter(handlerDeps{tester: tester})

	w := doJSON(router, http.MethodPost, "/ai/test-connection", gin.H{
		"endpoint": "https://api.example.com/v1",
		"api_key":  "sk-probe",
		"model":    "m1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Equal(t, "sk-probe", tester.gotKey)
}

func TestTestConnectionUsesStoredKeyWhenOmitted(t *testing.T) {
	tester := &stubTester{result: &gateway.ConnectionTestResult{OK: true}}
	configs := &stubConfigStore{cfg: &models.AIConfig{
		OrganizationID:  uuid.New(),
		EncryptedAPIKey: "stored-key",
	}}
	router := newTestRouter(handlerDeps{tester: tester, configs: configs})

	w := doJSON(router, http.MethodPost, "/ai/test-connection", gin.H{
		"endpoint": "https://api.example.com/v1",
		"model":    "m1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	// Without an initialized encryptor the stored value decrypts to itself.
	assert.Equal(t, "stored-key", tester.gotKey)
}

func TestClearChatSession(t *testing.T) {
	hist := &stubHistoryService{}
	router := newTestRouter(handlerDeps{history: hist})

	w := doJSON(router, http.MethodDelete, "/ai/chat/sess-9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-9", hist.cleared)
}

func TestGetChatHistory(t *testing.T) {
	hist := &stubHistoryService{messages: []gateway.ChatMessage{
		{Role: gateway.RoleUser, Content: "hi"},
		{Role: gateway.RoleAssistant, Content: "hello"},
	}}
	router := newTestRouter(handlerDeps{history: hist})

	w := doJSON(router, http.MethodGet, "/ai/chat/sess-9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sess-9")
	assert.Contains(t, w.Body.String(), "hello")
}

func TestGetUsage(t *testing.T) {
	router := newTestRouter(handlerDeps{})

	w := doJSON(router, http.MethodGet, "/ai/usage?days=7", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"summary"`)
	assert.Contains(t, w.Body.String(), `"daily"`)
}

func TestGetStatus(t *testing.T) {
	configs := &stubConfigStore{cfg: &models.AIConfig{
		OrganizationID:   uuid.New(),
		Endpoint:         "https://api.example.com/v1",
		Model:            "m1",
		FallbackEndpoint: "https://fallback.example.com/v1",
		FallbackModel:    "m2",
		IsEnabled:        true,
		MCPEnabled:       true,
		AIRole:           models.AIRoleOperator,
	}}
	router := newTestRouter(handlerDeps{configs: configs})

	w := doJSON(router, http.MethodGet, "/ai/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"configured":true`)
	assert.Contains(t, w.Body.String(), `"has_fallback":true`)
	assert.Contains(t, w.Body.String(), `"tools_enabled":true`)
}

func TestInvalidOrganizationContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAIHandler(&stubChat{}, &stubTester{}, &stubConfigStore{}, &stubHistoryService{}, &stubUsageService{}, zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.CtxOrganizationID, "not-a-uuid")
	})
	router.GET("/ai/status", h.GetStatus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
