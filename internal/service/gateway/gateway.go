// Package gateway provides the per-organization LLM gateway: configuration
// resolution, rate limiting, model selection, and primary/fallback endpoint
// orchestration over the OpenAI-compatible chat-completions protocol.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/crypto"
	"github.com/gridworx/helios-ai-gateway/internal/metrics"
	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/service/ratelimit"
)

// Request types recorded in the usage log.
const (
	RequestTypeChat     = "chat"
	RequestTypeToolCall = "tool_call"
)

// ConfigSource resolves per-organization gateway configuration.
// Implementations return (nil, nil) when no configuration exists.
type ConfigSource interface {
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.AIConfig, error)
}

// UsageRecorder appends one usage log entry per endpoint attempt.
type UsageRecorder interface {
	RecordAttempt(ctx context.Context, entry *models.AIUsageLog) error
}

// Service orchestrates completion requests. Endpoints are tried strictly in
// order, primary before fallback, never in parallel: trying them in parallel
// would double-spend the shared token budget.
type Service struct {
	configs ConfigSource
	usage   UsageRecorder
	limiter *ratelimit.Limiter
	caller  EndpointCaller
	logger  *zap.Logger
}

// NewService creates a new gateway service.
func NewService(
	configs ConfigSource,
	usage UsageRecorder,
	limiter *ratelimit.Limiter,
	caller EndpointCaller,
	logger *zap.Logger,
) *Service {
	return &Service{
		configs: configs,
		usage:   usage,
		limiter: limiter,
		caller:  caller,
		logger:  logger,
	}
}

// Complete resolves configuration, enforces rate limits, and attempts the
// configured endpoints in order until one succeeds. Once an endpoint
// succeeds, later ones are never tried. Failed attempts do not consume
// rate-limit budget.
func (s *Service) Complete(ctx context.Context, orgID, userID uuid.UUID, req *CompletionRequest) (*CompletionResponse, error) {
	cfg, err := s.configs.GetByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, NewError(KindNotConfigured, "ai assistant is not configured")
	}
	if !cfg.IsEnabled {
		return nil, NewError(KindDisabled, "ai assistant is disabled")
	}

	decision := s.limiter.Check(orgID.String(), cfg.RequestsPerMinute, cfg.TokensPerDay)
	if !decision.Allowed {
		metrics.RateLimitRejections.Inc()
		return nil, NewError(KindRateLimited, decision.Reason)
	}

	attempt := *req
	if attempt.Temperature == 0 {
		attempt.Temperature = cfg.Temperature
	}
	if attempt.MaxTokens == 0 {
		attempt.MaxTokens = cfg.MaxTokens
	}

	hasTools := len(req.Tools) > 0
	requestType := RequestTypeChat
	if hasTools {
		requestType = RequestTypeToolCall
	}
	toolNames := make([]string, 0, len(req.Tools))
	for _, t := range req.Tools {
		toolNames = append(toolNames, t.Function.Name)
	}

	endpoints := s.resolveEndpoints(cfg, hasTools)

	var lastErr error
	for _, ep := range endpoints {
		start := time.Now()
		resp, err := s.caller.CallEndpoint(ctx, ep, &attempt)
		latency := time.Since(start)

		entry := &models.AIUsageLog{
			OrganizationID: orgID,
			UserID:         userID,
			EndpointUsed:   string(ep.Tier),
			Model:          ep.Model,
			RequestType:    requestType,
			Latency:        latency.Milliseconds(),
			IsToolCall:     hasTools,
			ToolNames:      toolNames,
		}

		if err != nil {
			entry.Success = false
			entry.ErrorMessage = err.Error()
			s.recordUsage(ctx, entry)
			metrics.CompletionAttempts.WithLabelValues(string(ep.Tier), "failure").Inc()

			s.logger.Warn("endpoint attempt failed",
				zap.String("organization_id", orgID.String()),
				zap.String("tier", string(ep.Tier)),
				zap.Error(err))

			lastErr = err
			continue
		}

		entry.Success = true
		entry.PromptTokens = resp.Usage.PromptTokens
		entry.CompletionTokens = resp.Usage.CompletionTokens
		entry.TotalTokens = resp.Usage.TotalTokens
		s.recordUsage(ctx, entry)

		s.limiter.Record(orgID.String(), resp.Usage.TotalTokens)
		metrics.CompletionAttempts.WithLabelValues(string(ep.Tier), "success").Inc()
		metrics.TokensConsumed.WithLabelValues(string(ep.Tier)).Add(float64(resp.Usage.TotalTokens))

		resp.EndpointUsed = ep.Tier
		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, NewError(KindUpstream, "all endpoints failed")
}

// resolveEndpoints builds the ordered endpoint list: always primary, then
// fallback only when both its URL and model are configured. A distinct
// tool-call model, when set, overrides the model on both tiers for requests
// carrying tools. API keys are decrypted here, at the point of use.
func (s *Service) resolveEndpoints(cfg *models.AIConfig, hasTools bool) []Endpoint {
	primaryModel := cfg.Model
	fallbackModel := cfg.FallbackModel
	if hasTools && cfg.ToolCallModel != "" {
		primaryModel = cfg.ToolCallModel
		fallbackModel = cfg.ToolCallModel
	}

	endpoints := []Endpoint{{
		URL:    cfg.Endpoint,
		APIKey: s.decrypt(cfg.EncryptedAPIKey),
		Model:  primaryModel,
		Tier:   TierPrimary,
	}}

	if cfg.FallbackEndpoint != "" && cfg.FallbackModel != "" {
		endpoints = append(endpoints, Endpoint{
			URL:    cfg.FallbackEndpoint,
			APIKey: s.decrypt(cfg.EncryptedFallbackAPIKey),
			Model:  fallbackModel,
			Tier:   TierFallback,
		})
	}

	return endpoints
}

// decrypt decrypts a stored API key. The plaintext never reaches logs.
func (s *Service) decrypt(encrypted string) string {
	if encrypted == "" {
		return ""
	}
	key, err := crypto.Decrypt(encrypted)
	if err != nil {
		s.logger.Error("failed to decrypt stored API key", zap.Error(err))
		return ""
	}
	return key
}

// recordUsage writes a usage log entry. Observability failures are swallowed:
// they must not degrade the user-facing feature.
func (s *Service) recordUsage(ctx context.Context, entry *models.AIUsageLog) {
	if err := s.usage.RecordAttempt(ctx, entry); err != nil {
		s.logger.Error("failed to record usage",
			zap.String("organization_id", entry.OrganizationID.String()),
			zap.Error(err))
	}
}

// ConnectionTestResult reports the outcome of a connectivity probe.
type ConnectionTestResult struct {
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// TestEndpoint probes an endpoint with a minimal completion. Used by the
// admin test-connection surface; does not touch rate limits or usage logs.
func (s *Service) TestEndpoint(ctx context.Context, url, apiKey, model string) *ConnectionTestResult {
	req := &CompletionRequest{
		Messages:    []ChatMessage{{Role: RoleUser, Content: "Hi"}},
		Temperature: 0.1,
		MaxTokens:   5,
	}

	start := time.Now()
	_, err := s.caller.CallEndpoint(ctx, Endpoint{URL: url, APIKey: apiKey, Model: model, Tier: TierPrimary}, req)
	latency := time.Since(start)

	if err != nil {
		return &ConnectionTestResult{OK: false, Latency: latency, Error: err.Error()}
	}
	return &ConnectionTestResult{OK: true, Latency: latency}
}
