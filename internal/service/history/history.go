// Package history provides chat session persistence with a Redis
// read-through cache.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/repository"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
	"github.com/gridworx/helios-ai-gateway/internal/tokencount"
)

// Service handles chat history storage. The database is the source of
// truth; Redis only accelerates session reads and may be absent.
type Service struct {
	repo   *repository.ChatMessageRepository
	redis  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewService creates a new history service. redisClient may be nil.
func NewService(repo *repository.ChatMessageRepository, redisClient *redis.Client, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		redis:  redisClient,
		logger: logger,
		ttl:    24 * time.Hour,
	}
}

// cachedMessage is the Redis representation of a stored message.
type cachedMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

// Append persists one message at the end of a session.
func (s *Service) Append(ctx context.Context, orgID, userID uuid.UUID, sessionID, role, content string) error {
	count, err := s.repo.CountBySession(ctx, orgID, sessionID)
	if err != nil {
		return err
	}

	msg := &models.AIChatMessage{
		OrganizationID: orgID,
		UserID:         userID,
		SessionID:      sessionID,
		Role:           role,
		Content:        content,
		TokenCount:     tokencount.Estimate(content),
		Sequence:       int(count) + 1,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return err
	}

	s.refreshCache(ctx, orgID, sessionID)
	return nil
}

// Recent returns up to limit session messages, oldest first.
func (s *Service) Recent(ctx context.Context, orgID uuid.UUID, sessionID string, limit int) ([]gateway.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	if cached := s.fromCache(ctx, orgID, sessionID); cached != nil {
		if len(cached) > limit {
			cached = cached[len(cached)-limit:]
		}
		return cached, nil
	}

	stored, err := s.repo.GetBySession(ctx, orgID, sessionID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]gateway.ChatMessage, len(stored))
	for i, m := range stored {
		messages[i] = gateway.ChatMessage{Role: m.Role, Content: m.Content}
	}

	s.toCache(ctx, orgID, sessionID, stored)
	return messages, nil
}

// Clear deletes a session.
func (s *Service) Clear(ctx context.Context, orgID uuid.UUID, sessionID string) error {
	if err := s.repo.DeleteBySession(ctx, orgID, sessionID); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, s.cacheKey(orgID, sessionID)).Err(); err != nil {
			s.logger.Warn("failed to drop session cache", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) cacheKey(orgID uuid.UUID, sessionID string) string {
	return "chat:" + orgID.String() + ":" + sessionID
}

func (s *Service) fromCache(ctx context.Context, orgID uuid.UUID, sessionID string) []gateway.ChatMessage {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, s.cacheKey(orgID, sessionID)).Bytes()
	if err != nil {
		return nil
	}

	var cached []cachedMessage
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}

	messages := make([]gateway.ChatMessage, len(cached))
	for i, m := range cached {
		messages[i] = gateway.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return messages
}

func (s *Service) toCache(ctx context.Context, orgID uuid.UUID, sessionID string, stored []models.AIChatMessage) {
	if s.redis == nil {
		return
	}

	cached := make([]cachedMessage, len(stored))
	for i, m := range stored {
		cached[i] = cachedMessage{Role: m.Role, Content: m.Content, TokenCount: m.TokenCount}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, s.cacheKey(orgID, sessionID), data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to cache session", zap.Error(err))
	}
}

func (s *Service) refreshCache(ctx context.Context, orgID uuid.UUID, sessionID string) {
	if s.redis == nil {
		return
	}

	stored, err := s.repo.GetBySession(ctx, orgID, sessionID, 200)
	if err != nil {
		return
	}
	s.toCache(ctx, orgID, sessionID, stored)
}

// TrimToTokenBudget drops the oldest messages until the estimated token
// total fits the budget. The most recent message is always kept.
func TrimToTokenBudget(messages []gateway.ChatMessage, budget int) []gateway.ChatMessage {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}

	total := 0
	counts := make([]int, len(messages))
	for i, m := range messages {
		counts[i] = tokencount.Estimate(m.Content)
		total += counts[i]
	}

	start := 0
	for total > budget && start < len(messages)-1 {
		total -= counts[start]
		start++
	}

	return messages[start:]
}
