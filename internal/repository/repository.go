// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gridworx/helios-ai-gateway/internal/models"
)

// AIConfigRepository handles gateway configuration data access.
type AIConfigRepository struct {
	db *gorm.DB
}

// NewAIConfigRepository creates a new AI config repository.
func NewAIConfigRepository(db *gorm.DB) *AIConfigRepository {
	return &AIConfigRepository{db: db}
}

// GetByOrganization retrieves the configuration for an organization.
// Returns (nil, nil) when no configuration exists.
func (r *AIConfigRepository) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*models.AIConfig, error) {
	var cfg models.AIConfig
	err := r.db.WithContext(ctx).First(&cfg, "organization_id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert creates or replaces the configuration for an organization.
func (r *AIConfigRepository) Upsert(ctx context.Context, cfg *models.AIConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}

// UsageLogRepository handles usage log data access.
type UsageLogRepository struct {
	db *gorm.DB
}

// NewUsageLogRepository creates a new usage log repository.
func NewUsageLogRepository(db *gorm.DB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Create inserts a new usage log entry.
func (r *UsageLogRepository) Create(ctx context.Context, entry *models.AIUsageLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetByOrganizationAndTimeRange retrieves usage logs for an organization in a time range.
func (r *UsageLogRepository) GetByOrganizationAndTimeRange(ctx context.Context, orgID uuid.UUID, start, end time.Time) ([]models.AIUsageLog, error) {
	var logs []models.AIUsageLog
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND created_at >= ? AND created_at <= ?", orgID, start, end).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetRecent retrieves the most recent usage logs for an organization.
func (r *UsageLogRepository) GetRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AIUsageLog, error) {
	var logs []models.AIUsageLog
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ChatMessageRepository handles chat history data access.
type ChatMessageRepository struct {
	db *gorm.DB
}

// NewChatMessageRepository creates a new chat message repository.
func NewChatMessageRepository(db *gorm.DB) *ChatMessageRepository {
	return &ChatMessageRepository{db: db}
}

// Create inserts a new chat message.
func (r *ChatMessageRepository) Create(ctx context.Context, msg *models.AIChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetBySession retrieves the most recent messages of a session, returned
// oldest first. Sessions longer than limit keep the newest messages so the
// model context keeps evolving.
func (r *ChatMessageRepository) GetBySession(ctx context.Context, orgID uuid.UUID, sessionID string, limit int) ([]models.AIChatMessage, error) {
	var messages []models.AIChatMessage
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND session_id = ?", orgID, sessionID).
		Order("sequence DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountBySession returns how many messages a session holds.
func (r *ChatMessageRepository) CountBySession(ctx context.Context, orgID uuid.UUID, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AIChatMessage{}).
		Where("organization_id = ? AND session_id = ?", orgID, sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteBySession deletes all messages in a session.
func (r *ChatMessageRepository) DeleteBySession(ctx context.Context, orgID uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND session_id = ?", orgID, sessionID).
		Delete(&models.AIChatMessage{}).Error
}
