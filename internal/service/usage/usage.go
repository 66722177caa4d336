// Package usage provides the append-only usage log and its aggregations.
package usage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/models"
	"github.com/gridworx/helios-ai-gateway/internal/repository"
)

// Service handles usage recording and reporting.
type Service struct {
	usageRepo *repository.UsageLogRepository
	logger    *zap.Logger
}

// NewService creates a new usage service.
func NewService(usageRepo *repository.UsageLogRepository, logger *zap.Logger) *Service {
	return &Service{
		usageRepo: usageRepo,
		logger:    logger,
	}
}

// RecordAttempt appends one usage log entry. Entries are never mutated.
func (s *Service) RecordAttempt(ctx context.Context, entry *models.AIUsageLog) error {
	return s.usageRepo.Create(ctx, entry)
}

// Summary represents aggregated usage data.
type Summary struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalTokens      int64   `json:"total_tokens"`
	AvgLatency       float64 `json:"avg_latency"`
	SuccessRate      float64 `json:"success_rate"`
	ErrorCount       int64   `json:"error_count"`
	ToolCallRequests int64   `json:"tool_call_requests"`
	FallbackServed   int64   `json:"fallback_served"`
}

// GetSummary returns aggregated usage for an organization over a time range.
func (s *Service) GetSummary(ctx context.Context, orgID uuid.UUID, start, end time.Time) (*Summary, error) {
	logs, err := s.usageRepo.GetByOrganizationAndTimeRange(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}
	return Aggregate(logs), nil
}

// Aggregate computes a summary from raw usage rows.
func Aggregate(logs []models.AIUsageLog) *Summary {
	summary := &Summary{}
	var totalLatency int64
	var successCount int64

	for _, entry := range logs {
		summary.TotalRequests++
		summary.TotalTokens += int64(entry.TotalTokens)
		totalLatency += entry.Latency

		if entry.Success {
			successCount++
		} else {
			summary.ErrorCount++
		}
		if entry.IsToolCall {
			summary.ToolCallRequests++
		}
		if entry.EndpointUsed == "fallback" && entry.Success {
			summary.FallbackServed++
		}
	}

	if summary.TotalRequests > 0 {
		summary.AvgLatency = float64(totalLatency) / float64(summary.TotalRequests)
		summary.SuccessRate = float64(successCount) / float64(summary.TotalRequests) * 100
	}

	return summary
}

// DailyUsage represents usage aggregated per day.
type DailyUsage struct {
	Date     string `json:"date"`
	Requests int64  `json:"requests"`
	Tokens   int64  `json:"tokens"`
	Errors   int64  `json:"errors"`
}

// GetDaily returns per-day usage for the last N days.
func (s *Service) GetDaily(ctx context.Context, orgID uuid.UUID, days int) ([]DailyUsage, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	logs, err := s.usageRepo.GetByOrganizationAndTimeRange(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}

	dailyMap := make(map[string]*DailyUsage)
	for _, entry := range logs {
		date := entry.CreatedAt.Format("2006-01-02")
		if _, ok := dailyMap[date]; !ok {
			dailyMap[date] = &DailyUsage{Date: date}
		}
		dailyMap[date].Requests++
		dailyMap[date].Tokens += int64(entry.TotalTokens)
		if !entry.Success {
			dailyMap[date].Errors++
		}
	}

	result := make([]DailyUsage, 0, len(dailyMap))
	for _, d := range dailyMap {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// GetRecent returns recent raw usage rows for an organization.
func (s *Service) GetRecent(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AIUsageLog, error) {
	return s.usageRepo.GetRecent(ctx, orgID, limit)
}
