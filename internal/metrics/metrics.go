// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompletionAttempts counts endpoint attempts by tier and outcome.
	CompletionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_completion_attempts_total",
		Help: "Completion attempts by endpoint tier and outcome.",
	}, []string{"tier", "outcome"})

	// TokensConsumed counts total tokens reported by upstream endpoints.
	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_tokens_total",
		Help: "Tokens consumed by successful completions, by endpoint tier.",
	}, []string{"tier"})

	// ToolInvocations counts tool executions requested by the model.
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_gateway_tool_invocations_total",
		Help: "Tool invocations dispatched by the tool-call loop.",
	}, []string{"tool"})

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ai_gateway_rate_limit_rejections_total",
		Help: "Requests rejected by per-organization rate limits.",
	})
)
