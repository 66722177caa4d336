package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EndpointCaller posts a chat-completion request to a single
// OpenAI-compatible endpoint and normalizes the result.
type EndpointCaller interface {
	CallEndpoint(ctx context.Context, ep Endpoint, req *CompletionRequest) (*CompletionResponse, error)
}

// HTTPClient is the production EndpointCaller.
type HTTPClient struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient creates an endpoint client. The timeout bounds one attempt;
// a hung upstream becomes a failed attempt instead of a stuck request.
func NewHTTPClient(timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// chatCompletionsBody is the wire request. Tools is omitted entirely when
// empty; some backends reject an empty tools array.
type chatCompletionsBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Tools       []Tool        `json:"tools,omitempty"`
}

// chatCompletionsResponse is the wire response.
type chatCompletionsResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// CallEndpoint sends one chat-completion request. All failures are tagged
// KindUpstream so the orchestrator can fall through to the next endpoint.
func (c *HTTPClient) CallEndpoint(ctx context.Context, ep Endpoint, req *CompletionRequest) (*CompletionResponse, error) {
	reqBody := chatCompletionsBody{
		Model:       ep.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(req.Tools) > 0 {
		reqBody.Tools = req.Tools
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewError(KindUpstream, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(ep.URL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, NewError(KindUpstream, err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if ep.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewError(KindUpstream, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindUpstream, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(KindUpstream, extractErrorMessage(resp.StatusCode, raw))
	}

	var chatResp chatCompletionsResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		if mentionsToolOutput(string(raw), req.Tools) {
			return nil, NewError(KindUpstream,
				"model returned an unparseable response that mentions tool output; the model likely does not support structured function calling")
		}
		return nil, NewError(KindUpstream, "failed to parse model response: "+err.Error())
	}

	if len(chatResp.Choices) == 0 {
		return nil, NewError(KindUpstream, "no response from model")
	}

	choice := chatResp.Choices[0]
	return &CompletionResponse{
		ID:           chatResp.ID,
		Model:        chatResp.Model,
		Message:      choice.Message,
		Usage:        chatResp.Usage,
		FinishReason: choice.FinishReason,
	}, nil
}

// extractErrorMessage pulls the most useful message out of a non-2xx body:
// the standard {error:{message}} shape, then raw text, then the status code.
func extractErrorMessage(status int, raw []byte) string {
	var wireErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &wireErr); err == nil && wireErr.Error.Message != "" {
		return wireErr.Error.Message
	}

	text := strings.TrimSpace(string(raw))
	if text != "" {
		return text
	}

	return fmt.Sprintf("HTTP %d", status)
}

// mentionsToolOutput checks an unparseable body for traces of tool calling.
// Some models emit free-text function-call markup instead of structured
// tool_calls; the distinction only improves the error message.
func mentionsToolOutput(raw string, tools []Tool) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "tool_call") ||
		strings.Contains(lower, "function_call") ||
		strings.Contains(lower, "<function") {
		return true
	}
	for _, t := range tools {
		if t.Function.Name != "" && strings.Contains(lower, strings.ToLower(t.Function.Name)) {
			return true
		}
	}
	return false
}
