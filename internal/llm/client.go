// Package llm issues prompt/response calls to configured model backends and
// wraps them with bounded retry and stage-wide concurrency limits.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

const anthropicVersion = "2023-06-01"

// Gateway is the single-attempt call boundary toward one model backend.
type Gateway interface {
	Call(ctx context.Context, cfg model.ModelConfig, prompt string, timeout time.Duration) (string, error)
}

// Client is the production Gateway over net/http. One shared client serves
// all backends; per-call timeouts come from the caller's context.
type Client struct {
	httpClient  *http.Client
	temperature float64
	logger      *logging.Logger
}

func NewClient(temperature float64, logger *logging.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{},
		temperature: temperature,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

type upstreamError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Call performs exactly one prompt/response round-trip. No retry logic here;
// failures come back as *GatewayError for the executor to classify.
func (c *Client) Call(ctx context.Context, cfg model.ModelConfig, prompt string, timeout time.Duration) (string, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return "", &GatewayError{Kind: ErrKindMalformed, Detail: fmt.Sprintf("model %s has incomplete configuration", cfg.ID)}
	}

	reqBody := chatRequest{
		Model:       cfg.APIModelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	if cfg.APIType == "anthropic" {
		reqBody.MaxTokens = 4096
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GatewayError{Kind: ErrKindMalformed, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", &GatewayError{Kind: ErrKindMalformed, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIType == "anthropic" {
		req.Header.Set("x-api-key", cfg.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	} else {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return "", &GatewayError{Kind: ErrKindTimeout, Detail: fmt.Sprintf("model %s: request timed out after %s", cfg.ID, timeout)}
		}
		return "", &GatewayError{Kind: ErrKindNetwork, Detail: fmt.Sprintf("model %s: %v", cfg.ID, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GatewayError{Kind: ErrKindNetwork, Detail: fmt.Sprintf("model %s: read response: %v", cfg.ID, err)}
	}

	if resp.StatusCode >= 400 {
		kind := ErrKindUpstream4xx
		if resp.StatusCode >= 500 {
			kind = ErrKindUpstream5xx
		}
		return "", &GatewayError{Kind: kind, Status: resp.StatusCode, Detail: upstreamDetail(resp.StatusCode, body)}
	}

	content, err := extractContent(cfg.APIType, body)
	if err != nil {
		return "", &GatewayError{Kind: ErrKindMalformed, Detail: fmt.Sprintf("model %s: %v", cfg.ID, err)}
	}

	c.logger.Debugf("gateway: call_success model=%s bytes=%d", cfg.ID, len(content))
	return content, nil
}

// upstreamDetail prefers the JSON error message over raw body text so HTML
// error pages never end up in logs or events.
func upstreamDetail(status int, body []byte) string {
	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err == nil {
		if ue.Error.Message != "" {
			return fmt.Sprintf("HTTP %d: %s", status, ue.Error.Message)
		}
		if ue.Message != "" {
			return fmt.Sprintf("HTTP %d: %s", status, ue.Message)
		}
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

func extractContent(apiType string, body []byte) (string, error) {
	if apiType == "anthropic" {
		var ar anthropicResponse
		if err := json.Unmarshal(body, &ar); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(ar.Content) == 0 {
			return "", fmt.Errorf("response contains no content blocks")
		}
		return ar.Content[0].Text, nil
	}

	var or openAIResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(or.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}
	if or.Choices[0].Message.Content != "" {
		return or.Choices[0].Message.Content, nil
	}
	return strings.TrimSpace(or.Choices[0].Text), nil
}
