package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/yegors/live-facts/internal/ai"
	"github.com/yegors/live-facts/pkg/logger"
)

// Well-known OpenAI-compatible endpoints
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	PerplexityBaseURL = "https://api.perplexity.ai"
)

// Client handles chat completions against an OpenAI-compatible API. The same
// client serves OpenAI and Perplexity, which differ only in base URL.
type Client struct {
	client  *goopenai.Client
	name    string
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new client. name labels log lines ("openai",
// "perplexity"); an empty baseURL means OpenAI.
func NewClient(name, apiKey, baseURL string, logger *logger.Logger) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = base
	cfg.HTTPClient = &http.Client{
		Timeout: 120 * time.Second,
	}

	return &Client{
		client:  goopenai.NewClientWithConfig(cfg),
		name:    name,
		baseURL: base,
		logger:  logger.Named(name),
	}
}

// ChatCompletion implements ai.ChatProvider. WebSearch is ignored: models
// behind an online endpoint search on their own.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	reqMessages := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		reqMessages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	req := goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Messages:    reqMessages,
		MaxTokens:   config.MaxTokens,
		Temperature: float32(config.Temperature),
	}
	if config.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w", c.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Debug("Chat completion finished",
		logger.String("model", config.Model),
		logger.Int("prompt_tokens", resp.Usage.PromptTokens),
		logger.Int("completion_tokens", resp.Usage.CompletionTokens),
		logger.Duration("took", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}
