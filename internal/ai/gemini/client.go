package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/live-facts/internal/ai"
	"github.com/yegors/live-facts/pkg/logger"
	"google.golang.org/genai"
)

// Client represents a Google Gemini API client
type Client struct {
	client *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini Client. baseURL overrides the API endpoint
// and is normally empty.
func NewClient(ctx context.Context, apiKey, baseURL string, logger *logger.Logger) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client: client,
		logger: logger.Named("gemini"),
	}, nil
}

// ChatCompletion implements ai.ChatProvider. WebSearch grounds the reply with
// the Google Search tool; Gemini does not allow it together with JSON mode,
// so JSON is only requested for ungrounded calls.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	var contents []*genai.Content
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(config.Temperature)),
	}
	if config.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(config.MaxTokens)
	}

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			genCfg.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	switch {
	case config.WebSearch:
		genCfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case config.JSON:
		genCfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, config.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no content in response")
	}

	c.logger.Debug("Chat completion finished",
		logger.String("model", config.Model),
		logger.Bool("web_search", config.WebSearch),
		logger.Duration("took", time.Since(start)))

	return text, nil
}
