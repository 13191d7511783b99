package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/live-facts/internal/ai"
	"github.com/yegors/live-facts/internal/templating"
	"github.com/yegors/live-facts/pkg/logger"
)

// DefaultEvidenceMaxTokens caps the web-grounded evidence note
const DefaultEvidenceMaxTokens = 100

// LLMConfig holds model settings for the LLM collaborators
type LLMConfig struct {
	ClassifierModel   string
	VerdictModel      string
	EvidenceModel     string
	EvidenceMaxTokens int
	Temperature       float64
}

// LLM implements TypeClassifier, EvidenceRetriever and VerdictClassifier on
// top of chat providers. chat serves the two classification calls, search
// serves evidence retrieval and should be a web-grounded model.
type LLM struct {
	chat    ai.ChatProvider
	search  ai.ChatProvider
	prompts *templating.Engine
	config  LLMConfig
	now     func() time.Time
	logger  *logger.Logger
}

// NewLLM creates the LLM collaborators
func NewLLM(chat, search ai.ChatProvider, prompts *templating.Engine, config LLMConfig, log *logger.Logger) *LLM {
	if config.EvidenceMaxTokens <= 0 {
		config.EvidenceMaxTokens = DefaultEvidenceMaxTokens
	}
	return &LLM{
		chat:    chat,
		search:  search,
		prompts: prompts,
		config:  config,
		now:     time.Now,
		logger:  log.Named("llm"),
	}
}

// ClassifyCheckable asks the model which checkable category a statement is in
func (l *LLM) ClassifyCheckable(ctx context.Context, statement, convo string) (CheckableType, error) {
	prompt, err := l.prompts.Render(templating.CheckableTypePrompt, templating.PromptData{
		Statement: statement,
		Context:   convo,
	})
	if err != nil {
		return "", err
	}

	content, err := l.chat.ChatCompletion(ctx, userMessage(prompt), ai.ChatConfig{
		Model:       l.config.ClassifierModel,
		Temperature: l.config.Temperature,
		JSON:        true,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	var reply struct {
		CheckableType CheckableType `json:"checkableType"`
	}
	if err := decodeJSONObject(content, &reply); err != nil {
		return "", err
	}
	return reply.CheckableType, nil
}

// RetrieveEvidence asks the search model for a short note on the statement
func (l *LLM) RetrieveEvidence(ctx context.Context, statement, convo string) (string, error) {
	prompt, err := l.prompts.Render(templating.EvidencePrompt, templating.PromptData{
		Statement: statement,
		Context:   convo,
		Today:     l.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	content, err := l.search.ChatCompletion(ctx, userMessage(prompt), ai.ChatConfig{
		Model:       l.config.EvidenceModel,
		Temperature: l.config.Temperature,
		MaxTokens:   l.config.EvidenceMaxTokens,
		WebSearch:   true,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	l.logger.Debug("Evidence retrieved",
		logger.String("statement", statement),
		logger.String("evidence", content))

	return strings.TrimSpace(content), nil
}

// ClassifyVerdict asks the model for the final accuracy verdict
func (l *LLM) ClassifyVerdict(ctx context.Context, statement, convo, additionalInfo string) (Verdict, error) {
	prompt, err := l.prompts.Render(templating.VerdictPrompt, templating.PromptData{
		Statement:      statement,
		Context:        convo,
		AdditionalInfo: additionalInfo,
	})
	if err != nil {
		return Verdict{}, err
	}

	content, err := l.chat.ChatCompletion(ctx, userMessage(prompt), ai.ChatConfig{
		Model:       l.config.VerdictModel,
		Temperature: l.config.Temperature,
		JSON:        true,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("chat completion failed: %w", err)
	}

	var v Verdict
	if err := decodeJSONObject(content, &v); err != nil {
		return Verdict{}, err
	}
	return v, nil
}

func userMessage(prompt string) []ai.ChatMessage {
	return []ai.ChatMessage{{Role: ai.RoleUser, Content: prompt}}
}

// decodeJSONObject parses the outermost JSON object in a model reply, which
// may be wrapped in prose or a code fence.
func decodeJSONObject(content string, v any) error {
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")

	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return fmt.Errorf("response does not contain a JSON object: %s", content)
	}

	if err := json.Unmarshal([]byte(content[startIdx:endIdx+1]), v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
