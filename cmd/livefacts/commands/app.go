package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yegors/live-facts/internal/ai"
	"github.com/yegors/live-facts/internal/ai/gemini"
	"github.com/yegors/live-facts/internal/ai/openai"
	"github.com/yegors/live-facts/internal/config"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/internal/templating"
	"github.com/yegors/live-facts/pkg/logger"
)

// shutdownTimeout bounds graceful shutdown of servers and sessions
const shutdownTimeout = 10 * time.Second

// loadConfig loads configuration and builds the logger every command uses
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating logger: %w", err)
	}

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		log.Warn("Missing API keys, affected features will fail", logger.Any("keys", missing))
	}

	return cfg, log, nil
}

// newProvider builds the chat provider registered under name
func newProvider(ctx context.Context, cfg *config.Config, name string, log *logger.Logger) (ai.ChatProvider, error) {
	creds := cfg.ProviderFor(name)
	switch name {
	case config.ProviderOpenAI:
		return openai.NewClient(name, creds.APIKey, creds.BaseURL, log), nil
	case config.ProviderPerplexity:
		baseURL := creds.BaseURL
		if baseURL == "" {
			baseURL = openai.PerplexityBaseURL
		}
		return openai.NewClient(name, creds.APIKey, baseURL, log), nil
	case config.ProviderGemini:
		return gemini.NewClient(ctx, creds.APIKey, creds.BaseURL, log)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// newChecker wires the classification pipeline from configuration
func newChecker(ctx context.Context, cfg *config.Config, log *logger.Logger) (*factcheck.Pipeline, error) {
	chat, err := newProvider(ctx, cfg, cfg.FactCheck.ClassifierProvider, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier provider: %w", err)
	}

	search := chat
	if cfg.FactCheck.SearchProvider != cfg.FactCheck.ClassifierProvider {
		search, err = newProvider(ctx, cfg, cfg.FactCheck.SearchProvider, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create search provider: %w", err)
		}
	}

	prompts := templating.NewEngine(cfg.Templating.PromptsDir, log)
	llm := factcheck.NewLLM(chat, search, prompts, factcheck.LLMConfig{
		ClassifierModel:   cfg.FactCheck.ClassifierModel,
		VerdictModel:      cfg.FactCheck.VerdictModel,
		EvidenceModel:     cfg.FactCheck.EvidenceModel,
		EvidenceMaxTokens: cfg.FactCheck.EvidenceMaxTokens,
		Temperature:       cfg.FactCheck.Temperature,
	}, log)

	return factcheck.NewPipeline(llm, llm, llm, cfg.CheckTimeout(), log), nil
}

// readInput reads a file argument, or stdin for "-"
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
