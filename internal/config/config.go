package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Provider names accepted by the fact-check settings
const (
	ProviderOpenAI     = "openai"
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Storage       StorageConfig       `toml:"storage"`       // Statement journal settings
	Session       SessionConfig       `toml:"session"`       // Segmentation and session timers
	OpenAI        ProviderConfig      `toml:"openai"`        // OpenAI API settings
	Perplexity    ProviderConfig      `toml:"perplexity"`    // Perplexity API settings (OpenAI-compatible)
	Gemini        ProviderConfig      `toml:"gemini"`        // Gemini API settings
	FactCheck     FactCheckConfig     `toml:"factcheck"`     // Classification pipeline settings
	Templating    TemplatingConfig    `toml:"templating"`    // Prompt template settings
	Transcription TranscriptionConfig `toml:"transcription"` // Streaming speech-to-text settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains statement journal configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type: "sqlite" or "none"
	SQLiteBasePath string `toml:"sqlite_base_path"` // Directory for journal files (actual filename will be generated as livefacts-YYYY-MM-DD.db)
}

// SessionConfig contains segmentation and session timer settings
type SessionConfig struct {
	QuietIntervalMs  int `toml:"quiet_interval_ms"`     // Silence before the buffer is flushed as a statement
	HardCapSeconds   int `toml:"hard_cap_seconds"`      // Maximum recording length of one session
	KeepAliveSeconds int `toml:"keep_alive_seconds"`    // Keep-alive interval while connected but not capturing
	CheckTimeoutSecs int `toml:"check_timeout_seconds"` // Deadline for one statement's classification
}

// ProviderConfig holds credentials for one model provider
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`  // API key (usually supplied through the environment)
	BaseURL string `toml:"base_url"` // Optional base URL override (e.g., for proxies)
}

// FactCheckConfig contains classification pipeline settings
type FactCheckConfig struct {
	ClassifierProvider string  `toml:"classifier_provider"` // Provider for checkable-type and verdict calls
	SearchProvider     string  `toml:"search_provider"`     // Provider for web-grounded evidence retrieval
	ClassifierModel    string  `toml:"classifier_model"`    // Model for the checkable-type call
	VerdictModel       string  `toml:"verdict_model"`       // Model for the final verdict call
	EvidenceModel      string  `toml:"evidence_model"`      // Model for evidence retrieval
	EvidenceMaxTokens  int     `toml:"evidence_max_tokens"` // Output cap for evidence retrieval
	Temperature        float64 `toml:"temperature"`         // Sampling temperature for all calls
}

// TemplatingConfig contains prompt template settings
type TemplatingConfig struct {
	PromptsDir string `toml:"prompts_dir"` // Optional directory whose .tmpl files override the built-in prompts
}

// TranscriptionConfig contains streaming speech-to-text settings
type TranscriptionConfig struct {
	Provider             string   `toml:"provider"`               // "deepgram" or "none" (clients push fragments themselves)
	DeepgramAPIKey       string   `toml:"deepgram_api_key"`       // Deepgram API key
	URL                  string   `toml:"url"`                    // Live listen endpoint
	Model                string   `toml:"model"`                  // Recognition model (e.g., "nova-2")
	Language             string   `toml:"language"`               // Primary language (e.g., "en")
	InterimResults       bool     `toml:"interim_results"`        // Request interim fragments
	SmartFormat          bool     `toml:"smart_format"`           // Punctuation and formatting
	FillerWords          bool     `toml:"filler_words"`           // Keep filler words in the transcript
	EndpointingMs        int      `toml:"endpointing_ms"`         // Server-side endpointing silence
	Keywords             []string `toml:"keywords"`               // Boosted keywords
	Encoding             string   `toml:"encoding"`               // Raw audio encoding; empty for containerized audio
	SampleRate           int      `toml:"sample_rate"`            // Raw audio sample rate in Hz
	Channels             int      `toml:"channels"`               // Raw audio channel count
	HandshakeTimeoutSecs int      `toml:"handshake_timeout_secs"` // Websocket dial timeout
}

// Default returns a configuration populated with built-in defaults
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

// base holds the boolean defaults, which cannot be told apart from an unset
// value after decoding
func base() *Config {
	return &Config{
		Transcription: TranscriptionConfig{
			InterimResults: true,
			SmartFormat:    true,
			FillerWords:    true,
		},
	}
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	config := base()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback attempts to load configuration from multiple locations.
// When no file is found the built-in defaults are used. Environment overrides
// are applied on top, then the result is validated.
func LoadWithFallback(preferredPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var config *Config
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err != nil {
			if path == preferredPath {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			continue
		}
		loaded, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		config = loaded
		break
	}
	if config == nil {
		config = base()
	}

	config.ApplyEnv(os.LookupEnv)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides secrets and the log level from the environment
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Transcription.DeepgramAPIKey, "DEEPGRAM_API_KEY")
	set(&c.Logging.Level, "LIVEFACTS_LOG_LEVEL")
}

// Validate fills unset values with defaults and rejects invalid ones
func (c *Config) Validate() error {
	c.applyDefaults()

	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'console')", c.Logging.Format)
	}

	switch c.Storage.Type {
	case "sqlite", "none":
	default:
		return fmt.Errorf("invalid storage type: %s (must be 'sqlite' or 'none')", c.Storage.Type)
	}

	if c.Session.QuietIntervalMs < 0 || c.Session.HardCapSeconds < 0 || c.Session.KeepAliveSeconds < 0 {
		return errors.New("session intervals must not be negative")
	}
	if c.Session.HardCapSeconds*1000 < c.Session.QuietIntervalMs {
		return fmt.Errorf("hard_cap_seconds (%d) is shorter than quiet_interval_ms (%d)",
			c.Session.HardCapSeconds, c.Session.QuietIntervalMs)
	}

	for _, p := range []struct{ name, value string }{
		{"classifier_provider", c.FactCheck.ClassifierProvider},
		{"search_provider", c.FactCheck.SearchProvider},
	} {
		switch p.value {
		case ProviderOpenAI, ProviderPerplexity, ProviderGemini:
		default:
			return fmt.Errorf("invalid %s: %s (must be 'openai', 'perplexity', or 'gemini')", p.name, p.value)
		}
	}
	if c.FactCheck.SearchProvider == ProviderOpenAI {
		return errors.New("search_provider cannot be 'openai': evidence retrieval needs web search")
	}
	if c.FactCheck.EvidenceMaxTokens < 0 {
		return fmt.Errorf("invalid evidence_max_tokens: %d", c.FactCheck.EvidenceMaxTokens)
	}
	if c.FactCheck.Temperature < 0 || c.FactCheck.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %v (must be between 0 and 2)", c.FactCheck.Temperature)
	}

	if c.Templating.PromptsDir != "" {
		if info, err := os.Stat(c.Templating.PromptsDir); err != nil || !info.IsDir() {
			return fmt.Errorf("prompts directory does not exist: %s", c.Templating.PromptsDir)
		}
	}

	switch c.Transcription.Provider {
	case "deepgram", "none":
	default:
		return fmt.Errorf("invalid transcription provider: %s (must be 'deepgram' or 'none')", c.Transcription.Provider)
	}
	if c.Transcription.EndpointingMs < 0 {
		return fmt.Errorf("invalid endpointing_ms: %d", c.Transcription.EndpointingMs)
	}

	return nil
}

// ProviderFor returns the credentials of the named provider
func (c *Config) ProviderFor(name string) ProviderConfig {
	switch name {
	case ProviderPerplexity:
		return c.Perplexity
	case ProviderGemini:
		return c.Gemini
	default:
		return c.OpenAI
	}
}

// MissingKeys lists the API keys the configured providers need but lack
func (c *Config) MissingKeys() []string {
	var missing []string
	seen := map[string]bool{}
	for _, name := range []string{c.FactCheck.ClassifierProvider, c.FactCheck.SearchProvider} {
		if seen[name] {
			continue
		}
		seen[name] = true
		if c.ProviderFor(name).APIKey == "" {
			missing = append(missing, strings.ToUpper(name)+"_API_KEY")
		}
	}
	if c.Transcription.Provider == "deepgram" && c.Transcription.DeepgramAPIKey == "" {
		missing = append(missing, "DEEPGRAM_API_KEY")
	}
	return missing
}

// JournalPath returns the path of today's journal database
func (c *Config) JournalPath(now time.Time) string {
	return filepath.Join(c.Storage.SQLiteBasePath, fmt.Sprintf("livefacts-%s.db", now.Format("2006-01-02")))
}

// QuietInterval returns the segmenter quiet interval
func (c *Config) QuietInterval() time.Duration {
	return time.Duration(c.Session.QuietIntervalMs) * time.Millisecond
}

// HardCap returns the session length limit
func (c *Config) HardCap() time.Duration {
	return time.Duration(c.Session.HardCapSeconds) * time.Second
}

// KeepAliveInterval returns the transcriber keep-alive interval
func (c *Config) KeepAliveInterval() time.Duration {
	return time.Duration(c.Session.KeepAliveSeconds) * time.Second
}

// CheckTimeout returns the per-statement classification deadline
func (c *Config) CheckTimeout() time.Duration {
	return time.Duration(c.Session.CheckTimeoutSecs) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 30
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 120
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	if c.Session.QuietIntervalMs == 0 {
		c.Session.QuietIntervalMs = 3000
	}
	if c.Session.HardCapSeconds == 0 {
		c.Session.HardCapSeconds = 180
	}
	if c.Session.KeepAliveSeconds == 0 {
		c.Session.KeepAliveSeconds = 10
	}
	if c.Session.CheckTimeoutSecs == 0 {
		c.Session.CheckTimeoutSecs = 60
	}

	if c.FactCheck.ClassifierProvider == "" {
		c.FactCheck.ClassifierProvider = ProviderOpenAI
	}
	if c.FactCheck.SearchProvider == "" {
		c.FactCheck.SearchProvider = ProviderPerplexity
	}
	if c.FactCheck.ClassifierModel == "" {
		c.FactCheck.ClassifierModel = defaultModel(c.FactCheck.ClassifierProvider, "gpt-4o-mini")
	}
	if c.FactCheck.VerdictModel == "" {
		c.FactCheck.VerdictModel = defaultModel(c.FactCheck.ClassifierProvider, "gpt-4o")
	}
	if c.FactCheck.EvidenceModel == "" {
		c.FactCheck.EvidenceModel = defaultModel(c.FactCheck.SearchProvider, "sonar")
	}
	if c.FactCheck.EvidenceMaxTokens == 0 {
		c.FactCheck.EvidenceMaxTokens = 100
	}

	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "deepgram"
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "nova-2"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.EndpointingMs == 0 {
		c.Transcription.EndpointingMs = 2500
	}
	if c.Transcription.HandshakeTimeoutSecs == 0 {
		c.Transcription.HandshakeTimeoutSecs = 10
	}
}

// defaultModel picks a model the provider actually serves
func defaultModel(provider, openAIModel string) string {
	switch provider {
	case ProviderPerplexity:
		return "sonar"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		if openAIModel == "sonar" {
			return "gpt-4o-mini"
		}
		return openAIModel
	}
}
