package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP chat listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=HTTP chat server configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for the setup assistant"`

	News SourceConfig `yaml:"news" json:"news" jsonschema:"description=News search configuration"`

	Papers SourceConfig `yaml:"papers" json:"papers" jsonschema:"description=Paper search configuration"`

	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Article excerpt extraction configuration"`
}

// LLMConfig holds LLM configuration for the setup assistant
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Compose setup replies with the LLM"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.openai.com/v1,description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"default=gpt-3.5-turbo,description=Model name"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.7,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=300,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the setup assistant (optional)"`
}

// SourceConfig holds settings of a search source, news or papers
type SourceConfig struct {
	URL       string        `yaml:"url" json:"url" jsonschema:"description=Search endpoint"`
	MaxItems  int           `yaml:"max_items" json:"max_items" jsonschema:"default=5,minimum=1,description=Maximum items per digest"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=NewsDigest/1.0,description=User agent for HTTP requests"`
}

// ExtractionConfig holds article excerpt settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Add article excerpts to news items"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	ExcerptLength int           `yaml:"excerpt_length" json:"excerpt_length" jsonschema:"default=280,description=Maximum excerpt length in characters"`
}

// default search endpoints
const (
	DefaultNewsURL   = "https://news.google.com/rss/search"
	DefaultPapersURL = "https://export.arxiv.org/api/query"
)

// Load reads configuration from a YAML file.
// A missing file is not an error, defaults are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		// expand environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for LLM
	if cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 300
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	// set defaults for sources
	if cfg.News.URL == "" {
		cfg.News.URL = DefaultNewsURL
	}
	if cfg.Papers.URL == "" {
		cfg.Papers.URL = DefaultPapersURL
	}
	for _, src := range []*SourceConfig{&cfg.News, &cfg.Papers} {
		if src.MaxItems == 0 {
			src.MaxItems = 5
		}
		if src.Timeout == 0 {
			src.Timeout = 30 * time.Second
		}
		if src.UserAgent == "" {
			src.UserAgent = "NewsDigest/1.0"
		}
	}

	// set defaults for extraction
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30 * time.Second
	}
	if cfg.Extraction.ExcerptLength == 0 {
		cfg.Extraction.ExcerptLength = 280
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate LLM config
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be at least 1")
	}

	// validate sources
	for name, src := range map[string]SourceConfig{"news": cfg.News, "papers": cfg.Papers} {
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return fmt.Errorf("%s.url must be an http(s) URL, got %q", name, src.URL)
		}
		if src.MaxItems < 1 {
			return fmt.Errorf("%s.max_items must be at least 1", name)
		}
	}

	// validate extraction config
	if cfg.Extraction.Enabled {
		if cfg.Extraction.Timeout < time.Second {
			return fmt.Errorf("extraction timeout must be at least 1 second")
		}
		if cfg.Extraction.ExcerptLength < 0 {
			return fmt.Errorf("extraction excerpt_length must be non-negative")
		}
	}

	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (cfg *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return cfg.Server.Listen, cfg.Server.Timeout
}
