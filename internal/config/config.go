package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

const (
	GeneratorPlaceholder = "placeholder"
	GeneratorGemini      = "gemini"
	GeneratorOpenAI      = "openai"
	GeneratorOllama      = "ollama"
)

type (
	Config struct {
		HTTP       HTTP
		Log        Log
		Enrichment Enrichment
		Keys       Keys
	}

	HTTP struct {
		Port         string `env:"PORT" envDefault:"3001"`
		MaxBodyBytes int64  `env:"HTTP_MAX_BODY_BYTES" envDefault:"52428800"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
		File  string `env:"LOG_FILE"`
	}

	Enrichment struct {
		// Provider picks which credential authorizes calls. Generator picks
		// the backend that answers them.
		Provider  string        `env:"ENRICHMENT_PROVIDER" envDefault:"gemini"`
		Generator string        `env:"ENRICHMENT_GENERATOR" envDefault:"placeholder"`
		Model     string        `env:"ENRICHMENT_MODEL"`
		Delay     time.Duration `env:"ENRICHMENT_DELAY" envDefault:"2s"`
		Timeout   time.Duration `env:"ENRICHMENT_TIMEOUT" envDefault:"60s"`
		// ServiceURL points the client at a remote service; empty means in-process.
		ServiceURL string `env:"ENRICHMENT_SERVICE_URL"`
		OllamaURL  string `env:"OLLAMA_URL"`
	}

	Keys struct {
		Gemini string `env:"GEMINI_API_KEY"`
		OpenAI string `env:"OPENAI_API_KEY"`
		Claude string `env:"CLAUDE_API_KEY"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Enrichment.Generator {
	case GeneratorPlaceholder, GeneratorGemini, GeneratorOpenAI, GeneratorOllama:
	default:
		return fmt.Errorf("unsupported generator: %s", c.Enrichment.Generator)
	}
	if c.Enrichment.Delay < 0 {
		return fmt.Errorf("ENRICHMENT_DELAY must not be negative")
	}
	switch c.Enrichment.Provider {
	case models.ProviderGemini, models.ProviderOpenAI, models.ProviderClaude:
	default:
		return fmt.Errorf("unsupported provider: %s", c.Enrichment.Provider)
	}
	// gemini and openai generators send the provider's key to their own API
	switch c.Enrichment.Generator {
	case GeneratorGemini, GeneratorOpenAI:
		if c.Enrichment.Provider != c.Enrichment.Generator {
			return fmt.Errorf("ENRICHMENT_PROVIDER %q does not match ENRICHMENT_GENERATOR %q", c.Enrichment.Provider, c.Enrichment.Generator)
		}
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive")
	}
	return nil
}

// Credentials returns the configured API keys, omitting blank ones
func (c *Config) Credentials() models.Credentials {
	creds := models.Credentials{}
	for name, key := range map[string]string{
		models.ProviderGemini: c.Keys.Gemini,
		models.ProviderOpenAI: c.Keys.OpenAI,
		models.ProviderClaude: c.Keys.Claude,
	} {
		if key != "" {
			creds[name] = key
		}
	}
	return creds
}
