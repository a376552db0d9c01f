package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/fieldfill/internal/providers"
)

// Config holds fieldfill configuration.
// Stored at: ./config.yaml or $HOME/.fieldfill/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Pipeline     PipelineCfg               `mapstructure:"pipeline" yaml:"pipeline"`
	// SchemaFile is a schema YAML path or built-in schema name (default: herbs)
	SchemaFile string `mapstructure:"schema_file" yaml:"schema_file"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                       // "openrouter", "openai", "mock"
	Model          string  `mapstructure:"model" yaml:"model"`                     // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`     // Optional endpoint override
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`           // Requests per second
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP timeout
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`         // Attempts per request
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
}

// PipelineCfg tunes the extraction pipeline.
type PipelineCfg struct {
	Concurrency        int     `mapstructure:"concurrency" yaml:"concurrency"`                   // Max in-flight generation calls per stage
	CallTimeoutSeconds int     `mapstructure:"call_timeout_seconds" yaml:"call_timeout_seconds"` // 0 disables the per-call timeout
	FinalValidation    bool    `mapstructure:"final_validation" yaml:"final_validation"`
	Temperature        float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens          int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	SystemPrompt       string  `mapstructure:"system_prompt" yaml:"system_prompt"`
	CacheSize          int     `mapstructure:"cache_size" yaml:"cache_size"` // Responses kept in the LRU, 0 disables
}

// CallTimeout returns the per-call timeout as a duration.
func (p PipelineCfg) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSeconds) * time.Second
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:           providers.TypeOpenRouter,
				Model:          "openai/gpt-4o-mini",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      10.0,
				TimeoutSeconds: 120,
				MaxRetries:     3,
				Enabled:        true,
			},
			"openai": {
				Type:           providers.TypeOpenAI,
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      8.0,
				TimeoutSeconds: 120,
				MaxRetries:     2,
				Enabled:        true,
			},
			"mock": {
				Type:    providers.TypeMock,
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
		},
		Pipeline: PipelineCfg{
			Concurrency:        4,
			CallTimeoutSeconds: 60,
			FinalValidation:    true,
			Temperature:        0,
			MaxTokens:          512,
			CacheSize:          256,
		},
		SchemaFile: "herbs",
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// Validate reports every misconfiguration found.
func (c *Config) Validate() error {
	var errs []error

	for name, p := range c.LLMProviders {
		switch p.Type {
		case providers.TypeOpenRouter, providers.TypeOpenAI, providers.TypeMock:
		default:
			errs = append(errs, fmt.Errorf("llm_providers.%s: unknown type %q", name, p.Type))
		}
		if p.RateLimit < 0 {
			errs = append(errs, fmt.Errorf("llm_providers.%s: rate_limit must not be negative", name))
		}
		if p.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Errorf("llm_providers.%s: timeout_seconds must not be negative", name))
		}
		if p.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("llm_providers.%s: max_retries must not be negative", name))
		}
	}

	if def := c.Defaults.LLMProvider; def != "" {
		p, ok := c.LLMProviders[def]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("defaults.llm_provider: %q is not configured", def))
		case !p.Enabled:
			errs = append(errs, fmt.Errorf("defaults.llm_provider: %q is disabled", def))
		}
	}

	if c.Pipeline.Concurrency < 0 {
		errs = append(errs, errors.New("pipeline.concurrency must not be negative"))
	}
	if c.Pipeline.CallTimeoutSeconds < 0 {
		errs = append(errs, errors.New("pipeline.call_timeout_seconds must not be negative"))
	}
	if c.Pipeline.Temperature < 0 || c.Pipeline.Temperature > 2 {
		errs = append(errs, errors.New("pipeline.temperature must be between 0 and 2"))
	}
	if c.Pipeline.MaxTokens < 0 {
		errs = append(errs, errors.New("pipeline.max_tokens must not be negative"))
	}
	if c.Pipeline.CacheSize < 0 {
		errs = append(errs, errors.New("pipeline.cache_size must not be negative"))
	}

	return errors.Join(errs...)
}
