package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	or, ok := cfg.GetLLMProvider("openrouter")
	if !ok {
		t.Fatal("expected default openrouter provider")
	}
	if or.APIKey != "${OPENROUTER_API_KEY}" {
		t.Errorf("openrouter api_key = %q, want placeholder", or.APIKey)
	}
	if cfg.Defaults.LLMProvider != "openrouter" {
		t.Errorf("Defaults.LLMProvider = %q, want openrouter", cfg.Defaults.LLMProvider)
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Errorf("Pipeline.Concurrency = %d, want 4", cfg.Pipeline.Concurrency)
	}
	if !cfg.Pipeline.FinalValidation {
		t.Error("Pipeline.FinalValidation should default to true")
	}
	if cfg.Pipeline.CacheSize != 256 {
		t.Errorf("Pipeline.CacheSize = %d, want 256", cfg.Pipeline.CacheSize)
	}
	if cfg.Pipeline.CallTimeout() != time.Minute {
		t.Errorf("CallTimeout() = %v, want 1m", cfg.Pipeline.CallTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands inside a longer string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.com")
		result := ResolveEnvVars("https://${TEST_HOST}/v1")
		if result != "https://example.com/v1" {
			t.Errorf("expected https://example.com/v1, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:           "openrouter",
				APIKey:         "${TEST_OPENROUTER_KEY}",
				RateLimit:      5,
				TimeoutSeconds: 30,
				MaxRetries:     4,
				Enabled:        true,
			},
			"literal": {Type: "openai", APIKey: "direct-key", BaseURL: "http://localhost:1234/v1"},
		},
	}

	rc := cfg.ToProviderRegistryConfig()

	or := rc.LLMProviders["openrouter"]
	if or.APIKey != "or-key-123" {
		t.Errorf("APIKey = %q, want or-key-123", or.APIKey)
	}
	if or.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", or.Timeout)
	}
	if or.RateLimit != 5 || or.MaxRetries != 4 || !or.Enabled {
		t.Errorf("openrouter = %+v", or)
	}

	lit := rc.LLMProviders["literal"]
	if lit.APIKey != "direct-key" || lit.BaseURL != "http://localhost:1234/v1" || lit.Enabled {
		t.Errorf("literal = %+v", lit)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unknown type", func(c *Config) {
			c.LLMProviders["weird"] = LLMProviderCfg{Type: "carrier-pigeon"}
		}, `unknown type "carrier-pigeon"`},
		{"missing default provider", func(c *Config) {
			c.Defaults.LLMProvider = "nope"
		}, `"nope" is not configured`},
		{"disabled default provider", func(c *Config) {
			p := c.LLMProviders["openrouter"]
			p.Enabled = false
			c.LLMProviders["openrouter"] = p
		}, `"openrouter" is disabled`},
		{"negative concurrency", func(c *Config) {
			c.Pipeline.Concurrency = -1
		}, "pipeline.concurrency"},
		{"temperature out of range", func(c *Config) {
			c.Pipeline.Temperature = 3
		}, "pipeline.temperature"},
		{"negative cache size", func(c *Config) {
			c.Pipeline.CacheSize = -1
		}, "pipeline.cache_size"},
		{"negative rate limit", func(c *Config) {
			p := c.LLMProviders["openai"]
			p.RateLimit = -1
			c.LLMProviders["openai"] = p
		}, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
llm_providers:
  local:
    type: openai
    model: llama3
    api_key: "test_value"
    base_url: "http://localhost:11434/v1"
    rate_limit: 2
    enabled: true
defaults:
  llm_provider: local
pipeline:
  concurrency: 8
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		local, ok := cfg.GetLLMProvider("local")
		if !ok {
			t.Fatal("expected local provider")
		}
		if local.APIKey != "test_value" || local.Model != "llama3" || local.RateLimit != 2 {
			t.Errorf("local = %+v", local)
		}
		if cfg.Defaults.LLMProvider != "local" {
			t.Errorf("Defaults.LLMProvider = %q, want local", cfg.Defaults.LLMProvider)
		}
		if cfg.Pipeline.Concurrency != 8 {
			t.Errorf("Pipeline.Concurrency = %d, want 8", cfg.Pipeline.Concurrency)
		}
		// Unset keys keep their defaults.
		if cfg.Pipeline.CallTimeoutSeconds != 60 {
			t.Errorf("Pipeline.CallTimeoutSeconds = %d, want 60", cfg.Pipeline.CallTimeoutSeconds)
		}
		if cfg.SchemaFile != "herbs" {
			t.Errorf("SchemaFile = %q, want herbs", cfg.SchemaFile)
		}
		if mgr.ConfigFileUsed() != configFile {
			t.Errorf("ConfigFileUsed() = %q, want %q", mgr.ConfigFileUsed(), configFile)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("FIELDFILL_PIPELINE_CONCURRENCY", "16")
		t.Setenv("FIELDFILL_PIPELINE_CACHE_SIZE", "0")
		configFile := writeConfig(t, "schema_file: herbs\n")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Pipeline.Concurrency; got != 16 {
			t.Errorf("Pipeline.Concurrency = %d, want 16", got)
		}
		if got := mgr.Get().Pipeline.CacheSize; got != 0 {
			t.Errorf("Pipeline.CacheSize = %d, want 0", got)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configFile := writeConfig(t, "pipeline: [unclosed\n")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for invalid config file")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "schema_file: herbs\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "schema_file: herbs\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Pipeline.Concurrency
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, `
pipeline:
  concurrency: 2
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Pipeline.Concurrency; got != 2 {
		t.Errorf("initial concurrency = %d, want 2", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int32

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int32(cfg.Pipeline.Concurrency))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
pipeline:
  concurrency: 6
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lastValue.Load() == 6 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Pipeline.Concurrency; got != 6 {
		t.Errorf("config not updated: concurrency = %d, want 6", got)
	}
	if v := lastValue.Load(); v != 6 {
		t.Errorf("callback received concurrency %d, want 6", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# fieldfill configuration") {
		t.Error("expected header comment")
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if parsed.Defaults.LLMProvider != "openrouter" {
		t.Errorf("Defaults.LLMProvider = %q, want openrouter", parsed.Defaults.LLMProvider)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() on written default error = %v", err)
	}
	if err := mgr.Get().Validate(); err != nil {
		t.Errorf("written default does not validate: %v", err)
	}
}
