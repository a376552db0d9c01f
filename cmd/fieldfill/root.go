package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/fieldfill/internal/api"
	"github.com/jackzampolin/fieldfill/internal/config"
	"github.com/jackzampolin/fieldfill/internal/home"
	"github.com/jackzampolin/fieldfill/internal/llmcall"
	"github.com/jackzampolin/fieldfill/internal/providers"
	"github.com/jackzampolin/fieldfill/internal/schema"
	"github.com/jackzampolin/fieldfill/internal/svcctx"
	"github.com/jackzampolin/fieldfill/version"
)

// skipServices marks commands that run without loading configuration.
const skipServices = "skip-services"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldfill",
	Short: "Structured field extraction from documents with LLM-driven repair",
	Long: `fieldfill extracts a fixed set of named fields from a document by prompting
an LLM once per field, scores every value for completeness, and re-prompts
weak fields with targeted repair prompts.

The pipeline:
  - Extract every schema field concurrently
  - Validate values as COMPLETE, PARTIAL, or MISSING
  - Repair missing and partial fields that have a repair prompt
  - Validate again and report the final record`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.fieldfill/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "fieldfill home directory (default: ~/.fieldfill)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json, or table",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-field progress at debug level")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(string(format))

		logger := newLogger()
		slog.SetDefault(logger)

		if cmd.Annotations[skipServices] != "" {
			return nil
		}
		return setupServices(cmd, logger)
	}

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setupServices loads config, builds the provider registry, and attaches both
// to the command context. Provider settings are re-applied when the config file
// changes.
func setupServices(cmd *cobra.Command, logger *slog.Logger) error {
	h, err := home.New(homeDir)
	if err != nil {
		return err
	}
	if homeDir != "" && !h.Exists() {
		logger.Warn("home directory does not exist, run `fieldfill config init` to create it", "home", h.Path())
	}

	// API keys may live in a .env file in the working directory or the home
	// directory. Variables already set in the environment win.
	_ = godotenv.Load()
	if envFile := filepath.Join(h.Path(), ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warn("failed to load env file", "file", envFile, "error", err)
		}
	}

	file := cfgFile
	if file == "" && homeDir != "" && h.ConfigExists() {
		file = h.ConfigPath()
	}
	mgr, err := config.NewManager(file)
	if err != nil {
		return err
	}
	mgr.SetLogger(logger)
	if err := mgr.Get().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry := providers.NewRegistry()
	registry.SetLogger(logger.With("component", "registry"))
	registry.Reload(mgr.Get().ToProviderRegistryConfig())

	if used := mgr.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config", "file", used)
		mgr.OnChange(func(cfg *config.Config) {
			if err := cfg.Validate(); err != nil {
				logger.Warn("ignoring invalid config change", "error", err)
				return
			}
			registry.Reload(cfg.ToProviderRegistryConfig())
		})
		mgr.WatchConfig()
	}

	cmd.SetContext(svcctx.WithServices(cmd.Context(), &svcctx.Services{
		Logger:   logger,
		Config:   mgr,
		Registry: registry,
		Recorder: llmcall.NewRecorder(nil, logger),
		Home:     h,
	}))
	return nil
}

// resolveSchema finds a schema by file path, built-in name, or user schema
// name under the home directory.
func resolveSchema(h *home.Dir, ref string) (*schema.Schema, error) {
	s, err := schema.Resolve(ref)
	if err == nil || h == nil || !h.HasSchema(ref) {
		return s, err
	}
	return schema.LoadFile(h.SchemaPath(ref))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
