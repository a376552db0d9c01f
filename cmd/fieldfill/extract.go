package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/fieldfill/internal/api"
	"github.com/jackzampolin/fieldfill/internal/generation"
	"github.com/jackzampolin/fieldfill/internal/llmcall"
	"github.com/jackzampolin/fieldfill/internal/pipeline"
	"github.com/jackzampolin/fieldfill/internal/providers"
	"github.com/jackzampolin/fieldfill/internal/schema"
	"github.com/jackzampolin/fieldfill/internal/svcctx"
)

var (
	extractSchema      string
	extractProvider    string
	extractModel       string
	extractConcurrency int
	extractCallTimeout time.Duration
	extractNoRepair    bool
	extractNoFinal     bool
	extractCalls       bool
	extractDetail      bool
	extractMock        bool
	extractSample      bool
	extractTrace       string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract schema fields from a document",
	Long: `Extract every field of a schema from a document, validate the values,
repair weak fields, and print the resulting record.

The document is read from the given file, or from stdin when the file is "-"
or omitted. Interrupting the run (Ctrl+C) prints the fields completed so far.

Examples:
  fieldfill extract paper.txt
  fieldfill extract --schema ./invoice.yaml -o json invoice.txt
  cat paper.txt | fieldfill extract --provider openai --detail -o table
  fieldfill extract --sample --mock --calls`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractSchema, "schema", "", "schema YAML file or built-in name (default from config)")
	f.StringVar(&extractProvider, "provider", "", "LLM provider name (default from config)")
	f.StringVar(&extractModel, "model", "", "model override for the provider")
	f.IntVar(&extractConcurrency, "concurrency", 0, "max in-flight calls per stage (default from config)")
	f.DurationVar(&extractCallTimeout, "call-timeout", 0, "timeout per generation call (default from config)")
	f.BoolVar(&extractNoRepair, "no-repair", false, "stop after the first validation")
	f.BoolVar(&extractNoFinal, "no-final-validation", false, "skip validation after repair")
	f.BoolVar(&extractCalls, "calls", false, "include call statistics and rate limiter status")
	f.BoolVar(&extractDetail, "detail", false, "include per-field status and confidence")
	f.BoolVar(&extractMock, "mock", false, "use the offline mock provider")
	f.BoolVar(&extractSample, "sample", false, "use the built-in sample paper as the document")
	f.StringVar(&extractTrace, "trace", "", "append every generation call as a JSON line to this file")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := svcctx.LoggerFrom(ctx)
	cfg := svcctx.ConfigFrom(ctx).Get()

	document, err := readDocument(cmd, args)
	if err != nil {
		return err
	}

	ref := extractSchema
	if ref == "" {
		ref = cfg.SchemaFile
	}
	s, err := resolveSchema(svcctx.HomeFrom(ctx), ref)
	if err != nil {
		return err
	}

	client, limiter, err := selectClient(cmd, cfg.Defaults.LLMProvider)
	if err != nil {
		return err
	}

	recorder := svcctx.RecorderFrom(ctx)
	if extractTrace != "" {
		f, err := os.OpenFile(extractTrace, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		defer f.Close()
		recorder = llmcall.NewRecorder(f, logger)
	}

	gen, err := generation.New(generation.Config{
		Client:       client,
		Model:        extractModel,
		SystemPrompt: systemPrompt(cfg.Pipeline.SystemPrompt),
		Temperature:  cfg.Pipeline.Temperature,
		MaxTokens:    cfg.Pipeline.MaxTokens,
		CacheSize:    cfg.Pipeline.CacheSize,
		Limiter:      limiter,
		Recorder:     recorder,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	concurrency := cfg.Pipeline.Concurrency
	if extractConcurrency > 0 {
		concurrency = extractConcurrency
	}
	callTimeout := cfg.Pipeline.CallTimeout()
	if extractCallTimeout > 0 {
		callTimeout = extractCallTimeout
	}

	logger.Info("starting extraction",
		"schema", s.Name(),
		"fields", s.Len(),
		"provider", client.Name(),
		"document_chars", utf8.RuneCountInString(document))

	res, err := pipeline.Run(ctx, pipeline.Config{
		Schema:              s,
		Generator:           gen,
		Concurrency:         concurrency,
		CallTimeout:         callTimeout,
		SkipRepair:          extractNoRepair,
		SkipFinalValidation: extractNoFinal || !cfg.Pipeline.FinalValidation,
		Logger:              logger,
	}, document)
	if err != nil {
		return err
	}
	if res.Interrupted {
		logger.Warn("extraction interrupted, printing partial result", "unattempted", res.Unattempted)
	}

	var calls *api.CallReport
	if extractCalls {
		calls = api.NewCallReport(recorder, limiter, gen.CacheLen())
	}
	return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), api.NewExtractionOutput(res, calls, extractDetail))
}

// readDocument returns the sample paper, the named file, or stdin.
func readDocument(cmd *cobra.Command, args []string) (string, error) {
	if extractSample {
		if len(args) > 0 {
			return "", errors.New("--sample cannot be combined with a file argument")
		}
		return schema.SamplePaper, nil
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

// selectClient resolves the LLM client and its rate limiter.
func selectClient(cmd *cobra.Command, defaultProvider string) (providers.LLMClient, *providers.RateLimiter, error) {
	if extractMock {
		mock := providers.NewMockClient()
		mock.Latency = 0
		return mock, nil, nil
	}

	registry := svcctx.RegistryFrom(cmd.Context())
	name := extractProvider
	if name == "" {
		name = defaultProvider
	}
	if name == "" {
		return nil, nil, errors.New("no provider selected: pass --provider or set defaults.llm_provider")
	}
	client, err := registry.GetLLM(name)
	if err != nil {
		return nil, nil, fmt.Errorf("provider %q is not available (disabled or missing API key; configured: %v): %w",
			name, registry.ListLLM(), err)
	}
	return client, registry.Limiter(name), nil
}

func systemPrompt(configured string) string {
	if configured != "" {
		return configured
	}
	return generation.DefaultSystemPrompt
}
