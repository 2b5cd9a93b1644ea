package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/scanpress/internal/checkpoint"
	"github.com/jackzampolin/scanpress/internal/config"
	"github.com/jackzampolin/scanpress/internal/convert"
	"github.com/jackzampolin/scanpress/internal/home"
	"github.com/jackzampolin/scanpress/internal/ledger"
	"github.com/jackzampolin/scanpress/internal/ocr"
	"github.com/jackzampolin/scanpress/internal/pdf"
	"github.com/jackzampolin/scanpress/internal/providers"
)

// pipeline bundles everything a command needs to run conversions.
type pipeline struct {
	home  *home.Dir
	cfg   *config.Config
	jobs  *ledger.Store
	orch  *convert.Orchestrator
	close func()
}

// buildPipeline wires up the full stack from configuration: vision client,
// page processor, rasterizer, checkpoint store, ledger, and orchestrator.
func buildPipeline(logger *slog.Logger, reporter convert.Reporter) (*pipeline, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	client, err := newVisionClient(cfg)
	if err != nil {
		return nil, err
	}

	processor := ocr.NewProcessor(client, ocr.Config{
		MaxRetries: cfg.Pipeline.MaxRetries,
		BaseDelay:  time.Duration(cfg.Pipeline.BaseDelaySeconds) * time.Second,
		Logger:     logger,
	})

	jobs, err := ledger.Open(h.LedgerPath(), logger)
	if err != nil {
		return nil, err
	}

	outputDir := cfg.Output.Dir
	if outputDir == "" {
		outputDir = h.OutputDir()
	}


	orch := convert.New(
		pdf.NewPoppler(cfg.Pipeline.DPI),
		processor,
		jobs,
		checkpoint.NewStore(h.CheckpointPath(), logger),
		reporter,
		convert.Config{
			OutputDir:       outputDir,
			PageDelay:       time.Duration(cfg.Pipeline.PageDelaySeconds) * time.Second,
			CheckpointEvery: cfg.Pipeline.CheckpointEvery,
			SweepAttempts:   sweepAttempts(cfg.Pipeline.SweepAttempts),
			Logger:          logger,
		},
	)

	return &pipeline{
		home:  h,
		cfg:   cfg,
		jobs:  jobs,
		orch:  orch,
		close: func() { _ = jobs.Close() },
	}, nil
}

// sweepAttempts clamps the configured retry sweep count before the uint
// conversion, where a negative value would wrap into an unbounded retry.
func sweepAttempts(n int) uint {
	if n < 1 {
		n = 1
	}
	return uint(n)
}

// openLedger opens just the job ledger, for commands that don't convert.
func openLedger(logger *slog.Logger) (*ledger.Store, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return ledger.Open(h.LedgerPath(), logger)
}

func newVisionClient(cfg *config.Config) (providers.VisionClient, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider.Type)
	}

	switch cfg.Provider.Type {
	case "gemini":
		return providers.NewGeminiClient(providers.GeminiConfig{
			APIKey: apiKey,
			Model:  cfg.Provider.Model,
		}), nil
	case "openai":
		return providers.NewOpenAIVisionClient(providers.OpenAIVisionConfig{
			APIKey: apiKey,
			Model:  cfg.Provider.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q (want gemini or openai)", cfg.Provider.Type)
	}
}
