// Package ocr turns one rasterized page image into corrected markdown text
// through an external vision model, with bounded retry on transient failures.
package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/scanpress/internal/providers"
)

const (
	// DefaultMaxRetries is the per-page attempt budget for transient failures.
	DefaultMaxRetries = 5

	// DefaultBaseDelay is the backoff base: delay = base * 2^attempt.
	DefaultBaseDelay = 6 * time.Second

	// PageMIMEType is the encoding pages are rasterized to.
	PageMIMEType = "image/png"
)

// DefaultPrompt is the built-in OCR + correction instruction, used when the
// caller supplies no custom prompt.
const DefaultPrompt = `You are an expert OCR + text corrector for Persian & English.
Extract and correct ALL text perfectly (spelling, grammar, punctuation).
Preserve formatting: titles with #, bold with **, lists, tables.
Output only clean corrected Markdown. No explanation.`

// Config holds processor tuning knobs.
type Config struct {
	MaxRetries int           // attempt budget (default 5)
	BaseDelay  time.Duration // backoff base (default 6s)
	Logger     *slog.Logger
}

// Processor sends page images to a vision client and applies the retry policy.
type Processor struct {
	client     providers.VisionClient
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewProcessor creates a page processor backed by the given vision client.
func NewProcessor(client providers.VisionClient, cfg Config) *Processor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Processor{
		client:     client,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		logger:     cfg.Logger,
		sleep:      sleepCtx,
	}
}

// ProcessPage extracts corrected markdown from one page image.
//
// The page number is 1-based and used only for log attribution. Empty text
// with a successful call is a legitimately blank page, not a failure.
// Transient failures (rate limit, server unavailability) back off
// exponentially up to the attempt budget; any other failure returns
// immediately. The boolean reports whether the text should be accepted.
func (p *Processor) ProcessPage(ctx context.Context, image []byte, pageNum int, prompt string) (string, bool) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", false
		}

		text, err := p.client.Complete(ctx, image, PageMIMEType, prompt)
		if err == nil {
			return text, true
		}

		switch providers.Classify(err) {
		case providers.KindRateLimited:
			delay := p.baseDelay * (1 << attempt)
			p.logger.Warn("rate limit hit, backing off",
				"page", pageNum,
				"delay", delay,
				"attempt", attempt+1,
				"max_attempts", p.maxRetries)
			p.sleep(ctx, delay)
		case providers.KindServerUnavailable:
			delay := p.baseDelay * (1 << attempt)
			p.logger.Warn("server error, retrying",
				"page", pageNum,
				"delay", delay,
				"attempt", attempt+1,
				"max_attempts", p.maxRetries)
			p.sleep(ctx, delay)
		default:
			p.logger.Error("page processing failed",
				"page", pageNum,
				"error", err)
			return "", false
		}
	}

	p.logger.Error("page failed after exhausting retries",
		"page", pageNum,
		"attempts", p.maxRetries)
	return "", false
}

// sleepCtx sleeps for d, returning early if the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
