// Package convert drives the PDF-to-document pipeline: rasterize pages, OCR
// each one through the vision provider, checkpoint progress, retry failures,
// and render the accumulated markdown into the requested output formats.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/scanpress/internal/checkpoint"
	"github.com/jackzampolin/scanpress/internal/ledger"
	"github.com/jackzampolin/scanpress/internal/ocr"
	"github.com/jackzampolin/scanpress/internal/pdf"
	"github.com/jackzampolin/scanpress/internal/render"
)

// JobLedger is the slice of the ledger the pipeline writes through.
type JobLedger interface {
	CreateJob(ctx context.Context, filename string, totalPages int, customPrompt string) (int64, error)
	UpdateProgress(ctx context.Context, jobID int64, completedPages, failedPages int) error
	CompleteJob(ctx context.Context, jobID int64, outputPath string, outputs []ledger.OutputFile, processingSecs float64, failedPages int) error
	FailJob(ctx context.Context, jobID int64, message string) error
	CancelJob(ctx context.Context, jobID int64, completedPages int) error
}

// PageProcessor turns one page image into corrected markdown.
type PageProcessor interface {
	ProcessPage(ctx context.Context, image []byte, pageNum int, prompt string) (string, bool)
}

// Config holds the pipeline's tunables.
type Config struct {
	OutputDir       string
	PageDelay       time.Duration // pause between page requests
	CheckpointEvery int           // pages between checkpoint writes
	SweepAttempts   uint          // extra passes per failed page in the retry sweep
	ETAWindow       int           // page durations kept for the rolling estimate
	Logger          *slog.Logger
}

func (c *Config) fillDefaults() {
	if c.PageDelay == 0 {
		c.PageDelay = 6 * time.Second
	}
	if c.CheckpointEvery == 0 {
		c.CheckpointEvery = 10
	}
	if c.SweepAttempts == 0 {
		c.SweepAttempts = 1
	}
	if c.ETAWindow == 0 {
		c.ETAWindow = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Request describes one batch run.
type Request struct {
	Files   []string
	Formats []render.Format
	Prompt  string // empty means the built-in OCR prompt
}

// FileResult is the outcome of one file's conversion.
type FileResult struct {
	Filename       string
	JobID          int64
	Status         string
	TotalPages     int
	CompletedPages int
	FailedPages    []int // 0-based indices still failed after the sweep
	Outputs        []ledger.OutputFile
	Elapsed        time.Duration
}

// Orchestrator runs conversions one file and one page at a time.
type Orchestrator struct {
	rasterizer  pdf.Rasterizer
	processor   PageProcessor
	ledger      JobLedger
	checkpoints *checkpoint.Store
	reporter    Reporter
	state       *State
	cfg         Config
	logger      *slog.Logger

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// New wires up an orchestrator. A nil reporter discards events.
func New(rasterizer pdf.Rasterizer, processor PageProcessor, jobs JobLedger, checkpoints *checkpoint.Store, reporter Reporter, cfg Config) *Orchestrator {
	cfg.fillDefaults()
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Orchestrator{
		rasterizer:  rasterizer,
		processor:   processor,
		ledger:      jobs,
		checkpoints: checkpoints,
		reporter:    reporter,
		state:       &State{},
		cfg:         cfg,
		logger:      cfg.Logger,
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

// State exposes the run state handle for the control surface.
func (o *Orchestrator) State() *State {
	return o.state
}

// Run converts the batch front to back. Files are processed strictly
// sequentially; a failure on one file stops the batch there.
func (o *Orchestrator) Run(ctx context.Context, req Request) ([]FileResult, error) {
	return o.run(ctx, req, nil)
}

// Resume picks up the file recorded in the on-disk checkpoint and carries it
// to completion. It fails when no usable checkpoint exists or when the named
// file does not match the checkpoint.
func (o *Orchestrator) Resume(ctx context.Context, path string, formats []render.Format, prompt string) ([]FileResult, error) {
	rec := o.checkpoints.Load()
	if rec == nil {
		return nil, errors.New("no resumable progress found")
	}
	if rec.Filename != filepath.Base(path) {
		return nil, fmt.Errorf("checkpoint is for %q, not %q", rec.Filename, filepath.Base(path))
	}
	return o.run(ctx, Request{Files: []string{path}, Formats: formats, Prompt: prompt}, rec)
}

func (o *Orchestrator) run(ctx context.Context, req Request, resumed *checkpoint.Record) ([]FileResult, error) {
	if len(req.Files) == 0 {
		return nil, errors.New("no input files")
	}
	if len(req.Formats) == 0 {
		return nil, errors.New("no output formats requested")
	}

	if err := o.state.Begin(); err != nil {
		return nil, err
	}
	defer o.state.End()

	window := newETAWindow(o.cfg.ETAWindow)
	results := make([]FileResult, 0, len(req.Files))

	for i, path := range req.Files {
		if o.cancelled(ctx) {
			break
		}

		res, err := o.runFile(ctx, path, i, len(req.Files), req, resumed, window)
		resumed = nil
		if res != nil {
			results = append(results, *res)
			o.reporter.FileFinished(*res)
		}
		if err != nil {
			return results, err
		}
		if res != nil && res.Status == ledger.StatusCancelled {
			break
		}
	}

	return results, nil
}

// runFile drives one file through the forward pass, the retry sweep, and
// rendering. The returned error is run-fatal; page failures are recorded in
// the result instead.
func (o *Orchestrator) runFile(ctx context.Context, path string, fileIdx, fileCount int, req Request, resumed *checkpoint.Record, window *etaWindow) (*FileResult, error) {
	filename := filepath.Base(path)
	startTime := o.now()

	var (
		totalPages    int
		startPage     int
		markdownPages []string
		failedPages   []int
		jobID         int64
	)

	if resumed != nil {
		totalPages = resumed.TotalPages
		startPage = resumed.CompletedPages
		markdownPages = resumed.MarkdownPages
		failedPages = resumed.FailedPages
		jobID = resumed.JobID
		o.logger.Info("resuming conversion", "file", filename, "from_page", startPage+1, "job_id", jobID)
	} else {
		count, err := o.rasterizer.PageCount(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		totalPages = count
		markdownPages = make([]string, totalPages)
		o.logger.Info("starting conversion", "file", filename, "pages", totalPages)

		// Only a non-default prompt is worth recording on the job.
		recordedPrompt := req.Prompt
		if recordedPrompt == ocr.DefaultPrompt {
			recordedPrompt = ""
		}
		jobID, err = o.ledger.CreateJob(ctx, filename, totalPages, recordedPrompt)
		if err != nil {
			return nil, fmt.Errorf("failed to register job for %s: %w", filename, err)
		}

		if err := o.saveCheckpoint(totalPages, 0, markdownPages, nil, filename, jobID); err != nil {
			return nil, err
		}
	}

	res := &FileResult{Filename: filename, JobID: jobID, TotalPages: totalPages}

	// Forward pass.
	completed := startPage
	for pageIdx := startPage; pageIdx < totalPages; pageIdx++ {
		if o.cancelled(ctx) {
			return o.finishCancelled(ctx, res, completed, markdownPages, failedPages, filename)
		}

		o.publishProgress(window, filename, pageIdx, totalPages, fileIdx, fileCount)

		image, err := o.rasterizer.RenderPage(ctx, path, pageIdx+1)
		if err != nil {
			return res, o.finishFailed(ctx, res, startTime, fmt.Errorf("failed to render page %d of %s: %w", pageIdx+1, filename, err))
		}

		pageStart := o.now()
		text, ok := o.processor.ProcessPage(ctx, image, pageIdx+1, req.Prompt)
		window.Add(o.now().Sub(pageStart))

		if ok {
			markdownPages[pageIdx] = text
			o.state.setLast(image, text)
			o.logger.Info("page processed", "file", filename, "page", pageIdx+1)
		} else {
			failedPages = append(failedPages, pageIdx)
			o.logger.Warn("page queued for retry", "file", filename, "page", pageIdx+1)
		}
		completed = pageIdx + 1
		o.reporter.PageProcessed(pageIdx+1, ok)

		if completed%o.cfg.CheckpointEvery == 0 {
			if err := o.saveCheckpoint(totalPages, completed, markdownPages, failedPages, filename, jobID); err != nil {
				return res, o.finishFailed(ctx, res, startTime, err)
			}
			if err := o.ledger.UpdateProgress(ctx, jobID, completed, len(failedPages)); err != nil {
				o.logger.Warn("failed to update job progress", "job_id", jobID, "error", err)
			}
		}

		if pageIdx < totalPages-1 {
			o.sleep(ctx, o.cfg.PageDelay)
		}
	}

	// Retry sweep over pages the forward pass could not recover.
	if !o.cancelled(ctx) && len(failedPages) > 0 {
		o.logger.Info("retrying failed pages", "file", filename, "count", len(failedPages))

		var unrecovered []int
		for _, pageIdx := range failedPages {
			if o.cancelled(ctx) {
				return o.finishCancelled(ctx, res, completed, markdownPages, failedPages, filename)
			}

			text, err := o.sweepPage(ctx, path, pageIdx, req.Prompt)
			if err != nil {
				unrecovered = append(unrecovered, pageIdx)
				o.logger.Warn("page could not be recovered", "file", filename, "page", pageIdx+1)
			} else {
				markdownPages[pageIdx] = text
				o.logger.Info("page recovered", "file", filename, "page", pageIdx+1)
			}

			o.sleep(ctx, o.cfg.PageDelay)
		}
		failedPages = unrecovered
	}

	if o.cancelled(ctx) {
		return o.finishCancelled(ctx, res, completed, markdownPages, failedPages, filename)
	}

	// Render and write every requested format.
	outputs, primary, err := o.writeOutputs(filename, req.Formats, markdownPages)
	if err != nil {
		return res, o.finishFailed(ctx, res, startTime, err)
	}

	elapsed := o.now().Sub(startTime)
	if err := o.ledger.CompleteJob(ctx, jobID, primary, outputs, elapsed.Seconds(), len(failedPages)); err != nil {
		o.logger.Warn("failed to record job completion", "job_id", jobID, "error", err)
	}
	if err := o.checkpoints.Clear(); err != nil {
		o.logger.Warn("failed to clear checkpoint", "error", err)
	}

	o.logger.Info("conversion complete", "file", filename,
		"outputs", len(outputs), "failed_pages", len(failedPages), "elapsed", elapsed)

	res.Status = ledger.StatusCompleted
	res.CompletedPages = completed
	res.FailedPages = failedPages
	res.Outputs = outputs
	res.Elapsed = elapsed
	return res, nil
}

// sweepPage reprocesses one failed page. Each sweep attempt runs the full
// per-page retry budget inside the processor; the sweep itself only loops
// the configured number of extra passes.
func (o *Orchestrator) sweepPage(ctx context.Context, path string, pageIdx int, prompt string) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			image, err := o.rasterizer.RenderPage(ctx, path, pageIdx+1)
			if err != nil {
				return err
			}
			got, ok := o.processor.ProcessPage(ctx, image, pageIdx+1, prompt)
			if !ok {
				return fmt.Errorf("page %d failed again", pageIdx+1)
			}
			text = got
			return nil
		},
		retry.Attempts(o.cfg.SweepAttempts),
		retry.Context(ctx),
		retry.Delay(o.cfg.PageDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return text, err
}

func (o *Orchestrator) writeOutputs(filename string, formats []render.Format, pages []string) ([]ledger.OutputFile, string, error) {
	timestamp := o.now().Format("20060102_150405")
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	var (
		outputs []ledger.OutputFile
		primary string
	)
	for _, f := range render.Formats {
		if !containsFormat(formats, f) {
			continue
		}

		data, err := render.Render(f, pages)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render %s output: %w", f, err)
		}

		name := fmt.Sprintf("%s_%s.%s", stem, timestamp, f.Ext())
		path := filepath.Join(o.cfg.OutputDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", name, err)
		}

		outputs = append(outputs, ledger.OutputFile{Path: path, Name: name, MIME: f.MIME()})
		if primary == "" {
			primary = path
		}
	}
	return outputs, primary, nil
}

func (o *Orchestrator) finishCancelled(ctx context.Context, res *FileResult, completed int, pages []string, failed []int, filename string) (*FileResult, error) {
	if err := o.saveCheckpoint(res.TotalPages, completed, pages, failed, filename, res.JobID); err != nil {
		o.logger.Warn("failed to checkpoint on cancel", "error", err)
	}
	if err := o.ledger.CancelJob(ctx, res.JobID, completed); err != nil {
		o.logger.Warn("failed to record job cancellation", "job_id", res.JobID, "error", err)
	}

	o.logger.Warn("conversion cancelled", "file", filename, "completed_pages", completed)

	res.Status = ledger.StatusCancelled
	res.CompletedPages = completed
	res.FailedPages = failed
	return res, nil
}

// finishFailed records the run-fatal error and leaves the checkpoint on disk
// for a later resume.
func (o *Orchestrator) finishFailed(ctx context.Context, res *FileResult, startTime time.Time, err error) error {
	if ferr := o.ledger.FailJob(ctx, res.JobID, FailureMessage(err)); ferr != nil {
		o.logger.Warn("failed to record job failure", "job_id", res.JobID, "error", ferr)
	}
	res.Status = ledger.StatusFailed
	res.Elapsed = o.now().Sub(startTime)
	o.logger.Error("conversion failed", "file", res.Filename, "error", err)
	return err
}

func (o *Orchestrator) saveCheckpoint(totalPages, completed int, pages []string, failed []int, filename string, jobID int64) error {
	err := o.checkpoints.Save(&checkpoint.Record{
		TotalPages:     totalPages,
		CompletedPages: completed,
		MarkdownPages:  pages,
		FailedPages:    failed,
		Filename:       filename,
		JobID:          jobID,
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// publishProgress reports the batch-wide fraction and rolling ETA before a
// page is processed. The estimate assumes every file in the batch is roughly
// the size of the current one.
func (o *Orchestrator) publishProgress(window *etaWindow, filename string, pageIdx, totalPages, fileIdx, fileCount int) {
	fraction := float64(fileIdx*totalPages+pageIdx+1) / float64(fileCount*totalPages)
	remaining := (totalPages - pageIdx - 1) + (fileCount-fileIdx-1)*totalPages
	eta := window.Estimate(remaining)

	p := Progress{
		Filename:   filename,
		Page:       pageIdx + 1,
		TotalPages: totalPages,
		FileIndex:  fileIdx,
		FileCount:  fileCount,
		Fraction:   fraction,
		ETA:        eta,
		ETAText:    FormatETA(eta),
	}
	o.state.setProgress(p)
	o.reporter.Progress(p)
}

func (o *Orchestrator) cancelled(ctx context.Context) bool {
	return o.state.Cancelled() || ctx.Err() != nil
}

// FailureMessage translates a run-fatal error into the text recorded on the
// job. Quota exhaustion is called out explicitly since it has a remedy.
func FailureMessage(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") {
		return "API quota exceeded: " + msg + ". Wait for the quota to reset or upgrade your plan."
	}
	return msg
}

func containsFormat(formats []render.Format, f render.Format) bool {
	for _, x := range formats {
		if x == f {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
