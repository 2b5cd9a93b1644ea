package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanpress/internal/convert"
	"github.com/jackzampolin/scanpress/internal/ledger"
	"github.com/jackzampolin/scanpress/internal/render"
)

var (
	convertFormats []string
	convertPrompt  string
	convertResume  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf> [more.pdf ...]",
	Short: "Convert scanned PDFs into documents",
	Long: `Convert one or more scanned PDFs into the requested output formats.

Pages are OCRed one at a time through the configured vision provider,
with progress checkpointed so an interrupted run can be resumed with
--resume. Cancelling with Ctrl+C also leaves a resumable checkpoint.

Examples:
  scanpress convert book.pdf
  scanpress convert book.pdf --format txt --format html
  scanpress convert book.pdf --resume
  scanpress convert book.pdf --prompt "Transcribe the handwriting exactly"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		formats := make([]render.Format, 0, len(convertFormats))
		for _, f := range convertFormats {
			parsed, err := render.ParseFormat(f)
			if err != nil {
				return err
			}
			formats = append(formats, parsed)
		}

		p, err := buildPipeline(logger, consoleReporter{})
		if err != nil {
			return err
		}
		defer p.close()

		if len(formats) == 0 {
			for _, f := range p.cfg.Output.Formats {
				parsed, err := render.ParseFormat(f)
				if err != nil {
					return err
				}
				formats = append(formats, parsed)
			}
		}

		// Ctrl+C cancels cooperatively: the in-flight page finishes and a
		// checkpoint is written before the command exits.
		go func() {
			<-ctx.Done()
			p.orch.State().Cancel()
		}()

		var results []convert.FileResult
		if convertResume {
			if len(args) != 1 {
				return fmt.Errorf("--resume takes exactly one file")
			}
			results, err = p.orch.Resume(ctx, args[0], formats, convertPrompt)
		} else {
			results, err = p.orch.Run(ctx, convert.Request{
				Files:   args,
				Formats: formats,
				Prompt:  convertPrompt,
			})
		}

		printResults(results)
		return err
	},
}

func printResults(results []convert.FileResult) {
	for _, res := range results {
		switch res.Status {
		case ledger.StatusCompleted:
			fmt.Printf("%s: completed in %s", res.Filename, convert.FormatETA(res.Elapsed))
			if n := len(res.FailedPages); n > 0 {
				fmt.Printf(" (%d pages could not be recovered)", n)
			}
			fmt.Println()
			for _, out := range res.Outputs {
				fmt.Printf("  %s\n", out.Path)
			}
		case ledger.StatusCancelled:
			fmt.Printf("%s: cancelled after %d/%d pages (resume with --resume)\n",
				res.Filename, res.CompletedPages, res.TotalPages)
		case ledger.StatusFailed:
			fmt.Printf("%s: failed\n", res.Filename)
		}
	}
}

// consoleReporter prints progress lines for interactive runs.
type consoleReporter struct{}

func (consoleReporter) Progress(p convert.Progress) {
	line := fmt.Sprintf("File %d/%d | Page %d/%d (%d%%)",
		p.FileIndex+1, p.FileCount, p.Page, p.TotalPages, int(p.Fraction*100))
	if p.ETA > 0 {
		line += " | ETA " + p.ETAText
	}
	fmt.Println(line)
}

func (consoleReporter) PageProcessed(int, bool) {}

func (consoleReporter) FileFinished(convert.FileResult) {}

func init() {
	convertCmd.Flags().StringArrayVarP(&convertFormats, "format", "f", nil,
		"output format: docx, txt, html (repeatable; default from config)")
	convertCmd.Flags().StringVar(&convertPrompt, "prompt", "",
		"custom OCR prompt (default: built-in OCR + correction instruction)")
	convertCmd.Flags().BoolVar(&convertResume, "resume", false,
		"resume the checkpointed conversion of the given file")

	rootCmd.AddCommand(convertCmd)
}
