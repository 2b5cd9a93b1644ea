// Package pdf rasterizes scanned PDF pages into PNG images for OCR.
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI is the rasterization resolution for OCR input.
const DefaultDPI = 300

// Rasterizer renders individual PDF pages as images. Pages are 1-based.
// Rendering is per page so a resumed run only pays for the pages it still
// needs.
type Rasterizer interface {
	PageCount(path string) (int, error)
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// Poppler rasterizes pages by shelling out to pdftoppm (poppler-utils).
type Poppler struct {
	DPI int
}

// NewPoppler returns a rasterizer rendering at the given DPI (DefaultDPI
// when zero).
func NewPoppler(dpi int) *Poppler {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Poppler{DPI: dpi}
}

// PageCount reads the page count from the PDF's structure.
func (p *Poppler) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// RenderPage renders one page to PNG bytes.
func (p *Poppler) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "scanpress-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	// -png: output PNG format
	// -f/-l N: render only this page
	// -r: resolution in DPI
	// -singlefile: don't add page number suffix
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", p.DPI),
		"-singlefile",
		path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
