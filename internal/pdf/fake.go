package pdf

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Rasterizer for tests. Pages maps a PDF path to its
// per-page image bytes.
type Fake struct {
	Pages map[string][][]byte

	mu       sync.Mutex
	rendered []int
}

// PageCount implements Rasterizer.
func (f *Fake) PageCount(path string) (int, error) {
	pages, ok := f.Pages[path]
	if !ok {
		return 0, fmt.Errorf("unknown PDF %q", path)
	}
	return len(pages), nil
}

// RenderPage implements Rasterizer.
func (f *Fake) RenderPage(_ context.Context, path string, page int) ([]byte, error) {
	pages, ok := f.Pages[path]
	if !ok {
		return nil, fmt.Errorf("unknown PDF %q", path)
	}
	if page < 1 || page > len(pages) {
		return nil, fmt.Errorf("page %d out of range for %q", page, path)
	}

	f.mu.Lock()
	f.rendered = append(f.rendered, page)
	f.mu.Unlock()

	return pages[page-1], nil
}

// Rendered returns the page numbers rendered so far, in call order.
func (f *Fake) Rendered() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.rendered...)
}
