package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/scanpress/internal/checkpoint"
	"github.com/jackzampolin/scanpress/internal/convert"
	"github.com/jackzampolin/scanpress/internal/ledger"
	"github.com/jackzampolin/scanpress/internal/pdf"
	"github.com/jackzampolin/scanpress/internal/render"
)

type stubProcessor struct{}

func (stubProcessor) ProcessPage(_ context.Context, _ []byte, pageNum int, _ string) (string, bool) {
	return fmt.Sprintf("page %d text", pageNum), true
}

type testEnv struct {
	srv  *Server
	orch *convert.Orchestrator
	jobs *ledger.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jobs, err := ledger.Open(filepath.Join(dir, "jobs.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { jobs.Close() })

	rasterizer := &pdf.Fake{Pages: map[string][][]byte{
		"/in/scan.pdf": {[]byte("png 1"), []byte("png 2")},
	}}
	orch := convert.New(rasterizer, stubProcessor{}, jobs,
		checkpoint.NewStore(filepath.Join(dir, "progress.json"), logger), nil,
		convert.Config{OutputDir: dir, PageDelay: 1, Logger: logger})

	srv, err := New(Config{Orchestrator: orch, Jobs: jobs, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, orch: orch, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
}

func TestStatusIdle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/convert/status", nil)
	body := decode[map[string]any](t, rec)
	if body["processing"] != false {
		t.Errorf("processing = %v, want false", body["processing"])
	}
}

func TestConvertValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"no files", map[string]any{"formats": []string{"txt"}}, http.StatusBadRequest},
		{"bad format", map[string]any{"files": []string{"/in/scan.pdf"}, "formats": []string{"pdf"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/convert", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader("{{{"))
		rec := httptest.NewRecorder()
		env.srv.httpServer.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestConvertConflictsWithActiveRun(t *testing.T) {
	env := newTestEnv(t)

	if err := env.orch.State().Begin(); err != nil {
		t.Fatal(err)
	}
	defer env.orch.State().End()

	rec := env.do(t, http.MethodPost, "/api/convert",
		map[string]any{"files": []string{"/in/scan.pdf"}})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCancelWithoutRun(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/convert/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCancelActiveRun(t *testing.T) {
	env := newTestEnv(t)

	if err := env.orch.State().Begin(); err != nil {
		t.Fatal(err)
	}
	defer env.orch.State().End()

	rec := env.do(t, http.MethodPost, "/api/convert/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !env.orch.State().Cancelled() {
		t.Error("cancel flag not set")
	}
}

func TestLastPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/convert/last", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before any run = %d, want 404", rec.Code)
	}

	// Run a conversion synchronously to populate the spot-check pair.
	if _, err := env.orch.Run(context.Background(), convert.Request{
		Files:   []string{"/in/scan.pdf"},
		Formats: []render.Format{render.FormatText},
	}); err != nil {
		t.Fatal(err)
	}

	rec = env.do(t, http.MethodGet, "/api/convert/last", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]string](t, rec)
	if body["text"] != "page 2 text" {
		t.Errorf("last text = %q, want the final page", body["text"])
	}
	if body["image"] == "" {
		t.Error("last image missing")
	}
}

func TestJobsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id1, _ := env.jobs.CreateJob(ctx, "a.pdf", 3, "")
	id2, _ := env.jobs.CreateJob(ctx, "b.pdf", 5, "")

	rec := env.do(t, http.MethodGet, "/api/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Jobs []ledger.Job `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(list.Jobs))
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d", id1), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	job := decode[ledger.Job](t, rec)
	if job.Filename != "a.pdf" {
		t.Errorf("job = %+v", job)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/jobs/%d", id2), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/jobs/%d", id2), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/jobs/notanumber", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestResumeValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/convert/resume",
		map[string]any{"files": []string{"a.pdf", "b.pdf"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for multiple files", rec.Code)
	}
}
