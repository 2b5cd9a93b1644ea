package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackzampolin/scanpress/internal/convert"
	"github.com/jackzampolin/scanpress/internal/ledger"
	"github.com/jackzampolin/scanpress/internal/render"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/convert", s.handleConvert)
	mux.HandleFunc("POST /api/convert/resume", s.handleResume)
	mux.HandleFunc("POST /api/convert/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/convert/status", s.handleStatus)
	mux.HandleFunc("GET /api/convert/last", s.handleLast)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)
}

// convertRequest is the body of POST /api/convert and /api/convert/resume.
// Resume uses only the first file.
type convertRequest struct {
	Files   []string `json:"files"`
	Formats []string `json:"formats"`
	Prompt  string   `json:"prompt,omitempty"`
}

func (r convertRequest) parseFormats() ([]render.Format, error) {
	if len(r.Formats) == 0 {
		return []render.Format{render.FormatDOCX}, nil
	}
	formats := make([]render.Format, 0, len(r.Formats))
	for _, f := range r.Formats {
		parsed, err := render.ParseFormat(f)
		if err != nil {
			return nil, err
		}
		formats = append(formats, parsed)
	}
	return formats, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if err := s.jobs.HealthCheck(r.Context()); err != nil {
		status["status"] = "degraded"
		status["ledger_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no input files")
		return
	}
	formats, err := req.parseFormats()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.startRun(w, func(ctx context.Context) ([]convert.FileResult, error) {
		return s.orch.Run(ctx, convert.Request{Files: req.Files, Formats: formats, Prompt: req.Prompt})
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Files) != 1 {
		writeError(w, http.StatusBadRequest, "resume takes exactly one file")
		return
	}
	formats, err := req.parseFormats()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.startRun(w, func(ctx context.Context) ([]convert.FileResult, error) {
		return s.orch.Resume(ctx, req.Files[0], formats, req.Prompt)
	})
}

// startRun launches the conversion in the background. The request returns
// immediately; progress is polled via /api/convert/status.
func (s *Server) startRun(w http.ResponseWriter, run func(context.Context) ([]convert.FileResult, error)) {
	if s.orch.State().Processing() {
		writeError(w, http.StatusConflict, convert.ErrRunActive.Error())
		return
	}

	go func() {
		if _, err := run(context.Background()); err != nil {
			if !errors.Is(err, convert.ErrRunActive) {
				s.logger.Error("conversion run failed", "error", err)
			}
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.orch.State().Processing() {
		writeError(w, http.StatusConflict, "no active conversion run")
		return
	}
	s.orch.State().Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.orch.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"processing": state.Processing(),
		"progress":   state.Progress(),
	})
}

// handleLast returns the most recent page image and its OCR text, for
// spot-checking recognition quality against the scan.
func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	image, text := s.orch.State().Last()
	if image == nil && text == "" {
		writeError(w, http.StatusNotFound, "no page processed yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
		"text":  text,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []*ledger.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.jobs.GetJob(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := s.jobs.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
