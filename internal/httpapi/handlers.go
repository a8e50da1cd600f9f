package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
	"github.com/MimeLyc/contextual-comic-translator/internal/language"
	"github.com/MimeLyc/contextual-comic-translator/internal/pipeline"
)

// jobResponse is the wire shape of a job snapshot. is_multi_page is
// derived so the UI can pick the page-aware progress view.
type jobResponse struct {
	*jobs.Job
	IsMultiPage bool `json:"is_multi_page"`
}

func toJobResponse(job *jobs.Job) jobResponse {
	return jobResponse{Job: job, IsMultiPage: job.TotalPages > 1}
}

func toJobResponses(list []*jobs.Job) []jobResponse {
	ret := make([]jobResponse, 0, len(list))
	for _, job := range list {
		ret = append(ret, toJobResponse(job))
	}
	return ret
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %d MiB limit", s.maxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	targetLang := r.FormValue("target_lang")
	if strings.TrimSpace(targetLang) == "" {
		writeError(w, http.StatusBadRequest, "target_lang is required")
		return
	}

	job, err := s.orchestrator.Submit(file, header.Filename, r.FormValue("source_lang"), targetLang)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponses(s.store.List()))
}

func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	jobID, action, ok := parseJobRoute(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		s.handleJobStatus(w, r, jobID)
	case "result":
		s.handleJobResult(w, r, jobID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func parseJobRoute(path string) (jobID string, action string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/api/jobs/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return "", "", false
	}
	rawID, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(rawID) == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return rawID, "", true
	}
	return rawID, parts[1], true
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, ok := s.store.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, ok := s.store.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("job is not completed (status: %s)", job.Status))
		return
	}
	if job.ResultPath == "" {
		writeError(w, http.StatusInternalServerError, "result artifact is missing")
		return
	}
	if _, err := os.Stat(job.ResultPath); err != nil {
		writeError(w, http.StatusGone, "result artifact has been cleaned up")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.ResultPath)))
	http.ServeFile(w, r, job.ResultPath)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auto":      language.Auto,
		"languages": language.Catalog(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
