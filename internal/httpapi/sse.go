package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MimeLyc/contextual-comic-translator/internal/jobs"
)

const streamInterval = 1 * time.Second

// handleJobEvents streams job snapshots as server-sent events so clients
// can follow progress without polling. Without parameters every event
// carries the full job list; with ?id= the stream follows a single job
// and closes itself once that job reaches a terminal status.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID != "" {
		if _, ok := s.store.Get(jobID); !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		last, ok := s.emitEvent(w, flusher, jobID)
		if !ok {
			return
		}
		// A watched job that has finished will never change again.
		if last != nil && last.Status.Terminal() {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// emitEvent writes one SSE frame. In single-job mode it returns the
// emitted snapshot so the caller can stop on terminal jobs; in list
// mode the snapshot is nil.
func (s *Server) emitEvent(w http.ResponseWriter, flusher http.Flusher, jobID string) (*jobs.Job, bool) {
	var payload any
	var watched *jobs.Job

	if jobID == "" {
		payload = toJobResponses(s.store.List())
	} else {
		job, ok := s.store.Get(jobID)
		if !ok {
			// Pruned mid-stream; nothing more will ever arrive.
			return nil, false
		}
		watched = job
		payload = toJobResponse(job)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return nil, false
	}
	flusher.Flush()
	return watched, true
}
