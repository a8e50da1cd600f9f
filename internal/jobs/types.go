package jobs

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is absorbing: once a job is
// completed or failed it never changes again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the tracked record of one translation request. The job's own
// goroutine is the only writer; everybody else sees snapshots.
type Job struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	InputPath    string    `json:"-"`
	SourceLang   string    `json:"source_lang"`
	TargetLang   string    `json:"target_lang"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message"`
	TotalPages   int       `json:"total_pages"`
	CurrentPage  int       `json:"current_page"`
	Error        string    `json:"error,omitempty"`
	ResultPath   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJob builds a queued job with a fresh id for the given upload.
func NewJob(originalName, inputPath, sourceLang, targetLang string) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		OriginalName: originalName,
		InputPath:    inputPath,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
