package models

import "time"

// Import job statuses
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ImportJob tracks an upload that was queued for background evaluation.
type ImportJob struct {
	BatchCode     string         `json:"batch_code"`
	Filename      string         `json:"filename"`
	FilePath      string         `json:"file_path"`
	Status        string         `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Summary       *ImportSummary `json:"summary,omitempty"`
	ProcessedFile string         `json:"processed_file,omitempty"`
	RejectedFile  string         `json:"rejected_file,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
