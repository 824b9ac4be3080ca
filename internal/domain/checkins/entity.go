package checkins

import (
	"time"

	"github.com/clinwell/checkin-api/internal/domain/analysis"
)

// ID tipe untuk CheckIn
type CheckInID string

// UploadedMedia is the transient upload payload. The caller owns it until it
// is handed to the temp store; it is never persisted.
type UploadedMedia struct {
	Data     []byte
	FileName string
	MimeType string
}

// Status enum
type Status string

const (
	StatusRunning  Status = "running"
	StatusAnalyzed Status = "analyzed"
	StatusFailed   Status = "failed"
)

// Aggregate Root CheckIn: one submitted clinical check-in video and the
// assessment produced for it. The video itself is never persisted; only the
// assessment and bookkeeping survive the pipeline run.
type CheckIn struct {
	ID          CheckInID                  `json:"id"`
	TenantID    string                     `json:"tenant_id"`
	PatientID   string                     `json:"patient_id"`
	FileName    string                     `json:"file_name"`
	MimeType    string                     `json:"mime_type"`
	SizeBytes   int64                      `json:"size_bytes"`
	SubmittedAt time.Time                  `json:"submitted_at"`
	Status      Status                     `json:"status"`
	Assessment  *analysis.ClinicalAnalysis `json:"assessment,omitempty"`
	ArchiveURL  string                     `json:"archive_url,omitempty"`
	ErrorCode   string                     `json:"error_code,omitempty"`
	DurationMS  int64                      `json:"duration_ms"`
	Notes       string                     `json:"notes,omitempty"`
}
