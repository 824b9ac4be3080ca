package faults

import "time"

// PipelineFault represents a persisted pipeline failure entry, kept for
// auditing which stage of which check-in run went wrong.
type PipelineFault struct {
	ID        int64     `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CheckInID string    `json:"checkin_id"`
	Stage     string    `json:"stage,omitempty"` // save | upload | poll | analyze | validate
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
