// internal/model/generation_run.go
package model

import "time"

type RunStatus string

const (
	RunRunning               RunStatus = "running"
	RunCompleted             RunStatus = "completed"
	RunCompletedWithFailures RunStatus = "completed_with_failures"
	RunFailed                RunStatus = "failed"
	RunCancelled             RunStatus = "cancelled"
)

// GenerationRun is one orchestrated execution for one chat turn. At
// most one run per campaign is in "running" at a time.
type GenerationRun struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	SourceSeq    int        `json:"source_seq"`
	RecipientIDs []int      `json:"recipient_ids"`
	Status       RunStatus  `json:"status"`
	Pending      int        `json:"pending"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Outcome is the terminal result of one per-recipient generation task.
type Outcome struct {
	RecipientID int
	Subject     string
	Body        string
	Err         error
}
