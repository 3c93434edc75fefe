// internal/model/sequence.go
package model

import "time"

// Sequence statuses.
const (
	SequenceActive    = "active"
	SequencePaused    = "paused"
	SequenceCompleted = "completed"
	SequenceCancelled = "cancelled"
)

// Sequence binds one prospect to one campaign template and tracks its
// position within the steps.
type Sequence struct {
	ID              int        `db:"id" json:"id"`
	ProspectID      int        `db:"prospect_id" json:"prospect_id"`
	CampaignID      int        `db:"campaign_id" json:"campaign_id"`
	TemplateID      string     `db:"template_id" json:"template_id"`
	CurrentStep     int        `db:"current_step" json:"current_step"`
	NextExecutionAt *time.Time `db:"next_execution_at" json:"next_execution_at,omitempty"`
	Status          string     `db:"status" json:"status"`
	PauseReason     string     `db:"pause_reason" json:"pause_reason,omitempty"`
	PausedByEvent   string     `db:"paused_by_event" json:"paused_by_event,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
