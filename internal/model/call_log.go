// internal/model/call_log.go
package model

import "time"

// Call attempt statuses.
const (
	CallInitiated = "initiated"
	CallRinging   = "ringing"
	CallAnswered  = "answered"
	CallVoicemail = "voicemail"
	CallNoAnswer  = "no_answer"
	CallBusy      = "busy"
	CallFailed    = "failed"
)

// CallLog is one row per voice attempt, written regardless of which AMD
// branch the attempt took.
type CallLog struct {
	ID              int        `db:"id" json:"id"`
	ProspectID      int        `db:"prospect_id" json:"prospect_id"`
	CampaignID      int        `db:"campaign_id" json:"campaign_id"`
	ProviderCallID  string     `db:"provider_call_id" json:"provider_call_id"`
	PersonaID       string     `db:"persona_id" json:"persona_id,omitempty"`
	Status          string     `db:"status" json:"status"`
	Outcome         string     `db:"outcome" json:"outcome"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	TranscriptRef   string     `db:"transcript_ref" json:"transcript_ref,omitempty"`
	Booked          bool       `db:"booked" json:"booked"`
	CallbackAt      *time.Time `db:"callback_at" json:"callback_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
