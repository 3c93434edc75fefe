// internal/model/touchpoint.go
package model

import "time"

// Touchpoint outcomes. Positive outcomes count toward engagement scoring and
// reset the per-channel deprioritization counter.
const (
	OutcomeSent          = "sent"
	OutcomeDelivered     = "delivered"
	OutcomeOpened        = "opened"
	OutcomeReplied       = "replied"
	OutcomeBounced       = "bounced"
	OutcomeAccepted      = "accepted"
	OutcomeConnected     = "connected"
	OutcomeVoicemail     = "voicemail"
	OutcomeNoAnswer      = "no_answer"
	OutcomeBusy          = "busy"
	OutcomeFailed        = "failed"
	OutcomeNotInterested = "not_interested"
	OutcomeCallback      = "callback"
	OutcomeBooked        = "booked"
	OutcomePaused        = "paused"
)

// Touchpoint is an immutable record of one attempted contact. Only the
// opened/replied timestamps and their processed flags are ever updated after
// insert, and only by the reply detector or a delivery webhook.
type Touchpoint struct {
	ID             int        `db:"id" json:"id"`
	ProspectID     int        `db:"prospect_id" json:"prospect_id"`
	CampaignID     int        `db:"campaign_id" json:"campaign_id"`
	Channel        string     `db:"channel" json:"channel"`
	Action         string     `db:"action" json:"action"`
	Content        string     `db:"content" json:"content"`
	Outcome        string     `db:"outcome" json:"outcome"`
	Metadata       string     `db:"metadata" json:"metadata,omitempty"`
	SentAt         time.Time  `db:"sent_at" json:"sent_at"`
	OpenedAt       *time.Time `db:"opened_at" json:"opened_at,omitempty"`
	RepliedAt      *time.Time `db:"replied_at" json:"replied_at,omitempty"`
	ReplyProcessed bool       `db:"reply_processed" json:"reply_processed"`
}

// PositiveOutcome reports whether the outcome counts as a positive signal
// (reply, accept, connect or better).
func PositiveOutcome(outcome string) bool {
	switch outcome {
	case OutcomeReplied, OutcomeAccepted, OutcomeConnected, OutcomeCallback, OutcomeBooked:
		return true
	}
	return false
}
