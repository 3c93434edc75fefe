// internal/model/event.go
package model

import "time"

// Engagement event kinds picked up by the reply detector.
const (
	EventReply  = "reply"
	EventOpen   = "open"
	EventAccept = "accept"
)

// EngagementEvent is an immutable record of one detected inbound signal.
// (channel, kind, source_ref) is unique, which is what makes detection
// idempotent across overlapping scans.
type EngagementEvent struct {
	ID         string    `db:"id" json:"id"` // uuid
	ProspectID int       `db:"prospect_id" json:"prospect_id"`
	CampaignID int       `db:"campaign_id" json:"campaign_id"`
	Channel    string    `db:"channel" json:"channel"`
	Kind       string    `db:"kind" json:"kind"`
	SourceRef  string    `db:"source_ref" json:"source_ref"`
	Processed  bool      `db:"processed" json:"processed"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
