// internal/model/prospect.go
package model

import "time"

// Pipeline states a prospect moves through, independent of channel.
const (
	StateDiscovered    = "discovered"
	StateResearched    = "researched"
	StateContacted     = "contacted"
	StateEngaged       = "engaged"
	StateQualified     = "qualified"
	StateBooked        = "booked"
	StateConverted     = "converted"
	StateNotInterested = "not_interested"
	StateUnresponsive  = "unresponsive"
)

// Channel names.
const (
	ChannelEmail = "email"
	ChannelVoice = "voice"
)

type Prospect struct {
	ID            int        `db:"id" json:"id"`
	CampaignID    int        `db:"campaign_id" json:"campaign_id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Company       string     `db:"company" json:"company"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone"`
	LinkedInURL   string     `db:"linkedin_url" json:"linkedin_url"`
	Timezone      string     `db:"timezone" json:"timezone"`
	PipelineState string     `db:"pipeline_state" json:"pipeline_state"`
	EmailState    string     `db:"email_state" json:"email_state"`
	VoiceState    string     `db:"voice_state" json:"voice_state"`
	Score         int        `db:"score" json:"score"`
	LastTouchAt   *time.Time `db:"last_touch_at" json:"last_touch_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// ChannelState returns the prospect's micro-state for the given channel.
func (p *Prospect) ChannelState(channel string) string {
	switch channel {
	case ChannelEmail:
		return p.EmailState
	case ChannelVoice:
		return p.VoiceState
	}
	return ""
}

// HasChannelData reports whether the prospect carries the contact field the
// channel needs (no address means the step is skipped, not failed).
func (p *Prospect) HasChannelData(channel string) bool {
	switch channel {
	case ChannelEmail:
		return p.Email != ""
	case ChannelVoice:
		return p.Phone != ""
	}
	return false
}

// Capabilities is the contact-field availability set used by template selection.
func (p *Prospect) Capabilities() map[string]bool {
	return map[string]bool{
		ChannelEmail: p.Email != "",
		ChannelVoice: p.Phone != "",
	}
}
