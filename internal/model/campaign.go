// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID          int        `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Status      string     `db:"status" json:"status"` // active, paused, completed
	TemplateID  string     `db:"template_id" json:"template_id"`
	EmailDaily  int        `db:"email_daily" json:"email_daily"`
	EmailHourly int        `db:"email_hourly" json:"email_hourly"`
	VoiceDaily  int        `db:"voice_daily" json:"voice_daily"`
	VoiceHourly int        `db:"voice_hourly" json:"voice_hourly"`
	StartHour   int        `db:"start_hour" json:"start_hour"`
	EndHour     int        `db:"end_hour" json:"end_hour"`
	Timezone    string     `db:"timezone" json:"timezone"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Location resolves the campaign timezone, falling back to UTC.
func (c *Campaign) Location() *time.Location {
	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}
