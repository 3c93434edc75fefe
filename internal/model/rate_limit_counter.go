// internal/model/rate_limit_counter.go
package model

import (
	"strconv"
	"time"
)

// RateLimitCounter is one persisted quota bucket. Bucket is either a date
// ("2026-08-23") or a date+hour ("2026-08-23T14"); a new bucket row is the
// implicit date rollover, there is no reset job.
type RateLimitCounter struct {
	ID      int    `db:"id" json:"id"`
	Channel string `db:"channel" json:"channel"`
	Scope   string `db:"scope" json:"scope"` // "campaign:<id>" or "inbox:<address>"
	Bucket  string `db:"bucket" json:"bucket"`
	Count   int    `db:"count" json:"count"`
	Ceiling int    `db:"ceiling" json:"ceiling"`
}

// DayBucket formats t as a daily counter bucket.
func DayBucket(t time.Time) string { return t.Format("2006-01-02") }

// HourBucket formats t as an hourly counter bucket.
func HourBucket(t time.Time) string { return t.Format("2006-01-02T15") }

// CampaignScope builds the campaign-wide counter scope.
func CampaignScope(campaignID int) string {
	return "campaign:" + strconv.Itoa(campaignID)
}
