// internal/ratelimit/limiter.go
package ratelimit

import (
	"fmt"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

// Limit is a per-channel quota pair.
type Limit struct {
	Daily  int
	Hourly int
}

// DefaultLimits are conservative enough to keep sending identities warm.
var DefaultLimits = map[string]Limit{
	model.ChannelEmail: {Daily: 50, Hourly: 10},
	model.ChannelVoice: {Daily: 50, Hourly: 10},
}

// channelPriority orders channels lowest-friction first; the coordinator
// prefers the earliest eligible one.
var channelPriority = []string{model.ChannelEmail, model.ChannelVoice}

// Limiter is a stateless quota policy. Counts live in the datastore; the
// caller passes the current daily and hourly tallies.
type Limiter struct {
	limits map[string]Limit
}

// New builds a limiter from the defaults, with per-channel overrides.
// A zero override field keeps the default.
func New(overrides map[string]Limit) *Limiter {
	limits := make(map[string]Limit, len(DefaultLimits))
	for ch, l := range DefaultLimits {
		limits[ch] = l
	}
	for ch, l := range overrides {
		base := limits[ch]
		if l.Daily > 0 {
			base.Daily = l.Daily
		}
		if l.Hourly > 0 {
			base.Hourly = l.Hourly
		}
		if base.Daily == 0 && base.Hourly == 0 {
			base = l
		}
		limits[ch] = base
	}
	return &Limiter{limits: limits}
}

// ForCampaign builds a limiter from a campaign's per-channel ceilings,
// falling back to the defaults for anything left at zero.
func ForCampaign(c *model.Campaign) *Limiter {
	return New(map[string]Limit{
		model.ChannelEmail: {Daily: c.EmailDaily, Hourly: c.EmailHourly},
		model.ChannelVoice: {Daily: c.VoiceDaily, Hourly: c.VoiceHourly},
	})
}

// CanExecute reports whether one more send on the channel is within quota.
// The reason string is empty when allowed.
func (l *Limiter) CanExecute(channel string, dailyCount, hourlyCount int) (bool, string) {
	limit, ok := l.limits[channel]
	if !ok {
		return false, fmt.Sprintf("no limits configured for channel %q", channel)
	}
	if limit.Daily > 0 && dailyCount >= limit.Daily {
		return false, fmt.Sprintf("daily limit reached for %s (%d/%d)", channel, dailyCount, limit.Daily)
	}
	if limit.Hourly > 0 && hourlyCount >= limit.Hourly {
		return false, fmt.Sprintf("hourly limit reached for %s (%d/%d)", channel, hourlyCount, limit.Hourly)
	}
	return true, ""
}

// Limit returns the configured quota pair for a channel.
func (l *Limiter) Limit(channel string) Limit {
	return l.limits[channel]
}

// Priority returns the static channel ordering, cheapest first.
func (l *Limiter) Priority() []string {
	out := make([]string, len(channelPriority))
	copy(out, channelPriority)
	return out
}
