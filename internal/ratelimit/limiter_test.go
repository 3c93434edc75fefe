package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/ratelimit"
)

func TestCanExecuteDefaults(t *testing.T) {
	limiter := ratelimit.New(nil)

	ok, reason := limiter.CanExecute(model.ChannelEmail, 0, 0)
	assert.True(t, ok)
	assert.Empty(t, reason)

	// Count equal to the ceiling is already over.
	ok, reason = limiter.CanExecute(model.ChannelEmail, 50, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "daily limit reached for email")

	ok, reason = limiter.CanExecute(model.ChannelEmail, 49, 10)
	assert.False(t, ok)
	assert.Contains(t, reason, "hourly limit reached for email")

	ok, _ = limiter.CanExecute(model.ChannelVoice, 49, 9)
	assert.True(t, ok)
}

func TestCanExecuteUnknownChannel(t *testing.T) {
	limiter := ratelimit.New(nil)
	ok, reason := limiter.CanExecute("fax", 0, 0)
	assert.False(t, ok)
	assert.Contains(t, reason, "no limits configured")
}

func TestOverridesKeepDefaultsForZeroFields(t *testing.T) {
	limiter := ratelimit.New(map[string]ratelimit.Limit{
		model.ChannelEmail: {Daily: 5},
	})

	ok, _ := limiter.CanExecute(model.ChannelEmail, 5, 0)
	assert.False(t, ok)

	// Hourly was not overridden, so the default of 10 still applies.
	ok, _ = limiter.CanExecute(model.ChannelEmail, 4, 9)
	assert.True(t, ok)
	ok, _ = limiter.CanExecute(model.ChannelEmail, 4, 10)
	assert.False(t, ok)
}

func TestForCampaign(t *testing.T) {
	campaign := &model.Campaign{EmailDaily: 2, VoiceHourly: 1}
	limiter := ratelimit.ForCampaign(campaign)

	ok, _ := limiter.CanExecute(model.ChannelEmail, 2, 0)
	assert.False(t, ok)
	ok, _ = limiter.CanExecute(model.ChannelVoice, 0, 1)
	assert.False(t, ok)

	// Untouched fields fall back to defaults.
	ok, _ = limiter.CanExecute(model.ChannelVoice, 49, 0)
	assert.True(t, ok)

	assert.Equal(t, ratelimit.Limit{Daily: 2, Hourly: 10}, limiter.Limit(model.ChannelEmail))
}

func TestPriorityOrder(t *testing.T) {
	limiter := ratelimit.New(nil)
	assert.Equal(t, []string{model.ChannelEmail, model.ChannelVoice}, limiter.Priority())
}
