package statemachine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

func TestNextChannelStateEmail(t *testing.T) {
	next, applied := statemachine.NextChannelState(model.ChannelEmail, statemachine.EmailNotSent, model.OutcomeSent)
	assert.True(t, applied)
	assert.Equal(t, statemachine.EmailSent, next)

	next, applied = statemachine.NextChannelState(model.ChannelEmail, statemachine.EmailSent, model.OutcomeOpened)
	assert.True(t, applied)
	assert.Equal(t, statemachine.EmailOpened, next)

	next, applied = statemachine.NextChannelState(model.ChannelEmail, statemachine.EmailOpened, model.OutcomeReplied)
	assert.True(t, applied)
	assert.Equal(t, statemachine.EmailReplied, next)
}

func TestNextChannelStateUnmappedIsNoOp(t *testing.T) {
	// A reply cannot arrive before anything was sent.
	next, applied := statemachine.NextChannelState(model.ChannelEmail, statemachine.EmailNotSent, model.OutcomeReplied)
	assert.False(t, applied)
	assert.Equal(t, statemachine.EmailNotSent, next)

	// Bounced is a dead end for further email outcomes.
	next, applied = statemachine.NextChannelState(model.ChannelEmail, statemachine.EmailBounced, model.OutcomeOpened)
	assert.False(t, applied)
	assert.Equal(t, statemachine.EmailBounced, next)

	// Unknown channel.
	next, applied = statemachine.NextChannelState("fax", "idle", model.OutcomeSent)
	assert.False(t, applied)
	assert.Equal(t, "idle", next)
}

func TestNextChannelStateVoice(t *testing.T) {
	next, applied := statemachine.NextChannelState(model.ChannelVoice, statemachine.VoiceNotCalled, model.OutcomeNoAnswer)
	assert.True(t, applied)
	assert.Equal(t, statemachine.VoiceCalled, next)

	next, applied = statemachine.NextChannelState(model.ChannelVoice, statemachine.VoiceCalled, model.OutcomeVoicemail)
	assert.True(t, applied)
	assert.Equal(t, statemachine.VoiceVoicemail, next)

	next, applied = statemachine.NextChannelState(model.ChannelVoice, statemachine.VoiceVoicemail, model.OutcomeConnected)
	assert.True(t, applied)
	assert.Equal(t, statemachine.VoiceAnswered, next)

	next, applied = statemachine.NextChannelState(model.ChannelVoice, statemachine.VoiceAnswered, model.OutcomeBooked)
	assert.True(t, applied)
	assert.Equal(t, statemachine.VoiceBooked, next)
}

func TestNextChannelStateDefaultsToInitial(t *testing.T) {
	// An empty stored state is treated as the channel's zero state.
	next, applied := statemachine.NextChannelState(model.ChannelVoice, "", model.OutcomeConnected)
	assert.True(t, applied)
	assert.Equal(t, statemachine.VoiceAnswered, next)

	assert.Equal(t, statemachine.EmailNotSent, statemachine.InitialChannelState(model.ChannelEmail))
	assert.Equal(t, statemachine.VoiceNotCalled, statemachine.InitialChannelState(model.ChannelVoice))
}
