// internal/statemachine/channel.go
package statemachine

import "github.com/prospectpipe/outreach-backend/internal/model"

// Email channel micro-states.
const (
	EmailNotSent = "not_sent"
	EmailSent    = "sent"
	EmailOpened  = "opened"
	EmailReplied = "replied"
	EmailBounced = "bounced"
)

// Voice channel micro-states.
const (
	VoiceNotCalled = "not_called"
	VoiceCalled    = "called"
	VoiceAnswered  = "answered"
	VoiceVoicemail = "voicemail"
	VoiceBooked    = "booked"
)

type transitionKey struct {
	state   string
	outcome string
}

var emailTransitions = map[transitionKey]string{
	{EmailNotSent, model.OutcomeSent}:    EmailSent,
	{EmailNotSent, model.OutcomeBounced}: EmailBounced,
	{EmailSent, model.OutcomeSent}:       EmailSent,
	{EmailSent, model.OutcomeOpened}:     EmailOpened,
	{EmailSent, model.OutcomeReplied}:    EmailReplied,
	{EmailSent, model.OutcomeBounced}:    EmailBounced,
	{EmailOpened, model.OutcomeOpened}:   EmailOpened,
	{EmailOpened, model.OutcomeReplied}:  EmailReplied,
}

var voiceTransitions = map[transitionKey]string{
	{VoiceNotCalled, model.OutcomeNoAnswer}:      VoiceCalled,
	{VoiceNotCalled, model.OutcomeBusy}:          VoiceCalled,
	{VoiceNotCalled, model.OutcomeFailed}:        VoiceCalled,
	{VoiceNotCalled, model.OutcomeVoicemail}:     VoiceVoicemail,
	{VoiceNotCalled, model.OutcomeConnected}:     VoiceAnswered,
	{VoiceNotCalled, model.OutcomeNotInterested}: VoiceAnswered,
	{VoiceNotCalled, model.OutcomeCallback}:      VoiceAnswered,
	{VoiceNotCalled, model.OutcomeBooked}:        VoiceBooked,
	{VoiceCalled, model.OutcomeNoAnswer}:         VoiceCalled,
	{VoiceCalled, model.OutcomeBusy}:             VoiceCalled,
	{VoiceCalled, model.OutcomeFailed}:           VoiceCalled,
	{VoiceCalled, model.OutcomeVoicemail}:        VoiceVoicemail,
	{VoiceCalled, model.OutcomeConnected}:        VoiceAnswered,
	{VoiceCalled, model.OutcomeNotInterested}:    VoiceAnswered,
	{VoiceCalled, model.OutcomeCallback}:         VoiceAnswered,
	{VoiceCalled, model.OutcomeBooked}:           VoiceBooked,
	{VoiceVoicemail, model.OutcomeConnected}:     VoiceAnswered,
	{VoiceVoicemail, model.OutcomeVoicemail}:     VoiceVoicemail,
	{VoiceVoicemail, model.OutcomeNoAnswer}:      VoiceVoicemail,
	{VoiceVoicemail, model.OutcomeCallback}:      VoiceAnswered,
	{VoiceVoicemail, model.OutcomeBooked}:        VoiceBooked,
	{VoiceAnswered, model.OutcomeCallback}:       VoiceAnswered,
	{VoiceAnswered, model.OutcomeConnected}:      VoiceAnswered,
	{VoiceAnswered, model.OutcomeBooked}:         VoiceBooked,
}

// InitialChannelState is the zero state for a channel.
func InitialChannelState(channel string) string {
	switch channel {
	case model.ChannelEmail:
		return EmailNotSent
	case model.ChannelVoice:
		return VoiceNotCalled
	}
	return ""
}

// NextChannelState looks up the (state, outcome) transition for a channel.
// An unmapped combination is a no-op: the current state comes back with
// applied=false so the caller can log it.
func NextChannelState(channel, current, outcome string) (next string, applied bool) {
	if current == "" {
		current = InitialChannelState(channel)
	}
	var table map[transitionKey]string
	switch channel {
	case model.ChannelEmail:
		table = emailTransitions
	case model.ChannelVoice:
		table = voiceTransitions
	default:
		return current, false
	}
	if next, ok := table[transitionKey{current, outcome}]; ok {
		return next, true
	}
	return current, false
}
