package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectpipe/outreach-backend/internal/channel"
	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
)

type fakeSender struct {
	errs  []error // consumed one per attempt; nil means success
	sends []string
	from  []string
}

func (f *fakeSender) Send(ctx context.Context, from, to, subject, body string) error {
	f.sends = append(f.sends, to)
	f.from = append(f.from, from)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

type fakeWarmup struct {
	scores map[string]int
}

func (f *fakeWarmup) HealthScore(ctx context.Context, identity string) (int, error) {
	score, ok := f.scores[identity]
	if !ok {
		return 0, errors.New("unknown identity")
	}
	return score, nil
}

func newEmailAdapter(sender *fakeSender, warmup *fakeWarmup, slept *[]time.Duration) *channel.EmailAdapter {
	return &channel.EmailAdapter{
		Sender:     sender,
		Warmup:     warmup,
		Identities: []string{"alpha@send.test", "beta@send.test"},
		MinHealth:  80,
		Sleep: func(d time.Duration) {
			*slept = append(*slept, d)
		},
	}
}

func TestEmailSendUsesFirstHealthyIdentity(t *testing.T) {
	sender := &fakeSender{}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 40, "beta@send.test": 95}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	prospect := &model.Prospect{ID: 1, Email: "alice@acme.test"}
	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, prospect, "send_email", "hello")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.OutcomeSent, res.Outcome)
	require.Len(t, sender.from, 1)
	assert.Equal(t, "beta@send.test", sender.from[0])
	assert.Equal(t, "beta@send.test", res.Metadata["identity"])
}

func TestEmailFailsClosedWithNoHealthyIdentity(t *testing.T) {
	sender := &fakeSender{}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 40, "beta@send.test": 60}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	prospect := &model.Prospect{ID: 1, Email: "alice@acme.test"}
	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, prospect, "send_email", "hello")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Denied, "fail-closed is a business-rule denial, not an attempt")
	assert.Equal(t, model.OutcomePaused, res.Outcome)
	assert.Empty(t, sender.sends, "nothing goes out without a healthy identity")
}

func TestEmailRetriesTransientFailureHonoringRetryAfter(t *testing.T) {
	sender := &fakeSender{errs: []error{
		&apperrors.ProviderError{Provider: "email", StatusCode: 429, RetryAfter: 2, Message: "slow down"},
	}}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 90}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	prospect := &model.Prospect{ID: 1, Email: "alice@acme.test"}
	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, prospect, "send_email", "hello")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, sender.sends, 2)
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], 2*time.Second, "Retry-After hint must be honored")
}

func TestEmailGivesUpAfterMaxAttempts(t *testing.T) {
	transient := &apperrors.ProviderError{Provider: "email", StatusCode: 503, Message: "unavailable"}
	sender := &fakeSender{errs: []error{transient, transient, transient}}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 90}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	prospect := &model.Prospect{ID: 1, Email: "alice@acme.test"}
	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, prospect, "send_email", "hello")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Len(t, sender.sends, 3)
	assert.Len(t, slept, 2, "no sleep after the final attempt")
}

func TestEmailPermanentFailureDoesNotRetry(t *testing.T) {
	sender := &fakeSender{errs: []error{
		&apperrors.ProviderError{Provider: "email", StatusCode: 400, Message: "bad recipient"},
	}}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 90}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	prospect := &model.Prospect{ID: 1, Email: "alice@acme.test"}
	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, prospect, "send_email", "hello")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Len(t, sender.sends, 1)
	assert.Empty(t, slept)
}

func TestEmailWithoutAddressFails(t *testing.T) {
	sender := &fakeSender{}
	warmup := &fakeWarmup{scores: map[string]int{"alpha@send.test": 90}}
	var slept []time.Duration
	adapter := newEmailAdapter(sender, warmup, &slept)

	res, err := adapter.Send(context.Background(), &model.Campaign{ID: 1}, &model.Prospect{ID: 1}, "send_email", "hello")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Empty(t, sender.sends)
}
