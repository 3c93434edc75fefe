// internal/channel/email.go
package channel

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

const emailMaxAttempts = 3

// EmailAdapter sends through the email provider, gated by the warmup-health
// score of the sending identities. Transient provider failures (5xx, 429)
// are retried with capped exponential backoff, honoring Retry-After.
type EmailAdapter struct {
	Sender     provider.EmailSender
	Warmup     provider.WarmupHealth
	Identities []string
	MinHealth  int
	Subject    string
	Log        *zap.SugaredLogger

	// Sleep is swappable in tests.
	Sleep func(time.Duration)
}

func (a *EmailAdapter) Channel() string { return model.ChannelEmail }

func (a *EmailAdapter) Send(ctx context.Context, _ *model.Campaign, prospect *model.Prospect, action, content string) (*Result, error) {
	if prospect.Email == "" {
		return &Result{Success: false, Outcome: model.OutcomeFailed, Err: "prospect has no email address"}, nil
	}

	identity := a.pickIdentity(ctx)
	if identity == "" {
		// Fail closed: no healthy sending identity means we pause, we do
		// not burn deliverability.
		a.logw().Infow("no healthy sending identity, pausing email send",
			"prospect_id", prospect.ID, "min_health", a.MinHealth)
		return &Result{Success: false, Denied: true, Outcome: model.OutcomePaused, Err: "no healthy sending identity"}, nil
	}

	subject := a.Subject
	if subject == "" {
		subject = "Quick question"
	}

	var lastErr error
	for attempt := 1; attempt <= emailMaxAttempts; attempt++ {
		err := a.Sender.Send(ctx, identity, prospect.Email, subject, content)
		if err == nil {
			return &Result{
				Success: true,
				Outcome: model.OutcomeSent,
				Metadata: map[string]string{
					"identity": identity,
					"action":   action,
				},
			}, nil
		}

		lastErr = err
		var provErr *apperrors.ProviderError
		if !errors.As(err, &provErr) || !provErr.Transient() {
			// Permanent failure, no retry.
			return &Result{Success: false, Outcome: model.OutcomeFailed, Err: err.Error()}, nil
		}
		if attempt == emailMaxAttempts {
			break
		}

		wait := backoff(attempt)
		if provErr.RetryAfter > 0 {
			hinted := time.Duration(provErr.RetryAfter) * time.Second
			if hinted > wait {
				wait = hinted
			}
		}
		a.logw().Infow("transient email provider failure, retrying",
			"attempt", attempt, "wait", wait.String(), "status", provErr.StatusCode)
		a.sleep(wait)
	}

	return &Result{Success: false, Outcome: model.OutcomeFailed, Err: lastErr.Error()}, nil
}

// CheckStatus reports the stored channel state; email has no live status
// endpoint, delivery events arrive over the webhook surface.
func (a *EmailAdapter) CheckStatus(_ context.Context, prospect *model.Prospect) (string, error) {
	if prospect.EmailState == "" {
		return statemachine.EmailNotSent, nil
	}
	return prospect.EmailState, nil
}

// pickIdentity returns the first configured identity whose health score meets
// the minimum, or "" when none qualify.
func (a *EmailAdapter) pickIdentity(ctx context.Context) string {
	for _, id := range a.Identities {
		score, err := a.Warmup.HealthScore(ctx, id)
		if err != nil {
			a.logw().Warnw("warmup health check failed", "identity", id, "err", err)
			continue
		}
		if score >= a.MinHealth {
			return id
		}
		a.logw().Infow("sending identity below health threshold",
			"identity", id, "score", score, "min", a.MinHealth)
	}
	return ""
}

func (a *EmailAdapter) sleep(d time.Duration) {
	if a.Sleep != nil {
		a.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (a *EmailAdapter) logw() *zap.SugaredLogger {
	if a.Log != nil {
		return a.Log
	}
	return zap.NewNop().Sugar()
}

func backoff(attempt int) time.Duration {
	wait := 500 * time.Millisecond << (attempt - 1)
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

var _ Adapter = (*EmailAdapter)(nil)
