// internal/callengine/engine.go
package callengine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/ratelimit"
	"github.com/prospectpipe/outreach-backend/internal/repository"
	"github.com/prospectpipe/outreach-backend/internal/sequence"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// Config tunes the call-specific gates.
type Config struct {
	MinGap           time.Duration // minimum gap between any two dials in a run
	CooldownDays     int           // per-prospect cooldown after any call
	BreakerThreshold int           // consecutive not_interested before halting
	DefaultStart     int           // business hours when the prospect tz has none
	DefaultEnd       int
	VoicemailScript  string
}

// DefaultConfig mirrors the documented defaults: 30s gap, 3-day cooldown,
// breaker at 3, 9-17 hours.
func DefaultConfig() Config {
	return Config{
		MinGap:           30 * time.Second,
		CooldownDays:     3,
		BreakerThreshold: 3,
		DefaultStart:     9,
		DefaultEnd:       17,
		VoicemailScript:  "Hi {first_name}, sorry we missed you. We'll try again soon.",
	}
}

// Engine runs one voice attempt end to end: gates, dial, AMD branch, log.
// The rejection breaker and dial gap are session-scoped; they reset with the
// process and are not persisted.
type Engine struct {
	Calls     repository.CallLogRepositoryInterface
	Prospects repository.ProspectRepositoryInterface
	Rates     repository.RateLimitRepositoryInterface
	Voice     provider.VoiceProvider
	Router    *PersonaRouter
	Cfg       Config
	Log       *zap.SugaredLogger

	// Now is swappable in tests.
	Now func() time.Time

	consecutiveNoes int
	lastDialAt      time.Time
}

// ResetBreaker clears the consecutive-rejection circuit breaker manually.
func (e *Engine) ResetBreaker() {
	e.consecutiveNoes = 0
}

// BreakerOpen reports whether the circuit breaker is currently tripped.
func (e *Engine) BreakerOpen() bool {
	return e.Cfg.BreakerThreshold > 0 && e.consecutiveNoes >= e.Cfg.BreakerThreshold
}

// Attempt places one call to the prospect. A *apperrors.SkipError return
// means a business-rule denial (no CallLog is written); any other error is a
// provider failure. On a completed attempt the CallLog row is returned and
// the prospect's voice channel state has been advanced.
func (e *Engine) Attempt(ctx context.Context, prospect *model.Prospect, campaign *model.Campaign) (*model.CallLog, error) {
	now := e.now()

	if reason := e.gate(prospect, campaign, now); reason != "" {
		e.logw().Infow("call attempt skipped", "prospect_id", prospect.ID, "reason", reason)
		return nil, apperrors.NewSkip(model.ChannelVoice, reason)
	}

	persona := ""
	if e.Router != nil {
		persona = e.Router.Pick()
	}

	e.lastDialAt = now
	dial, err := e.Voice.PlaceCall(ctx, prospect.Phone, persona)
	if err != nil {
		// A failed dial is still an attempt: one row per attempt, always.
		log := &model.CallLog{
			ProspectID:     prospect.ID,
			CampaignID:     campaign.ID,
			ProviderCallID: uuid.NewString(),
			PersonaID:      persona,
			Status:         model.CallFailed,
			Outcome:        model.OutcomeFailed,
			CreatedAt:      now,
		}
		if recErr := e.Calls.Record(log); recErr != nil {
			e.logw().Errorw("failed to record call log", "err", recErr)
		}
		e.applyChannelState(prospect, model.OutcomeFailed)
		return log, err
	}

	log := &model.CallLog{
		ProspectID:     prospect.ID,
		CampaignID:     campaign.ID,
		ProviderCallID: dial.CallID,
		PersonaID:      persona,
		CreatedAt:      now,
	}

	switch dial.Status {
	case model.CallAnswered:
		e.handleConnected(ctx, dial, log, prospect)
	case model.CallBusy:
		log.Status = model.CallBusy
		log.Outcome = model.OutcomeBusy
	case model.CallFailed:
		log.Status = model.CallFailed
		log.Outcome = model.OutcomeFailed
	default:
		log.Status = model.CallNoAnswer
		log.Outcome = model.OutcomeNoAnswer
	}

	if err := e.Calls.Record(log); err != nil {
		e.logw().Errorw("failed to record call log", "prospect_id", prospect.ID, "err", err)
	}
	e.trackBreaker(log.Outcome)
	e.applyChannelState(prospect, log.Outcome)

	// Count the attempt against voice quota regardless of branch.
	scope := model.CampaignScope(campaign.ID)
	ceiling := ratelimit.ForCampaign(campaign).Limit(model.ChannelVoice)
	if err := e.Rates.Increment(model.ChannelVoice, scope, model.DayBucket(now), ceiling.Daily); err != nil {
		e.logw().Warnw("failed to increment daily call counter", "err", err)
	}
	if err := e.Rates.Increment(model.ChannelVoice, scope, model.HourBucket(now), ceiling.Hourly); err != nil {
		e.logw().Warnw("failed to increment hourly call counter", "err", err)
	}

	return log, nil
}

// handleConnected branches on the AMD result for an answered dial.
func (e *Engine) handleConnected(ctx context.Context, dial *provider.DialResult, log *model.CallLog, prospect *model.Prospect) {
	switch dial.AMD {
	case provider.AMDHuman:
		log.Status = model.CallAnswered
		conv, err := e.Voice.RunConversation(ctx, dial.CallID)
		if err != nil {
			e.logw().Warnw("conversation failed", "call_id", dial.CallID, "err", err)
			log.Outcome = model.OutcomeFailed
			return
		}
		log.Outcome = conv.Outcome
		log.DurationSeconds = conv.DurationSeconds
		log.TranscriptRef = conv.TranscriptRef
		log.Booked = conv.Booked
		log.CallbackAt = conv.CallbackAt
	case provider.AMDMachine:
		log.Status = model.CallVoicemail
		log.Outcome = model.OutcomeVoicemail
		script := sequence.Render(e.Cfg.VoicemailScript, prospect)
		if err := e.Voice.DeliverVoicemail(ctx, dial.CallID, script); err != nil {
			e.logw().Warnw("voicemail delivery failed", "call_id", dial.CallID, "err", err)
		}
	default:
		// No AMD verdict within the detection window.
		log.Status = model.CallNoAnswer
		log.Outcome = model.OutcomeNoAnswer
	}
}

// gate evaluates every pre-dial rule and returns the first denial reason.
func (e *Engine) gate(prospect *model.Prospect, campaign *model.Campaign, now time.Time) string {
	if prospect.Phone == "" {
		return "prospect has no phone number"
	}

	if e.BreakerOpen() {
		return "circuit breaker open: too many consecutive not_interested outcomes"
	}

	if !e.withinBusinessHours(prospect, now) {
		return "outside business hours for prospect timezone"
	}

	if !e.lastDialAt.IsZero() && now.Sub(e.lastDialAt) < e.Cfg.MinGap {
		return "minimum gap between calls not elapsed"
	}

	scope := model.CampaignScope(campaign.ID)
	daily, err := e.Rates.GetCount(model.ChannelVoice, scope, model.DayBucket(now))
	if err != nil {
		e.logw().Warnw("failed to read daily call counter", "err", err)
	}
	hourly, err := e.Rates.GetCount(model.ChannelVoice, scope, model.HourBucket(now))
	if err != nil {
		e.logw().Warnw("failed to read hourly call counter", "err", err)
	}
	if ok, reason := ratelimit.ForCampaign(campaign).CanExecute(model.ChannelVoice, daily, hourly); !ok {
		return reason
	}

	if reason := e.cooldownReason(prospect, now); reason != "" {
		return reason
	}
	return ""
}

// cooldownReason excludes prospects called within the cooldown window,
// unless their last call asked for a callback whose time has passed.
func (e *Engine) cooldownReason(prospect *model.Prospect, now time.Time) string {
	last, err := e.Calls.LastCall(prospect.ID)
	if err != nil {
		e.logw().Warnw("failed to load last call", "prospect_id", prospect.ID, "err", err)
		return ""
	}
	if last == nil {
		return ""
	}
	cooldown := time.Duration(e.Cfg.CooldownDays) * 24 * time.Hour
	if now.Sub(last.CreatedAt) >= cooldown {
		return ""
	}
	if last.Outcome == model.OutcomeCallback && last.CallbackAt != nil && !last.CallbackAt.After(now) {
		return ""
	}
	return "prospect in call cooldown window"
}

func (e *Engine) withinBusinessHours(prospect *model.Prospect, now time.Time) bool {
	loc := time.UTC
	if prospect.Timezone != "" {
		if l, err := time.LoadLocation(prospect.Timezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	return local.Hour() >= e.Cfg.DefaultStart && local.Hour() < e.Cfg.DefaultEnd
}

// trackBreaker counts strictly consecutive rejections: any other outcome
// breaks the streak.
func (e *Engine) trackBreaker(outcome string) {
	if outcome == model.OutcomeNotInterested {
		e.consecutiveNoes++
		return
	}
	e.consecutiveNoes = 0
}

func (e *Engine) applyChannelState(prospect *model.Prospect, outcome string) {
	next, applied := statemachine.NextChannelState(model.ChannelVoice, prospect.VoiceState, outcome)
	if !applied {
		e.logw().Infow("voice state transition no-op",
			"prospect_id", prospect.ID, "state", prospect.VoiceState, "outcome", outcome)
		return
	}
	prospect.VoiceState = next
	if err := e.Prospects.UpdateChannelState(prospect.ID, model.ChannelVoice, next); err != nil {
		e.logw().Warnw("failed to persist voice state", "prospect_id", prospect.ID, "err", err)
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logw() *zap.SugaredLogger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop().Sugar()
}
