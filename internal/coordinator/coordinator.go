// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/channel"
	"github.com/prospectpipe/outreach-backend/internal/detector"
	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/ratelimit"
	"github.com/prospectpipe/outreach-backend/internal/repository"
	"github.com/prospectpipe/outreach-backend/internal/sequence"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// RunSummary is the operator-facing result of one batch run. Per-prospect
// failures land in Errors; they never abort the batch.
type RunSummary struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Campaigns  int            `json:"campaigns"`
	Planned    map[string]int `json:"planned"`
	Executed   map[string]int `json:"executed"`
	Skipped    map[string]int `json:"skipped"`
	Alerts     []string       `json:"alerts"`
	Errors     []string       `json:"errors"`
}

func newSummary(now time.Time) *RunSummary {
	return &RunSummary{
		StartedAt: now,
		Planned:   map[string]int{},
		Executed:  map[string]int{},
		Skipped:   map[string]int{},
		Alerts:    []string{},
		Errors:    []string{},
	}
}

// Runner orchestrates one engagement pass: detection first, then one
// next-action decision per eligible prospect. Prospects are processed
// sequentially; the daily-touch cache and escalation ordering depend on it.
type Runner struct {
	Campaigns   repository.CampaignRepositoryInterface
	Prospects   repository.ProspectRepositoryInterface
	Sequences   repository.SequenceRepositoryInterface
	Touchpoints repository.TouchpointRepositoryInterface
	Rates       repository.RateLimitRepositoryInterface

	Engine   *sequence.Engine
	Detector *detector.Detector
	Adapters map[string]channel.Adapter

	Log *zap.SugaredLogger

	// Now, Sleep and Jitter are swappable in tests.
	Now    func() time.Time
	Sleep  func(time.Duration)
	Jitter func() time.Duration

	// touchedToday is populated from the datastore as prospects are
	// visited and discarded when the run ends.
	touchedToday map[int]bool
}

// Run processes every active campaign once and returns the summary.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	now := r.now()
	summary := newSummary(now)
	r.touchedToday = map[int]bool{}
	defer func() { r.touchedToday = nil }()

	campaigns, err := r.Campaigns.ListActive()
	if err != nil {
		return summary, fmt.Errorf("list active campaigns: %w", err)
	}

	for _, campaign := range campaigns {
		summary.Campaigns++
		r.runCampaign(ctx, campaign, summary)
	}

	summary.FinishedAt = r.now()
	r.logw().Infow("engagement run finished",
		"campaigns", summary.Campaigns,
		"executed", summary.Executed,
		"skipped", summary.Skipped,
		"alerts", len(summary.Alerts),
		"errors", len(summary.Errors))
	return summary, nil
}

func (r *Runner) runCampaign(ctx context.Context, campaign *model.Campaign, summary *RunSummary) {
	// Detection runs before any action selection so a fresh reply pauses
	// the sequence before we touch the prospect again.
	var scan *detector.ScanResult
	if r.Detector != nil {
		scan = r.Detector.Scan(ctx, campaign)
		summary.Alerts = append(summary.Alerts, scan.Alerts...)
		summary.Errors = append(summary.Errors, scan.Errors...)
	} else {
		scan = &detector.ScanResult{Escalations: map[int]bool{}}
	}

	terminal := []string{model.StateConverted, model.StateNotInterested}
	prospects, err := r.Prospects.ListEligible(campaign.ID, terminal)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("campaign %d: list prospects: %v", campaign.ID, err))
		return
	}

	for i, prospect := range prospects {
		if err := r.processProspect(ctx, campaign, prospect, scan, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf(
				"campaign %d prospect %d: %v", campaign.ID, prospect.ID, err))
			r.logw().Warnw("prospect processing failed",
				"campaign_id", campaign.ID, "prospect_id", prospect.ID, "err", err)
		}
		// Jitter between prospects keeps provider traffic from looking
		// like a burst. Skip it after the last one.
		if i < len(prospects)-1 {
			r.sleep(r.jitter())
		}
	}
}

func (r *Runner) processProspect(ctx context.Context, campaign *model.Campaign, prospect *model.Prospect, scan *detector.ScanResult, summary *RunSummary) error {
	now := r.now()

	// 1. One touch per day across all channels.
	touched, err := r.touchedTodayCheck(prospect.ID, now)
	if err != nil {
		return err
	}
	if touched {
		summary.Skipped["daily_touch"]++
		return nil
	}

	// 2. Get or create the sequence, template by data availability.
	seq, err := r.getOrCreateSequence(campaign, prospect, now)
	if err != nil {
		return err
	}

	// 3. Only active, due sequences proceed.
	if seq.Status != model.SequenceActive {
		summary.Skipped["sequence_inactive"]++
		return nil
	}
	if seq.NextExecutionAt != nil && seq.NextExecutionAt.After(now) {
		summary.Skipped["not_due"]++
		return nil
	}
	touches, err := r.Touchpoints.ListByProspect(prospect.ID)
	if err != nil {
		return err
	}

	// Two weeks of silence after three touches demotes the prospect.
	if statemachine.IsUnresponsive(touches, now) {
		if next, applied := statemachine.Apply(prospect.PipelineState, model.StateUnresponsive); applied {
			prospect.PipelineState = next
			if err := r.Prospects.UpdatePipelineState(prospect.ID, next); err != nil {
				r.logw().Warnw("failed to persist pipeline state", "prospect_id", prospect.ID, "err", err)
			}
		}
	}

	step := r.Engine.NextStep(seq, touches)
	if step == nil {
		summary.Skipped["no_step_due"]++
		return nil
	}

	summary.Planned[step.Channel]++

	// 4. Missing contact data skips the step and advances past it so the
	// rest of the sequence is not blocked.
	if !prospect.HasChannelData(step.Channel) {
		r.logw().Infow("skipping step, prospect lacks channel data",
			"prospect_id", prospect.ID, "channel", step.Channel, "step", step.Name)
		r.advance(seq, campaign, now)
		if err := r.Sequences.Update(seq); err != nil {
			return err
		}
		summary.Skipped["missing_data"]++
		return nil
	}

	// 5. Quota check against the campaign's own ceilings.
	limiter := ratelimit.ForCampaign(campaign)
	scope := model.CampaignScope(campaign.ID)
	daily, err := r.Rates.GetCount(step.Channel, scope, model.DayBucket(now))
	if err != nil {
		return err
	}
	hourly, err := r.Rates.GetCount(step.Channel, scope, model.HourBucket(now))
	if err != nil {
		return err
	}
	if ok, reason := limiter.CanExecute(step.Channel, daily, hourly); !ok {
		r.logw().Infow("rate limit denied", "prospect_id", prospect.ID, "reason", reason)
		summary.Skipped["rate_limited"]++
		return nil
	}

	// 6. Escalation is informational: it rides along as metadata on
	// secondary-channel actions, it never changes the decision.
	escalated := step.Channel != model.ChannelEmail && scan.Escalations[prospect.ID]

	// Deprioritization is also informational: logged, not blocked.
	if deprioritized(touches, step.Channel) {
		r.logw().Infow("channel deprioritized for prospect",
			"prospect_id", prospect.ID, "channel", step.Channel)
	}

	// 7. Execute through the adapter.
	adapter, ok := r.Adapters[step.Channel]
	if !ok {
		return fmt.Errorf("no adapter for channel %q", step.Channel)
	}
	content := sequence.Render(step.Content, prospect)
	result, err := adapter.Send(ctx, campaign, prospect, step.Action, content)
	if err != nil {
		// Provider failure: record the failed attempt, keep the step.
		r.recordTouchpoint(campaign, prospect, step, model.OutcomeFailed, content, escalated, now)
		summary.Skipped["provider_error"]++
		return err
	}

	if result.Denied {
		// A business-rule refusal is a skip, not an attempt: no touchpoint,
		// the step stays, and the prospect stays touchable today.
		r.logw().Infow("action denied by business rule",
			"prospect_id", prospect.ID, "channel", step.Channel, "reason", result.Err)
		summary.Skipped["denied"]++
		return nil
	}

	if !result.Success {
		r.recordTouchpoint(campaign, prospect, step, result.Outcome, content, escalated, now)
		summary.Skipped["failed"]++
		r.logw().Infow("action did not complete",
			"prospect_id", prospect.ID, "channel", step.Channel,
			"outcome", result.Outcome, "err", result.Err)
		return nil
	}

	if err := r.recordTouchpoint(campaign, prospect, step, result.Outcome, content, escalated, now); err != nil {
		return err
	}

	// The call engine counts voice attempts itself; everything else is
	// counted here.
	if step.Channel != model.ChannelVoice {
		ceiling := limiter.Limit(step.Channel)
		if err := r.Rates.Increment(step.Channel, scope, model.DayBucket(now), ceiling.Daily); err != nil {
			r.logw().Warnw("failed to increment daily counter", "err", err)
		}
		if err := r.Rates.Increment(step.Channel, scope, model.HourBucket(now), ceiling.Hourly); err != nil {
			r.logw().Warnw("failed to increment hourly counter", "err", err)
		}
	}

	r.advance(seq, campaign, now)
	if err := r.Sequences.Update(seq); err != nil {
		return err
	}
	if err := r.Prospects.StampLastTouch(prospect.ID, now); err != nil {
		return err
	}
	r.touchedToday[prospect.ID] = true

	r.applyStates(prospect, step.Channel, result.Outcome, touches)

	summary.Executed[step.Channel]++
	return nil
}

// touchedTodayCheck consults the run-scoped cache first, then the datastore.
func (r *Runner) touchedTodayCheck(prospectID int, now time.Time) (bool, error) {
	if r.touchedToday[prospectID] {
		return true, nil
	}
	count, err := r.Touchpoints.CountForDay(prospectID, now)
	if err != nil {
		return false, err
	}
	if count > 0 {
		r.touchedToday[prospectID] = true
		return true, nil
	}
	return false, nil
}

func (r *Runner) getOrCreateSequence(campaign *model.Campaign, prospect *model.Prospect, now time.Time) (*model.Sequence, error) {
	seq, err := r.Sequences.GetByProspect(prospect.ID, campaign.ID)
	if err != nil {
		return nil, err
	}
	if seq != nil {
		return seq, nil
	}

	templateID := campaign.TemplateID
	if templateID == "" {
		templateID = r.Engine.Registry.PickTemplate(prospect.Capabilities())
	}
	first := now
	seq = &model.Sequence{
		ProspectID:      prospect.ID,
		CampaignID:      campaign.ID,
		TemplateID:      templateID,
		CurrentStep:     0,
		NextExecutionAt: &first,
		Status:          model.SequenceActive,
	}
	if err := r.Sequences.Create(seq); err != nil {
		return nil, err
	}
	return seq, nil
}

func (r *Runner) advance(seq *model.Sequence, campaign *model.Campaign, now time.Time) {
	hours := sequence.Hours{
		Start:    campaign.StartHour,
		End:      campaign.EndHour,
		Location: campaign.Location(),
	}
	if hours.Start == 0 && hours.End == 0 {
		hours.Start, hours.End = 9, 17
	}
	r.Engine.Advance(seq, now, hours)
}

func (r *Runner) recordTouchpoint(campaign *model.Campaign, prospect *model.Prospect, step *sequence.Step, outcome, content string, escalated bool, now time.Time) error {
	metadata := ""
	if escalated {
		metadata = `{"escalated":true}`
	}
	t := &model.Touchpoint{
		ProspectID: prospect.ID,
		CampaignID: campaign.ID,
		Channel:    step.Channel,
		Action:     step.Action,
		Content:    content,
		Outcome:    outcome,
		Metadata:   metadata,
		SentAt:     now,
	}
	if err := r.Touchpoints.Record(t); err != nil {
		r.logw().Errorw("failed to record touchpoint",
			"prospect_id", prospect.ID, "channel", step.Channel, "err", err)
		return err
	}
	return nil
}

// applyStates advances the channel micro-state and re-derives the pipeline
// state from the touch history, both gated by their transition tables.
func (r *Runner) applyStates(prospect *model.Prospect, ch, outcome string, priorTouches []*model.Touchpoint) {
	// Voice state is applied inside the call engine.
	if ch != model.ChannelVoice {
		if next, applied := statemachine.NextChannelState(ch, prospect.ChannelState(ch), outcome); applied {
			if err := r.Prospects.UpdateChannelState(prospect.ID, ch, next); err != nil {
				r.logw().Warnw("failed to persist channel state", "prospect_id", prospect.ID, "err", err)
			}
		} else {
			r.logw().Infow("channel state transition no-op",
				"prospect_id", prospect.ID, "channel", ch, "outcome", outcome)
		}
	}

	total, positive := statemachine.CountTouches(priorTouches)
	total++ // the touch just recorded
	if model.PositiveOutcome(outcome) {
		positive++
	}
	derived := statemachine.DerivePipelineState(prospect.PipelineState, total, positive)
	if derived != prospect.PipelineState {
		if next, applied := statemachine.Apply(prospect.PipelineState, derived); applied {
			prospect.PipelineState = next
			if err := r.Prospects.UpdatePipelineState(prospect.ID, next); err != nil {
				r.logw().Warnw("failed to persist pipeline state", "prospect_id", prospect.ID, "err", err)
			}
		}
	}
}

// deprioritized reports three or more touches on the channel with not one
// positive outcome.
func deprioritized(touches []*model.Touchpoint, ch string) bool {
	count, positive := 0, 0
	for _, t := range touches {
		if t.Channel != ch {
			continue
		}
		count++
		if model.PositiveOutcome(t.Outcome) {
			positive++
		}
	}
	return count >= 3 && positive == 0
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (r *Runner) jitter() time.Duration {
	if r.Jitter != nil {
		return r.Jitter()
	}
	return time.Duration(300+rand.Intn(1700)) * time.Millisecond
}

func (r *Runner) logw() *zap.SugaredLogger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop().Sugar()
}
