// internal/detector/detector.go
package detector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/repository"
	"github.com/prospectpipe/outreach-backend/internal/sequence"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// ScanResult is everything one detection pass produced. Escalations maps
// prospect ID -> true when an email open has gone unreplied past the window;
// the coordinator reads it to annotate secondary-channel actions.
type ScanResult struct {
	RepliesDetected int
	AcceptsDetected int
	Alerts          []string
	Escalations     map[int]bool
	Errors          []string
}

// Detector scans all monitored channels for inbound signals and reacts to
// replies: pause every active sequence, promote the prospect, raise an alert.
type Detector struct {
	Prospects   repository.ProspectRepositoryInterface
	Sequences   repository.SequenceRepositoryInterface
	Touchpoints repository.TouchpointRepositoryInterface
	Events      repository.EventRepositoryInterface
	Mailbox     provider.Mailbox

	Window time.Duration // escalation window for unreplied opens
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

// Scan runs one detection pass for a campaign. A failure on one channel is
// recorded and the remaining channels still run.
func (d *Detector) Scan(ctx context.Context, campaign *model.Campaign) *ScanResult {
	res := &ScanResult{Escalations: map[int]bool{}}

	if err := d.scanMailbox(ctx, campaign, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("mailbox scan: %v", err))
		d.logw().Warnw("mailbox scan failed", "campaign_id", campaign.ID, "err", err)
	}
	if err := d.scanTouchpointReplies(campaign, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("touchpoint reply scan: %v", err))
		d.logw().Warnw("touchpoint reply scan failed", "campaign_id", campaign.ID, "err", err)
	}
	if err := d.scanReplyEvents(campaign, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("reply event scan: %v", err))
		d.logw().Warnw("reply event scan failed", "campaign_id", campaign.ID, "err", err)
	}
	if err := d.scanAcceptEvents(campaign, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("accept event scan: %v", err))
		d.logw().Warnw("accept event scan failed", "campaign_id", campaign.ID, "err", err)
	}
	if err := d.collectEscalations(campaign, res); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("escalation scan: %v", err))
		d.logw().Warnw("escalation scan failed", "campaign_id", campaign.ID, "err", err)
	}

	return res
}

// scanMailbox matches inbound mailbox replies to prospects by address.
func (d *Detector) scanMailbox(ctx context.Context, campaign *model.Campaign, res *ScanResult) error {
	if d.Mailbox == nil {
		return nil
	}
	since := d.now().Add(-7 * 24 * time.Hour)
	messages, err := d.Mailbox.ListReplies(ctx, since)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		exists, err := d.Events.Exists(model.ChannelEmail, model.EventReply, msg.MessageID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		prospect, err := d.Prospects.FindByEmail(msg.From)
		if err != nil {
			return err
		}
		if prospect == nil {
			d.logw().Debugw("mailbox reply from unknown address", "from", msg.From)
			continue
		}
		// Leave other campaigns' prospects for their own scans.
		if prospect.CampaignID != campaign.ID {
			continue
		}
		if err := d.handleReply(prospect, campaign, model.ChannelEmail, msg.MessageID, msg.ReceivedAt, res); err != nil {
			return err
		}
	}
	return nil
}

// scanTouchpointReplies picks up replied_at timestamps that arrived via
// webhooks. The per-touchpoint processed flag tolerates out-of-order arrival.
func (d *Detector) scanTouchpointReplies(campaign *model.Campaign, res *ScanResult) error {
	touches, err := d.Touchpoints.ListUnprocessedReplies(campaign.ID)
	if err != nil {
		return err
	}
	for _, t := range touches {
		prospect, err := d.Prospects.GetByID(t.ProspectID)
		if err != nil {
			return err
		}
		if prospect == nil {
			continue
		}
		sourceRef := "touchpoint:" + strconv.Itoa(t.ID)
		repliedAt := d.now()
		if t.RepliedAt != nil {
			repliedAt = *t.RepliedAt
		}
		if err := d.handleReply(prospect, campaign, t.Channel, sourceRef, repliedAt, res); err != nil {
			return err
		}
		if err := d.Touchpoints.MarkReplyProcessed(t.ID); err != nil {
			return err
		}
	}
	return nil
}

// scanAcceptEvents drains out-of-band accept/follow-back events recorded by
// the webhook surface.
func (d *Detector) scanAcceptEvents(campaign *model.Campaign, res *ScanResult) error {
	events, err := d.Events.ListUnprocessed(model.EventAccept)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.CampaignID != 0 && ev.CampaignID != campaign.ID {
			continue
		}
		res.AcceptsDetected++
		res.Alerts = append(res.Alerts, fmt.Sprintf(
			"prospect %d accepted on %s (event %s)", ev.ProspectID, ev.Channel, ev.ID))
		if err := d.Events.MarkProcessed(ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// handleReply records a freshly observed reply as an event and reacts to it.
func (d *Detector) handleReply(prospect *model.Prospect, campaign *model.Campaign, channel, sourceRef string, occurredAt time.Time, res *ScanResult) error {
	exists, err := d.Events.Exists(channel, model.EventReply, sourceRef)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	event := &model.EngagementEvent{
		ID:         uuid.NewString(),
		ProspectID: prospect.ID,
		CampaignID: campaign.ID,
		Channel:    channel,
		Kind:       model.EventReply,
		SourceRef:  sourceRef,
		Processed:  true,
		OccurredAt: occurredAt,
	}
	if err := d.Events.Insert(event); err != nil {
		return err
	}
	return d.reactToReply(prospect, channel, event.ID, res)
}

// scanReplyEvents drains reply events the webhook surface stored without
// reacting to them. Events with no matching prospect are still marked
// processed so they do not circulate forever.
func (d *Detector) scanReplyEvents(campaign *model.Campaign, res *ScanResult) error {
	events, err := d.Events.ListUnprocessed(model.EventReply)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.CampaignID != 0 && ev.CampaignID != campaign.ID {
			continue
		}
		prospect, err := d.Prospects.GetByID(ev.ProspectID)
		if err != nil {
			return err
		}
		if prospect != nil {
			if err := d.reactToReply(prospect, ev.Channel, ev.ID, res); err != nil {
				return err
			}
		}
		if err := d.Events.MarkProcessed(ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// reactToReply is the reply reaction: pause every active sequence, promote
// the pipeline state when the table allows, raise an alert.
func (d *Detector) reactToReply(prospect *model.Prospect, channel, eventID string, res *ScanResult) error {
	seqs, err := d.Sequences.ListActiveByProspect(prospect.ID)
	if err != nil {
		return err
	}
	for _, seq := range seqs {
		sequence.Pause(seq, "reply detected on "+channel, eventID)
		if err := d.Sequences.Update(seq); err != nil {
			return err
		}
	}

	if next, applied := statemachine.Apply(prospect.PipelineState, model.StateEngaged); applied {
		prospect.PipelineState = next
		if err := d.Prospects.UpdatePipelineState(prospect.ID, next); err != nil {
			return err
		}
	} else {
		d.logw().Infow("reply did not change pipeline state",
			"prospect_id", prospect.ID, "state", prospect.PipelineState)
	}

	// Mirror the channel micro-state too.
	if next, applied := statemachine.NextChannelState(channel, prospect.ChannelState(channel), model.OutcomeReplied); applied {
		if err := d.Prospects.UpdateChannelState(prospect.ID, channel, next); err != nil {
			return err
		}
	}

	res.RepliesDetected++
	res.Alerts = append(res.Alerts, fmt.Sprintf(
		"reply from %s %s (prospect %d) on %s; sequences paused",
		prospect.FirstName, prospect.LastName, prospect.ID, channel))
	return nil
}

// collectEscalations flags prospects with an email open older than the
// window and still no reply. Informational only: nothing is paused.
func (d *Detector) collectEscalations(campaign *model.Campaign, res *ScanResult) error {
	window := d.Window
	if window == 0 {
		window = 48 * time.Hour
	}
	cutoff := d.now().Add(-window)
	touches, err := d.Touchpoints.ListUnrepliedOpensBefore(campaign.ID, cutoff)
	if err != nil {
		return err
	}
	for _, t := range touches {
		res.Escalations[t.ProspectID] = true
	}
	return nil
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Detector) logw() *zap.SugaredLogger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop().Sugar()
}
