// internal/channel/voice.go
package channel

import (
	"context"
	"errors"
	"strconv"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/callengine"
	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// VoiceAdapter routes the coordinator's voice steps through the call engine,
// which owns all the call-specific gating.
type VoiceAdapter struct {
	Engine *callengine.Engine
}

func (a *VoiceAdapter) Channel() string { return model.ChannelVoice }

func (a *VoiceAdapter) Send(ctx context.Context, campaign *model.Campaign, prospect *model.Prospect, action, content string) (*Result, error) {
	log, err := a.Engine.Attempt(ctx, prospect, campaign)
	if err != nil {
		var skip *apperrors.SkipError
		if errors.As(err, &skip) {
			// Business-rule denial, not a provider failure.
			return &Result{Success: false, Denied: true, Outcome: model.OutcomePaused, Err: skip.Reason}, nil
		}
		outcome := model.OutcomeFailed
		if log != nil {
			outcome = log.Outcome
		}
		return &Result{Success: false, Outcome: outcome, Err: err.Error()}, nil
	}

	meta := map[string]string{
		"call_id": log.ProviderCallID,
		"status":  log.Status,
	}
	if log.PersonaID != "" {
		meta["persona_id"] = log.PersonaID
	}
	if log.DurationSeconds > 0 {
		meta["duration_seconds"] = strconv.Itoa(log.DurationSeconds)
	}
	return &Result{Success: true, Outcome: log.Outcome, Metadata: meta}, nil
}

func (a *VoiceAdapter) CheckStatus(_ context.Context, prospect *model.Prospect) (string, error) {
	if prospect.VoiceState == "" {
		return statemachine.VoiceNotCalled, nil
	}
	return prospect.VoiceState, nil
}

var _ Adapter = (*VoiceAdapter)(nil)
