// internal/channel/adapter.go
package channel

import (
	"context"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

// Result is the outcome of one channel action. Denied marks a business-rule
// refusal (quota, hours, cooldown, no healthy identity): nothing was
// attempted, so the caller must not record a touchpoint for it.
type Result struct {
	Success  bool
	Denied   bool
	Outcome  string
	Err      string
	Metadata map[string]string
}

// Adapter is the per-channel send contract. The coordinator only ever sees
// this interface, never a concrete channel. The campaign rides along because
// quota scopes and business hours are campaign-level settings.
type Adapter interface {
	Channel() string
	Send(ctx context.Context, campaign *model.Campaign, prospect *model.Prospect, action, content string) (*Result, error)
	CheckStatus(ctx context.Context, prospect *model.Prospect) (string, error)
}
