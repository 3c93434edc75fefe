// internal/statemachine/pipeline.go
package statemachine

import (
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

// pipelineTransitions is the fixed adjacency table for prospect pipeline
// states. A transition is valid iff the target appears in the source's list.
var pipelineTransitions = map[string][]string{
	model.StateDiscovered:    {model.StateResearched, model.StateContacted},
	model.StateResearched:    {model.StateContacted},
	model.StateContacted:     {model.StateEngaged, model.StateNotInterested, model.StateUnresponsive},
	model.StateEngaged:       {model.StateQualified, model.StateBooked, model.StateNotInterested, model.StateUnresponsive},
	model.StateQualified:     {model.StateBooked, model.StateNotInterested},
	model.StateBooked:        {model.StateConverted, model.StateNotInterested},
	model.StateConverted:     {},
	model.StateNotInterested: {},
	model.StateUnresponsive:  {model.StateContacted, model.StateEngaged},
}

// TerminalState reports whether the pipeline state ends outreach for good.
func TerminalState(state string) bool {
	return state == model.StateConverted || state == model.StateNotInterested
}

// CanTransition is a lookup into the adjacency table.
func CanTransition(from, to string) bool {
	for _, next := range pipelineTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Apply returns the target state when the transition is valid, otherwise the
// current state unchanged. The second return value reports whether the
// transition was applied.
func Apply(current, to string) (string, bool) {
	if CanTransition(current, to) {
		return to, true
	}
	return current, false
}

// DerivePipelineState computes the pipeline state implied by accumulated
// touchpoints. It never invents a state for an untouched prospect, and the
// caller must still gate the result through Apply.
func DerivePipelineState(current string, total, positive int) string {
	if total == 0 {
		return current
	}
	switch {
	case positive >= 3:
		return model.StateQualified
	case positive >= 1:
		return model.StateEngaged
	default:
		return model.StateContacted
	}
}

// IsUnresponsive: at least three touches, the latest at least 14 days old,
// and no touch ever replied.
func IsUnresponsive(touches []*model.Touchpoint, now time.Time) bool {
	if len(touches) < 3 {
		return false
	}
	var latest time.Time
	for _, t := range touches {
		if t.Outcome == model.OutcomeReplied {
			return false
		}
		if t.SentAt.After(latest) {
			latest = t.SentAt
		}
	}
	return now.Sub(latest) >= 14*24*time.Hour
}

// CountTouches tallies total and positive touches for derivation.
func CountTouches(touches []*model.Touchpoint) (total, positive int) {
	for _, t := range touches {
		total++
		if model.PositiveOutcome(t.Outcome) {
			positive++
		}
	}
	return total, positive
}
