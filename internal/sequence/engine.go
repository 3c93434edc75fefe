// internal/sequence/engine.go
package sequence

import (
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

// Hours is a campaign's business-hours window.
type Hours struct {
	Start    int
	End      int
	Location *time.Location
}

// Engine holds the pure sequence-timing logic. Persistence stays with the
// caller; the engine only mutates the model structs it is handed.
type Engine struct {
	Registry *Registry
}

func NewEngine(reg *Registry) *Engine {
	return &Engine{Registry: reg}
}

// NextStep returns the step at the sequence's current index, or nil when the
// index is past the final step or the step's conditions are not met.
func (e *Engine) NextStep(seq *model.Sequence, touches []*model.Touchpoint) *Step {
	tmpl, ok := e.Registry.Get(seq.TemplateID)
	if !ok {
		return nil
	}
	if seq.CurrentStep >= len(tmpl.Steps) {
		return nil
	}
	step := tmpl.Steps[seq.CurrentStep]
	if !conditionsMet(step.Conditions, touches) {
		return nil
	}
	return &step
}

func conditionsMet(conds []Condition, touches []*model.Touchpoint) bool {
	for _, c := range conds {
		count := 0
		for _, t := range touches {
			if t.Channel == c.Channel && t.Outcome == c.Outcome {
				count++
			}
		}
		switch c.Operator {
		case "eq":
			if count != c.Value {
				return false
			}
		case "gt":
			if count <= c.Value {
				return false
			}
		case "lt":
			if count >= c.Value {
				return false
			}
		case "exists":
			if count == 0 {
				return false
			}
		default:
			// Unknown operator never gates a step.
		}
	}
	return true
}

// NextExecution adds delayDays to now, then snaps forward into the business
// window: before the start hour moves to start-of-day, at/after the end hour
// rolls to the next day's start, and a landing on Saturday or Sunday rolls to
// Monday. Each rule applies once, not in a loop.
func NextExecution(now time.Time, delayDays int, hours Hours) time.Time {
	loc := hours.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc).AddDate(0, 0, delayDays)

	if t.Hour() < hours.Start {
		t = time.Date(t.Year(), t.Month(), t.Day(), hours.Start, 0, 0, 0, loc)
	} else if t.Hour() >= hours.End {
		t = t.AddDate(0, 0, 1)
		t = time.Date(t.Year(), t.Month(), t.Day(), hours.Start, 0, 0, 0, loc)
	}

	switch t.Weekday() {
	case time.Saturday:
		t = t.AddDate(0, 0, 2)
		t = time.Date(t.Year(), t.Month(), t.Day(), hours.Start, 0, 0, 0, loc)
	case time.Sunday:
		t = t.AddDate(0, 0, 1)
		t = time.Date(t.Year(), t.Month(), t.Day(), hours.Start, 0, 0, 0, loc)
	}
	return t
}

// Advance moves the sequence to the next step. Past the final step it marks
// the sequence completed, stamping CompletedAt exactly once. Otherwise it
// computes the next execution time from the upcoming step's delay.
func (e *Engine) Advance(seq *model.Sequence, now time.Time, hours Hours) {
	tmpl, ok := e.Registry.Get(seq.TemplateID)
	if !ok {
		return
	}
	seq.CurrentStep++
	if seq.CurrentStep >= len(tmpl.Steps) {
		if seq.Status != model.SequenceCompleted {
			seq.Status = model.SequenceCompleted
			done := now
			seq.CompletedAt = &done
		}
		seq.NextExecutionAt = nil
		return
	}
	next := NextExecution(now, tmpl.Steps[seq.CurrentStep].DelayDays, hours)
	seq.NextExecutionAt = &next
}

// Pause stops a sequence with a reason and the reference of the event that
// triggered it.
func Pause(seq *model.Sequence, reason, eventRef string) {
	seq.Status = model.SequencePaused
	seq.PauseReason = reason
	seq.PausedByEvent = eventRef
}

// Resume reactivates a paused sequence.
func Resume(seq *model.Sequence) {
	seq.Status = model.SequenceActive
	seq.PauseReason = ""
	seq.PausedByEvent = ""
}

// Cancel ends a sequence without completing it.
func Cancel(seq *model.Sequence) {
	seq.Status = model.SequenceCancelled
}
