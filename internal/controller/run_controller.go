// internal/controller/run_controller.go
package controller

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/coordinator"
	"github.com/prospectpipe/outreach-backend/internal/queue"
	"github.com/prospectpipe/outreach-backend/internal/repository"
)

const runsTopic = "engagement_runs"

// RunController triggers engagement batches off the request path and keeps
// their summaries in memory for the life of the process.
type RunController struct {
	Runner      *coordinator.Runner
	Queue       queue.Queue
	Touchpoints repository.TouchpointRepositoryInterface
	Log         *zap.SugaredLogger

	mu        sync.Mutex
	summaries map[string]*coordinator.RunSummary
}

// StartSubscriber wires the run executor onto the in-memory queue. Call once
// at startup.
func (c *RunController) StartSubscriber() {
	c.summaries = map[string]*coordinator.RunSummary{}
	err := c.Queue.Subscribe(runsTopic, func(payload any) error {
		runID, ok := payload.(string)
		if !ok {
			c.Log.Warnw("invalid run payload", "payload", payload)
			return nil
		}
		summary, err := c.Runner.Run(context.Background())
		c.mu.Lock()
		c.summaries[runID] = summary
		c.mu.Unlock()
		return err
	})
	if err != nil {
		c.Log.Errorw("failed to subscribe run executor", "err", err)
	}
}

// TriggerEngage accepts an operator-triggered batch run.
func (c *RunController) TriggerEngage(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()
	if err := c.Queue.Publish(runsTopic, runID); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "accepted", "run_id": runID})
}

// GetSummary returns a finished run's summary, or pending.
func (c *RunController) GetSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	c.mu.Lock()
	summary, ok := c.summaries[runID]
	c.mu.Unlock()
	if !ok {
		writeJSON(w, map[string]string{"status": "pending", "run_id": runID})
		return
	}
	writeJSON(w, summary)
}

// CampaignStats reports touchpoint counts by outcome for a campaign.
func (c *RunController) CampaignStats(w http.ResponseWriter, r *http.Request) {
	campaignID := chiURLParamInt(r, "id")
	stats, err := c.Touchpoints.StatsByOutcome(campaignID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"campaign_id": campaignID, "stats": stats})
}
