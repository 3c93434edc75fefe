// internal/controller/router.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the webhook and run endpoints.
func NewRouter(webhooks *WebhookController, runs *RunController) chi.Router {
	r := chi.NewRouter()

	r.Post("/webhooks/call-completed", webhooks.CallCompleted)
	r.Post("/webhooks/email-events", webhooks.EmailEvents)
	r.Post("/webhooks/inbound-event", webhooks.InboundEvent)

	r.Post("/runs/engage", runs.TriggerEngage)
	r.Get("/runs/{id}", runs.GetSummary)
	r.Get("/campaigns/{id}/stats", runs.CampaignStats)

	return r
}

func chiURLParamInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(chi.URLParam(r, key))
	return n
}
