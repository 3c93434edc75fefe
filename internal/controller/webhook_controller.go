// internal/controller/webhook_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/model"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/repository"
	"github.com/prospectpipe/outreach-backend/internal/statemachine"
)

// WebhookController receives provider callbacks. Webhook senders retry on
// non-200, so every endpoint answers 200 with an error body instead of
// surfacing internal failures as status codes.
type WebhookController struct {
	Prospects   repository.ProspectRepositoryInterface
	Touchpoints repository.TouchpointRepositoryInterface
	Events      repository.EventRepositoryInterface
	Calls       repository.CallLogRepositoryInterface
	CRM         provider.CRM
	CalendarID  string
	Log         *zap.SugaredLogger
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (c *WebhookController) ok(w http.ResponseWriter) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// acceptError reports the failure in the body but still answers 200.
func (c *WebhookController) acceptError(w http.ResponseWriter, context string, err error) {
	c.Log.Warnw("webhook processing failed", "context", context, "err", err)
	writeJSON(w, map[string]string{"status": "error", "error": err.Error()})
}

// CallCompleted handles the voice provider's end-of-call callback.
func (c *WebhookController) CallCompleted(w http.ResponseWriter, r *http.Request) {
	var payload provider.CallCompletedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.acceptError(w, "decode call-completed", err)
		return
	}

	log := &model.CallLog{
		ProspectID:      payload.ProspectID,
		CampaignID:      payload.CampaignID,
		ProviderCallID:  payload.CallID,
		Status:          payload.Status,
		Outcome:         payload.Outcome,
		DurationSeconds: payload.DurationSeconds,
		TranscriptRef:   payload.TranscriptRef,
		Booked:          payload.Booked,
		CallbackAt:      payload.CallbackAt,
	}
	if err := c.Calls.Record(log); err != nil {
		c.acceptError(w, "record call log", err)
		return
	}

	prospect, err := c.Prospects.GetByID(payload.ProspectID)
	if err != nil || prospect == nil {
		c.ok(w)
		return
	}
	if next, applied := statemachine.NextChannelState(model.ChannelVoice, prospect.VoiceState, payload.Outcome); applied {
		if err := c.Prospects.UpdateChannelState(prospect.ID, model.ChannelVoice, next); err != nil {
			c.Log.Warnw("failed to update voice state", "prospect_id", prospect.ID, "err", err)
		}
	}

	if payload.Booked && c.CRM != nil {
		c.bookMeeting(r, prospect, &payload)
	}

	c.ok(w)
}

func (c *WebhookController) bookMeeting(r *http.Request, prospect *model.Prospect, payload *provider.CallCompletedPayload) {
	name := prospect.FirstName + " " + prospect.LastName
	contactID, err := c.CRM.FindOrCreateContact(r.Context(), prospect.Email, prospect.Phone, name)
	if err != nil {
		c.Log.Warnw("crm contact lookup failed", "prospect_id", prospect.ID, "err", err)
		return
	}
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(30 * time.Minute)
	if payload.BookingStart != nil {
		start = *payload.BookingStart
	}
	if payload.BookingEnd != nil {
		end = *payload.BookingEnd
	}
	if err := c.CRM.BookAppointment(r.Context(), contactID, c.CalendarID, start, end); err != nil {
		c.Log.Warnw("crm booking failed", "prospect_id", prospect.ID, "err", err)
		return
	}
	if next, applied := statemachine.Apply(prospect.PipelineState, model.StateBooked); applied {
		if err := c.Prospects.UpdatePipelineState(prospect.ID, next); err != nil {
			c.Log.Warnw("failed to update pipeline state", "prospect_id", prospect.ID, "err", err)
		}
	}
}

type emailEventPayload struct {
	TouchpointID int        `json:"touchpoint_id"`
	Type         string     `json:"type"` // delivered, opened, replied, bounced
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// EmailEvents handles delivery-status callbacks from the email provider.
// Opened/replied timestamps land on the touchpoint; the reply detector
// reacts on its next pass.
func (c *WebhookController) EmailEvents(w http.ResponseWriter, r *http.Request) {
	var payload emailEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.acceptError(w, "decode email-event", err)
		return
	}

	at := time.Now()
	if payload.Timestamp != nil {
		at = *payload.Timestamp
	}

	var err error
	switch payload.Type {
	case "opened":
		err = c.Touchpoints.SetOpened(payload.TouchpointID, at)
	case "replied":
		err = c.Touchpoints.SetReplied(payload.TouchpointID, at)
	case "delivered", "bounced":
		// Outcome already recorded at send time; bounces also arrive as a
		// channel-state change on the next status check.
	default:
		c.Log.Infow("unknown email event type", "type", payload.Type)
	}
	if err != nil {
		c.acceptError(w, "apply email event", err)
		return
	}
	c.ok(w)
}

type inboundEventPayload struct {
	ProspectID int        `json:"prospect_id"`
	CampaignID int        `json:"campaign_id"`
	Channel    string     `json:"channel"`
	Kind       string     `json:"kind"` // reply or accept
	SourceRef  string     `json:"source_ref"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// InboundEvent records an out-of-band engagement signal (e.g. a social
// accept) for the detector to pick up on its next pass.
func (c *WebhookController) InboundEvent(w http.ResponseWriter, r *http.Request) {
	var payload inboundEventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		c.acceptError(w, "decode inbound-event", err)
		return
	}
	if payload.Kind != model.EventReply && payload.Kind != model.EventAccept {
		c.acceptError(w, "inbound-event kind", errUnknownKind(payload.Kind))
		return
	}

	occurred := time.Now()
	if payload.OccurredAt != nil {
		occurred = *payload.OccurredAt
	}
	event := &model.EngagementEvent{
		ID:         uuid.NewString(),
		ProspectID: payload.ProspectID,
		CampaignID: payload.CampaignID,
		Channel:    payload.Channel,
		Kind:       payload.Kind,
		SourceRef:  payload.SourceRef,
		Processed:  false,
		OccurredAt: occurred,
	}
	if err := c.Events.Insert(event); err != nil {
		c.acceptError(w, "insert event", err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "event_id": event.ID})
}

type unknownKindError string

func (e unknownKindError) Error() string { return "unknown event kind: " + string(e) }

func errUnknownKind(kind string) error { return unknownKindError(kind) }
