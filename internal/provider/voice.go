// internal/provider/voice.go
package provider

import (
	"context"
	"net/http"
	"time"
)

// Answering-machine-detection results.
const (
	AMDHuman   = "human"
	AMDMachine = "machine"
	AMDNone    = ""
)

// DialResult is what the telephony provider reports once the dial settles.
type DialResult struct {
	CallID string `json:"call_id"`
	Status string `json:"status"` // answered, no_answer, busy, failed
	AMD    string `json:"amd_result"`
}

// ConversationResult is the voice-AI provider's analysis of a live call.
type ConversationResult struct {
	Outcome         string     `json:"outcome"` // connected, not_interested, callback, booked
	TranscriptRef   string     `json:"transcript_ref"`
	DurationSeconds int        `json:"duration_seconds"`
	Booked          bool       `json:"booked"`
	CallbackAt      *time.Time `json:"callback_at,omitempty"`
}

// CallCompletedPayload is the inbound webhook body posted by the voice
// provider when a call finishes out-of-band.
type CallCompletedPayload struct {
	CallID          string     `json:"call_id"`
	ProspectID      int        `json:"prospect_id"`
	CampaignID      int        `json:"campaign_id"`
	Status          string     `json:"status"`
	Outcome         string     `json:"outcome"`
	DurationSeconds int        `json:"duration_seconds"`
	TranscriptRef   string     `json:"transcript_ref"`
	Booked          bool       `json:"booked"`
	CallbackAt      *time.Time `json:"callback_at,omitempty"`
	ProspectEmail   string     `json:"prospect_email,omitempty"`
	ProspectPhone   string     `json:"prospect_phone,omitempty"`
	BookingStart    *time.Time `json:"booking_start,omitempty"`
	BookingEnd      *time.Time `json:"booking_end,omitempty"`
}

// VoiceProvider is the telephony + conversational-AI collaborator.
type VoiceProvider interface {
	PlaceCall(ctx context.Context, number, personaID string) (*DialResult, error)
	RunConversation(ctx context.Context, callID string) (*ConversationResult, error)
	DeliverVoicemail(ctx context.Context, callID, script string) error
}

// VoiceClient talks to the voice provider over its REST API.
type VoiceClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *VoiceClient) PlaceCall(ctx context.Context, number, personaID string) (*DialResult, error) {
	req := map[string]string{"to": number, "persona_id": personaID}
	var out DialResult
	if err := httpJSON(ctx, c.HTTP, "voice", http.MethodPost, c.BaseURL+"/v1/calls", c.APIKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VoiceClient) RunConversation(ctx context.Context, callID string) (*ConversationResult, error) {
	var out ConversationResult
	url := c.BaseURL + "/v1/calls/" + callID + "/conversation"
	if err := httpJSON(ctx, c.HTTP, "voice", http.MethodPost, url, c.APIKey, map[string]string{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *VoiceClient) DeliverVoicemail(ctx context.Context, callID, script string) error {
	url := c.BaseURL + "/v1/calls/" + callID + "/voicemail"
	return httpJSON(ctx, c.HTTP, "voice", http.MethodPost, url, c.APIKey, map[string]string{"script": script}, nil)
}

var _ VoiceProvider = (*VoiceClient)(nil)
