// internal/provider/email.go
package provider

import (
	"context"
	"net/http"
	"time"
)

// EmailSender sends one message from a chosen sending identity. Retry policy
// lives in the channel adapter, not here.
type EmailSender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// InboundMessage is one reply found in the monitored mailbox.
type InboundMessage struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
}

// Mailbox lists replies received by the sending identities.
type Mailbox interface {
	ListReplies(ctx context.Context, since time.Time) ([]InboundMessage, error)
}

// EmailClient implements both EmailSender and Mailbox against the email
// provider's REST API.
type EmailClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *EmailClient) Send(ctx context.Context, from, to, subject, body string) error {
	req := map[string]string{"from": from, "to": to, "subject": subject, "body": body}
	return httpJSON(ctx, c.HTTP, "email", http.MethodPost, c.BaseURL+"/v1/messages", c.APIKey, req, nil)
}

func (c *EmailClient) ListReplies(ctx context.Context, since time.Time) ([]InboundMessage, error) {
	var out struct {
		Messages []InboundMessage `json:"messages"`
	}
	url := c.BaseURL + "/v1/replies?since=" + since.UTC().Format(time.RFC3339)
	if err := httpJSON(ctx, c.HTTP, "email", http.MethodGet, url, c.APIKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

var (
	_ EmailSender = (*EmailClient)(nil)
	_ Mailbox     = (*EmailClient)(nil)
)
