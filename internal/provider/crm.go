// internal/provider/crm.go
package provider

import (
	"context"
	"net/http"
	"time"
)

// CRM is the contact/calendar collaborator used when a call books a meeting.
type CRM interface {
	FindOrCreateContact(ctx context.Context, email, phone, name string) (string, error)
	BookAppointment(ctx context.Context, contactID, calendarID string, start, end time.Time) error
}

type CRMClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *CRMClient) FindOrCreateContact(ctx context.Context, email, phone, name string) (string, error) {
	req := map[string]string{"email": email, "phone": phone, "name": name}
	var out struct {
		ContactID string `json:"contact_id"`
	}
	if err := httpJSON(ctx, c.HTTP, "crm", http.MethodPost, c.BaseURL+"/v1/contacts/find-or-create", c.APIKey, req, &out); err != nil {
		return "", err
	}
	return out.ContactID, nil
}

func (c *CRMClient) BookAppointment(ctx context.Context, contactID, calendarID string, start, end time.Time) error {
	req := map[string]string{
		"contact_id":  contactID,
		"calendar_id": calendarID,
		"start":       start.UTC().Format(time.RFC3339),
		"end":         end.UTC().Format(time.RFC3339),
	}
	return httpJSON(ctx, c.HTTP, "crm", http.MethodPost, c.BaseURL+"/v1/appointments", c.APIKey, req, nil)
}

var _ CRM = (*CRMClient)(nil)
