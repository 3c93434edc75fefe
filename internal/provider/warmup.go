// internal/provider/warmup.go
package provider

import (
	"context"
	"net/http"
	"net/url"
)

// WarmupHealth reports the deliverability-health score for a sending
// identity. Scores run 0-100; the email adapter gates sends on a minimum.
type WarmupHealth interface {
	HealthScore(ctx context.Context, identity string) (int, error)
}

type WarmupClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func (c *WarmupClient) HealthScore(ctx context.Context, identity string) (int, error) {
	var out struct {
		Identity string `json:"identity"`
		Score    int    `json:"score"`
	}
	endpoint := c.BaseURL + "/v1/health?identity=" + url.QueryEscape(identity)
	if err := httpJSON(ctx, c.HTTP, "warmup", http.MethodGet, endpoint, c.APIKey, nil, &out); err != nil {
		return 0, err
	}
	return out.Score, nil
}

var _ WarmupHealth = (*WarmupClient)(nil)
