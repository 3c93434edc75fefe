// internal/provider/client.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
)

// httpJSON performs one JSON request against a provider endpoint. Non-2xx
// responses become *apperrors.ProviderError carrying the status code and any
// Retry-After hint; retry policy belongs to the caller.
func httpJSON(ctx context.Context, client *http.Client, name, method, url, apiKey string, in, out any) error {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	res, err := client.Do(req)
	if err != nil {
		// Network failures are treated as transient.
		return &apperrors.ProviderError{Provider: name, StatusCode: 503, Message: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		retryAfter := 0
		if h := res.Header.Get("Retry-After"); h != "" {
			if secs, err := strconv.Atoi(h); err == nil {
				retryAfter = secs
			}
		}
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &apperrors.ProviderError{
			Provider:   name,
			StatusCode: res.StatusCode,
			RetryAfter: retryAfter,
			Message:    string(msg),
		}
	}

	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}
