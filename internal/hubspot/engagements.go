package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type engagementPayload struct {
	Engagement   map[string]any `json:"engagement"`
	Associations map[string]any `json:"associations"`
	Metadata     map[string]any `json:"metadata"`
}

type engagementResponse struct {
	Engagement struct {
		ID json.Number `json:"id"`
	} `json:"engagement"`
}

// CreateEmailEngagement logs an email against a contact using the legacy
// engagements API, which is still the endpoint for email activity.
func (c *Client) CreateEmailEngagement(ctx context.Context, contactID, subject, body string, receivedAt time.Time) (string, error) {
	payload := engagementPayload{
		Engagement: map[string]any{
			"active":    true,
			"type":      "EMAIL",
			"timestamp": receivedAt.UnixMilli(),
		},
		Associations: map[string]any{"contactIds": []string{contactID}},
		Metadata:     map[string]any{"subject": subject, "text": body},
	}

	raw, err := c.request(ctx, http.MethodPost, "engagements/v1/engagements", payload,
		http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var result engagementResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode engagement response: %w", err)
	}
	return result.Engagement.ID.String(), nil
}
