package hubspot

import (
	"context"
	"net/http"
	"time"
)

// TimelineEvent is an activity to log against a CRM object's timeline.
type TimelineEvent struct {
	ObjectID        string
	EventTemplateID string
	EventType       string
	OccurredAt      time.Time
	Tokens          map[string]any
}

type timelineEventPayload struct {
	EventTemplateID string         `json:"eventTemplateId"`
	EventType       string         `json:"eventType"`
	ObjectID        string         `json:"objectId"`
	OccurredAt      string         `json:"occurredAt"`
	Tokens          map[string]any `json:"tokens"`
}

// LogTimelineEvent records the event against its object's timeline.
func (c *Client) LogTimelineEvent(ctx context.Context, event TimelineEvent) error {
	payload := timelineEventPayload{
		EventTemplateID: event.EventTemplateID,
		EventType:       event.EventType,
		ObjectID:        event.ObjectID,
		OccurredAt:      event.OccurredAt.Format(time.RFC3339),
		Tokens:          event.Tokens,
	}

	_, err := c.request(ctx, http.MethodPost, "crm/v3/timeline/events/"+event.ObjectID, payload,
		http.StatusOK, http.StatusCreated)
	return err
}
