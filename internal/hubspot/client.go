package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/resilience"
)

// Object is a generic CRM object (contact, company, deal) as returned by the
// HubSpot v3 API. Property values are strings on the wire.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// APIError is returned when HubSpot responds with an unexpected status.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot API error (%d) for %s %s", e.StatusCode, e.Method, e.URL)
}

// HTTPStatusCode returns the upstream status code.
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a lightweight HubSpot REST client covering the contact, company,
// deal and timeline operations the automation flows need.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewClient creates a HubSpot client for the given private app token.
func NewClient(accessToken, baseURL string) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  resilience.NewHTTPClient(20 * time.Second),
	}
}

func (c *Client) request(ctx context.Context, method, path string, payload any, expected ...int) (json.RawMessage, error) {
	if len(expected) == 0 {
		expected = []int{http.StatusOK, http.StatusCreated, http.StatusNoContent}
	}

	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	// The request is rebuilt per attempt so retried calls get a fresh body.
	var raw json.RawMessage
	err := resilience.ExecuteWithRetry(ctx, "hubspot", func() error {
		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("hubspot request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		for _, status := range expected {
			if resp.StatusCode == status {
				raw = data
				return nil
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Method: method, URL: url, Body: string(data)}
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
	HighValue    string `json:"highValue,omitempty"`
}

type searchResponse struct {
	Results []Object `json:"results"`
}

// FindContactByEmail returns the contact matching the email, or nil when no
// contact exists.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*Object, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "email",
			Operator:     "EQ",
			Value:        email,
		}}}},
		Properties: []string{"firstname", "lastname", "email", "phone", "company", "lifecyclestage"},
		Limit:      1,
	}

	raw, err := c.request(ctx, http.MethodPost, "crm/v3/objects/contacts/search", payload)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode contact search: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

// CreateContact creates a contact with the given properties.
func (c *Client) CreateContact(ctx context.Context, properties map[string]string) (*Object, error) {
	return c.createObject(ctx, "crm/v3/objects/contacts", properties, nil)
}

// UpdateContact patches an existing contact's properties.
func (c *Client) UpdateContact(ctx context.Context, contactID string, properties map[string]string) (*Object, error) {
	raw, err := c.request(ctx, http.MethodPatch, "crm/v3/objects/contacts/"+contactID,
		map[string]any{"properties": properties})
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// CreateCompany creates a company record.
func (c *Client) CreateCompany(ctx context.Context, properties map[string]string) (*Object, error) {
	return c.createObject(ctx, "crm/v3/objects/companies", properties, nil)
}

// Association attaches a created deal to an existing object by HubSpot
// association type id.
type Association struct {
	TypeID int
	ToID   string
}

// CreateDeal creates a deal, optionally associated with existing contacts and
// companies.
func (c *Client) CreateDeal(ctx context.Context, properties map[string]string, associations []Association) (*Object, error) {
	return c.createObject(ctx, "crm/v3/objects/deals", properties, associations)
}

// UpdateDealStage moves a deal to a new pipeline stage.
func (c *Client) UpdateDealStage(ctx context.Context, dealID, stage string) (*Object, error) {
	raw, err := c.request(ctx, http.MethodPatch, "crm/v3/objects/deals/"+dealID,
		map[string]any{"properties": map[string]string{"dealstage": stage}})
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

func (c *Client) createObject(ctx context.Context, path string, properties map[string]string, associations []Association) (*Object, error) {
	payload := map[string]any{"properties": properties}
	if len(associations) > 0 {
		assocs := make([]map[string]any, 0, len(associations))
		for _, assoc := range associations {
			assocs = append(assocs, map[string]any{
				"to": map[string]string{"id": assoc.ToID},
				"types": []map[string]any{{
					"associationCategory": "HUBSPOT_DEFINED",
					"associationTypeId":   assoc.TypeID,
				}},
			})
		}
		payload["associations"] = assocs
	}

	raw, err := c.request(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// Associate links two existing objects with the given association type.
func (c *Client) Associate(ctx context.Context, fromObject, fromID, toObject, toID string, associationType int) error {
	path := fmt.Sprintf("crm/v4/associations/%s/%s/batch/associate", fromObject, toObject)
	payload := map[string]any{
		"inputs": []map[string]any{{
			"from": map[string]string{"id": fromID},
			"to":   map[string]string{"id": toID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   associationType,
			}},
		}},
	}

	_, err := c.request(ctx, http.MethodPut, path, payload, http.StatusOK, http.StatusNoContent)
	return err
}

// FetchDealsInPeriod returns deals whose close date falls inside the window.
func (c *Client) FetchDealsInPeriod(ctx context.Context, start, end time.Time) ([]Object, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "closedate",
			Operator:     "BETWEEN",
			Value:        start.Format(time.RFC3339),
			HighValue:    end.Format(time.RFC3339),
		}}}},
		Properties: []string{"dealstage", "amount", "dealname"},
		Limit:      100,
	}

	raw, err := c.request(ctx, http.MethodPost, "crm/v3/objects/deals/search", payload)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode deal search: %w", err)
	}
	return result.Results, nil
}

// FetchWeeklySummary returns the deals closing in the calendar week containing
// the anchor time. Weeks start on Monday.
func (c *Client) FetchWeeklySummary(ctx context.Context, anchor time.Time) ([]Object, error) {
	daysSinceMonday := (int(anchor.Weekday()) + 6) % 7
	startOfWeek := anchor.AddDate(0, 0, -daysSinceMonday)
	endOfWeek := startOfWeek.AddDate(0, 0, 7)
	return c.FetchDealsInPeriod(ctx, startOfWeek, endOfWeek)
}

func decodeObject(raw json.RawMessage) (*Object, error) {
	var obj Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	return &obj, nil
}
