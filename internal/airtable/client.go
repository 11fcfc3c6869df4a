package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/resilience"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// APIError is returned when Airtable responds with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable API error: status %d, body: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode returns the upstream status code.
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// Record is a single Airtable row with its field values.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Client is a lightweight Airtable client focused on list/update operations
// against a single base.
type Client struct {
	apiKey     string
	baseID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base. baseURL overrides the
// Airtable API host when non-empty, which the tests rely on.
func NewClient(apiKey, baseID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseID:     baseID,
		baseURL:    baseURL,
		httpClient: resilience.NewHTTPClient(20 * time.Second),
	}
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// ListRecords returns all records in the table, following pagination offsets.
// When modifiedSince is non-empty, only records modified at or after that
// timestamp are returned.
func (c *Client) ListRecords(ctx context.Context, table, modifiedSince string) ([]Record, error) {
	var records []Record
	offset := ""
	for {
		params := url.Values{}
		if modifiedSince != "" {
			params.Set("filterByFormula",
				fmt.Sprintf("DATETIME_COMPARE(LAST_MODIFIED_TIME(), '%s') >= 0", modifiedSince))
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
		if encoded := params.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}

		var page listResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// UpdateRecord patches the given fields on a record, leaving other fields
// untouched.
func (c *Client) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) error {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("failed to encode airtable update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table), recordID)
	return c.do(ctx, http.MethodPatch, endpoint, payload, nil)
}

// do issues one API call behind the airtable circuit breaker, rebuilding the
// request per attempt so retried calls get a fresh body.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	return resilience.ExecuteWithRetry(ctx, "airtable", func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return fmt.Errorf("failed to build airtable request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("airtable request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode airtable response: %w", err)
		}
		return nil
	})
}
