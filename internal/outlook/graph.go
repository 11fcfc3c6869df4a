package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/resilience"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	defaultLoginBaseURL = "https://login.microsoftonline.com"
)

// Recipient is one addressee of a message.
type Recipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// Message is an Outlook mail item as returned by the Graph API.
type Message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	BodyPreview      string      `json:"bodyPreview"`
	ReceivedDateTime time.Time   `json:"receivedDateTime"`
	ToRecipients     []Recipient `json:"toRecipients"`
	CcRecipients     []Recipient `json:"ccRecipients"`
	BccRecipients    []Recipient `json:"bccRecipients"`
}

// RecipientAddresses returns every to/cc/bcc address on the message.
func (m Message) RecipientAddresses() []string {
	var addresses []string
	for _, group := range [][]Recipient{m.ToRecipients, m.CcRecipients, m.BccRecipients} {
		for _, recipient := range group {
			if addr := recipient.EmailAddress.Address; addr != "" {
				addresses = append(addresses, addr)
			}
		}
	}
	return addresses
}

// GraphConfig holds the Azure app registration used for client-credential
// access to a mailbox.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	UserEmail    string
	GraphBaseURL string
	LoginBaseURL string
}

// GraphClient reads mail from Microsoft Graph using the client credentials
// grant. The access token is cached until shortly before it expires.
type GraphClient struct {
	config     GraphConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewGraphClient creates a Graph client for the configured mailbox.
func NewGraphClient(config GraphConfig) *GraphClient {
	if config.GraphBaseURL == "" {
		config.GraphBaseURL = defaultGraphBaseURL
	}
	if config.LoginBaseURL == "" {
		config.LoginBaseURL = defaultLoginBaseURL
	}
	return &GraphClient{
		config:     config,
		httpClient: resilience.NewHTTPClient(20 * time.Second),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (g *GraphClient) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	form := url.Values{
		"client_id":     {g.config.ClientID},
		"client_secret": {g.config.ClientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", g.config.LoginBaseURL, g.config.TenantID)

	var token tokenResponse
	err := resilience.ExecuteWithRetry(ctx, "graph", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("graph token request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("graph token error: status %d, body: %s", resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(&token)
	})
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("graph token response missing access_token")
	}

	g.token = token.AccessToken
	// refresh a minute early so in-flight requests never carry a stale token
	g.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return g.token, nil
}

type messagesResponse struct {
	Value []Message `json:"value"`
}

// ListMessages returns up to 50 messages received at or after the given time,
// newest first.
func (g *GraphClient) ListMessages(ctx context.Context, since time.Time) ([]Message, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"$filter":  {fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339))},
		"$orderby": {"receivedDateTime desc"},
		"$top":     {"50"},
	}
	endpoint := fmt.Sprintf("%s/users/%s/messages?%s",
		g.config.GraphBaseURL, url.PathEscape(g.config.UserEmail), params.Encode())

	var result messagesResponse
	err = resilience.ExecuteWithRetry(ctx, "graph", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to build messages request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("graph messages request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("graph messages error: status %d, body: %s", resp.StatusCode, string(body))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}
