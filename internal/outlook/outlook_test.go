package outlook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

func newRecipient(address string) Recipient {
	var r Recipient
	r.EmailAddress.Address = address
	return r
}

func TestGraphClientTokenCaching(t *testing.T) {
	tokenCalls := 0
	messageCalls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tenant-1/oauth2/v2.0/token":
			tokenCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
			assert.Equal(t, "app-1", r.FormValue("client_id"))
			assert.Equal(t, "https://graph.microsoft.com/.default", r.FormValue("scope"))
			json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-abc", ExpiresIn: 3600})
		case r.URL.Path == "/users/sales@momentum.test/messages":
			messageCalls++
			assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
			assert.Equal(t, "50", r.URL.Query().Get("$top"))
			assert.Contains(t, r.URL.Query().Get("$filter"), "receivedDateTime ge ")
			json.NewEncoder(w).Encode(messagesResponse{Value: []Message{{ID: "msg-1", Subject: "Intro"}}})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewGraphClient(GraphConfig{
		TenantID:     "tenant-1",
		ClientID:     "app-1",
		ClientSecret: "secret",
		UserEmail:    "sales@momentum.test",
		GraphBaseURL: server.URL,
		LoginBaseURL: server.URL,
	})

	since := time.Now().Add(-24 * time.Hour)
	_, err := client.ListMessages(context.Background(), since)
	require.NoError(t, err)
	_, err = client.ListMessages(context.Background(), since)
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls, "token should be cached across calls")
	assert.Equal(t, 2, messageCalls)
}

func TestGraphClientTokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewGraphClient(GraphConfig{
		TenantID:     "tenant-1",
		UserEmail:    "sales@momentum.test",
		GraphBaseURL: server.URL,
		LoginBaseURL: server.URL,
	})

	_, err := client.ListMessages(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestRecipientAddresses(t *testing.T) {
	message := Message{
		ToRecipients:  []Recipient{newRecipient("a@x.test"), newRecipient("")},
		CcRecipients:  []Recipient{newRecipient("b@x.test")},
		BccRecipients: []Recipient{newRecipient("c@x.test")},
	}

	assert.Equal(t, []string{"a@x.test", "b@x.test", "c@x.test"}, message.RecipientAddresses())
}

type fakeMailbox struct {
	messages []Message
}

func (f *fakeMailbox) ListMessages(_ context.Context, _ time.Time) ([]Message, error) {
	return f.messages, nil
}

type fakeEngagementStore struct {
	contacts    map[string]string // email -> contact id
	engagements []string
}

func (f *fakeEngagementStore) FindContactByEmail(_ context.Context, email string) (*hubspot.Object, error) {
	if id, ok := f.contacts[email]; ok {
		return &hubspot.Object{ID: id}, nil
	}
	return nil, nil
}

func (f *fakeEngagementStore) CreateEmailEngagement(_ context.Context, contactID, subject, _ string, _ time.Time) (string, error) {
	id := contactID + ":" + subject
	f.engagements = append(f.engagements, id)
	return id, nil
}

func TestLogRecentMessages(t *testing.T) {
	received := time.Date(2024, 5, 16, 10, 0, 0, 0, time.UTC)
	mailbox := &fakeMailbox{messages: []Message{
		{
			ID:               "msg-1",
			Subject:          "Proposal",
			BodyPreview:      "Attached is the proposal",
			ReceivedDateTime: received,
			ToRecipients:     []Recipient{newRecipient("known@acme.test"), newRecipient("stranger@acme.test")},
		},
		{
			ID:               "msg-2",
			ReceivedDateTime: received,
			ToRecipients:     []Recipient{newRecipient("known@acme.test")},
		},
	}}
	store := &fakeEngagementStore{contacts: map[string]string{"known@acme.test": "contact-5"}}

	created, err := NewEmailLogger(mailbox, store).LogRecentMessages(context.Background(), received.Add(-time.Hour))
	require.NoError(t, err)

	// stranger@acme.test has no contact, msg-2 falls back to "(no subject)"
	assert.Equal(t, []string{"contact-5:Proposal", "contact-5:(no subject)"}, created)
	assert.Equal(t, created, store.engagements)
}
