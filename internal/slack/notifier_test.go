package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var received message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL)
	require.True(t, notifier.Enabled())

	err := notifier.Send(context.Background(), "New deal booked: Acme ($500.00) by Jane Doe via webform.")
	require.NoError(t, err)
	assert.Equal(t, "New deal booked: Acme ($500.00) by Jane Doe via webform.", received.Text)
}

func TestSendDisabledIsNoop(t *testing.T) {
	notifier := NewNotifier("")

	assert.False(t, notifier.Enabled())
	assert.NoError(t, notifier.Send(context.Background(), "dropped"))
}

func TestSendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewNotifier(server.URL).Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestFormatNewDealMessage(t *testing.T) {
	amount := 1250.5
	assert.Equal(t,
		"New deal booked: Acme expansion ($1250.50) by Jane Doe via webform.",
		FormatNewDealMessage("Acme expansion", &amount, "Jane Doe", "webform"))

	assert.Equal(t,
		"New deal booked: Acme expansion (N/A) by Jane Doe via referral.",
		FormatNewDealMessage("Acme expansion", nil, "Jane Doe", "referral"))
}

func TestFormatStageChangeMessage(t *testing.T) {
	assert.Equal(t, "Deal 'Acme expansion' moved to stage contractsent.",
		FormatStageChangeMessage("Acme expansion", "contractsent"))
}
