package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresHubSpotToken(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-test-token")
	t.Setenv("HUBSPOT_BASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("AIRTABLE_TABLE", "")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pat-test-token", settings.HubSpotAccessToken)
	assert.Equal(t, "https://api.hubapi.com", settings.HubSpotBaseURL)
	assert.Equal(t, "8080", settings.Port)
	assert.Equal(t, "./data", settings.DataDir)
	assert.Equal(t, "Contacts", settings.AirtableTable)
	assert.False(t, settings.AirtableEnabled())
	assert.False(t, settings.OutlookEnabled())
	assert.False(t, settings.StripeEnabled())
}

func TestIntegrationToggles(t *testing.T) {
	t.Setenv("HUBSPOT_ACCESS_TOKEN", "pat-test-token")
	t.Setenv("AIRTABLE_API_KEY", "key")
	t.Setenv("AIRTABLE_BASE_ID", "appBase")
	t.Setenv("GRAPH_TENANT_ID", "tenant")
	t.Setenv("GRAPH_CLIENT_ID", "client")
	t.Setenv("GRAPH_CLIENT_SECRET", "secret")
	t.Setenv("GRAPH_USER_EMAIL", "sales@momentumleads.test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	settings, err := Load()
	require.NoError(t, err)

	assert.True(t, settings.AirtableEnabled())
	assert.True(t, settings.OutlookEnabled())
	assert.True(t, settings.StripeEnabled())
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SOME_LIMIT", "42")
	assert.Equal(t, 42, GetEnvInt("SOME_LIMIT", 7))

	t.Setenv("SOME_LIMIT", "not-a-number")
	assert.Equal(t, 7, GetEnvInt("SOME_LIMIT", 7))

	t.Setenv("SOME_LIMIT", "")
	assert.Equal(t, 7, GetEnvInt("SOME_LIMIT", 7))
}
