package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Settings holds the runtime configuration for every integration. It is
// loaded once at startup and treated as read-only afterwards.
type Settings struct {
	// HubSpot is the only required integration.
	HubSpotAccessToken string
	HubSpotBaseURL     string

	// Optional integrations. Empty values disable the corresponding feature.
	SlackWebhookURL        string
	ProjectBoardWebhookURL string
	StripeSecretKey        string
	StripeWebhookSecret    string

	AirtableAPIKey string
	AirtableBaseID string
	AirtableTable  string

	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphUserEmail    string

	RedisURL  string
	JWTSecret string
	DataDir   string
	Port      string

	ScoringModelPath string
}

// Load reads settings from the environment, honoring a local .env file when
// present. The HubSpot access token is required; everything else degrades to
// disabled features.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	accessToken := os.Getenv("HUBSPOT_ACCESS_TOKEN")
	if accessToken == "" {
		return nil, fmt.Errorf("HUBSPOT_ACCESS_TOKEN must be set in the environment")
	}

	return &Settings{
		HubSpotAccessToken: accessToken,
		HubSpotBaseURL:     getEnvOrDefault("HUBSPOT_BASE_URL", "https://api.hubapi.com"),

		SlackWebhookURL:        os.Getenv("SLACK_WEBHOOK_URL"),
		ProjectBoardWebhookURL: os.Getenv("PROJECT_BOARD_WEBHOOK_URL"),
		StripeSecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),

		AirtableAPIKey: os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID: os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:  getEnvOrDefault("AIRTABLE_TABLE", "Contacts"),

		GraphTenantID:     os.Getenv("GRAPH_TENANT_ID"),
		GraphClientID:     os.Getenv("GRAPH_CLIENT_ID"),
		GraphClientSecret: os.Getenv("GRAPH_CLIENT_SECRET"),
		GraphUserEmail:    os.Getenv("GRAPH_USER_EMAIL"),

		RedisURL:  os.Getenv("REDIS_URL"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", "change-me-in-production"),
		DataDir:   getEnvOrDefault("DATA_DIR", "./data"),
		Port:      getEnvOrDefault("PORT", "8080"),

		ScoringModelPath: os.Getenv("SCORING_MODEL_PATH"),
	}, nil
}

// AirtableEnabled reports whether the Airtable sync can run.
func (s *Settings) AirtableEnabled() bool {
	return s.AirtableAPIKey != "" && s.AirtableBaseID != ""
}

// OutlookEnabled reports whether the Graph email logger can run.
func (s *Settings) OutlookEnabled() bool {
	return s.GraphTenantID != "" && s.GraphClientID != "" && s.GraphClientSecret != "" && s.GraphUserEmail != ""
}

// StripeEnabled reports whether the payment webhook can be served.
func (s *Settings) StripeEnabled() bool {
	return s.StripeWebhookSecret != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt reads an integer environment variable with a fallback.
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer environment variable", "key", key, "value", raw)
		return defaultValue
	}
	return parsed
}
