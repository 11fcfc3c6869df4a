package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret")

	token, err := tokens.GenerateServiceToken("airtable-sync")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	service, err := tokens.ValidateServiceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "airtable-sync", service)
}

func TestServiceTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").GenerateServiceToken("ops")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateServiceToken(token)
	assert.Error(t, err)
}

func TestServiceTokenGarbage(t *testing.T) {
	_, err := NewTokenService("secret").ValidateServiceToken("not.a.token")
	assert.Error(t, err)
}

func TestHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HeadersMiddleware(Config{EnableHSTS: true}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestValidateContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ValidateContentType())
	router.POST("/score", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/webhooks/stripe", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		expected    int
	}{
		{"json accepted", http.MethodPost, "/score", "application/json", http.StatusOK},
		{"json with charset accepted", http.MethodPost, "/score", "application/json; charset=utf-8", http.StatusOK},
		{"missing content type accepted", http.MethodPost, "/score", "", http.StatusOK},
		{"xml rejected", http.MethodPost, "/score", "application/xml", http.StatusUnsupportedMediaType},
		{"webhooks exempt", http.MethodPost, "/webhooks/stripe", "text/plain", http.StatusOK},
		{"get ignored", http.MethodGet, "/health", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestServiceAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := NewTokenService("test-secret")
	router := gin.New()
	router.Use(ServiceAuthMiddleware(tokens))
	router.POST("/sync/airtable", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": c.GetString("service")})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync/airtable", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.GenerateServiceToken("cron")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/airtable", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cron")
}

func TestTimeoutMiddlewarePropagatesDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TimeoutMiddleware(time.Second))
	router.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
