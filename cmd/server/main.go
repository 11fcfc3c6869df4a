package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/momentum-leads/momentum-codex/internal/airtable"
	"github.com/momentum-leads/momentum-codex/internal/cache"
	"github.com/momentum-leads/momentum-codex/internal/config"
	"github.com/momentum-leads/momentum-codex/internal/database"
	"github.com/momentum-leads/momentum-codex/internal/errors"
	"github.com/momentum-leads/momentum-codex/internal/hubspot"
	"github.com/momentum-leads/momentum-codex/internal/monitoring"
	"github.com/momentum-leads/momentum-codex/internal/outlook"
	"github.com/momentum-leads/momentum-codex/internal/payments"
	"github.com/momentum-leads/momentum-codex/internal/ratelimit"
	"github.com/momentum-leads/momentum-codex/internal/resilience"
	"github.com/momentum-leads/momentum-codex/internal/scoring"
	"github.com/momentum-leads/momentum-codex/internal/security"
	"github.com/momentum-leads/momentum-codex/internal/slack"
	"github.com/momentum-leads/momentum-codex/internal/workflow"
)

func main() {
	appLogger := monitoring.NewLogger()
	slog.SetDefault(appLogger.Logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	scorer, err := loadScorer(cfg.ScoringModelPath)
	if err != nil {
		slog.Error("Failed to load scoring model", "error", err, "path", cfg.ScoringModelPath)
		os.Exit(1)
	}

	hubspotClient := hubspot.NewClient(cfg.HubSpotAccessToken, cfg.HubSpotBaseURL)
	notifier := slack.NewNotifier(cfg.SlackWebhookURL)
	codex := workflow.NewCodex(hubspotClient, notifier, cfg.ProjectBoardWebhookURL)

	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
	}
	var stripeWebhook *payments.WebhookHandler
	if cfg.StripeEnabled() {
		stripeWebhook = payments.NewWebhookHandler(cfg.StripeWebhookSecret, hubspotClient)
	}

	var airtableSyncer *airtable.Syncer
	if cfg.AirtableEnabled() {
		airtableSyncer = airtable.NewSyncer(
			airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, ""),
			hubspotClient,
		)
	}

	var emailLogger *outlook.EmailLogger
	if cfg.OutlookEnabled() {
		emailLogger = outlook.NewEmailLogger(outlook.NewGraphClient(outlook.GraphConfig{
			TenantID:     cfg.GraphTenantID,
			ClientID:     cfg.GraphClientID,
			ClientSecret: cfg.GraphClientSecret,
			UserEmail:    cfg.GraphUserEmail,
		}), hubspotClient)
	}

	appMetrics := monitoring.NewMetrics()
	tokens := security.NewTokenService(cfg.JWTSecret)

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL, "", 0)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	reportCache := cache.NewCache(15 * time.Minute)

	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	securityConfig := security.DefaultConfig()
	r.Use(security.HeadersMiddleware(securityConfig))
	r.Use(security.TimeoutMiddleware(securityConfig.RequestTimeout))
	r.Use(security.ValidateContentType())
	r.Use(limiter.IPRateLimitMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     securityConfig.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(reportCache.Middleware("/reports/weekly", appMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"integrations": gin.H{
				"slack":    notifier.Enabled(),
				"stripe":   stripeWebhook != nil,
				"airtable": airtableSyncer != nil,
				"outlook":  emailLogger != nil,
			},
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		stats := appMetrics.GetStats()
		stats["db_pool"] = db.PoolStats()
		stats["rate_limiter"] = limiter.GetStats()
		stats["report_cache"] = reportCache.Stats()
		stats["circuit_breakers"] = resilience.BreakerStates()
		c.JSON(http.StatusOK, stats)
	})

	r.POST("/score", func(c *gin.Context) {
		var record scoring.Record
		if err := c.BindJSON(&record); err != nil {
			appErr := errors.NewValidationError("request body must be a JSON object")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		start := time.Now()
		results, err := scorer.BatchScore([]scoring.Record{record})
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result := results[0]
		appMetrics.AddLeadsScored(1)
		appLogger.ScoringLogger(result.LeadID, result.ProbabilityToClose, len(result.ContributingFactors), 1, time.Since(start))

		saveScoreAsync(repo, result)
		c.JSON(http.StatusOK, result)
	})

	r.POST("/score/batch", func(c *gin.Context) {
		var records []scoring.Record
		if err := c.BindJSON(&records); err != nil {
			appErr := errors.NewValidationError("request body must be a JSON array of records")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		start := time.Now()
		results, err := scorer.BatchScore(records)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.AddLeadsScored(len(results))
		appLogger.ScoringLogger("batch", 0, 0, len(results), time.Since(start))

		for _, result := range results {
			saveScoreAsync(repo, result)
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
	})

	r.POST("/leads", func(c *gin.Context) {
		var lead workflow.LeadPayload
		if err := c.BindJSON(&lead); err != nil {
			appErr := errors.NewValidationError("invalid lead payload: " + err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		deal, err := codex.ProcessLead(c.Request.Context(), lead)
		if err != nil {
			appErr := errors.NewExternalAPIError("HubSpot", err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.IncrementLeadsProcessed()
		go func() {
			if err := repo.RecordLead(database.NewProcessedLead(lead.Email, "", deal.ID, lead.Source)); err != nil {
				slog.Error("Failed to record processed lead", "error", err, "email", lead.Email)
			}
		}()

		c.JSON(http.StatusCreated, gin.H{"deal": deal})
	})

	r.GET("/reports/weekly", func(c *gin.Context) {
		summary, err := codex.WeeklyReport(c.Request.Context(), time.Now().UTC())
		if err != nil {
			appErr := errors.NewExternalAPIError("HubSpot", err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary, "markdown": summary.Markdown()})
	})

	r.POST("/webhooks/stripe", func(c *gin.Context) {
		if stripeWebhook == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment webhook not configured"})
			return
		}

		const maxBodyBytes = int64(65536)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		event, err := stripeWebhook.ParseEvent(body, c.GetHeader("Stripe-Signature"))
		if err != nil {
			appMetrics.RecordExternalAPICall("stripe", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to verify webhook"})
			return
		}

		noteID, err := stripeWebhook.HandleEvent(c.Request.Context(), event)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.RecordExternalAPICall("stripe", true)
		c.JSON(http.StatusOK, gin.H{"received": true, "note_id": noteID})
	})

	sync := r.Group("/sync", security.ServiceAuthMiddleware(tokens))

	sync.POST("/airtable", func(c *gin.Context) {
		if airtableSyncer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "airtable sync not configured"})
			return
		}

		dryRun := c.Query("dry_run") == "true"
		started := time.Now()

		processed, err := airtableSyncer.Sync(c.Request.Context(), airtable.SyncOptions{
			Table:         cfg.AirtableTable,
			ModifiedSince: c.Query("modified_since"),
			DryRun:        dryRun,
		})
		if err != nil {
			appErr := errors.NewExternalAPIError("Airtable", err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if err := repo.RecordSyncRun(database.NewSyncRun("airtable", len(processed), dryRun, started, time.Now())); err != nil {
			slog.Error("Failed to record sync run", "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"processed": len(processed), "record_ids": processed, "dry_run": dryRun})
	})

	sync.POST("/outlook", func(c *gin.Context) {
		if emailLogger == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "outlook sync not configured"})
			return
		}

		hours := config.GetEnvInt("OUTLOOK_LOOKBACK_HOURS", 24)
		started := time.Now()

		created, err := emailLogger.LogRecentMessages(c.Request.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
		if err != nil {
			appErr := errors.NewExternalAPIError("Microsoft Graph", err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if err := repo.RecordSyncRun(database.NewSyncRun("outlook", len(created), false, started, time.Now())); err != nil {
			slog.Error("Failed to record sync run", "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"engagements": len(created)})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// loadScorer builds the scorer from the configured model file, or the default
// weight table when no model is configured.
func loadScorer(modelPath string) (*scoring.Scorer, error) {
	if modelPath == "" {
		return scoring.DefaultScorer(), nil
	}

	payload, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, err
	}
	return scoring.ScorerFromJSON(payload)
}

// saveScoreAsync persists a score off the request path.
func saveScoreAsync(repo *database.Repository, result scoring.LeadScoreResult) {
	go func() {
		factors, err := json.Marshal(result.ContributingFactors)
		if err != nil {
			factors = []byte("{}")
		}
		record := database.NewScoreRecord(result.LeadID, result.ProbabilityToClose, string(factors), "weighted-logistic")
		if err := repo.SaveScore(record); err != nil {
			slog.Error("Failed to save score", "error", err, "lead_id", result.LeadID)
		}
	}()
}
