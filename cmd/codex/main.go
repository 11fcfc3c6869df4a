package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentum-leads/momentum-codex/internal/airtable"
	"github.com/momentum-leads/momentum-codex/internal/config"
	"github.com/momentum-leads/momentum-codex/internal/hubspot"
	"github.com/momentum-leads/momentum-codex/internal/monitoring"
	"github.com/momentum-leads/momentum-codex/internal/outlook"
	"github.com/momentum-leads/momentum-codex/internal/scoring"
	"github.com/momentum-leads/momentum-codex/internal/slack"
	"github.com/momentum-leads/momentum-codex/internal/workflow"
)

func main() {
	slog.SetDefault(monitoring.NewLogger().Logger)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codex",
		Short:         "Momentum Codex CRM automation toolbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newWeeklyReportCmd())
	cmd.AddCommand(newSyncAirtableCmd())
	cmd.AddCommand(newSyncOutlookCmd())

	return cmd
}

// newScoreCmd scores lead records from a JSON file without touching any
// external service.
func newScoreCmd() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "score <records.json>",
		Short: "Score a batch of lead records from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read records: %w", err)
			}

			var records []scoring.Record
			if err := json.Unmarshal(payload, &records); err != nil {
				return fmt.Errorf("failed to parse records: %w", err)
			}

			scorer := scoring.DefaultScorer()
			if modelPath != "" {
				model, err := os.ReadFile(modelPath)
				if err != nil {
					return fmt.Errorf("failed to read model: %w", err)
				}
				if scorer, err = scoring.ScorerFromJSON(model); err != nil {
					return fmt.Errorf("failed to parse model: %w", err)
				}
			}

			results, err := scorer.BatchScore(records)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(results)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to a JSON weight table (defaults to the built-in model)")
	return cmd
}

// newIngestCmd pushes a single lead through the capture workflow.
func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <lead.json>",
		Short: "Process a lead payload: upsert contact, create deal, notify",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read lead payload: %w", err)
			}

			var lead workflow.LeadPayload
			if err := json.Unmarshal(payload, &lead); err != nil {
				return fmt.Errorf("failed to parse lead payload: %w", err)
			}

			codex, err := loadCodex()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			deal, err := codex.ProcessLead(ctx, lead)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deal %s created\n", deal.ID)
			return nil
		},
	}
	return cmd
}

// newWeeklyReportCmd prints this week's deal summary as Markdown.
func newWeeklyReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly-report",
		Short: "Print the weekly deal summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			codex, err := loadCodex()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			summary, err := codex.WeeklyReport(ctx, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), summary.Markdown())
			return nil
		},
	}
}

// newSyncAirtableCmd runs the Airtable to HubSpot contact sync once.
func newSyncAirtableCmd() *cobra.Command {
	var (
		dryRun        bool
		modifiedSince string
	)

	cmd := &cobra.Command{
		Use:   "sync-airtable",
		Short: "Sync Airtable contact rows into HubSpot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AirtableEnabled() {
				return fmt.Errorf("AIRTABLE_API_KEY and AIRTABLE_BASE_ID must be set")
			}

			syncer := airtable.NewSyncer(
				airtable.NewClient(cfg.AirtableAPIKey, cfg.AirtableBaseID, ""),
				hubspot.NewClient(cfg.HubSpotAccessToken, cfg.HubSpotBaseURL),
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			processed, err := syncer.Sync(ctx, airtable.SyncOptions{
				Table:         cfg.AirtableTable,
				ModifiedSince: modifiedSince,
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d records processed\n", len(processed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list records without writing to HubSpot")
	cmd.Flags().StringVar(&modifiedSince, "modified-since", "", "only sync records modified at or after this timestamp")
	return cmd
}

// newSyncOutlookCmd logs recent Outlook mail as CRM email engagements.
func newSyncOutlookCmd() *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "sync-outlook",
		Short: "Log recent Outlook mail to HubSpot contact timelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.OutlookEnabled() {
				return fmt.Errorf("GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET and GRAPH_USER_EMAIL must be set")
			}

			logger := outlook.NewEmailLogger(outlook.NewGraphClient(outlook.GraphConfig{
				TenantID:     cfg.GraphTenantID,
				ClientID:     cfg.GraphClientID,
				ClientSecret: cfg.GraphClientSecret,
				UserEmail:    cfg.GraphUserEmail,
			}), hubspot.NewClient(cfg.HubSpotAccessToken, cfg.HubSpotBaseURL))

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			created, err := logger.LogRecentMessages(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d engagements logged\n", len(created))
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "how far back to scan the mailbox")
	return cmd
}

func loadCodex() (*workflow.Codex, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	client := hubspot.NewClient(cfg.HubSpotAccessToken, cfg.HubSpotBaseURL)
	notifier := slack.NewNotifier(cfg.SlackWebhookURL)
	return workflow.NewCodex(client, notifier, cfg.ProjectBoardWebhookURL), nil
}
