package reporting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

// WeeklyDealSummary is an aggregated view of deal activity for a time window.
type WeeklyDealSummary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	TotalDeals  int            `json:"total_deals"`
	ByStage     map[string]int `json:"by_stage"`
	TotalAmount float64        `json:"total_amount"`
}

// SummarizeDeals aggregates deal counts and amounts by pipeline stage.
// Unparseable amounts are skipped rather than failing the report.
func SummarizeDeals(deals []hubspot.Object, generatedAt time.Time) WeeklyDealSummary {
	summary := WeeklyDealSummary{
		GeneratedAt: generatedAt,
		ByStage:     make(map[string]int),
	}

	for _, deal := range deals {
		summary.TotalDeals++

		stage := deal.Properties["dealstage"]
		if stage == "" {
			stage = "unknown"
		}
		summary.ByStage[stage]++

		if raw := deal.Properties["amount"]; raw != "" {
			if amount, err := strconv.ParseFloat(raw, 64); err == nil {
				summary.TotalAmount += amount
			}
		}
	}

	return summary
}

// Markdown renders the summary as the Slack/email friendly report format.
func (s WeeklyDealSummary) Markdown() string {
	stages := make([]string, 0, len(s.ByStage))
	for stage := range s.ByStage {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	var rows strings.Builder
	for _, stage := range stages {
		fmt.Fprintf(&rows, "- **%s**: %d\n", stage, s.ByStage[stage])
	}
	breakdown := strings.TrimRight(rows.String(), "\n")
	if breakdown == "" {
		breakdown = "- None"
	}

	return fmt.Sprintf(
		"Weekly Deal Summary (generated %s)\nTotal Deals: %d\nTotal Amount: $%s\nBreakdown:\n%s",
		s.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"),
		s.TotalDeals,
		formatAmount(s.TotalAmount),
		breakdown,
	)
}

// formatAmount renders a currency value with thousands separators.
func formatAmount(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%02d", sign, grouped.String(), cents)
}
