package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
	"github.com/momentum-leads/momentum-codex/internal/reporting"
	"github.com/momentum-leads/momentum-codex/internal/resilience"
	"github.com/momentum-leads/momentum-codex/internal/slack"
)

// Association type ids in the HubSpot defined catalog.
const (
	assocContactToCompany = 1
	assocContactToDeal    = 3
	assocCompanyToDeal    = 341
)

// CRM is the subset of the HubSpot client the workflows depend on.
type CRM interface {
	FindContactByEmail(ctx context.Context, email string) (*hubspot.Object, error)
	CreateContact(ctx context.Context, properties map[string]string) (*hubspot.Object, error)
	UpdateContact(ctx context.Context, contactID string, properties map[string]string) (*hubspot.Object, error)
	CreateCompany(ctx context.Context, properties map[string]string) (*hubspot.Object, error)
	CreateDeal(ctx context.Context, properties map[string]string, associations []hubspot.Association) (*hubspot.Object, error)
	Associate(ctx context.Context, fromObject, fromID, toObject, toID string, associationType int) error
	LogTimelineEvent(ctx context.Context, event hubspot.TimelineEvent) error
	FetchWeeklySummary(ctx context.Context, anchor time.Time) ([]hubspot.Object, error)
}

// Notifier is the subset of the Slack notifier the workflows depend on.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LeadPayload is a normalized inbound lead. Email is the only required field.
type LeadPayload struct {
	FirstName      string   `json:"firstname"`
	LastName       string   `json:"lastname"`
	Email          string   `json:"email" binding:"required"`
	Company        string   `json:"company"`
	Phone          string   `json:"phone"`
	DealName       string   `json:"dealname"`
	Amount         *float64 `json:"amount"`
	LifecycleStage string   `json:"lifecyclestage"`
	DealStage      string   `json:"dealstage"`
	Source         string   `json:"source"`
}

// applyDefaults fills the stage and source defaults used by lead capture.
func (p *LeadPayload) applyDefaults() {
	if p.LifecycleStage == "" {
		p.LifecycleStage = "lead"
	}
	if p.DealStage == "" {
		p.DealStage = "appointmentscheduled"
	}
	if p.Source == "" {
		p.Source = "unknown"
	}
}

// UnmarshalJSON accepts amounts as either JSON numbers or numeric strings,
// since webform payloads are inconsistent about this.
func (p *LeadPayload) UnmarshalJSON(data []byte) error {
	type alias LeadPayload
	aux := struct {
		Amount any `json:"amount"`
		*alias
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch amount := aux.Amount.(type) {
	case nil:
	case float64:
		p.Amount = &amount
	case string:
		if amount == "" {
			break
		}
		parsed, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		p.Amount = &parsed
	default:
		return fmt.Errorf("invalid amount type %T", aux.Amount)
	}
	return nil
}

// Codex encapsulates the CRM automation flows: lead capture, touchpoint
// logging and weekly reporting.
type Codex struct {
	crm              CRM
	notifier         Notifier
	projectBoardHook string
	httpClient       *http.Client
}

// NewCodex creates the workflow orchestrator. The project board hook is
// optional; an empty URL disables board sync.
func NewCodex(crm CRM, notifier Notifier, projectBoardHook string) *Codex {
	return &Codex{
		crm:              crm,
		notifier:         notifier,
		projectBoardHook: projectBoardHook,
		httpClient:       resilience.NewHTTPClient(10 * time.Second),
	}
}

// ProcessLead upserts the contact, creates the company and deal records, and
// fans out notifications. It returns the created deal.
func (cx *Codex) ProcessLead(ctx context.Context, lead LeadPayload) (*hubspot.Object, error) {
	lead.applyDefaults()

	contactProperties := map[string]string{
		"firstname":      lead.FirstName,
		"lastname":       lead.LastName,
		"email":          lead.Email,
		"phone":          lead.Phone,
		"company":        lead.Company,
		"lifecyclestage": lead.LifecycleStage,
	}

	contact, err := cx.crm.FindContactByEmail(ctx, lead.Email)
	if err != nil {
		return nil, fmt.Errorf("contact lookup failed: %w", err)
	}

	var contactID string
	if contact != nil {
		contactID = contact.ID
		if _, err := cx.crm.UpdateContact(ctx, contactID, contactProperties); err != nil {
			return nil, fmt.Errorf("contact update failed: %w", err)
		}
	} else {
		created, err := cx.crm.CreateContact(ctx, contactProperties)
		if err != nil {
			return nil, fmt.Errorf("contact creation failed: %w", err)
		}
		contactID = created.ID
	}

	var companyID string
	if lead.Company != "" {
		company, err := cx.crm.CreateCompany(ctx, map[string]string{"name": lead.Company})
		if err != nil {
			return nil, fmt.Errorf("company creation failed: %w", err)
		}
		companyID = company.ID

		if contactID != "" {
			if err := cx.crm.Associate(ctx, "contacts", contactID, "companies", companyID, assocContactToCompany); err != nil {
				return nil, fmt.Errorf("contact association failed: %w", err)
			}
		}
	}

	dealName := lead.DealName
	if dealName == "" {
		dealName = fmt.Sprintf("%s %s - %s", lead.FirstName, lead.LastName, lead.Source)
	}
	dealProperties := map[string]string{
		"dealname":       dealName,
		"dealstage":      lead.DealStage,
		"lifecyclestage": lead.LifecycleStage,
		"pipeline":       "default",
		"source":         lead.Source,
	}
	if lead.Amount != nil {
		dealProperties["amount"] = strconv.FormatFloat(*lead.Amount, 'f', -1, 64)
	}

	var associations []hubspot.Association
	if contactID != "" {
		associations = append(associations, hubspot.Association{TypeID: assocContactToDeal, ToID: contactID})
	}
	if companyID != "" {
		associations = append(associations, hubspot.Association{TypeID: assocCompanyToDeal, ToID: companyID})
	}

	deal, err := cx.crm.CreateDeal(ctx, dealProperties, associations)
	if err != nil {
		return nil, fmt.Errorf("deal creation failed: %w", err)
	}

	// Notification and board sync are best-effort: the deal exists in the CRM
	// at this point, so their failures must not fail the capture.
	cx.notifyNewDeal(ctx, lead, deal)
	cx.logInternalNote(ctx, contactID, lead)

	return deal, nil
}

func (cx *Codex) notifyNewDeal(ctx context.Context, lead LeadPayload, deal *hubspot.Object) {
	dealName := deal.Properties["dealname"]
	if dealName == "" {
		dealName = lead.DealName
	}
	if dealName == "" {
		dealName = "Unnamed Deal"
	}

	amount := lead.Amount
	if raw := deal.Properties["amount"]; raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			amount = &parsed
		}
	}

	message := slack.FormatNewDealMessage(dealName, amount, lead.FirstName+" "+lead.LastName, lead.Source)
	if err := cx.notifier.Send(ctx, message); err != nil {
		slog.Warn("Slack notification failed", "deal", dealName, "error", err)
	}

	if cx.projectBoardHook != "" {
		cx.syncProjectBoard(ctx, dealName, lead)
	}
}

func (cx *Codex) syncProjectBoard(ctx context.Context, dealName string, lead LeadPayload) {
	payload, err := json.Marshal(map[string]string{
		"dealname": dealName,
		"contact":  lead.FirstName + " " + lead.LastName,
		"email":    lead.Email,
		"stage":    lead.DealStage,
		"source":   lead.Source,
	})
	if err != nil {
		slog.Warn("Project board payload encoding failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cx.projectBoardHook, bytes.NewReader(payload))
	if err != nil {
		slog.Warn("Project board request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cx.httpClient.Do(req)
	if err != nil {
		slog.Warn("Project board sync failed", "deal", dealName, "error", err)
		return
	}
	resp.Body.Close()
}

func (cx *Codex) logInternalNote(ctx context.Context, contactID string, lead LeadPayload) {
	if contactID == "" {
		return
	}

	note := fmt.Sprintf("Lead captured on %s via %s.", time.Now().UTC().Format("2006-01-02"), lead.Source)
	if err := cx.LogTouchpoint(ctx, contactID, "note", note, time.Now().UTC()); err != nil {
		slog.Warn("Touchpoint logging failed", "contact_id", contactID, "error", err)
	}
}

// LogTouchpoint records an activity note on the object's CRM timeline.
func (cx *Codex) LogTouchpoint(ctx context.Context, objectID, eventType, note string, occurredAt time.Time) error {
	return cx.crm.LogTimelineEvent(ctx, hubspot.TimelineEvent{
		ObjectID:        objectID,
		EventTemplateID: "momentum-touchpoint",
		EventType:       eventType,
		OccurredAt:      occurredAt,
		Tokens:          map[string]any{"note": note},
	})
}

// WeeklyReport fetches this week's deals and aggregates them.
func (cx *Codex) WeeklyReport(ctx context.Context, anchor time.Time) (reporting.WeeklyDealSummary, error) {
	deals, err := cx.crm.FetchWeeklySummary(ctx, anchor)
	if err != nil {
		return reporting.WeeklyDealSummary{}, fmt.Errorf("weekly deal fetch failed: %w", err)
	}
	return reporting.SummarizeDeals(deals, anchor), nil
}
