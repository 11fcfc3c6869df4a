package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

// NoteStore is the subset of the HubSpot client payment logging needs.
type NoteStore interface {
	FindContactByEmail(ctx context.Context, email string) (*hubspot.Object, error)
	CreateNote(ctx context.Context, body string) (*hubspot.Object, error)
	AssociateNoteWithContact(ctx context.Context, noteID, contactID string) error
}

// WebhookHandler validates Stripe webhook payloads and records successful
// payments as notes on the paying contact's CRM timeline.
type WebhookHandler struct {
	signingSecret string
	crm           NoteStore
	logger        *slog.Logger
}

// NewWebhookHandler creates a handler for the given webhook signing secret.
func NewWebhookHandler(signingSecret string, crm NoteStore) *WebhookHandler {
	return &WebhookHandler{
		signingSecret: signingSecret,
		crm:           crm,
		logger:        slog.Default().With("component", "stripe_webhook"),
	}
}

// ParseEvent verifies the Stripe-Signature header against the payload and
// returns the decoded event.
func (h *WebhookHandler) ParseEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, h.signingSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook verification failed: %w", err)
	}
	return event, nil
}

// paymentObject is the slice of a checkout session or invoice the handler
// cares about.
type paymentObject struct {
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	CustomerEmail string            `json:"customer_email"`
	AmountTotal   int64             `json:"amount_total"`
	AmountPaid    int64             `json:"amount_paid"`
	Metadata      map[string]string `json:"metadata"`
}

func (p paymentObject) email() string {
	if p.CustomerDetails.Email != "" {
		return p.CustomerDetails.Email
	}
	return p.CustomerEmail
}

func (p paymentObject) amountCents() int64 {
	if p.AmountTotal != 0 {
		return p.AmountTotal
	}
	return p.AmountPaid
}

// HandleEvent processes a verified Stripe event. It returns the created note
// id, or an empty string when the event was ignored. Only completed checkouts
// and paid invoices are recorded; everything else is skipped without error.
func (h *WebhookHandler) HandleEvent(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case "checkout.session.completed", "invoice.payment_succeeded":
	default:
		h.logger.Info("Ignoring irrelevant event type", "type", event.Type)
		return "", nil
	}

	var object paymentObject
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return "", fmt.Errorf("failed to decode event object: %w", err)
	}

	email := object.email()
	if email == "" {
		h.logger.Info("Skipping event with no customer email", "type", event.Type)
		return "", nil
	}

	contact, err := h.crm.FindContactByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("contact lookup failed: %w", err)
	}
	if contact == nil {
		h.logger.Info("No CRM contact for customer", "email", email)
		return "", nil
	}

	note, err := h.crm.CreateNote(ctx, buildNoteBody(string(event.Type), object))
	if err != nil {
		return "", fmt.Errorf("note creation failed: %w", err)
	}
	if err := h.crm.AssociateNoteWithContact(ctx, note.ID, contact.ID); err != nil {
		return "", fmt.Errorf("note association failed: %w", err)
	}

	h.logger.Info("Logged payment note", "note_id", note.ID, "contact_id", contact.ID, "type", event.Type)
	return note.ID, nil
}

func buildNoteBody(eventType string, object paymentObject) string {
	amountText := "unknown amount"
	if cents := object.amountCents(); cents != 0 {
		amountText = fmt.Sprintf("$ %.2f", float64(cents)/100)
	}

	dealName := object.Metadata["dealname"]
	if dealName == "" {
		dealName = "Payment"
	}
	return fmt.Sprintf("Stripe event `%s` logged for %s totalling %s.", eventType, dealName, amountText)
}
