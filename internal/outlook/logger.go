package outlook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

// Mailbox lists recent messages from a mail account.
type Mailbox interface {
	ListMessages(ctx context.Context, since time.Time) ([]Message, error)
}

// EngagementStore resolves contacts and records email engagements.
type EngagementStore interface {
	FindContactByEmail(ctx context.Context, email string) (*hubspot.Object, error)
	CreateEmailEngagement(ctx context.Context, contactID, subject, body string, receivedAt time.Time) (string, error)
}

// EmailLogger copies recent outbound mail into the CRM as email engagements
// on the matching contacts.
type EmailLogger struct {
	mailbox Mailbox
	crm     EngagementStore
	logger  *slog.Logger
}

// NewEmailLogger creates a logger over the given mailbox and CRM.
func NewEmailLogger(mailbox Mailbox, crm EngagementStore) *EmailLogger {
	return &EmailLogger{
		mailbox: mailbox,
		crm:     crm,
		logger:  slog.Default().With("component", "outlook_logger"),
	}
}

// LogRecentMessages fetches messages received since the given time and logs
// one engagement per recipient that exists as a CRM contact. Recipients
// without a contact are skipped. It returns the created engagement ids.
func (l *EmailLogger) LogRecentMessages(ctx context.Context, since time.Time) ([]string, error) {
	messages, err := l.mailbox.ListMessages(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("mailbox listing failed: %w", err)
	}

	var created []string
	for _, message := range messages {
		subject := message.Subject
		if subject == "" {
			subject = "(no subject)"
		}

		for _, address := range message.RecipientAddresses() {
			contact, err := l.crm.FindContactByEmail(ctx, address)
			if err != nil {
				return created, fmt.Errorf("contact lookup failed for %s: %w", address, err)
			}
			if contact == nil {
				l.logger.Debug("No CRM contact for recipient", "address", address)
				continue
			}

			engagementID, err := l.crm.CreateEmailEngagement(ctx, contact.ID, subject, message.BodyPreview, message.ReceivedDateTime)
			if err != nil {
				return created, fmt.Errorf("engagement creation failed for %s: %w", address, err)
			}
			created = append(created, engagementID)
		}
	}

	l.logger.Info("Logged email engagements", "count", len(created))
	return created, nil
}
