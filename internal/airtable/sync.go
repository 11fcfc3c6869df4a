package airtable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momentum-leads/momentum-codex/internal/hubspot"
)

// ContactStore is the subset of the HubSpot client the sync needs.
type ContactStore interface {
	FindContactByEmail(ctx context.Context, email string) (*hubspot.Object, error)
	CreateContact(ctx context.Context, properties map[string]string) (*hubspot.Object, error)
	UpdateContact(ctx context.Context, contactID string, properties map[string]string) (*hubspot.Object, error)
}

// DefaultFieldMapping returns the conservative Airtable column to HubSpot
// property mapping used when none is configured.
func DefaultFieldMapping() map[string]string {
	return map[string]string{
		"Email":           "email",
		"First Name":      "firstname",
		"Last Name":       "lastname",
		"Phone":           "phone",
		"Company":         "company",
		"Lifecycle Stage": "lifecyclestage",
		"Lead Source":     "source",
	}
}

// SyncOptions controls a sync run.
type SyncOptions struct {
	Table         string
	FieldMapping  map[string]string
	ModifiedSince string
	DryRun        bool
}

// Syncer copies Airtable contact rows into HubSpot. Writes are
// non-destructive: existing contacts only have the mapped fields updated.
type Syncer struct {
	airtable *Client
	contacts ContactStore
	logger   *slog.Logger
}

// NewSyncer creates a syncer over the given Airtable base and contact store.
func NewSyncer(airtable *Client, contacts ContactStore) *Syncer {
	return &Syncer{
		airtable: airtable,
		contacts: contacts,
		logger:   slog.Default().With("component", "airtable_sync"),
	}
}

// Sync pulls records from Airtable and upserts them into HubSpot, returning
// the Airtable ids of the records it processed. Records without an email are
// skipped with a warning rather than failing the run.
func (s *Syncer) Sync(ctx context.Context, opts SyncOptions) ([]string, error) {
	mapping := opts.FieldMapping
	if mapping == nil {
		mapping = DefaultFieldMapping()
	}

	records, err := s.airtable.ListRecords(ctx, opts.Table, opts.ModifiedSince)
	if err != nil {
		return nil, fmt.Errorf("airtable listing failed: %w", err)
	}

	var processed []string
	for _, record := range records {
		properties, err := mapRecord(record, mapping)
		if err != nil {
			s.logger.Warn("Skipping Airtable record", "record_id", record.ID, "error", err)
			continue
		}

		s.logger.Info("Processing Airtable record", "record_id", record.ID, "email", properties["email"])
		if opts.DryRun {
			processed = append(processed, record.ID)
			continue
		}

		existing, err := s.contacts.FindContactByEmail(ctx, properties["email"])
		if err != nil {
			return processed, fmt.Errorf("contact lookup failed for record %s: %w", record.ID, err)
		}
		if existing != nil {
			if _, err := s.contacts.UpdateContact(ctx, existing.ID, properties); err != nil {
				return processed, fmt.Errorf("contact update failed for record %s: %w", record.ID, err)
			}
			s.logger.Debug("Updated HubSpot contact", "contact_id", existing.ID)
		} else {
			created, err := s.contacts.CreateContact(ctx, properties)
			if err != nil {
				return processed, fmt.Errorf("contact creation failed for record %s: %w", record.ID, err)
			}
			s.logger.Debug("Created HubSpot contact", "contact_id", created.ID)
		}
		processed = append(processed, record.ID)
	}

	s.logger.Info("Sync complete", "processed", len(processed))
	return processed, nil
}

// mapRecord converts an Airtable record into HubSpot contact properties using
// the configured column mapping. Empty values are dropped so the sync never
// blanks out existing CRM data.
func mapRecord(record Record, mapping map[string]string) (map[string]string, error) {
	properties := make(map[string]string)
	for column, property := range mapping {
		value, ok := record.Fields[column]
		if !ok || value == nil {
			continue
		}
		text := fmt.Sprint(value)
		if text == "" {
			continue
		}
		properties[property] = text
	}

	if properties["email"] == "" {
		return nil, fmt.Errorf("record missing required email field")
	}
	return properties, nil
}
