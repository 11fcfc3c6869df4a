package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveScore persists one scoring result.
func (r *Repository) SaveScore(record *ScoreRecord) error {
	_, err := r.db.Exec(`
		INSERT INTO score_history (id, lead_id, probability, factors, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.LeadID, record.Probability, record.Factors, record.Model, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	return nil
}

// RecentScores returns the newest scores for a lead, newest first.
func (r *Repository) RecentScores(leadID string, limit int) ([]ScoreRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, lead_id, probability, factors, model, created_at
		FROM score_history
		WHERE lead_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var records []ScoreRecord
	for rows.Next() {
		var record ScoreRecord
		if err := rows.Scan(&record.ID, &record.LeadID, &record.Probability,
			&record.Factors, &record.Model, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// RecordLead persists a processed lead.
func (r *Repository) RecordLead(lead *ProcessedLead) error {
	_, err := r.db.Exec(`
		INSERT INTO processed_leads (id, email, contact_id, deal_id, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, lead.ID, lead.Email, lead.ContactID, lead.DealID, lead.Source, lead.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record lead: %w", err)
	}
	return nil
}

// FindLeadByEmail returns the most recent processed lead for the email, or
// nil when none exists.
func (r *Repository) FindLeadByEmail(email string) (*ProcessedLead, error) {
	var lead ProcessedLead
	err := r.db.QueryRow(`
		SELECT id, email, contact_id, deal_id, source, created_at
		FROM processed_leads
		WHERE email = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, email).Scan(&lead.ID, &lead.Email, &lead.ContactID, &lead.DealID, &lead.Source, &lead.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lead: %w", err)
	}
	return &lead, nil
}

// RecordSyncRun persists a sync run result.
func (r *Repository) RecordSyncRun(run *SyncRun) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_runs (id, kind, processed, dry_run, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Processed, run.DryRun, run.StartedAt, run.FinishedAt)

	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// LatestSyncRun returns the most recent run of the given kind, or nil when
// the job has never run.
func (r *Repository) LatestSyncRun(kind string) (*SyncRun, error) {
	var run SyncRun
	err := r.db.QueryRow(`
		SELECT id, kind, processed, dry_run, started_at, finished_at
		FROM sync_runs
		WHERE kind = ?
		ORDER BY finished_at DESC
		LIMIT 1
	`, kind).Scan(&run.ID, &run.Kind, &run.Processed, &run.DryRun, &run.StartedAt, &run.FinishedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return &run, nil
}

// LeadCountSince counts leads processed at or after the cutoff.
func (r *Repository) LeadCountSince(cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM processed_leads WHERE created_at >= ?
	`, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}
