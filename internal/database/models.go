package database

import (
	"time"

	"github.com/google/uuid"
)

// ScoreRecord is a persisted scoring result.
type ScoreRecord struct {
	ID          string    `json:"id" db:"id"`
	LeadID      string    `json:"lead_id" db:"lead_id"`
	Probability float64   `json:"probability" db:"probability"`
	Factors     string    `json:"factors,omitempty" db:"factors"` // JSON breakdown
	Model       string    `json:"model" db:"model"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ProcessedLead records a lead that went through the capture workflow.
type ProcessedLead struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	ContactID string    `json:"contact_id,omitempty" db:"contact_id"`
	DealID    string    `json:"deal_id,omitempty" db:"deal_id"`
	Source    string    `json:"source,omitempty" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SyncRun records one execution of an external sync job.
type SyncRun struct {
	ID         string    `json:"id" db:"id"`
	Kind       string    `json:"kind" db:"kind"`
	Processed  int       `json:"processed" db:"processed"`
	DryRun     bool      `json:"dry_run" db:"dry_run"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// NewScoreRecord creates a score record with a generated id.
func NewScoreRecord(leadID string, probability float64, factors, model string) *ScoreRecord {
	return &ScoreRecord{
		ID:          uuid.New().String(),
		LeadID:      leadID,
		Probability: probability,
		Factors:     factors,
		Model:       model,
		CreatedAt:   time.Now(),
	}
}

// NewProcessedLead creates a processed lead entry with a generated id.
func NewProcessedLead(email, contactID, dealID, source string) *ProcessedLead {
	return &ProcessedLead{
		ID:        uuid.New().String(),
		Email:     email,
		ContactID: contactID,
		DealID:    dealID,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// NewSyncRun creates a sync run entry with a generated id.
func NewSyncRun(kind string, processed int, dryRun bool, startedAt, finishedAt time.Time) *SyncRun {
	return &SyncRun{
		ID:         uuid.New().String(),
		Kind:       kind,
		Processed:  processed,
		DryRun:     dryRun,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}
