package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

// ReapplicationRepository persists reapplication history rows.
type ReapplicationRepository struct {
	db *sqlx.DB
}

// NewReapplicationRepository constructs the repository.
func NewReapplicationRepository(db *sqlx.DB) *ReapplicationRepository {
	return &ReapplicationRepository{db: db}
}

// Create inserts a history row for one resubmission.
func (r *ReapplicationRepository) Create(ctx context.Context, entry *models.Reapplication) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reapplications
	(id, application_id, reapplication_number, student_message, edited_fields, rejected_departments, previous_status, created_at)
	VALUES (:id, :application_id, :reapplication_number, :student_message, :edited_fields, :rejected_departments, :previous_status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create reapplication entry: %w", err)
	}
	return nil
}

// ListByApplication returns the history for an application, newest first.
func (r *ReapplicationRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Reapplication, error) {
	const query = `SELECT id, application_id, reapplication_number, student_message, edited_fields,
	rejected_departments, previous_status, created_at
	FROM reapplications WHERE application_id = $1 ORDER BY reapplication_number DESC`
	var entries []models.Reapplication
	if err := r.db.SelectContext(ctx, &entries, query, applicationID); err != nil {
		return nil, fmt.Errorf("list reapplications: %w", err)
	}
	return entries, nil
}
