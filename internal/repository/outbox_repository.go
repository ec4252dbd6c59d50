package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

const notificationColumns = `id, application_id, event, recipient, payload, status, attempts, last_error, sent_at, created_at, updated_at`

// OutboxRepository persists notification outbox rows.
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository constructs the repository.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create inserts a pending notification row.
func (r *OutboxRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	const query = `INSERT INTO notifications
	(id, application_id, event, recipient, payload, status, attempts, created_at, updated_at)
	VALUES (:id, :application_id, :event, :recipient, :payload, :status, :attempts, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetByID fetches a notification row.
func (r *OutboxRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 LIMIT 1`
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListPending returns undelivered rows oldest first. Used on startup to
// re-enqueue work that was in flight when the process stopped.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT `+notificationColumns+` FROM notifications
	WHERE status = 'pending' ORDER BY created_at ASC LIMIT %d`, limit)
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return rows, nil
}

// MarkSent records a successful delivery.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	const query = `UPDATE notifications
	SET status = 'sent', sent_at = $2, attempts = attempts + 1, last_error = NULL, updated_at = $2
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure. Terminal failures flip the status
// to failed; retryable ones stay pending with the error captured.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string, terminal bool) error {
	status := models.NotificationPending
	if terminal {
		status = models.NotificationFailed
	}
	const query = `UPDATE notifications
	SET status = $2, attempts = attempts + 1, last_error = $3, updated_at = $4
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
