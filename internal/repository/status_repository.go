package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

const statusColumns = `id, application_id, department_name, state, comment, acted_by, acted_at, created_at, updated_at`

// StatusRepository persists per-department clearance decisions.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// CreateBatch inserts one pending status row per department for a new
// application.
func (r *StatusRepository) CreateBatch(ctx context.Context, applicationID string, departments []string) error {
	if len(departments) == 0 {
		return fmt.Errorf("no departments to seed for application %s", applicationID)
	}
	now := time.Now().UTC()
	rows := make([]models.DepartmentStatus, 0, len(departments))
	for _, name := range departments {
		rows = append(rows, models.DepartmentStatus{
			ID:             uuid.NewString(),
			ApplicationID:  applicationID,
			DepartmentName: name,
			State:          models.DeptPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	const query = `INSERT INTO department_statuses
	(id, application_id, department_name, state, created_at, updated_at)
	VALUES (:id, :application_id, :department_name, :state, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("seed department statuses: %w", err)
	}
	return nil
}

// ListByApplication returns all status rows for an application ordered by
// department name.
func (r *StatusRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.DepartmentStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM department_statuses
	WHERE application_id = $1 ORDER BY department_name ASC`
	var statuses []models.DepartmentStatus
	if err := r.db.SelectContext(ctx, &statuses, query, applicationID); err != nil {
		return nil, fmt.Errorf("list department statuses: %w", err)
	}
	return statuses, nil
}

// ListByApplications returns status rows for a set of applications keyed by
// application id.
func (r *StatusRepository) ListByApplications(ctx context.Context, applicationIDs []string) (map[string][]models.DepartmentStatus, error) {
	if len(applicationIDs) == 0 {
		return map[string][]models.DepartmentStatus{}, nil
	}
	placeholders := make([]string, len(applicationIDs))
	args := make([]interface{}, len(applicationIDs))
	for i, id := range applicationIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT `+statusColumns+` FROM department_statuses
	WHERE application_id IN (%s) ORDER BY department_name ASC`, strings.Join(placeholders, ","))
	var statuses []models.DepartmentStatus
	if err := r.db.SelectContext(ctx, &statuses, query, args...); err != nil {
		return nil, fmt.Errorf("list department statuses batch: %w", err)
	}
	grouped := make(map[string][]models.DepartmentStatus, len(applicationIDs))
	for _, status := range statuses {
		grouped[status.ApplicationID] = append(grouped[status.ApplicationID], status)
	}
	return grouped, nil
}

// Get fetches one status row for an application/department pair.
func (r *StatusRepository) Get(ctx context.Context, applicationID, departmentName string) (*models.DepartmentStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM department_statuses
	WHERE application_id = $1 AND department_name = $2 LIMIT 1`
	var status models.DepartmentStatus
	if err := r.db.GetContext(ctx, &status, query, applicationID, departmentName); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get department status: %w", err)
	}
	return &status, nil
}

// ApplyDecision writes an approve/reject outcome onto a pending status row.
// The state guard makes the write first-wins: a row already decided yields
// sql.ErrNoRows and the caller maps that to a conflict.
func (r *StatusRepository) ApplyDecision(ctx context.Context, input models.DecisionInput) error {
	state := models.DeptRejected
	if input.Approve {
		state = models.DeptApproved
	}
	var comment *string
	if input.Comment != "" {
		comment = &input.Comment
	}
	now := time.Now().UTC()
	const query = `UPDATE department_statuses
	SET state = $3, comment = $4, acted_by = $5, acted_at = $6, updated_at = $6
	WHERE application_id = $1 AND department_name = $2 AND state = 'pending'`
	result, err := r.db.ExecContext(ctx, query,
		input.ApplicationID, input.DepartmentName, state, comment, input.ActorID, now)
	if err != nil {
		return fmt.Errorf("apply department decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResetRejected flips every rejected row for an application back to pending,
// clearing the decision columns. Approved rows are left untouched. Returns
// the department names that were reset.
func (r *StatusRepository) ResetRejected(ctx context.Context, applicationID string) ([]string, error) {
	const query = `UPDATE department_statuses
	SET state = 'pending', comment = NULL, acted_by = NULL, acted_at = NULL, updated_at = $2
	WHERE application_id = $1 AND state = 'rejected'
	RETURNING department_name`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, applicationID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("reset rejected statuses: %w", err)
	}
	return names, nil
}

// QueueCounts returns pending/approved/rejected totals for one department.
func (r *StatusRepository) QueueCounts(ctx context.Context, departmentName string) (pending, approved, rejected int, err error) {
	const query = `SELECT state, COUNT(*) AS total FROM department_statuses
	WHERE department_name = $1 GROUP BY state`
	rows := []struct {
		State models.DepartmentState `db:"state"`
		Total int                    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, departmentName); err != nil {
		return 0, 0, 0, fmt.Errorf("department queue counts: %w", err)
	}
	for _, row := range rows {
		switch row.State {
		case models.DeptPending:
			pending = row.Total
		case models.DeptApproved:
			approved = row.Total
		case models.DeptRejected:
			rejected = row.Total
		}
	}
	return pending, approved, rejected, nil
}
