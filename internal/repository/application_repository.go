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

const applicationColumns = `id, registration_no, student_name, parent_name, school, course, branch,
       admission_year, passing_year, contact_no, personal_email, college_email, status,
       reapplication_count, max_reapplications_override, final_certificate_generated,
       certificate_url, certificate_hash, certificate_tx_id, certificate_generated_at,
       certificate_error, created_at, updated_at`

// ApplicationRepository persists clearance applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new application row.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	const query = `INSERT INTO applications
	(id, registration_no, student_name, parent_name, school, course, branch, admission_year,
	 passing_year, contact_no, personal_email, college_email, status, reapplication_count,
	 max_reapplications_override, final_certificate_generated, created_at, updated_at)
	VALUES (:id, :registration_no, :student_name, :parent_name, :school, :course, :branch,
	 :admission_year, :passing_year, :contact_no, :personal_email, :college_email, :status,
	 :reapplication_count, :max_reapplications_override, :final_certificate_generated,
	 :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get application by id: %w", err)
	}
	return &app, nil
}

// GetByRegistrationNo fetches the latest application for a registration number.
func (r *ApplicationRepository) GetByRegistrationNo(ctx context.Context, regNo string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
	WHERE LOWER(registration_no) = LOWER($1) ORDER BY created_at DESC LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, regNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get application by registration no: %w", err)
	}
	return &app, nil
}

// GetByCertificateTxID fetches the application holding a certificate transaction id.
func (r *ApplicationRepository) GetByCertificateTxID(ctx context.Context, txID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE certificate_tx_id = $1 LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, txID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get application by tx id: %w", err)
	}
	return &app, nil
}

// GetByCertificateHash fetches the application holding a certificate hash.
func (r *ApplicationRepository) GetByCertificateHash(ctx context.Context, hash string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE certificate_hash = $1 LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get application by hash: %w", err)
	}
	return &app, nil
}

// List returns applications matching the filter with total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	baseQuery := `FROM applications a WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Department != "" && filter.DeptState != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM department_statuses ds WHERE ds.application_id = a.id AND ds.department_name = $%d AND ds.state = $%d)",
			len(args)+1, len(args)+2))
		args = append(args, filter.Department, *filter.DeptState)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(a.registration_no) LIKE $%d OR LOWER(a.student_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.AdmissionYear != "" {
		conditions = append(conditions, fmt.Sprintf("a.admission_year = $%d", len(args)+1))
		args = append(args, filter.AdmissionYear)
	}
	if filter.PassingYear != "" {
		conditions = append(conditions, fmt.Sprintf("a.passing_year = $%d", len(args)+1))
		args = append(args, filter.PassingYear)
	}
	if filter.HasCertificate != nil {
		conditions = append(conditions, fmt.Sprintf("a.final_certificate_generated = $%d", len(args)+1))
		args = append(args, *filter.HasCertificate)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at":      true,
		"updated_at":      true,
		"registration_no": true,
		"student_name":    true,
		"status":          true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY a.%s %s LIMIT %d OFFSET %d",
		prefixColumns("a", applicationColumns), baseQuery, sortBy, sortOrder, pageSize, offset)

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// UpdateAggregateStatus moves the application between aggregate states.
// The write is conditional on the current status so a concurrent transition
// cannot be silently overwritten; zero rows surfaces as sql.ErrNoRows.
func (r *ApplicationRepository) UpdateAggregateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check application status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClaimCertificate atomically marks the application as having its certificate
// generation in flight. Only one caller can win the claim; losers get
// sql.ErrNoRows.
func (r *ApplicationRepository) ClaimCertificate(ctx context.Context, id string) error {
	const query = `UPDATE applications
	SET final_certificate_generated = TRUE, certificate_error = NULL, updated_at = $2
	WHERE id = $1 AND status = 'completed' AND final_certificate_generated = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("claim certificate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check certificate claim rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CertificateMetadata groups the columns written on a successful generation.
type CertificateMetadata struct {
	URL         string
	Hash        string
	TxID        string
	GeneratedAt time.Time
}

// CommitCertificate stores the generated artifact metadata for a claimed row.
func (r *ApplicationRepository) CommitCertificate(ctx context.Context, id string, meta CertificateMetadata) error {
	const query = `UPDATE applications
	SET certificate_url = $2, certificate_hash = $3, certificate_tx_id = $4,
	    certificate_generated_at = $5, certificate_error = NULL, updated_at = $6
	WHERE id = $1 AND final_certificate_generated = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, meta.URL, meta.Hash, meta.TxID, meta.GeneratedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("commit certificate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check certificate commit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReleaseCertificate reverts a failed claim so a later attempt can retry,
// recording the failure reason.
func (r *ApplicationRepository) ReleaseCertificate(ctx context.Context, id string, reason string) error {
	const query = `UPDATE applications
	SET final_certificate_generated = FALSE, certificate_error = $2, updated_at = $3
	WHERE id = $1 AND final_certificate_generated = TRUE AND certificate_url IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("release certificate claim: %w", err)
	}
	return nil
}

// ListCompletedWithoutCertificate returns completed applications whose
// certificate was never generated, oldest first. Used by the backfill job.
func (r *ApplicationRepository) ListCompletedWithoutCertificate(ctx context.Context, limit int) ([]models.Application, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT `+applicationColumns+` FROM applications
	WHERE status = 'completed' AND final_certificate_generated = FALSE
	ORDER BY updated_at ASC LIMIT %d`, limit)
	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query); err != nil {
		return nil, fmt.Errorf("list completed without certificate: %w", err)
	}
	return apps, nil
}

// ReapplyParams groups the columns written when a rejected application is
// resubmitted.
type ReapplyParams struct {
	ID            string
	ContactNo     string
	PersonalEmail *string
	CollegeEmail  *string
	StudentName   string
	ParentName    string
	NewStatus     models.ApplicationStatus
	ReapplyCount  int
}

// ApplyReapplication updates the application for a resubmission. The write is
// guarded on the rejected status and the expected prior count so concurrent
// resubmissions cannot double-increment.
func (r *ApplicationRepository) ApplyReapplication(ctx context.Context, params ReapplyParams) error {
	const query = `UPDATE applications
	SET status = $2, reapplication_count = $3, contact_no = $4, personal_email = $5,
	    college_email = $6, student_name = $7, parent_name = $8, updated_at = $9
	WHERE id = $1 AND status = 'rejected' AND reapplication_count = $10`
	result, err := r.db.ExecContext(ctx, query,
		params.ID, params.NewStatus, params.ReapplyCount, params.ContactNo,
		params.PersonalEmail, params.CollegeEmail, params.StudentName, params.ParentName,
		time.Now().UTC(), params.ReapplyCount-1)
	if err != nil {
		return fmt.Errorf("apply reapplication: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reapplication rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus returns how many applications sit in each aggregate state.
func (r *ApplicationRepository) CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM applications GROUP BY status`
	rows := []struct {
		Status models.ApplicationStatus `db:"status"`
		Total  int                      `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	counts := make(map[models.ApplicationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
