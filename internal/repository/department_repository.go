package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

const departmentColumns = `id, name, display_name, email, active, sort_order, created_at, updated_at`

// DepartmentRepository persists the clearing department registry.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// Create registers a new department.
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	dept.CreatedAt = now
	dept.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, display_name, email, active, sort_order, created_at, updated_at)
	VALUES (:id, :name, :display_name, :email, :active, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// GetByName fetches a department by its registry name.
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get department by name: %w", err)
	}
	return &dept, nil
}

// ListActive returns active departments in sort order. New applications get
// one status row per entry returned here.
func (r *DepartmentRepository) ListActive(ctx context.Context) ([]models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE active = TRUE ORDER BY sort_order ASC, name ASC`
	var depts []models.Department
	if err := r.db.SelectContext(ctx, &depts, query); err != nil {
		return nil, fmt.Errorf("list active departments: %w", err)
	}
	return depts, nil
}

// ListAll returns every registry entry including inactive ones.
func (r *DepartmentRepository) ListAll(ctx context.Context) ([]models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY sort_order ASC, name ASC`
	var depts []models.Department
	if err := r.db.SelectContext(ctx, &depts, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}

// UpdateDepartmentParams groups the mutable registry columns.
type UpdateDepartmentParams struct {
	Name        string
	DisplayName *string
	Email       *string
	Active      *bool
	SortOrder   *int
}

// Update applies non-nil fields to the registry entry.
func (r *DepartmentRepository) Update(ctx context.Context, params UpdateDepartmentParams) error {
	setParts := []string{"updated_at = :updated_at"}
	values := map[string]interface{}{
		"name":       params.Name,
		"updated_at": time.Now().UTC(),
	}
	if params.DisplayName != nil {
		setParts = append(setParts, "display_name = :display_name")
		values["display_name"] = *params.DisplayName
	}
	if params.Email != nil {
		setParts = append(setParts, "email = :email")
		values["email"] = *params.Email
	}
	if params.Active != nil {
		setParts = append(setParts, "active = :active")
		values["active"] = *params.Active
	}
	if params.SortOrder != nil {
		setParts = append(setParts, "sort_order = :sort_order")
		values["sort_order"] = *params.SortOrder
	}

	query := "UPDATE departments SET "
	for i, part := range setParts {
		if i > 0 {
			query += ", "
		}
		query += part
	}
	query += " WHERE LOWER(name) = LOWER(:name)"

	result, err := r.db.NamedExecContext(ctx, query, values)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check department update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
