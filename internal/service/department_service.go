package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type departmentRegistry interface {
	Create(ctx context.Context, dept *models.Department) error
	GetByName(ctx context.Context, name string) (*models.Department, error)
	ListActive(ctx context.Context) ([]models.Department, error)
	ListAll(ctx context.Context) ([]models.Department, error)
	Update(ctx context.Context, params repository.UpdateDepartmentParams) error
}

type queueCounter interface {
	QueueCounts(ctx context.Context, departmentName string) (pending, approved, rejected int, err error)
}

// DepartmentService manages the clearing department registry.
type DepartmentService struct {
	registry departmentRegistry
	queues   queueCounter
	logger   *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(registry departmentRegistry, queues queueCounter, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{registry: registry, queues: queues, logger: logger}
}

// Create registers a new department. Deactivating instead of deleting keeps
// historical status rows meaningful.
func (s *DepartmentService) Create(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if _, err := s.registry.GetByName(ctx, name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	dept := &models.Department{
		Name:        name,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       req.Email,
		Active:      true,
		SortOrder:   req.SortOrder,
	}
	if err := s.registry.Create(ctx, dept); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("department registered", zap.String("name", dept.Name))
	return dept, nil
}

// Update applies non-nil fields to an existing registry entry.
func (s *DepartmentService) Update(ctx context.Context, name string, req dto.UpdateDepartmentRequest) (*models.Department, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	err := s.registry.Update(ctx, repository.UpdateDepartmentParams{
		Name:        name,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Active:      req.Active,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.FromError(err)
	}
	dept, err := s.registry.GetByName(ctx, name)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return dept, nil
}

// List returns registry entries; activeOnly restricts to active departments.
func (s *DepartmentService) List(ctx context.Context, activeOnly bool) ([]models.Department, error) {
	var (
		depts []models.Department
		err   error
	)
	if activeOnly {
		depts, err = s.registry.ListActive(ctx)
	} else {
		depts, err = s.registry.ListAll(ctx)
	}
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return depts, nil
}

// QueueStats returns the workload summary for one department.
func (s *DepartmentService) QueueStats(ctx context.Context, name string) (*dto.DepartmentQueueStats, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, err := s.registry.GetByName(ctx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.FromError(err)
	}
	pending, approved, rejected, err := s.queues.QueueCounts(ctx, name)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return &dto.DepartmentQueueStats{
		DepartmentName: name,
		Pending:        pending,
		Approved:       approved,
		Rejected:       rejected,
	}, nil
}
