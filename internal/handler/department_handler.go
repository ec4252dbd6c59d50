package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
	"github.com/jecrcuniv/nodues-api/pkg/response"
)

type departmentService interface {
	Create(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error)
	Update(ctx context.Context, name string, req dto.UpdateDepartmentRequest) (*models.Department, error)
	List(ctx context.Context, activeOnly bool) ([]models.Department, error)
	QueueStats(ctx context.Context, name string) (*dto.DepartmentQueueStats, error)
}

// DepartmentHandler exposes the department registry endpoints.
type DepartmentHandler struct {
	service  departmentService
	validate *validator.Validate
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(service departmentService, validate *validator.Validate) *DepartmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &DepartmentHandler{service: service, validate: validate}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Param all query bool false "Include inactive departments"
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	depts, err := h.service.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depts, nil)
}

// Create godoc
// @Summary Register a department (admin)
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body dto.CreateDepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Router /admin/departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid department payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "department payload failed validation"))
		return
	}
	dept, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dept)
}

// Update godoc
// @Summary Update a department (admin)
// @Tags Departments
// @Accept json
// @Produce json
// @Param name path string true "Department name"
// @Param payload body dto.UpdateDepartmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /admin/departments/{name} [patch]
func (h *DepartmentHandler) Update(c *gin.Context) {
	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid department payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "department payload failed validation"))
		return
	}
	dept, err := h.service.Update(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dept, nil)
}

// QueueStats godoc
// @Summary Workload summary for a department
// @Tags Departments
// @Produce json
// @Param name path string true "Department name"
// @Success 200 {object} response.Envelope
// @Router /staff/departments/{name}/stats [get]
func (h *DepartmentHandler) QueueStats(c *gin.Context) {
	stats, err := h.service.QueueStats(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
