package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
	"github.com/jecrcuniv/nodues-api/pkg/response"
)

type staffClearanceService interface {
	ListApplications(ctx context.Context, filter models.ApplicationFilter) (*dto.ApplicationListResponse, error)
	PerformDepartmentAction(ctx context.Context, applicationID string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error)
	PerformDepartmentActionAs(ctx context.Context, applicationID, departmentName string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error)
	PerformBulkDepartmentAction(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims) (*dto.BulkActionResponse, error)
	ReapplyHistory(ctx context.Context, applicationID string) ([]dto.ReapplyHistoryEntry, error)
	RemindDepartment(ctx context.Context, departmentName string, actor *models.JWTClaims) (*dto.DepartmentReminderResponse, error)
}

// StaffHandler exposes the authenticated dashboard endpoints for department
// and admin accounts.
type StaffHandler struct {
	service  staffClearanceService
	validate *validator.Validate
}

// NewStaffHandler constructs the handler.
func NewStaffHandler(service staffClearanceService, validate *validator.Validate) *StaffHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &StaffHandler{service: service, validate: validate}
}

// List godoc
// @Summary List applications for the dashboard
// @Tags Staff
// @Produce json
// @Param status query string false "Aggregate status filter"
// @Param department query string false "Department filter"
// @Param deptState query string false "Department state filter"
// @Param search query string false "Registration number or name"
// @Success 200 {object} response.Envelope
// @Router /staff/applications [get]
func (h *StaffHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ApplicationFilter{
		Search:        strings.TrimSpace(c.Query("search")),
		AdmissionYear: strings.TrimSpace(c.Query("admissionYear")),
		PassingYear:   strings.TrimSpace(c.Query("passingYear")),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.Query("sortOrder"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ApplicationStatus(strings.ToLower(raw))
		filter.Status = &status
	}
	if raw := c.Query("deptState"); raw != "" {
		state := models.DepartmentState(strings.ToLower(raw))
		filter.DeptState = &state
	}
	filter.Department = strings.ToLower(strings.TrimSpace(c.Query("department")))

	// Department accounts only see their own queue.
	if claims.Role == models.RoleDepartment {
		if filter.Department == "" && len(claims.DepartmentNames) == 1 {
			filter.Department = claims.DepartmentNames[0]
		}
		allowed := false
		for _, name := range claims.DepartmentNames {
			if strings.EqualFold(name, filter.Department) {
				allowed = true
				break
			}
		}
		if !allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this department queue"))
			return
		}
		if filter.DeptState == nil {
			pending := models.DeptPending
			filter.DeptState = &pending
		}
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		filter.PageSize = pageSize
	}

	resp, err := h.service.ListApplications(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp.Items, &resp.Pagination)
}

// Action godoc
// @Summary Approve or reject an application for a department
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param department query string false "Department name (admin only)"
// @Param payload body dto.DepartmentActionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /staff/applications/{id}/action [post]
func (h *StaffHandler) Action(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DepartmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decision payload failed validation"))
		return
	}
	if strings.EqualFold(req.Action, "reject") && strings.TrimSpace(req.Comment) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a comment is required when rejecting"))
		return
	}

	applicationID := c.Param("id")
	department := c.Query("department")

	var (
		resp *dto.ActionResponse
		err  error
	)
	if department != "" {
		resp, err = h.service.PerformDepartmentActionAs(c.Request.Context(), applicationID, department, req, claims)
	} else {
		resp, err = h.service.PerformDepartmentAction(c.Request.Context(), applicationID, req, claims)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// BulkApprove godoc
// @Summary Approve a batch of applications for one department
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.BulkActionRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /staff/applications/bulk-approve [post]
func (h *StaffHandler) BulkApprove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "bulk payload failed validation"))
		return
	}

	resp, err := h.service.PerformBulkDepartmentAction(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Remind godoc
// @Summary Queue reminder notifications for a department queue
// @Tags Admin
// @Produce json
// @Param name path string true "Department name"
// @Success 200 {object} response.Envelope
// @Router /admin/departments/{name}/remind [post]
func (h *StaffHandler) Remind(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	resp, err := h.service.RemindDepartment(c.Request.Context(), c.Param("name"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// History godoc
// @Summary Reapplication history for an application
// @Tags Staff
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /staff/applications/{id}/reapplications [get]
func (h *StaffHandler) History(c *gin.Context) {
	entries, err := h.service.ReapplyHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
