package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// AuditHandler exposes the admin audit trail listing.
type AuditHandler struct {
	audit auditLister
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit auditLister) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit log entries (admin)
// @Tags Audit
// @Produce json
// @Param action query string false "Action filter"
// @Param userId query string false "User filter"
// @Param entityId query string false "Entity filter"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		UserID:   c.Query("userId"),
		Action:   c.Query("action"),
		EntityID: c.Query("entityId"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		filter.PageSize = pageSize
	}

	entries, total, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, entries, pagination)
}
