package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
	"github.com/jecrcuniv/nodues-api/pkg/response"
)

type clearanceService interface {
	Submit(ctx context.Context, req dto.SubmitApplicationRequest) (*dto.SubmitApplicationResponse, error)
	StatusOverview(ctx context.Context, registrationNo string) (*dto.StatusOverviewResponse, error)
	Reapply(ctx context.Context, req dto.ReapplyRequest) (*dto.ReapplyResponse, error)
}

// ClearanceHandler exposes the public student-facing endpoints.
type ClearanceHandler struct {
	service  clearanceService
	validate *validator.Validate
}

// NewClearanceHandler constructs the handler.
func NewClearanceHandler(service clearanceService, validate *validator.Validate) *ClearanceHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ClearanceHandler{service: service, validate: validate}
}

// Submit godoc
// @Summary Submit a no-dues application
// @Tags Clearance
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ClearanceHandler) Submit(c *gin.Context) {
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "application payload failed validation"))
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil)
}

// Status godoc
// @Summary Check clearance status by registration number
// @Tags Clearance
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Success 200 {object} response.Envelope
// @Router /applications/{registrationNo}/status [get]
func (h *ClearanceHandler) Status(c *gin.Context) {
	regNo := c.Param("registrationNo")
	if regNo == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "registration number is required"))
		return
	}
	resp, err := h.service.StatusOverview(c.Request.Context(), regNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Reapply godoc
// @Summary Resubmit a rejected application
// @Tags Clearance
// @Accept json
// @Produce json
// @Param payload body dto.ReapplyRequest true "Reapply payload"
// @Success 200 {object} response.Envelope
// @Router /applications/reapply [post]
func (h *ClearanceHandler) Reapply(c *gin.Context) {
	var req dto.ReapplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reapply payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "reapply payload failed validation"))
		return
	}
	resp, err := h.service.Reapply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
