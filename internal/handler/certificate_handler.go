package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
	"github.com/jecrcuniv/nodues-api/pkg/response"
)

type certificateService interface {
	Regenerate(ctx context.Context, applicationID string) (*dto.CertificateResponse, error)
	Backfill(ctx context.Context) (*dto.BackfillResponse, error)
	ResolveDownload(ctx context.Context, token string) (*os.File, string, error)
}

type verificationService interface {
	Verify(ctx context.Context, req dto.VerifyCertificateRequest) (*dto.VerifyCertificateResponse, error)
}

// CertificateHandler exposes certificate download, verification and admin
// maintenance endpoints.
type CertificateHandler struct {
	certificates certificateService
	verification verificationService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(certificates certificateService, verification verificationService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates, verification: verification}
}

// Download godoc
// @Summary Download a certificate via signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}
	file, filename, err := h.certificates.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read certificate file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}

// Verify godoc
// @Summary Verify a certificate by transaction id or hash
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.VerifyCertificateRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Router /certificates/verify [post]
func (h *CertificateHandler) Verify(c *gin.Context) {
	var req dto.VerifyCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid verification payload"))
		return
	}
	resp, err := h.verification.Verify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Regenerate godoc
// @Summary Regenerate a certificate (admin)
// @Tags Certificates
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /admin/applications/{id}/certificate/regenerate [post]
func (h *CertificateHandler) Regenerate(c *gin.Context) {
	resp, err := h.certificates.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Backfill godoc
// @Summary Generate missing certificates for completed applications (admin)
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/certificates/backfill [post]
func (h *CertificateHandler) Backfill(c *gin.Context) {
	resp, err := h.certificates.Backfill(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
