package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type verificationApplicationStore interface {
	GetByCertificateTxID(ctx context.Context, txID string) (*models.Application, error)
	GetByCertificateHash(ctx context.Context, hash string) (*models.Application, error)
}

// VerificationService checks certificate authenticity by recomputing the
// digest from stored clearance state.
type VerificationService struct {
	apps     verificationApplicationStore
	statuses certificateStatusStore
	logger   *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(apps verificationApplicationStore, statuses certificateStatusStore, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{apps: apps, statuses: statuses, logger: logger}
}

// Verify looks up a certificate by transaction id or hash and recomputes the
// digest. A mismatch means the stored state diverged from what was certified.
func (s *VerificationService) Verify(ctx context.Context, req dto.VerifyCertificateRequest) (*dto.VerifyCertificateResponse, error) {
	var (
		app *models.Application
		err error
	)
	switch {
	case strings.TrimSpace(req.TransactionID) != "":
		app, err = s.apps.GetByCertificateTxID(ctx, strings.TrimSpace(req.TransactionID))
	case strings.TrimSpace(req.Hash) != "":
		app, err = s.apps.GetByCertificateHash(ctx, strings.TrimSpace(req.Hash))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "transaction_id or hash is required")
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.VerifyCertificateResponse{Valid: false, Reason: "no certificate found"}, nil
		}
		return nil, appErrors.FromError(err)
	}

	if app.CertificateHash == nil || app.Status != models.ApplicationCompleted {
		return &dto.VerifyCertificateResponse{Valid: false, Reason: "certificate not issued"}, nil
	}

	statuses, err := s.statuses.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	recomputed, err := certificateHash(app, statuses)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if recomputed != *app.CertificateHash {
		s.logger.Warn("certificate hash mismatch",
			zap.String("application_id", app.ID),
			zap.String("stored", *app.CertificateHash),
			zap.String("recomputed", recomputed))
		return &dto.VerifyCertificateResponse{Valid: false, Reason: "clearance record does not match certificate"}, nil
	}

	resp := &dto.VerifyCertificateResponse{
		Valid:          true,
		RegistrationNo: app.RegistrationNo,
		StudentName:    app.StudentName,
		Course:         app.Course,
		Branch:         app.Branch,
		GeneratedAt:    app.CertificateGeneratedAt,
	}
	if app.CertificateTxID != nil {
		resp.TransactionID = *app.CertificateTxID
	}
	return resp, nil
}
