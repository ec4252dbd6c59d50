package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
	"github.com/jecrcuniv/nodues-api/pkg/export"
)

type certificateApplicationStore interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ClaimCertificate(ctx context.Context, id string) error
	CommitCertificate(ctx context.Context, id string, meta repository.CertificateMetadata) error
	ReleaseCertificate(ctx context.Context, id string, reason string) error
	ListCompletedWithoutCertificate(ctx context.Context, limit int) ([]models.Application, error)
}

type certificateStatusStore interface {
	ListByApplication(ctx context.Context, applicationID string) ([]models.DepartmentStatus, error)
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

type certificateStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type certificateSigner interface {
	Generate(applicationID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (applicationID, relPath string, expiresAt time.Time, err error)
}

type certificateNotifier interface {
	CertificateReady(ctx context.Context, app *models.Application, downloadURL string) error
}

// CertificateService owns at-most-once certificate generation for completed
// applications.
type CertificateService struct {
	apps     certificateApplicationStore
	statuses certificateStatusStore
	renderer certificateRenderer
	storage  certificateStore
	signer   certificateSigner
	notifier certificateNotifier
	metrics  *MetricsService
	logger   *zap.Logger

	txPrefix      string
	backfillBatch int
}

// CertificateServiceConfig groups construction parameters.
type CertificateServiceConfig struct {
	TxPrefix      string
	BackfillBatch int
}

// NewCertificateService constructs the service.
func NewCertificateService(
	apps certificateApplicationStore,
	statuses certificateStatusStore,
	renderer certificateRenderer,
	storage certificateStore,
	signer certificateSigner,
	notifier certificateNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg CertificateServiceConfig,
) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TxPrefix == "" {
		cfg.TxPrefix = "JU"
	}
	if cfg.BackfillBatch <= 0 {
		cfg.BackfillBatch = 50
	}
	return &CertificateService{
		apps:          apps,
		statuses:      statuses,
		renderer:      renderer,
		storage:       storage,
		signer:        signer,
		notifier:      notifier,
		metrics:       metrics,
		logger:        logger,
		txPrefix:      cfg.TxPrefix,
		backfillBatch: cfg.BackfillBatch,
	}
}

// Generate produces the certificate for a completed application. The claim
// write guarantees only one caller renders; everyone else observes either the
// committed artifact or a conflict. A failed render releases the claim so a
// later attempt can retry.
func (s *CertificateService) Generate(ctx context.Context, applicationID string) (*dto.CertificateResponse, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.FromError(err)
	}

	if app.Status != models.ApplicationCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "certificate requires a completed application")
	}
	if app.FinalCertificateGenerated && app.CertificateURL != nil {
		return s.describe(app)
	}

	if err := s.apps.ClaimCertificate(ctx, applicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race or a claim is in flight. Re-read and report
			// what the winner produced, if anything yet.
			fresh, readErr := s.apps.GetByID(ctx, applicationID)
			if readErr == nil && fresh.CertificateURL != nil {
				return s.describe(fresh)
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "certificate generation already in progress")
		}
		return nil, appErrors.FromError(err)
	}

	resp, err := s.render(ctx, app)
	if err != nil {
		reason := err.Error()
		if releaseErr := s.apps.ReleaseCertificate(ctx, applicationID, reason); releaseErr != nil {
			s.logger.Error("failed to release certificate claim",
				zap.String("application_id", applicationID), zap.Error(releaseErr))
		}
		s.logger.Error("certificate generation failed",
			zap.String("application_id", applicationID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrGenerationFailure.Code,
			appErrors.ErrGenerationFailure.Status, appErrors.ErrGenerationFailure.Message)
	}
	return resp, nil
}

func (s *CertificateService) render(ctx context.Context, app *models.Application) (*dto.CertificateResponse, error) {
	return s.renderAs(ctx, app, "")
}

// renderAs renders and commits the artifact. An empty txID mints a fresh
// transaction id; a non-empty one keeps an already published identity.
func (s *CertificateService) renderAs(ctx context.Context, app *models.Application, txID string) (*dto.CertificateResponse, error) {
	statuses, err := s.statuses.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("no department statuses for application %s", app.ID)
	}

	hash, err := certificateHash(app, statuses)
	if err != nil {
		return nil, err
	}
	if txID == "" {
		txID, err = s.transactionID(hash)
		if err != nil {
			return nil, err
		}
	}
	generatedAt := time.Now().UTC()

	pdf, err := s.renderer.Render(export.CertificateData{
		StudentName:    app.StudentName,
		RegistrationNo: app.RegistrationNo,
		Course:         app.Course,
		Branch:         app.Branch,
		AdmissionYear:  app.AdmissionYear,
		PassingYear:    app.PassingYear,
		TransactionID:  txID,
		IssuedAt:       generatedAt,
	})
	if err != nil {
		return nil, err
	}

	relPath := fmt.Sprintf("%s/certificate.pdf", app.ID)
	if _, err := s.storage.Save(relPath, pdf); err != nil {
		return nil, err
	}

	if err := s.apps.CommitCertificate(ctx, app.ID, repository.CertificateMetadata{
		URL:         relPath,
		Hash:        hash,
		TxID:        txID,
		GeneratedAt: generatedAt,
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCertificateGenerated()
	}
	s.logger.Info("certificate generated",
		zap.String("application_id", app.ID),
		zap.String("registration_no", app.RegistrationNo),
		zap.String("tx_id", txID))

	downloadURL, _, err := s.signer.Generate(app.ID, relPath)
	if err != nil {
		s.logger.Warn("failed to sign certificate url", zap.String("application_id", app.ID), zap.Error(err))
		downloadURL = ""
	}

	if s.notifier != nil {
		app.CertificateURL = &relPath
		app.CertificateTxID = &txID
		if err := s.notifier.CertificateReady(ctx, app, downloadURL); err != nil {
			s.logger.Warn("failed to queue certificate notification",
				zap.String("application_id", app.ID), zap.Error(err))
		}
	}

	return &dto.CertificateResponse{
		ApplicationID:  app.ID,
		RegistrationNo: app.RegistrationNo,
		TransactionID:  txID,
		Hash:           hash,
		DownloadURL:    downloadURL,
		GeneratedAt:    generatedAt,
	}, nil
}

// Regenerate re-renders the artifact for an application whose certificate is
// missing or broken. Admin-only; resets the claim first so Generate can win
// it again. Concurrent regenerations of a committed certificate may both
// render; the last commit wins wholesale, so the stored metadata stays
// consistent with one artifact.
func (s *CertificateService) Regenerate(ctx context.Context, applicationID string) (*dto.CertificateResponse, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.FromError(err)
	}
	if app.Status != models.ApplicationCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "certificate requires a completed application")
	}

	if app.FinalCertificateGenerated && app.CertificateURL == nil {
		// A stale claim with no committed artifact. Release it so the
		// fresh generation below can claim again.
		if err := s.apps.ReleaseCertificate(ctx, applicationID, "regeneration requested"); err != nil {
			return nil, appErrors.FromError(err)
		}
		return s.Generate(ctx, applicationID)
	}
	if !app.FinalCertificateGenerated {
		return s.Generate(ctx, applicationID)
	}

	// Artifact exists: re-render in place keeping the committed identity so
	// the published transaction id keeps resolving.
	txID := ""
	if app.CertificateTxID != nil {
		txID = *app.CertificateTxID
	}
	resp, err := s.renderAs(ctx, app, txID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrGenerationFailure.Code,
			appErrors.ErrGenerationFailure.Status, appErrors.ErrGenerationFailure.Message)
	}
	return resp, nil
}

// Backfill generates certificates for completed applications that never got
// one, up to the configured batch size.
func (s *CertificateService) Backfill(ctx context.Context) (*dto.BackfillResponse, error) {
	apps, err := s.apps.ListCompletedWithoutCertificate(ctx, s.backfillBatch)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	resp := &dto.BackfillResponse{Scanned: len(apps)}
	for _, app := range apps {
		if _, err := s.Generate(ctx, app.ID); err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, dto.BackfillOutcome{ApplicationID: app.ID, Error: err.Error()})
			continue
		}
		resp.Generated++
		resp.Results = append(resp.Results, dto.BackfillOutcome{ApplicationID: app.ID, OK: true})
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the certificate file.
func (s *CertificateService) ResolveDownload(ctx context.Context, token string) (*os.File, string, error) {
	applicationID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if app.CertificateURL == nil || *app.CertificateURL != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate file missing")
	}
	filename := fmt.Sprintf("no-dues-%s.pdf", app.RegistrationNo)
	return file, filename, nil
}

// SignedDownloadURL issues a fresh signed token for an existing certificate.
func (s *CertificateService) SignedDownloadURL(app *models.Application) (string, error) {
	if app.CertificateURL == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "certificate not available")
	}
	token, _, err := s.signer.Generate(app.ID, *app.CertificateURL)
	if err != nil {
		return "", appErrors.FromError(err)
	}
	return token, nil
}

func (s *CertificateService) describe(app *models.Application) (*dto.CertificateResponse, error) {
	resp := &dto.CertificateResponse{
		ApplicationID:  app.ID,
		RegistrationNo: app.RegistrationNo,
	}
	if app.CertificateTxID != nil {
		resp.TransactionID = *app.CertificateTxID
	}
	if app.CertificateHash != nil {
		resp.Hash = *app.CertificateHash
	}
	if app.CertificateGeneratedAt != nil {
		resp.GeneratedAt = *app.CertificateGeneratedAt
	}
	if app.CertificateURL != nil {
		token, _, err := s.signer.Generate(app.ID, *app.CertificateURL)
		if err == nil {
			resp.DownloadURL = token
		}
	}
	return resp, nil
}

// transactionID builds the public certificate identifier, e.g.
// JU-2026-7GK2M-1a2b3c4d.
func (s *CertificateService) transactionID(hash string) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate tx id: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%d-%s-%s", s.txPrefix, time.Now().UTC().Year(), string(buf), short), nil
}

type hashDepartment struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	ActedAt string `json:"acted_at"`
}

type hashPayload struct {
	RegistrationNo string           `json:"registration_no"`
	StudentName    string           `json:"student_name"`
	Course         string           `json:"course"`
	Branch         string           `json:"branch"`
	Status         string           `json:"status"`
	Departments    []hashDepartment `json:"departments"`
}

// certificateHash computes the verification digest over the clearance state.
// The payload is deterministic: departments sorted by name, timestamps in
// RFC 3339 UTC, no generation-time fields. Verification recomputes the same
// digest from stored rows.
func certificateHash(app *models.Application, statuses []models.DepartmentStatus) (string, error) {
	payload := hashPayload{
		RegistrationNo: app.RegistrationNo,
		StudentName:    app.StudentName,
		Course:         app.Course,
		Branch:         app.Branch,
		Status:         string(models.ApplicationCompleted),
	}
	for _, status := range statuses {
		dept := hashDepartment{
			Name:  status.DepartmentName,
			State: string(status.State),
		}
		if status.ActedAt != nil {
			dept.ActedAt = status.ActedAt.UTC().Format(time.RFC3339)
		}
		payload.Departments = append(payload.Departments, dept)
	}
	sort.Slice(payload.Departments, func(i, j int) bool {
		return payload.Departments[i].Name < payload.Departments[j].Name
	})

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal certificate payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
