package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
)

type verifyAppStoreStub struct {
	byTx   map[string]*models.Application
	byHash map[string]*models.Application
}

func (s *verifyAppStoreStub) GetByCertificateTxID(_ context.Context, txID string) (*models.Application, error) {
	if app, ok := s.byTx[txID]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func (s *verifyAppStoreStub) GetByCertificateHash(_ context.Context, hash string) (*models.Application, error) {
	if app, ok := s.byHash[hash]; ok {
		return app, nil
	}
	return nil, sql.ErrNoRows
}

func TestVerifyValidCertificate(t *testing.T) {
	app := completedApplication("app-1")
	statuses := approvedStatuses("app-1")
	hash, err := certificateHash(app, statuses)
	require.NoError(t, err)
	txID := "JU-2026-AB12C-deadbeef"
	app.CertificateHash = &hash
	app.CertificateTxID = &txID

	svc := NewVerificationService(
		&verifyAppStoreStub{byTx: map[string]*models.Application{txID: app}},
		&certStatusStoreStub{statuses: map[string][]models.DepartmentStatus{"app-1": statuses}},
		nil,
	)

	resp, err := svc.Verify(context.Background(), dto.VerifyCertificateRequest{TransactionID: txID})
	require.NoError(t, err)
	require.True(t, resp.Valid)
	require.Equal(t, "21BCON1234", resp.RegistrationNo)
	require.Equal(t, txID, resp.TransactionID)
}

func TestVerifyTamperedStateFails(t *testing.T) {
	app := completedApplication("app-1")
	statuses := approvedStatuses("app-1")
	hash, err := certificateHash(app, statuses)
	require.NoError(t, err)
	app.CertificateHash = &hash

	// One department row diverged after issuance.
	tampered := append([]models.DepartmentStatus{}, statuses...)
	tampered[0].State = models.DeptRejected

	svc := NewVerificationService(
		&verifyAppStoreStub{byHash: map[string]*models.Application{hash: app}},
		&certStatusStoreStub{statuses: map[string][]models.DepartmentStatus{"app-1": tampered}},
		nil,
	)

	resp, err := svc.Verify(context.Background(), dto.VerifyCertificateRequest{Hash: hash})
	require.NoError(t, err)
	require.False(t, resp.Valid)
	require.NotEmpty(t, resp.Reason)
}

func TestVerifyUnknownCertificate(t *testing.T) {
	svc := NewVerificationService(&verifyAppStoreStub{}, &certStatusStoreStub{}, nil)

	resp, err := svc.Verify(context.Background(), dto.VerifyCertificateRequest{TransactionID: "JU-2026-XXXXX-00000000"})
	require.NoError(t, err)
	require.False(t, resp.Valid)

	_, err = svc.Verify(context.Background(), dto.VerifyCertificateRequest{})
	require.Error(t, err)
}
