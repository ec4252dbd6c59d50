package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func applicationRows(id, regNo string, status models.ApplicationStatus, generated bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "registration_no", "student_name", "parent_name", "school", "course", "branch",
		"admission_year", "passing_year", "contact_no", "personal_email", "college_email", "status",
		"reapplication_count", "max_reapplications_override", "final_certificate_generated",
		"certificate_url", "certificate_hash", "certificate_tx_id", "certificate_generated_at",
		"certificate_error", "created_at", "updated_at",
	}).AddRow(id, regNo, "Asha Verma", "R Verma", "Engineering", "B.Tech", "CSE",
		"2021", "2025", "9876543210", nil, nil, status,
		0, nil, generated, nil, nil, nil, nil, nil, now, now)
}

func TestApplicationRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	app := &models.Application{
		RegistrationNo: "21BCON1234",
		StudentName:    "Asha Verma",
		ParentName:     "R Verma",
		School:         "Engineering",
		Course:         "B.Tech",
		Branch:         "CSE",
		AdmissionYear:  "2021",
		PassingYear:    "2025",
		ContactNo:      "9876543210",
	}
	require.NoError(t, repo.Create(context.Background(), app))
	require.NotEmpty(t, app.ID)
	require.Equal(t, models.ApplicationPending, app.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, registration_no")).
		WithArgs(app.ID).
		WillReturnRows(applicationRows(app.ID, "21BCON1234", models.ApplicationPending, false))

	found, err := repo.GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, "21BCON1234", found.RegistrationNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryClaimCertificate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ClaimCertificate(context.Background(), "app-1"))

	// Second claim loses the race: the guard matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.ClaimCertificate(context.Background(), "app-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCommitAndRelease(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.CommitCertificate(context.Background(), "app-1", CertificateMetadata{
		URL:         "app-1/certificate.pdf",
		Hash:        "deadbeef",
		TxID:        "JU-2026-AB12C-deadbeef",
		GeneratedAt: time.Now(),
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ReleaseCertificate(context.Background(), "app-1", "render failed"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateAggregateStatusConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateAggregateStatus(context.Background(), "app-1", models.ApplicationPending, models.ApplicationInProgress)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryApplyReapplication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.ApplyReapplication(context.Background(), ReapplyParams{
		ID:           "app-1",
		ContactNo:    "9876543210",
		StudentName:  "Asha Verma",
		ParentName:   "R Verma",
		NewStatus:    models.ApplicationInProgress,
		ReapplyCount: 1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewApplicationRepository(db)
	status := models.ApplicationRejected

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.id, a.registration_no")).
		WithArgs(status).
		WillReturnRows(applicationRows("app-1", "21BCON1234", status, false))

	apps, total, err := repo.List(context.Background(), models.ApplicationFilter{Status: &status})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, apps, 1)
	require.Equal(t, status, apps[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
