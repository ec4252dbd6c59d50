package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

func TestStatusRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO department_statuses")).
		WillReturnResult(sqlmock.NewResult(1, 5))

	err := repo.CreateBatch(context.Background(), "app-1",
		[]string{"library", "hostel", "accounts", "sports", "laboratory"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	err = repo.CreateBatch(context.Background(), "app-1", nil)
	require.Error(t, err)
}

func TestStatusRepositoryApplyDecisionFirstWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatusRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE department_statuses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.ApplyDecision(context.Background(), models.DecisionInput{
		ApplicationID:  "app-1",
		DepartmentName: "library",
		Approve:        true,
		ActorID:        "user-1",
	})
	require.NoError(t, err)

	// Row was already decided: the pending guard matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE department_statuses")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.ApplyDecision(context.Background(), models.DecisionInput{
		ApplicationID:  "app-1",
		DepartmentName: "library",
		Approve:        false,
		Comment:        "late fine unpaid",
		ActorID:        "user-2",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryResetRejected(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatusRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE department_statuses")).
		WillReturnRows(sqlmock.NewRows([]string{"department_name"}).
			AddRow("library").AddRow("hostel"))

	names, err := repo.ResetRejected(context.Background(), "app-1")
	require.NoError(t, err)
	require.Equal(t, []string{"library", "hostel"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusRepositoryListByApplication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatusRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "application_id", "department_name", "state", "comment", "acted_by", "acted_at", "created_at", "updated_at",
	}).
		AddRow("st-1", "app-1", "accounts", "approved", nil, "user-1", now, now, now).
		AddRow("st-2", "app-1", "library", "pending", nil, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, application_id, department_name")).
		WithArgs("app-1").
		WillReturnRows(rows)

	statuses, err := repo.ListByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, models.DeptApproved, statuses[0].State)
	require.Equal(t, models.DeptPending, statuses[1].State)
	require.NoError(t, mock.ExpectationsWereMet())
}
