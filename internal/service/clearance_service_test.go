package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type applicationStoreStub struct {
	apps map[string]*models.Application
}

func newApplicationStoreStub() *applicationStoreStub {
	return &applicationStoreStub{apps: make(map[string]*models.Application)}
}

func (s *applicationStoreStub) Create(_ context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	app.UpdatedAt = app.CreatedAt
	clone := *app
	s.apps[app.ID] = &clone
	return nil
}

func (s *applicationStoreStub) GetByID(_ context.Context, id string) (*models.Application, error) {
	if app, ok := s.apps[id]; ok {
		clone := *app
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *applicationStoreStub) GetByRegistrationNo(_ context.Context, regNo string) (*models.Application, error) {
	for _, app := range s.apps {
		if app.RegistrationNo == regNo {
			clone := *app
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *applicationStoreStub) List(_ context.Context, _ models.ApplicationFilter) ([]models.Application, int, error) {
	result := make([]models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		result = append(result, *app)
	}
	return result, len(result), nil
}

func (s *applicationStoreStub) UpdateAggregateStatus(_ context.Context, id string, from, to models.ApplicationStatus) error {
	app, ok := s.apps[id]
	if !ok || app.Status != from {
		return sql.ErrNoRows
	}
	app.Status = to
	app.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *applicationStoreStub) ApplyReapplication(_ context.Context, params repository.ReapplyParams) error {
	app, ok := s.apps[params.ID]
	if !ok || app.Status != models.ApplicationRejected || app.ReapplicationCount != params.ReapplyCount-1 {
		return sql.ErrNoRows
	}
	app.Status = params.NewStatus
	app.ReapplicationCount = params.ReapplyCount
	app.ContactNo = params.ContactNo
	app.StudentName = params.StudentName
	app.ParentName = params.ParentName
	app.PersonalEmail = params.PersonalEmail
	app.CollegeEmail = params.CollegeEmail
	return nil
}

type statusStoreStub struct {
	rows map[string][]*models.DepartmentStatus
}

func newStatusStoreStub() *statusStoreStub {
	return &statusStoreStub{rows: make(map[string][]*models.DepartmentStatus)}
}

func (s *statusStoreStub) CreateBatch(_ context.Context, applicationID string, departments []string) error {
	if len(departments) == 0 {
		return fmt.Errorf("no departments")
	}
	for _, name := range departments {
		s.rows[applicationID] = append(s.rows[applicationID], &models.DepartmentStatus{
			ID:             uuid.NewString(),
			ApplicationID:  applicationID,
			DepartmentName: name,
			State:          models.DeptPending,
		})
	}
	return nil
}

func (s *statusStoreStub) ListByApplication(_ context.Context, applicationID string) ([]models.DepartmentStatus, error) {
	rows := make([]models.DepartmentStatus, 0, len(s.rows[applicationID]))
	for _, row := range s.rows[applicationID] {
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *statusStoreStub) ListByApplications(_ context.Context, ids []string) (map[string][]models.DepartmentStatus, error) {
	grouped := make(map[string][]models.DepartmentStatus)
	for _, id := range ids {
		for _, row := range s.rows[id] {
			grouped[id] = append(grouped[id], *row)
		}
	}
	return grouped, nil
}

func (s *statusStoreStub) ApplyDecision(_ context.Context, input models.DecisionInput) error {
	for _, row := range s.rows[input.ApplicationID] {
		if row.DepartmentName != input.DepartmentName {
			continue
		}
		if row.State != models.DeptPending {
			return sql.ErrNoRows
		}
		if input.Approve {
			row.State = models.DeptApproved
		} else {
			row.State = models.DeptRejected
		}
		now := time.Now().UTC()
		row.ActedAt = &now
		actor := input.ActorID
		row.ActedBy = &actor
		if input.Comment != "" {
			comment := input.Comment
			row.Comment = &comment
		}
		return nil
	}
	return sql.ErrNoRows
}

func (s *statusStoreStub) ResetRejected(_ context.Context, applicationID string) ([]string, error) {
	var names []string
	for _, row := range s.rows[applicationID] {
		if row.State == models.DeptRejected {
			row.State = models.DeptPending
			row.Comment = nil
			row.ActedBy = nil
			row.ActedAt = nil
			names = append(names, row.DepartmentName)
		}
	}
	return names, nil
}

type departmentStoreStub struct {
	names []string
}

func (s *departmentStoreStub) ListActive(_ context.Context) ([]models.Department, error) {
	depts := make([]models.Department, 0, len(s.names))
	for i, name := range s.names {
		depts = append(depts, models.Department{Name: name, Active: true, SortOrder: i})
	}
	return depts, nil
}

type reappStoreStub struct {
	entries []*models.Reapplication
}

func (s *reappStoreStub) Create(_ context.Context, entry *models.Reapplication) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *reappStoreStub) ListByApplication(_ context.Context, applicationID string) ([]models.Reapplication, error) {
	var result []models.Reapplication
	for _, entry := range s.entries {
		if entry.ApplicationID == applicationID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

type cacheStub struct {
	deleted []string
}

func (s *cacheStub) Get(_ context.Context, _ string, _ interface{}) error { return appErrors.ErrCacheMiss }
func (s *cacheStub) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}
func (s *cacheStub) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type certTriggerStub struct {
	calls []string
	err   error
}

func (s *certTriggerStub) Generate(_ context.Context, applicationID string) (*dto.CertificateResponse, error) {
	s.calls = append(s.calls, applicationID)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CertificateResponse{ApplicationID: applicationID}, nil
}

type notifierStub struct {
	submitted []string
	rejected  []string
	reminded  []string
}

func (s *notifierStub) NewApplication(_ context.Context, app *models.Application) error {
	s.submitted = append(s.submitted, app.ID)
	return nil
}

func (s *notifierStub) ApplicationRejected(_ context.Context, app *models.Application, _, _ string) error {
	s.rejected = append(s.rejected, app.ID)
	return nil
}

func (s *notifierStub) DepartmentReminder(_ context.Context, app *models.Application, _, _ string) error {
	s.reminded = append(s.reminded, app.ID)
	return nil
}

type auditStub struct {
	entries []*models.AuditLog
}

func (s *auditStub) Create(_ context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type clearanceFixture struct {
	svc      *ClearanceService
	apps     *applicationStoreStub
	statuses *statusStoreStub
	cache    *cacheStub
	certs    *certTriggerStub
	notifier *notifierStub
	audit    *auditStub
}

func newClearanceFixture(departments ...string) *clearanceFixture {
	if len(departments) == 0 {
		departments = []string{"accounts", "hostel", "library"}
	}
	f := &clearanceFixture{
		apps:     newApplicationStoreStub(),
		statuses: newStatusStoreStub(),
		cache:    &cacheStub{},
		certs:    &certTriggerStub{},
		notifier: &notifierStub{},
		audit:    &auditStub{},
	}
	f.svc = NewClearanceService(
		f.apps, f.statuses, &departmentStoreStub{names: departments}, &reappStoreStub{},
		f.cache, f.certs, f.notifier, f.audit, nil, nil,
		ClearanceServiceConfig{MaxReapplications: 2, BulkActionLimit: 3},
	)
	return f
}

func deptActor(departments ...string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: departments}
}

func submitSample(t *testing.T, f *clearanceFixture, regNo string) string {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), dto.SubmitApplicationRequest{
		RegistrationNo: regNo,
		StudentName:    "Asha Verma",
		ParentName:     "R Verma",
		School:         "Engineering",
		Course:         "B.Tech",
		Branch:         "CSE",
		AdmissionYear:  "2021",
		PassingYear:    "2025",
		ContactNo:      "9876543210",
	})
	require.NoError(t, err)
	return resp.ApplicationID
}

func TestSubmitSeedsDepartmentsAndRejectsDuplicates(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21bcon1234")

	app, err := f.apps.GetByID(context.Background(), appID)
	require.NoError(t, err)
	require.Equal(t, "21BCON1234", app.RegistrationNo)
	require.Equal(t, models.ApplicationPending, app.Status)

	statuses, err := f.statuses.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	require.Equal(t, []string{appID}, f.notifier.submitted)

	_, err = f.svc.Submit(context.Background(), dto.SubmitApplicationRequest{
		RegistrationNo: "21BCON1234",
		StudentName:    "Asha Verma",
		ParentName:     "R Verma",
		School:         "Engineering",
		Course:         "B.Tech",
		Branch:         "CSE",
		AdmissionYear:  "2021",
		PassingYear:    "2025",
		ContactNo:      "9876543210",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDepartmentActionProgressesAggregate(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0001")

	resp, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("library"))
	require.NoError(t, err)
	require.Equal(t, models.DeptApproved, resp.DepartmentState)
	require.Equal(t, models.ApplicationInProgress, resp.ApplicationStatus)
	require.False(t, resp.CertificateTriggered)
	require.Empty(t, f.certs.calls)
	require.NotEmpty(t, f.cache.deleted)
}

func TestDepartmentActionRejectionDominates(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0002")

	_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("accounts"))
	require.NoError(t, err)

	resp, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "reject", Comment: "late fine unpaid"}, deptActor("library"))
	require.NoError(t, err)
	require.Equal(t, models.ApplicationRejected, resp.ApplicationStatus)
	require.Equal(t, []string{appID}, f.notifier.rejected)
	require.Empty(t, f.certs.calls)
}

func TestLastApprovalCompletesAndTriggersCertificateOnce(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0003")

	for _, dept := range []string{"accounts", "hostel"} {
		_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
			dto.DepartmentActionRequest{Action: "approve"}, deptActor(dept))
		require.NoError(t, err)
	}

	resp, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("library"))
	require.NoError(t, err)
	require.Equal(t, models.ApplicationCompleted, resp.ApplicationStatus)
	require.True(t, resp.CertificateTriggered)
	require.Equal(t, []string{appID}, f.certs.calls)

	// Acting again on a decided row conflicts and must not re-trigger.
	_, err = f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("library"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	require.Len(t, f.certs.calls, 1)
}

func TestDepartmentActionAlreadyProcessed(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0004")

	_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("library"))
	require.NoError(t, err)

	_, err = f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "reject"}, deptActor("library"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
}

func TestDepartmentScopeEnforced(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0005")

	_, err := f.svc.PerformDepartmentActionAs(context.Background(), appID, "library",
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("hostel"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Admin must name a department.
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err = f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, admin)
	require.Error(t, err)

	_, err = f.svc.PerformDepartmentActionAs(context.Background(), appID, "library",
		dto.DepartmentActionRequest{Action: "approve"}, admin)
	require.NoError(t, err)
}

func TestBulkActionCapAndPartialFailure(t *testing.T) {
	f := newClearanceFixture()
	ids := []string{
		submitSample(t, f, "21BCON0010"),
		submitSample(t, f, "21BCON0011"),
	}

	resp, err := f.svc.PerformBulkDepartmentAction(context.Background(), dto.BulkActionRequest{
		ApplicationIDs: append(ids, "missing-app"),
	}, deptActor("library"))
	require.NoError(t, err)
	require.Equal(t, 3, resp.Requested)
	require.Equal(t, 2, resp.Succeeded)
	require.Equal(t, 1, resp.Failed)

	// Over the configured limit of 3.
	_, err = f.svc.PerformBulkDepartmentAction(context.Background(), dto.BulkActionRequest{
		ApplicationIDs: []string{"a", "b", "c", "d"},
	}, deptActor("library"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBulkActionTriggersCertificatesForCompleted(t *testing.T) {
	f := newClearanceFixture()
	ids := []string{
		submitSample(t, f, "21BCON0012"),
		submitSample(t, f, "21BCON0013"),
		submitSample(t, f, "21BCON0014"),
	}

	// Pre-approve accounts and hostel on the first two, so the bulk library
	// approval completes exactly those.
	for _, id := range ids[:2] {
		for _, dept := range []string{"accounts", "hostel"} {
			_, err := f.svc.PerformDepartmentAction(context.Background(), id,
				dto.DepartmentActionRequest{Action: "approve"}, deptActor(dept))
			require.NoError(t, err)
		}
	}

	resp, err := f.svc.PerformBulkDepartmentAction(context.Background(), dto.BulkActionRequest{
		ApplicationIDs: ids,
	}, deptActor("library"))
	require.NoError(t, err)
	require.Equal(t, 3, resp.Requested)
	require.Equal(t, 3, resp.Succeeded)

	// One certificate trigger per newly completed application, none for the
	// one still waiting on other departments.
	require.ElementsMatch(t, ids[:2], f.certs.calls)

	first, err := f.apps.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	require.Equal(t, models.ApplicationCompleted, first.Status)
	third, err := f.apps.GetByID(context.Background(), ids[2])
	require.NoError(t, err)
	require.Equal(t, models.ApplicationInProgress, third.Status)
}

func TestReapplyResetsOnlyRejectedDepartments(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0020")

	_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("accounts"))
	require.NoError(t, err)
	_, err = f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "reject", Comment: "dues pending"}, deptActor("hostel"))
	require.NoError(t, err)

	resp, err := f.svc.Reapply(context.Background(), dto.ReapplyRequest{
		RegistrationNo: "21BCON0020",
		ContactNo:      "9876500000",
		StudentMessage: "dues cleared at hostel office",
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.ReapplicationNumber)
	require.Equal(t, []string{"hostel"}, resp.ResetDepartments)
	require.Equal(t, models.ApplicationInProgress, resp.Status)
	require.Equal(t, 1, resp.RemainingAttempts)

	statuses, err := f.statuses.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	for _, status := range statuses {
		switch status.DepartmentName {
		case "accounts":
			require.Equal(t, models.DeptApproved, status.State)
		default:
			require.Equal(t, models.DeptPending, status.State)
		}
	}
}

func TestReapplyLimitExhausted(t *testing.T) {
	f := newClearanceFixture("library")
	appID := submitSample(t, f, "21BCON0030")

	for i := 0; i < 2; i++ {
		_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
			dto.DepartmentActionRequest{Action: "reject", Comment: "unpaid"}, deptActor("library"))
		require.NoError(t, err)

		_, err = f.svc.Reapply(context.Background(), dto.ReapplyRequest{
			RegistrationNo: "21BCON0030",
			ContactNo:      "9876543210",
		})
		require.NoError(t, err)
	}

	_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "reject", Comment: "still unpaid"}, deptActor("library"))
	require.NoError(t, err)

	_, err = f.svc.Reapply(context.Background(), dto.ReapplyRequest{
		RegistrationNo: "21BCON0030",
		ContactNo:      "9876543210",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrReapplyExhausted.Code, appErrors.FromError(err).Code)
}

func TestReapplyRequiresRejectedState(t *testing.T) {
	f := newClearanceFixture()
	submitSample(t, f, "21BCON0040")

	_, err := f.svc.Reapply(context.Background(), dto.ReapplyRequest{
		RegistrationNo: "21BCON0040",
		ContactNo:      "9876543210",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestStatusOverviewReflectsState(t *testing.T) {
	f := newClearanceFixture()
	appID := submitSample(t, f, "21BCON0050")

	_, err := f.svc.PerformDepartmentAction(context.Background(), appID,
		dto.DepartmentActionRequest{Action: "approve"}, deptActor("library"))
	require.NoError(t, err)

	overview, err := f.svc.StatusOverview(context.Background(), "21bcon0050")
	require.NoError(t, err)
	require.Equal(t, models.ApplicationInProgress, overview.Status)
	require.Len(t, overview.Departments, 3)
	require.False(t, overview.CanReapply)
	require.Equal(t, 2, overview.RemainingAttempts)
}

func TestRemindDepartmentQueuesNotifications(t *testing.T) {
	f := newClearanceFixture()
	first := submitSample(t, f, "21BCON0060")
	second := submitSample(t, f, "21BCON0061")

	resp, err := f.svc.RemindDepartment(context.Background(), "Library", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, "library", resp.DepartmentName)
	require.Equal(t, 2, resp.Notified)
	require.ElementsMatch(t, []string{first, second}, f.notifier.reminded)

	require.NotEmpty(t, f.audit.entries)
	last := f.audit.entries[len(f.audit.entries)-1]
	require.Equal(t, models.AuditSendReminder, last.Action)
}

func TestRemindDepartmentRejectsUnknownName(t *testing.T) {
	f := newClearanceFixture()

	_, err := f.svc.RemindDepartment(context.Background(), "transport", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
