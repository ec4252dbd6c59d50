package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/middleware"
	"github.com/jecrcuniv/nodues-api/internal/models"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type staffServiceMock struct {
	listResp    *dto.ApplicationListResponse
	listErr     error
	actionResp  *dto.ActionResponse
	actionErr   error
	bulkResp    *dto.BulkActionResponse
	bulkErr     error
	historyResp []dto.ReapplyHistoryEntry
	historyErr  error
	remindResp  *dto.DepartmentReminderResponse
	remindErr   error

	lastFilter models.ApplicationFilter
	lastAppID  string
	lastDept   string

	listCalled   bool
	actionCalled bool
	asCalled     bool
	bulkCalled   bool
}

func (m *staffServiceMock) ListApplications(ctx context.Context, filter models.ApplicationFilter) (*dto.ApplicationListResponse, error) {
	m.listCalled = true
	m.lastFilter = filter
	if m.listResp == nil {
		return &dto.ApplicationListResponse{}, m.listErr
	}
	return m.listResp, m.listErr
}

func (m *staffServiceMock) PerformDepartmentAction(ctx context.Context, applicationID string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error) {
	m.actionCalled = true
	m.lastAppID = applicationID
	return m.actionResp, m.actionErr
}

func (m *staffServiceMock) PerformDepartmentActionAs(ctx context.Context, applicationID, departmentName string, req dto.DepartmentActionRequest, actor *models.JWTClaims) (*dto.ActionResponse, error) {
	m.asCalled = true
	m.lastAppID = applicationID
	m.lastDept = departmentName
	return m.actionResp, m.actionErr
}

func (m *staffServiceMock) PerformBulkDepartmentAction(ctx context.Context, req dto.BulkActionRequest, actor *models.JWTClaims) (*dto.BulkActionResponse, error) {
	m.bulkCalled = true
	return m.bulkResp, m.bulkErr
}

func (m *staffServiceMock) ReapplyHistory(ctx context.Context, applicationID string) ([]dto.ReapplyHistoryEntry, error) {
	m.lastAppID = applicationID
	return m.historyResp, m.historyErr
}

func (m *staffServiceMock) RemindDepartment(ctx context.Context, departmentName string, actor *models.JWTClaims) (*dto.DepartmentReminderResponse, error) {
	m.lastDept = departmentName
	return m.remindResp, m.remindErr
}

func staffTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestStaffHandlerActionApprove(t *testing.T) {
	mockSvc := &staffServiceMock{
		actionResp: &dto.ActionResponse{
			ApplicationID:     "app-1",
			DepartmentName:    "library",
			DepartmentState:   models.DeptApproved,
			ApplicationStatus: models.ApplicationInProgress,
		},
	}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DepartmentActionRequest{Action: "approve"})
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/app-1/action", payload, claims)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.actionCalled)
	assert.False(t, mockSvc.asCalled)
	assert.Equal(t, "app-1", mockSvc.lastAppID)
}

func TestStaffHandlerActionAsDepartment(t *testing.T) {
	mockSvc := &staffServiceMock{
		actionResp: &dto.ActionResponse{ApplicationID: "app-1", DepartmentName: "hostel"},
	}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DepartmentActionRequest{Action: "approve"})
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/app-1/action?department=hostel", payload, claims)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.asCalled)
	assert.Equal(t, "hostel", mockSvc.lastDept)
}

func TestStaffHandlerActionRejectRequiresComment(t *testing.T) {
	mockSvc := &staffServiceMock{}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DepartmentActionRequest{Action: "reject"})
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/app-1/action", payload, claims)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.actionCalled)
}

func TestStaffHandlerActionAlreadyProcessed(t *testing.T) {
	mockSvc := &staffServiceMock{actionErr: appErrors.ErrAlreadyProcessed}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DepartmentActionRequest{Action: "approve"})
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/app-1/action", payload, claims)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestStaffHandlerActionUnauthenticated(t *testing.T) {
	handler := NewStaffHandler(&staffServiceMock{}, nil)

	payload, _ := json.Marshal(dto.DepartmentActionRequest{Action: "approve"})
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/app-1/action", payload, nil)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}

	handler.Action(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffHandlerListScopesDepartmentAccount(t *testing.T) {
	mockSvc := &staffServiceMock{listResp: &dto.ApplicationListResponse{}}
	handler := NewStaffHandler(mockSvc, nil)

	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodGet, "/staff/applications", nil, claims)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	assert.Equal(t, "library", mockSvc.lastFilter.Department)
	require.NotNil(t, mockSvc.lastFilter.DeptState)
	assert.Equal(t, models.DeptPending, *mockSvc.lastFilter.DeptState)
}

func TestStaffHandlerListForbidsOtherQueue(t *testing.T) {
	mockSvc := &staffServiceMock{}
	handler := NewStaffHandler(mockSvc, nil)

	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodGet, "/staff/applications?department=hostel", nil, claims)

	handler.List(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestStaffHandlerBulkApprove(t *testing.T) {
	mockSvc := &staffServiceMock{
		bulkResp: &dto.BulkActionResponse{Requested: 1, Succeeded: 1},
	}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.BulkActionRequest{ApplicationIDs: []string{"7b68a1de-74b6-4a6e-a12f-4f2b14f3a111"}})
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/bulk-approve", payload, claims)

	handler.BulkApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.bulkCalled)
}

func TestStaffHandlerBulkApproveInvalidID(t *testing.T) {
	mockSvc := &staffServiceMock{}
	handler := NewStaffHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.BulkActionRequest{ApplicationIDs: []string{"not-a-uuid"}})
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleDepartment, DepartmentNames: []string{"library"}}
	c, w := staffTestContext(t, http.MethodPost, "/staff/applications/bulk-approve", payload, claims)

	handler.BulkApprove(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.bulkCalled)
}

func TestStaffHandlerRemind(t *testing.T) {
	mockSvc := &staffServiceMock{
		remindResp: &dto.DepartmentReminderResponse{DepartmentName: "library", Notified: 4},
	}
	handler := NewStaffHandler(mockSvc, nil)

	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w := staffTestContext(t, http.MethodPost, "/admin/departments/library/remind", nil, claims)
	c.Params = gin.Params{{Key: "name", Value: "library"}}

	handler.Remind(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "library", mockSvc.lastDept)
}
