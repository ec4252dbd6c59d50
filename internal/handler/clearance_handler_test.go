package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/dto"
	"github.com/jecrcuniv/nodues-api/internal/models"
	appErrors "github.com/jecrcuniv/nodues-api/pkg/errors"
)

type clearanceServiceMock struct {
	submitResp  *dto.SubmitApplicationResponse
	submitErr   error
	statusResp  *dto.StatusOverviewResponse
	statusErr   error
	reapplyResp *dto.ReapplyResponse
	reapplyErr  error

	submitCalled  bool
	statusCalled  bool
	reapplyCalled bool
	lastRegNo     string
}

func (m *clearanceServiceMock) Submit(ctx context.Context, req dto.SubmitApplicationRequest) (*dto.SubmitApplicationResponse, error) {
	m.submitCalled = true
	return m.submitResp, m.submitErr
}

func (m *clearanceServiceMock) StatusOverview(ctx context.Context, registrationNo string) (*dto.StatusOverviewResponse, error) {
	m.statusCalled = true
	m.lastRegNo = registrationNo
	return m.statusResp, m.statusErr
}

func (m *clearanceServiceMock) Reapply(ctx context.Context, req dto.ReapplyRequest) (*dto.ReapplyResponse, error) {
	m.reapplyCalled = true
	return m.reapplyResp, m.reapplyErr
}

func sampleSubmitRequest() dto.SubmitApplicationRequest {
	return dto.SubmitApplicationRequest{
		RegistrationNo: "21BCON1234",
		StudentName:    "Asha Verma",
		ParentName:     "Rakesh Verma",
		School:         "School of Engineering",
		Course:         "B.Tech",
		Branch:         "CSE",
		AdmissionYear:  "2021",
		PassingYear:    "2025",
		ContactNo:      "9876543210",
	}
}

func TestClearanceHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{
		submitResp: &dto.SubmitApplicationResponse{
			ApplicationID:  "app-1",
			RegistrationNo: "21BCON1234",
			Status:         models.ApplicationPending,
			SubmittedAt:    time.Now().UTC(),
		},
	}
	handler := NewClearanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(sampleSubmitRequest())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.submitCalled)
}

func TestClearanceHandlerSubmitValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{}
	handler := NewClearanceHandler(mockSvc, nil)

	invalid := sampleSubmitRequest()
	invalid.AdmissionYear = "21"
	payload, _ := json.Marshal(invalid)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.submitCalled)
}

func TestClearanceHandlerSubmitDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{submitErr: appErrors.ErrConflict}
	handler := NewClearanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(sampleSubmitRequest())
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestClearanceHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{
		statusResp: &dto.StatusOverviewResponse{
			ApplicationID:  "app-1",
			RegistrationNo: "21BCON1234",
			Status:         models.ApplicationInProgress,
		},
	}
	handler := NewClearanceHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications/21BCON1234/status", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "registrationNo", Value: "21BCON1234"}}

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.statusCalled)
	assert.Equal(t, "21BCON1234", mockSvc.lastRegNo)
}

func TestClearanceHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{statusErr: appErrors.ErrNotFound}
	handler := NewClearanceHandler(mockSvc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/applications/NOPE/status", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "registrationNo", Value: "NOPE"}}

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearanceHandlerReapply(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{
		reapplyResp: &dto.ReapplyResponse{
			ApplicationID:       "app-1",
			Status:              models.ApplicationInProgress,
			ReapplicationNumber: 1,
			ResetDepartments:    []string{"library"},
			RemainingAttempts:   4,
		},
	}
	handler := NewClearanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ReapplyRequest{RegistrationNo: "21BCON1234", ContactNo: "9876543210"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/reapply", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Reapply(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.reapplyCalled)
}

func TestClearanceHandlerReapplyExhausted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &clearanceServiceMock{reapplyErr: appErrors.ErrReapplyExhausted}
	handler := NewClearanceHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ReapplyRequest{RegistrationNo: "21BCON1234", ContactNo: "9876543210"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/reapply", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Reapply(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
