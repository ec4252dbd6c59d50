package dto

import (
	"encoding/json"
	"time"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

// SubmitApplicationRequest is the public student submission payload.
type SubmitApplicationRequest struct {
	RegistrationNo string  `json:"registration_no" validate:"required,min=3,max=30"`
	StudentName    string  `json:"student_name" validate:"required,min=2,max=120"`
	ParentName     string  `json:"parent_name" validate:"required,min=2,max=120"`
	School         string  `json:"school" validate:"required,max=120"`
	Course         string  `json:"course" validate:"required,max=120"`
	Branch         string  `json:"branch" validate:"required,max=120"`
	AdmissionYear  string  `json:"admission_year" validate:"required,len=4"`
	PassingYear    string  `json:"passing_year" validate:"required,len=4"`
	ContactNo      string  `json:"contact_no" validate:"required,min=7,max=15"`
	PersonalEmail  *string `json:"personal_email" validate:"omitempty,email"`
	CollegeEmail   *string `json:"college_email" validate:"omitempty,email"`
}

// SubmitApplicationResponse acknowledges a submission.
type SubmitApplicationResponse struct {
	ApplicationID  string                   `json:"application_id"`
	RegistrationNo string                   `json:"registration_no"`
	Status         models.ApplicationStatus `json:"status"`
	Departments    []string                 `json:"departments"`
	SubmittedAt    time.Time                `json:"submitted_at"`
}

// DepartmentActionRequest is a single approve/reject decision.
type DepartmentActionRequest struct {
	Action  string `json:"action" validate:"required,oneof=approve reject"`
	Comment string `json:"comment" validate:"max=500"`
}

// BulkActionRequest approves a batch of applications for one department.
type BulkActionRequest struct {
	ApplicationIDs []string `json:"application_ids" validate:"required,min=1,dive,uuid"`
	Comment        string   `json:"comment" validate:"max=500"`
}

// BulkActionResult reports the outcome for one application in a bulk run.
type BulkActionResult struct {
	ApplicationID string `json:"application_id"`
	OK            bool   `json:"ok"`
	Error         string `json:"error,omitempty"`
}

// BulkActionResponse summarises a bulk approval run.
type BulkActionResponse struct {
	Requested int                `json:"requested"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []BulkActionResult `json:"results"`
}

// ActionResponse reports the post-decision aggregate state.
type ActionResponse struct {
	ApplicationID        string                   `json:"application_id"`
	DepartmentName       string                   `json:"department_name"`
	DepartmentState      models.DepartmentState   `json:"department_state"`
	ApplicationStatus    models.ApplicationStatus `json:"application_status"`
	CertificateTriggered bool                     `json:"certificate_triggered"`
}

// ReapplyRequest resubmits a rejected application.
type ReapplyRequest struct {
	RegistrationNo string            `json:"registration_no" validate:"required"`
	ContactNo      string            `json:"contact_no" validate:"required,min=7,max=15"`
	StudentMessage string            `json:"student_message" validate:"max=1000"`
	EditedFields   map[string]string `json:"edited_fields" validate:"omitempty,max=10"`
}

// ReapplyResponse acknowledges a reapplication.
type ReapplyResponse struct {
	ApplicationID       string                   `json:"application_id"`
	Status              models.ApplicationStatus `json:"status"`
	ReapplicationNumber int                      `json:"reapplication_number"`
	ResetDepartments    []string                 `json:"reset_departments"`
	RemainingAttempts   int                      `json:"remaining_attempts"`
}

// DepartmentStatusView is one department's state in a status overview.
type DepartmentStatusView struct {
	DepartmentName string                 `json:"department_name"`
	DisplayName    string                 `json:"display_name,omitempty"`
	State          models.DepartmentState `json:"state"`
	Comment        *string                `json:"comment,omitempty"`
	ActedAt        *time.Time             `json:"acted_at,omitempty"`
}

// StatusOverviewResponse is the public status check payload.
type StatusOverviewResponse struct {
	ApplicationID       string                   `json:"application_id"`
	RegistrationNo      string                   `json:"registration_no"`
	StudentName         string                   `json:"student_name"`
	Status              models.ApplicationStatus `json:"status"`
	Departments         []DepartmentStatusView   `json:"departments"`
	ReapplicationCount  int                      `json:"reapplication_count"`
	RemainingAttempts   int                      `json:"remaining_attempts"`
	CanReapply          bool                     `json:"can_reapply"`
	CertificateReady    bool                     `json:"certificate_ready"`
	CertificateURL      *string                  `json:"certificate_url,omitempty"`
	CertificateTxID     *string                  `json:"certificate_tx_id,omitempty"`
	SubmittedAt         time.Time                `json:"submitted_at"`
	LastUpdatedAt       time.Time                `json:"last_updated_at"`
}

// ApplicationListItem is the staff dashboard row projection.
type ApplicationListItem struct {
	models.Application
	DepartmentStatuses []DepartmentStatusView `json:"department_statuses,omitempty"`
}

// ApplicationListResponse wraps a paginated application listing.
type ApplicationListResponse struct {
	Items      []ApplicationListItem `json:"items"`
	Pagination models.Pagination     `json:"pagination"`
}

// ReapplyHistoryEntry is one row of the reapplication history view.
type ReapplyHistoryEntry struct {
	ReapplicationNumber int             `json:"reapplication_number"`
	StudentMessage      *string         `json:"student_message,omitempty"`
	EditedFields        json.RawMessage `json:"edited_fields,omitempty"`
	RejectedDepartments json.RawMessage `json:"rejected_departments,omitempty"`
	PreviousStatus      string          `json:"previous_status"`
	CreatedAt           time.Time       `json:"created_at"`
}
