package models

import "time"

// ApplicationStatus is the aggregate clearance state of an application.
type ApplicationStatus string

const (
	ApplicationPending    ApplicationStatus = "pending"
	ApplicationInProgress ApplicationStatus = "in_progress"
	ApplicationRejected   ApplicationStatus = "rejected"
	ApplicationCompleted  ApplicationStatus = "completed"
)

// Application represents a student no-dues clearance request.
type Application struct {
	ID             string            `db:"id" json:"id"`
	RegistrationNo string            `db:"registration_no" json:"registration_no"`
	StudentName    string            `db:"student_name" json:"student_name"`
	ParentName     string            `db:"parent_name" json:"parent_name"`
	School         string            `db:"school" json:"school"`
	Course         string            `db:"course" json:"course"`
	Branch         string            `db:"branch" json:"branch"`
	AdmissionYear  string            `db:"admission_year" json:"admission_year"`
	PassingYear    string            `db:"passing_year" json:"passing_year"`
	ContactNo      string            `db:"contact_no" json:"contact_no"`
	PersonalEmail  *string           `db:"personal_email" json:"personal_email,omitempty"`
	CollegeEmail   *string           `db:"college_email" json:"college_email,omitempty"`
	Status         ApplicationStatus `db:"status" json:"status"`

	ReapplicationCount        int  `db:"reapplication_count" json:"reapplication_count"`
	MaxReapplicationsOverride *int `db:"max_reapplications_override" json:"max_reapplications_override,omitempty"`

	FinalCertificateGenerated bool       `db:"final_certificate_generated" json:"final_certificate_generated"`
	CertificateURL            *string    `db:"certificate_url" json:"certificate_url,omitempty"`
	CertificateHash           *string    `db:"certificate_hash" json:"certificate_hash,omitempty"`
	CertificateTxID           *string    `db:"certificate_tx_id" json:"certificate_tx_id,omitempty"`
	CertificateGeneratedAt    *time.Time `db:"certificate_generated_at" json:"certificate_generated_at,omitempty"`
	CertificateError          *string    `db:"certificate_error" json:"certificate_error,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MaxReapplications returns the effective reapplication ceiling for this
// application, honoring a per-form override when set.
func (a *Application) MaxReapplications(defaultLimit int) int {
	if a.MaxReapplicationsOverride != nil && *a.MaxReapplicationsOverride > 0 {
		return *a.MaxReapplicationsOverride
	}
	return defaultLimit
}

// ApplicationFilter captures filtering criteria for listing applications.
type ApplicationFilter struct {
	Status         *ApplicationStatus
	Department     string
	DeptState      *DepartmentState
	Search         string
	AdmissionYear  string
	PassingYear    string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
	HasCertificate *bool
}
