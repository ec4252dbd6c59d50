package models

import "time"

// DepartmentState is the per-department decision on an application.
type DepartmentState string

const (
	DeptPending  DepartmentState = "pending"
	DeptApproved DepartmentState = "approved"
	DeptRejected DepartmentState = "rejected"
)

// DepartmentStatus is one department's row for one application.
type DepartmentStatus struct {
	ID             string          `db:"id" json:"id"`
	ApplicationID  string          `db:"application_id" json:"application_id"`
	DepartmentName string          `db:"department_name" json:"department_name"`
	State          DepartmentState `db:"state" json:"state"`
	Comment        *string         `db:"comment" json:"comment,omitempty"`
	ActedBy        *string         `db:"acted_by" json:"acted_by,omitempty"`
	ActedAt        *time.Time      `db:"acted_at" json:"acted_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// DecisionInput carries one department decision to apply against a status row.
type DecisionInput struct {
	ApplicationID  string
	DepartmentName string
	Approve        bool
	Comment        string
	ActorID        string
}
