package models

import (
	"encoding/json"
	"time"
)

// Reapplication is a history row recorded each time a rejected
// application is resubmitted.
type Reapplication struct {
	ID                  string          `db:"id" json:"id"`
	ApplicationID       string          `db:"application_id" json:"application_id"`
	ReapplicationNumber int             `db:"reapplication_number" json:"reapplication_number"`
	StudentMessage      *string         `db:"student_message" json:"student_message,omitempty"`
	EditedFields        json.RawMessage `db:"edited_fields" json:"edited_fields,omitempty"`
	RejectedDepartments json.RawMessage `db:"rejected_departments" json:"rejected_departments,omitempty"`
	PreviousStatus      string          `db:"previous_status" json:"previous_status"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}
