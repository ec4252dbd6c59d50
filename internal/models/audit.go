package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for clearance operations.
const (
	AuditApproveApplication  = "APPROVE_APPLICATION"
	AuditRejectApplication   = "REJECT_APPLICATION"
	AuditBulkApprove         = "BULK_APPROVE"
	AuditReapply             = "REAPPLY"
	AuditGenerateCertificate = "GENERATE_CERTIFICATE"
	AuditSendReminder        = "SEND_REMINDER"
	AuditLogin               = "LOGIN"
)

// AuditLog is a single immutable audit trail entry.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   *string         `db:"entity_id" json:"entity_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  *string         `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AuditFilter captures filtering criteria for listing audit entries.
type AuditFilter struct {
	UserID   string
	Action   string
	EntityID string
	Page     int
	PageSize int
}
