package models

import (
	"encoding/json"
	"time"
)

// NotificationEvent identifies what a notification is about.
type NotificationEvent string

const (
	EventNewApplication      NotificationEvent = "new_application"
	EventApplicationRejected NotificationEvent = "application_rejected"
	EventCertificateReady    NotificationEvent = "certificate_ready"
	EventReminder            NotificationEvent = "reminder"
)

// NotificationStatus is the delivery state of an outbox row.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a durable outbox row describing a message to deliver.
// Rows are written in the same transaction scope as the state change that
// caused them and drained by a background worker.
type Notification struct {
	ID            string             `db:"id" json:"id"`
	ApplicationID string             `db:"application_id" json:"application_id"`
	Event         NotificationEvent  `db:"event" json:"event"`
	Recipient     string             `db:"recipient" json:"recipient"`
	Payload       json.RawMessage    `db:"payload" json:"payload,omitempty"`
	Status        NotificationStatus `db:"status" json:"status"`
	Attempts      int                `db:"attempts" json:"attempts"`
	LastError     *string            `db:"last_error" json:"last_error,omitempty"`
	SentAt        *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}
