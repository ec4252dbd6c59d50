package models

import "time"

// Department is a registry entry for a clearing department.
// New applications get one status row per active department.
type Department struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Active      bool      `db:"active" json:"active"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
