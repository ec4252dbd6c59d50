package dto

// CreateDepartmentRequest registers a new clearing department.
type CreateDepartmentRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=60"`
	DisplayName string  `json:"display_name" validate:"required,min=2,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	SortOrder   int     `json:"sort_order" validate:"gte=0"`
}

// UpdateDepartmentRequest updates a registry entry. Nil fields are untouched.
type UpdateDepartmentRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=2,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Active      *bool   `json:"active"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
}

// DepartmentReminderResponse reports how many waiting applications were
// flagged to a department.
type DepartmentReminderResponse struct {
	DepartmentName string `json:"department_name"`
	Notified       int    `json:"notified"`
}

// DepartmentQueueStats is the per-department workload summary.
type DepartmentQueueStats struct {
	DepartmentName string `json:"department_name"`
	Pending        int    `json:"pending"`
	Approved       int    `json:"approved"`
	Rejected       int    `json:"rejected"`
}
