package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/models"
)

func deptStates(states ...models.DepartmentState) []models.DepartmentStatus {
	statuses := make([]models.DepartmentStatus, len(states))
	for i, state := range states {
		statuses[i] = models.DepartmentStatus{State: state}
	}
	return statuses
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name          string
		previous      models.ApplicationStatus
		states        []models.DepartmentState
		want          models.ApplicationStatus
		justCompleted bool
	}{
		{
			name:     "all pending stays pending",
			previous: models.ApplicationPending,
			states:   []models.DepartmentState{models.DeptPending, models.DeptPending},
			want:     models.ApplicationPending,
		},
		{
			name:     "partial approval moves to in progress",
			previous: models.ApplicationPending,
			states:   []models.DepartmentState{models.DeptApproved, models.DeptPending},
			want:     models.ApplicationInProgress,
		},
		{
			name:     "single rejection dominates approvals",
			previous: models.ApplicationInProgress,
			states:   []models.DepartmentState{models.DeptApproved, models.DeptRejected, models.DeptPending},
			want:     models.ApplicationRejected,
		},
		{
			name:     "rejection beats full approval elsewhere",
			previous: models.ApplicationInProgress,
			states:   []models.DepartmentState{models.DeptApproved, models.DeptApproved, models.DeptRejected},
			want:     models.ApplicationRejected,
		},
		{
			name:          "last approval completes",
			previous:      models.ApplicationInProgress,
			states:        []models.DepartmentState{models.DeptApproved, models.DeptApproved},
			want:          models.ApplicationCompleted,
			justCompleted: true,
		},
		{
			name:     "already completed does not re-trigger",
			previous: models.ApplicationCompleted,
			states:   []models.DepartmentState{models.DeptApproved, models.DeptApproved},
			want:     models.ApplicationCompleted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, ok := aggregate(tc.previous, deptStates(tc.states...))
			require.True(t, ok)
			require.Equal(t, tc.want, outcome.Status)
			require.Equal(t, tc.justCompleted, outcome.JustCompleted)
		})
	}
}

func TestAggregateNoRows(t *testing.T) {
	_, ok := aggregate(models.ApplicationPending, nil)
	require.False(t, ok)
}
