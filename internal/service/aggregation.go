package service

import (
	"github.com/jecrcuniv/nodues-api/internal/models"
)

// AggregateOutcome is the result of folding department states into the
// application-level status.
type AggregateOutcome struct {
	Status        models.ApplicationStatus
	JustCompleted bool
	Pending       int
	Approved      int
	Rejected      int
}

// aggregate folds the per-department states into the application status.
// Any rejection dominates; otherwise all approved means completed; a mix of
// approved and pending is in progress; untouched rows leave it pending.
// The previous status is needed to detect the pending-to-completed edge that
// triggers certificate generation exactly once per transition.
func aggregate(previous models.ApplicationStatus, statuses []models.DepartmentStatus) (AggregateOutcome, bool) {
	if len(statuses) == 0 {
		return AggregateOutcome{}, false
	}

	outcome := AggregateOutcome{}
	for _, status := range statuses {
		switch status.State {
		case models.DeptApproved:
			outcome.Approved++
		case models.DeptRejected:
			outcome.Rejected++
		default:
			outcome.Pending++
		}
	}

	switch {
	case outcome.Rejected > 0:
		outcome.Status = models.ApplicationRejected
	case outcome.Pending == 0:
		outcome.Status = models.ApplicationCompleted
	case outcome.Approved > 0:
		outcome.Status = models.ApplicationInProgress
	default:
		outcome.Status = models.ApplicationPending
	}

	outcome.JustCompleted = outcome.Status == models.ApplicationCompleted && previous != models.ApplicationCompleted
	return outcome, true
}
