package jobs

import "github.com/qualitysquare/fieldops-backend/pkg/enums"

// workflowSequence is the fixed order field staff step a job through.
var workflowSequence = []enums.JobStatus{
	enums.JobStatusPickingUp,
	enums.JobStatusPickUp,
	enums.JobStatusEnRoute,
	enums.JobStatusComplete,
}

// IsLocked reports whether status advancement is blocked pending admin
// re-coordination: an approved reschedule or a Rescheduled status.
func IsLocked(job Job) bool {
	return job.RescheduleRequest.IsApprovedRequest() || job.Status == enums.JobStatusRescheduled
}

// NextStatus returns the status that follows the job's current one. Statuses
// outside the sequence are treated as sitting before its first step. The
// second result is false when the job is locked or already complete.
func NextStatus(job Job) (enums.JobStatus, bool) {
	if IsLocked(job) || job.Status.IsComplete() {
		return "", false
	}
	idx := -1
	for i, status := range workflowSequence {
		if status.Equal(job.Status) {
			idx = i
			break
		}
	}
	if idx+1 >= len(workflowSequence) {
		return "", false
	}
	return workflowSequence[idx+1], true
}

// CanAdvance reports whether NextStatus would yield a status.
func CanAdvance(job Job) bool {
	_, ok := NextStatus(job)
	return ok
}

// ActionLabel is the button text that moves a job into next.
func ActionLabel(next enums.JobStatus) string {
	switch next.Canonical() {
	case enums.JobStatusPickingUp:
		return "Start Pickup"
	case enums.JobStatusPickUp:
		return "Mark Picked Up"
	case enums.JobStatusEnRoute:
		return "Mark En Route"
	case enums.JobStatusComplete:
		return "Mark Complete"
	default:
		return ""
	}
}
