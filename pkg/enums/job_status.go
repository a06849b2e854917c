package enums

import (
	"fmt"
	"strings"
)

// JobStatus is the canonical status stored on job documents. Values match the
// strings written by the mobile clients so existing records decode unchanged.
type JobStatus string

const (
	JobStatusScheduled   JobStatus = "Scheduled"
	JobStatusPickingUp   JobStatus = "Picking Up"
	JobStatusPickUp      JobStatus = "Pick Up"
	JobStatusEnRoute     JobStatus = "En Route"
	JobStatusInProgress  JobStatus = "In Progress"
	JobStatusComplete    JobStatus = "Complete"
	JobStatusCompleted   JobStatus = "Completed"
	JobStatusRescheduled JobStatus = "Rescheduled"
	JobStatusCancelled   JobStatus = "Cancelled"
)

var validJobStatuses = []JobStatus{
	JobStatusScheduled,
	JobStatusPickingUp,
	JobStatusPickUp,
	JobStatusEnRoute,
	JobStatusInProgress,
	JobStatusComplete,
	JobStatusCompleted,
	JobStatusRescheduled,
	JobStatusCancelled,
}

// statusTokens maps lowercased, underscore-joined tokens onto the enum.
var statusTokens = map[string]JobStatus{
	"completed":   JobStatusCompleted,
	"complete":    JobStatusComplete,
	"picking_up":  JobStatusPickingUp,
	"pick_up":     JobStatusPickUp,
	"en_route":    JobStatusEnRoute,
	"cancelled":   JobStatusCancelled,
	"rescheduled": JobStatusRescheduled,
	"in_progress": JobStatusInProgress,
	"delivering":  JobStatusInProgress,
	"started":     JobStatusInProgress,
	"scheduled":   JobStatusScheduled,
}

// JobStatuses lists every stored status.
func JobStatuses() []JobStatus {
	out := make([]JobStatus, len(validJobStatuses))
	copy(out, validJobStatuses)
	return out
}

// String implements fmt.Stringer.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is one of the stored job statuses.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsComplete reports whether the status is either spelling of complete.
func (s JobStatus) IsComplete() bool {
	return s == JobStatusComplete || s == JobStatusCompleted
}

// Canonical folds the legacy Completed spelling onto Complete.
func (s JobStatus) Canonical() JobStatus {
	if s == JobStatusCompleted {
		return JobStatusComplete
	}
	return s
}

// Equal compares two statuses treating Complete and Completed as the same value.
func (s JobStatus) Equal(other JobStatus) bool {
	return s.Canonical() == other.Canonical()
}

// DisplayName is the label shown to field staff.
func (s JobStatus) DisplayName() string {
	switch s {
	case JobStatusPickUp:
		return "Picked Up"
	case JobStatusComplete, JobStatusCompleted:
		return "Complete"
	case "":
		return string(JobStatusScheduled)
	default:
		return string(s)
	}
}

// normalizeStatusToken lowercases the value and joins words with underscores.
func normalizeStatusToken(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}

// MapJobStatus converts a raw stored status into the enum. Unknown or empty
// values map to Scheduled; the mapping never fails.
func MapJobStatus(raw string) JobStatus {
	if status, ok := statusTokens[normalizeStatusToken(raw)]; ok {
		return status
	}
	return JobStatusScheduled
}

// ParseJobStatus converts client input into JobStatus, rejecting unknown tokens.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	if status, ok := statusTokens[normalizeStatusToken(value)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
