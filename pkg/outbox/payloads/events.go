package payloads

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

// JobStatusChangedEvent is emitted after a job's status fields are rewritten.
type JobStatusChangedEvent struct {
	JobID      string          `json:"job_id"`
	JobNumber  string          `json:"job_number,omitempty"`
	FromStatus enums.JobStatus `json:"from_status,omitempty"`
	ToStatus   enums.JobStatus `json:"to_status"`
	ChangedBy  string          `json:"changed_by"`
	ChangedAt  time.Time       `json:"changed_at"`
}

// JobRescheduleRequestedEvent tells admins a new reschedule request is waiting.
type JobRescheduleRequestedEvent struct {
	JobID           string     `json:"job_id"`
	JobNumber       string     `json:"job_number,omitempty"`
	RequestedBy     string     `json:"requested_by"`
	Reason          string     `json:"reason"`
	RequestedDate   time.Time  `json:"requested_date"`
	NewProposedDate *time.Time `json:"new_proposed_date,omitempty"`
}

// JobRescheduleDecidedEvent records an approval or a decline.
type JobRescheduleDecidedEvent struct {
	JobID       string                `json:"job_id"`
	Decision    enums.RescheduleState `json:"decision"`
	DecidedBy   string                `json:"decided_by"`
	DecidedAt   time.Time             `json:"decided_at"`
	NewDate     *time.Time            `json:"new_date,omitempty"`
	RequestedBy string                `json:"requested_by,omitempty"`
}

// PlateCreatedEvent announces a new fleet vehicle.
type PlateCreatedEvent struct {
	PlateID   string    `json:"plate_id"`
	PlateNum  string    `json:"plate_num"`
	CreatedAt time.Time `json:"created_at"`
}

// PlateAssignedEvent is emitted when a driver takes a vehicle.
type PlateAssignedEvent struct {
	PlateID     string    `json:"plate_id"`
	PlateNum    string    `json:"plate_num"`
	DriverID    string    `json:"driver_id"`
	DriverName  string    `json:"driver_name,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`
	TeamName    string    `json:"team_name,omitempty"`
	TeamMembers []string  `json:"team_members,omitempty"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// PlateReleasedEvent is emitted when a vehicle becomes available again.
type PlateReleasedEvent struct {
	PlateID    string    `json:"plate_id"`
	PlateNum   string    `json:"plate_num"`
	ReleasedBy string    `json:"released_by"`
	ReleasedAt time.Time `json:"released_at"`
}

// ClockEvent covers both clock-in and clock-out.
type ClockEvent struct {
	EntryID      string     `json:"entry_id"`
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name,omitempty"`
	ClockIn      time.Time  `json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out,omitempty"`
	TotalHours   string     `json:"total_hours,omitempty"`
}
