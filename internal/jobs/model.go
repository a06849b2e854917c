package jobs

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

// Stored field paths on job documents.
const (
	fieldAssignments       = "assignments"
	fieldStatus            = "status"
	fieldRequestStatus     = "requests.status"
	fieldUpdatedAt         = "updatedAt"
	fieldInstallDate       = "installDate"
	fieldDate              = "date"
	fieldRescheduleRequest = "rescheduleRequest"
	fieldLegacyReschedule  = "requests.reschedule"
)

// Assignment is one entry of a job's assignments list.
type Assignment struct {
	Type         enums.AssignmentType `json:"type"`
	EmployeeID   string               `json:"employee_id,omitempty"`
	EmployeeName string               `json:"employee_name,omitempty"`
	TeamID       string               `json:"team_id,omitempty"`
	TeamName     string               `json:"team_name,omitempty"`
	TeamMembers  []string             `json:"team_members,omitempty"`
	Date         *time.Time           `json:"date,omitempty"`
}

// RescheduleRequest is the single reschedule request a job carries.
// IsApproved is nil while the request is pending.
type RescheduleRequest struct {
	RequestedBy     string     `json:"requested_by"`
	RequestedDate   *time.Time `json:"requested_date,omitempty"`
	Reason          string     `json:"reason"`
	NewProposedDate *time.Time `json:"new_proposed_date,omitempty"`
	IsApproved      *bool      `json:"is_approved"`
	ApprovedDate    *time.Time `json:"approved_date,omitempty"`

	// path is where the request was read from so decisions are written back
	// to the same place.
	path string
}

// State derives the workflow state from the approval flag.
func (r *RescheduleRequest) State() enums.RescheduleState {
	switch {
	case r == nil:
		return enums.RescheduleStateNone
	case r.IsApproved == nil:
		return enums.RescheduleStatePending
	case *r.IsApproved:
		return enums.RescheduleStateApproved
	default:
		return enums.RescheduleStateDeclined
	}
}

// IsPending reports whether an admin has yet to decide the request.
func (r *RescheduleRequest) IsPending() bool {
	return r.State() == enums.RescheduleStatePending
}

// IsApprovedRequest reports whether the request was approved.
func (r *RescheduleRequest) IsApprovedRequest() bool {
	return r.State() == enums.RescheduleStateApproved
}

// Path returns the document path the request lives under.
func (r *RescheduleRequest) Path() string {
	if r == nil || r.path == "" {
		return fieldRescheduleRequest
	}
	return r.path
}

// Job is the normalized view of a job document. Empty strings mean absent.
type Job struct {
	ID            string          `json:"id"`
	JobNumber     string          `json:"job_number,omitempty"`
	DoliNumber    string          `json:"doli_number,omitempty"`
	ClientName    string          `json:"client_name,omitempty"`
	ClientAddress string          `json:"client_address,omitempty"`
	ClientPhone   string          `json:"client_phone,omitempty"`
	StoreCompany  string          `json:"store_company,omitempty"`
	PickUpAddress string          `json:"pick_up_address,omitempty"`
	JobType       string          `json:"job_type,omitempty"`
	InstallType   string          `json:"install_type"`
	Items         string          `json:"items,omitempty"`
	Description   string          `json:"description,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	ScheduledTime string          `json:"scheduled_time,omitempty"`
	TimeFrame     string          `json:"time_frame,omitempty"`
	Status        enums.JobStatus `json:"status"`

	AssignedEmployeeID   string   `json:"assigned_employee_id"`
	AssignedEmployeeName string   `json:"assigned_employee_name"`
	AssignedTeamID       string   `json:"assigned_team_id,omitempty"`
	AssignedTeamName     string   `json:"assigned_team_name,omitempty"`
	AssignedTeamMembers  []string `json:"assigned_team_members,omitempty"`

	CreatedAt         *time.Time         `json:"created_at,omitempty"`
	UpdatedAt         *time.Time         `json:"updated_at,omitempty"`
	RescheduleRequest *RescheduleRequest `json:"reschedule_request,omitempty"`

	// rawStatus and rawRequestStatus hold the stored values the status was
	// read from; status writes use them as a precondition.
	rawStatus        any
	rawRequestStatus any
}

// IsTeamJob reports whether the job carries a team assignment.
func (j Job) IsTeamJob() bool {
	return j.AssignedTeamID != ""
}

// ScheduledOn reports whether the job's date falls within [start, start+24h).
// Undated jobs never match.
func (j Job) ScheduledOn(start time.Time) bool {
	if j.ScheduledDate == nil {
		return false
	}
	end := start.Add(24 * time.Hour)
	d := *j.ScheduledDate
	return !d.Before(start) && d.Before(end)
}

// StatusView decorates a job with the labels the mobile clients render.
type StatusView struct {
	Job
	StatusLabel     string                `json:"status_label"`
	RescheduleState enums.RescheduleState `json:"reschedule_state"`
	Locked          bool                  `json:"locked"`
	NextStatus      *enums.JobStatus      `json:"next_status,omitempty"`
	NextActionLabel string                `json:"next_action_label,omitempty"`
}

// NewStatusView computes display labels and the next workflow step.
func NewStatusView(job Job) StatusView {
	view := StatusView{
		Job:             job,
		StatusLabel:     job.Status.DisplayName(),
		RescheduleState: job.RescheduleRequest.State(),
		Locked:          IsLocked(job),
	}
	if next, ok := NextStatus(job); ok {
		view.NextStatus = &next
		view.NextActionLabel = ActionLabel(next)
	}
	return view
}

// StatusViews maps NewStatusView over jobs.
func StatusViews(list []Job) []StatusView {
	out := make([]StatusView, 0, len(list))
	for _, job := range list {
		out = append(out, NewStatusView(job))
	}
	return out
}
