package jobs

import (
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

const (
	unassignedEmployeeID = "unassigned"
	teamJobLabel         = "Team Job"
	notApplicableLabel   = "N/A"
	scheduledTimeLayout  = "3:04 PM"
)

// Resolver turns raw job documents into Jobs. Requester resolution filters by
// assignment; admin resolution does not.
type Resolver struct {
	loc *time.Location
}

// NewResolver builds a resolver that reads calendar-day strings in loc.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the timezone used for dates and display times.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// assignmentMatch collects the fields taken from the assignments list.
type assignmentMatch struct {
	employeeID   string
	employeeName string
	teamID       string
	teamName     string
	teamMembers  []string
	date         *time.Time
}

// ResolveForRequester returns the job as seen by employeeID. The second result
// is false when no assignment entry names the employee or one of teamIDs.
func (r *Resolver) ResolveForRequester(raw docstore.Document, employeeID string, teamIDs map[string]struct{}) (Job, bool) {
	employeeID = strings.TrimSpace(employeeID)
	var (
		match   assignmentMatch
		visible bool
	)
	for _, entry := range r.Assignments(raw) {
		switch entry.Type {
		case enums.AssignmentTeamMember:
			if employeeID == "" || entry.EmployeeID != employeeID {
				continue
			}
			visible = true
			match.employeeID = entry.EmployeeID
			match.employeeName = entry.EmployeeName
			if entry.Date != nil {
				match.date = entry.Date
			}
		case enums.AssignmentTeam:
			if entry.TeamID == "" {
				continue
			}
			if _, ok := teamIDs[entry.TeamID]; !ok {
				continue
			}
			visible = true
			match.teamID = entry.TeamID
			match.teamName = entry.TeamName
			if entry.TeamMembers != nil {
				match.teamMembers = entry.TeamMembers
			}
			if entry.Date != nil {
				match.date = entry.Date
			}
		}
	}
	if !visible {
		return Job{}, false
	}
	return r.normalize(raw, match), true
}

// ResolveForAdmin takes the first assignment entry as authoritative.
func (r *Resolver) ResolveForAdmin(raw docstore.Document) Job {
	var match assignmentMatch
	if entries := r.Assignments(raw); len(entries) > 0 {
		first := entries[0]
		match = assignmentMatch{
			employeeID:   first.EmployeeID,
			employeeName: first.EmployeeName,
			teamID:       first.TeamID,
			teamName:     first.TeamName,
			teamMembers:  first.TeamMembers,
			date:         first.Date,
		}
	}
	return r.normalize(raw, match)
}

// Assignments decodes the assignments list. Malformed entries keep whatever
// fields could be read.
func (r *Resolver) Assignments(raw docstore.Document) []Assignment {
	entries := raw.Maps(fieldAssignments)
	out := make([]Assignment, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Assignment{
			Type:         enums.AssignmentType(entry.String("type")),
			EmployeeID:   entry.String("employeeId"),
			EmployeeName: entry.String("employeeName"),
			TeamID:       entry.String("teamId"),
			TeamName:     entry.String("teamName"),
			TeamMembers:  entry.Strings("teamMembers"),
			Date:         entry.Time("date", r.loc),
		})
	}
	return out
}

func (r *Resolver) normalize(raw docstore.Document, match assignmentMatch) Job {
	job := Job{
		ID:            raw.ID(),
		JobNumber:     raw.String("jobNumber"),
		DoliNumber:    raw.FirstString("doliNumber", "dolibarrId"),
		ClientName:    raw.FirstString("clientName", "customerName", "jobNumber"),
		ClientAddress: raw.FirstString("clientAddress", "address", "location"),
		ClientPhone:   raw.FirstString("clientPhone", "phoneNumber"),
		StoreCompany:  raw.FirstString("requests.storeCompany", "storeCompany"),
		PickUpAddress: raw.FirstString("pickUpAddress", "pickupAddress"),
		JobType:       raw.String("jobType"),
		InstallType:   firstNonEmpty(raw.FirstString("installType", "jobType"), notApplicableLabel),
		Items:         items(raw),
		Description:   raw.FirstString("jobDescription", "description"),
		Notes:         raw.String("notes"),
		TimeFrame:     raw.FirstString("requests.timeFrame", "timeFrame"),
		CreatedAt:     raw.Time("createdAt", r.loc),
		UpdatedAt:     raw.Time(fieldUpdatedAt, r.loc),
	}

	job.ScheduledDate = match.date
	if job.ScheduledDate == nil {
		job.ScheduledDate = raw.FirstTime(r.loc, fieldInstallDate, fieldDate)
	}
	job.ScheduledTime = raw.String("scheduledTime")
	if job.ScheduledTime == "" && job.ScheduledDate != nil {
		job.ScheduledTime = job.ScheduledDate.In(r.loc).Format(scheduledTimeLayout)
	}

	job.rawStatus, _ = raw.Lookup(fieldStatus)
	job.rawRequestStatus, _ = raw.Lookup(fieldRequestStatus)
	job.Status = enums.MapJobStatus(raw.FirstString(fieldRequestStatus, fieldStatus))

	job.AssignedTeamID = firstNonEmpty(match.teamID, raw.String("assignedTeamId"))
	job.AssignedTeamName = firstNonEmpty(match.teamName, raw.String("assignedTeamName"))
	job.AssignedEmployeeID = firstNonEmpty(match.employeeID, raw.String("assignedEmployeeId"), job.AssignedTeamID, unassignedEmployeeID)
	job.AssignedEmployeeName = firstNonEmpty(match.employeeName, raw.String("assignedEmployeeName"), job.AssignedTeamName, teamJobLabel)
	job.AssignedTeamMembers = firstNonEmptyList(match.teamMembers, raw.Strings("teamMembers"), raw.Strings("assignedTeamMembers"))

	job.RescheduleRequest = r.rescheduleRequest(raw)
	return job
}

func (r *Resolver) rescheduleRequest(raw docstore.Document) *RescheduleRequest {
	for _, path := range []string{fieldRescheduleRequest, fieldLegacyReschedule} {
		data := raw.Map(path)
		if data == nil {
			continue
		}
		return &RescheduleRequest{
			RequestedBy:     data.String("requestedBy"),
			RequestedDate:   data.Time("requestedDate", r.loc),
			Reason:          data.String("reason"),
			NewProposedDate: data.Time("newProposedDate", r.loc),
			IsApproved:      data.Bool("isApproved"),
			ApprovedDate:    data.Time("approvedDate", r.loc),
			path:            path,
		}
	}
	return nil
}

// items joins a list of items, falling back to a plain string field.
func items(raw docstore.Document) string {
	if list := raw.Strings("items"); list != nil {
		if joined := strings.TrimSpace(strings.Join(list, ", ")); joined != "" {
			return joined
		}
	}
	return raw.FirstString("items", "item")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, list := range lists {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}
