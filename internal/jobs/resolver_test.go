package jobs

import (
	"testing"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

func teams(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestResolveForRequesterMatchesTeamMemberEntry(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id": "job-1",
		"assignments": []any{
			map[string]any{"type": "team-member", "employeeId": "e1", "employeeName": "Alice", "date": "2024-01-05"},
		},
		"status": "picking_up",
	}

	job, ok := r.ResolveForRequester(raw, "e1", nil)
	if !ok {
		t.Fatalf("expected job to be visible")
	}
	if job.AssignedEmployeeName != "Alice" {
		t.Fatalf("expected Alice, got %q", job.AssignedEmployeeName)
	}
	if job.Status != enums.JobStatusPickingUp {
		t.Fatalf("expected Picking Up, got %q", job.Status)
	}
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if job.ScheduledDate == nil || !job.ScheduledDate.Equal(want) {
		t.Fatalf("expected scheduled date %v, got %v", want, job.ScheduledDate)
	}
}

func TestResolveForRequesterHidesUnrelatedJobs(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id": "job-2",
		"assignments": []any{
			map[string]any{"type": "team-member", "employeeId": "e9", "employeeName": "Zed"},
			map[string]any{"type": "team", "teamId": "t9", "teamName": "Night Crew"},
		},
	}

	if _, ok := r.ResolveForRequester(raw, "e1", teams("t1")); ok {
		t.Fatalf("expected job to be hidden")
	}
	if _, ok := r.ResolveForRequester(docstore.Document{"_id": "bare"}, "e1", teams("t1")); ok {
		t.Fatalf("expected job without assignments to be hidden")
	}
}

func TestResolveForRequesterTeamMatch(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id": "job-3",
		"assignments": []any{
			map[string]any{
				"type":        "team",
				"teamId":      "t1",
				"teamName":    "Install Crew",
				"teamMembers": []any{"Alice", "Bob"},
				"date":        time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
			},
		},
	}

	job, ok := r.ResolveForRequester(raw, "e1", teams("t1"))
	if !ok {
		t.Fatalf("expected team job to be visible")
	}
	if job.AssignedTeamID != "t1" || job.AssignedTeamName != "Install Crew" {
		t.Fatalf("unexpected team fields %+v", job)
	}
	if job.AssignedEmployeeID != "t1" || job.AssignedEmployeeName != "Install Crew" {
		t.Fatalf("expected team fields as assignee fallback, got %q/%q", job.AssignedEmployeeID, job.AssignedEmployeeName)
	}
	if len(job.AssignedTeamMembers) != 2 || job.AssignedTeamMembers[1] != "Bob" {
		t.Fatalf("unexpected team members %v", job.AssignedTeamMembers)
	}
	if !job.IsTeamJob() {
		t.Fatalf("expected team job")
	}
	if job.ScheduledTime != "9:30 AM" {
		t.Fatalf("expected derived time, got %q", job.ScheduledTime)
	}
}

func TestResolveForRequesterKeepsBothEmployeeAndTeamFields(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id": "job-4",
		"assignments": []any{
			map[string]any{"type": "team", "teamId": "t1", "teamName": "Install Crew", "date": "2024-03-01"},
			map[string]any{"type": "team-member", "employeeId": "e1", "employeeName": "Alice", "date": "2024-03-02"},
		},
	}

	job, ok := r.ResolveForRequester(raw, "e1", teams("t1"))
	if !ok {
		t.Fatalf("expected visible")
	}
	if job.AssignedEmployeeName != "Alice" {
		t.Fatalf("employee fields should take display precedence, got %q", job.AssignedEmployeeName)
	}
	if job.AssignedTeamName != "Install Crew" {
		t.Fatalf("team fields should be preserved, got %q", job.AssignedTeamName)
	}
	if got := job.ScheduledDate.Format(docstore.DateLayout); got != "2024-03-02" {
		t.Fatalf("expected last matching date, got %s", got)
	}
}

func TestResolveForAdminUsesFirstAssignment(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id": "job-5",
		"assignments": []any{
			map[string]any{"type": "team-member", "employeeId": "e1", "employeeName": "Alice", "date": "2024-04-01"},
			map[string]any{"type": "team-member", "employeeId": "e2", "employeeName": "Bea", "date": "2024-04-02"},
		},
	}

	job := r.ResolveForAdmin(raw)
	if job.AssignedEmployeeID != "e1" || job.AssignedEmployeeName != "Alice" {
		t.Fatalf("expected first assignment, got %q/%q", job.AssignedEmployeeID, job.AssignedEmployeeName)
	}
	if got := job.ScheduledDate.Format(docstore.DateLayout); got != "2024-04-01" {
		t.Fatalf("expected first entry date, got %s", got)
	}

	unassigned := r.ResolveForAdmin(docstore.Document{"_id": "job-6"})
	if unassigned.AssignedEmployeeID != "unassigned" || unassigned.AssignedEmployeeName != "Team Job" {
		t.Fatalf("unexpected defaults %q/%q", unassigned.AssignedEmployeeID, unassigned.AssignedEmployeeName)
	}
}

func TestNormalizeFallbackChains(t *testing.T) {
	r := NewResolver(time.UTC)
	raw := docstore.Document{
		"_id":           "job-7",
		"jobNumber":     "QS-1001",
		"customerName":  "   ",
		"address":       "12 Main St",
		"phoneNumber":   "555-0100",
		"dolibarrId":    "DOLI-9",
		"pickupAddress": "Warehouse 3",
		"items":         []any{"Sofa", "Chair"},
		"installDate":   "2024-05-06",
		"requests": map[string]any{
			"status":       "Completed",
			"timeFrame":    "8-10",
			"storeCompany": "Furniture Co",
		},
		"status":      "in_progress",
		"teamMembers": []any{"Carl"},
	}

	job := r.ResolveForAdmin(raw)
	checks := map[string][2]string{
		"client name":    {job.ClientName, "QS-1001"},
		"client address": {job.ClientAddress, "12 Main St"},
		"client phone":   {job.ClientPhone, "555-0100"},
		"doli number":    {job.DoliNumber, "DOLI-9"},
		"pickup":         {job.PickUpAddress, "Warehouse 3"},
		"items":          {job.Items, "Sofa, Chair"},
		"time frame":     {job.TimeFrame, "8-10"},
		"store company":  {job.StoreCompany, "Furniture Co"},
		"install type":   {job.InstallType, "N/A"},
	}
	for name, pair := range checks {
		if pair[0] != pair[1] {
			t.Fatalf("%s: expected %q, got %q", name, pair[1], pair[0])
		}
	}
	if job.Status != enums.JobStatusCompleted {
		t.Fatalf("expected request status to win, got %q", job.Status)
	}
	if got := job.ScheduledDate.Format(docstore.DateLayout); got != "2024-05-06" {
		t.Fatalf("expected installDate fallback, got %s", got)
	}
	if len(job.AssignedTeamMembers) != 1 || job.AssignedTeamMembers[0] != "Carl" {
		t.Fatalf("expected raw team members, got %v", job.AssignedTeamMembers)
	}
}

func TestNormalizeItemsStringAndMissingDate(t *testing.T) {
	r := NewResolver(time.UTC)
	job := r.ResolveForAdmin(docstore.Document{
		"_id":    "job-8",
		"item":   "Dining table",
		"status": "definitely-not-a-status",
	})
	if job.Items != "Dining table" {
		t.Fatalf("expected item fallback, got %q", job.Items)
	}
	if job.ScheduledDate != nil || job.ScheduledTime != "" {
		t.Fatalf("expected no schedule, got %v %q", job.ScheduledDate, job.ScheduledTime)
	}
	if job.Status != enums.JobStatusScheduled {
		t.Fatalf("unknown status should map to Scheduled, got %q", job.Status)
	}
	if job.ScheduledOn(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("undated job must not match a day")
	}
}

func TestResolveRescheduleRequestSources(t *testing.T) {
	r := NewResolver(time.UTC)
	canonical := r.ResolveForAdmin(docstore.Document{
		"_id": "job-9",
		"rescheduleRequest": map[string]any{
			"requestedBy": "Alice",
			"reason":      "Client away",
			"isApproved":  true,
		},
	})
	if canonical.RescheduleRequest == nil || canonical.RescheduleRequest.Path() != "rescheduleRequest" {
		t.Fatalf("expected canonical request, got %+v", canonical.RescheduleRequest)
	}
	if canonical.RescheduleRequest.State() != enums.RescheduleStateApproved {
		t.Fatalf("expected approved, got %s", canonical.RescheduleRequest.State())
	}

	legacy := r.ResolveForAdmin(docstore.Document{
		"_id": "job-10",
		"requests": map[string]any{
			"reschedule": map[string]any{"requestedBy": "Bob", "reason": "Truck broke down"},
		},
	})
	if legacy.RescheduleRequest == nil || legacy.RescheduleRequest.Path() != "requests.reschedule" {
		t.Fatalf("expected legacy request, got %+v", legacy.RescheduleRequest)
	}
	if !legacy.RescheduleRequest.IsPending() {
		t.Fatalf("expected pending legacy request")
	}

	none := r.ResolveForAdmin(docstore.Document{"_id": "job-11"})
	if none.RescheduleRequest.State() != enums.RescheduleStateNone {
		t.Fatalf("expected no request")
	}
}
