package enums

import "testing"

func TestMapJobStatusTokens(t *testing.T) {
	cases := map[string]JobStatus{
		"picking_up":  JobStatusPickingUp,
		"Picking Up":  JobStatusPickingUp,
		"pick up":     JobStatusPickUp,
		"En Route":    JobStatusEnRoute,
		"IN_PROGRESS": JobStatusInProgress,
		"delivering":  JobStatusInProgress,
		"Started":     JobStatusInProgress,
		"Rescheduled": JobStatusRescheduled,
		"cancelled":   JobStatusCancelled,
		"complete":    JobStatusComplete,
		"Completed":   JobStatusCompleted,
		"":            JobStatusScheduled,
		"on hold":     JobStatusScheduled,
		"canceled":    JobStatusScheduled,
	}
	for raw, want := range cases {
		if got := MapJobStatus(raw); got != want {
			t.Fatalf("MapJobStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMapJobStatusIsIdempotent(t *testing.T) {
	for _, raw := range []string{"picking_up", "whatever", "Completed", "en route", "Pick Up"} {
		once := MapJobStatus(raw)
		if twice := MapJobStatus(string(once)); twice != once {
			t.Fatalf("mapping %q is not idempotent: %q then %q", raw, once, twice)
		}
	}
}

func TestCompleteSynonymsCompareEqual(t *testing.T) {
	a := MapJobStatus("complete")
	b := MapJobStatus("Completed")
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatalf("expected %q and %q to compare equal", a, b)
	}
	if !a.IsComplete() || !b.IsComplete() {
		t.Fatalf("expected both spellings to be complete")
	}
	if JobStatusEnRoute.Equal(JobStatusComplete) {
		t.Fatalf("en route must not equal complete")
	}
}

func TestJobStatusDisplayName(t *testing.T) {
	if JobStatusPickUp.DisplayName() != "Picked Up" {
		t.Fatalf("unexpected pick up label %q", JobStatusPickUp.DisplayName())
	}
	if JobStatusCompleted.DisplayName() != "Complete" {
		t.Fatalf("unexpected completed label %q", JobStatusCompleted.DisplayName())
	}
	if JobStatusEnRoute.DisplayName() != "En Route" {
		t.Fatalf("unexpected en route label %q", JobStatusEnRoute.DisplayName())
	}
}

func TestParseJobStatus(t *testing.T) {
	if got, err := ParseJobStatus("En Route"); err != nil || got != JobStatusEnRoute {
		t.Fatalf("expected En Route, got %q (%v)", got, err)
	}
	if got, err := ParseJobStatus("in_progress"); err != nil || got != JobStatusInProgress {
		t.Fatalf("expected In Progress, got %q (%v)", got, err)
	}
	if _, err := ParseJobStatus("teleported"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestParseEmployeeStatusDefaultsActive(t *testing.T) {
	if !ParseEmployeeStatus("").IsActive() {
		t.Fatalf("missing status should default to active")
	}
	if !ParseEmployeeStatus(" Active ").IsActive() {
		t.Fatalf("status comparison should ignore case")
	}
	if ParseEmployeeStatus("terminated").IsActive() {
		t.Fatalf("terminated should not be active")
	}
}
