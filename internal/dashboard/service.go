package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qualitysquare/fieldops-backend/internal/employees"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type jobLister interface {
	ListAllOnDay(ctx context.Context, day time.Time) ([]jobs.Job, error)
	ListPendingReschedules(ctx context.Context) ([]jobs.Job, error)
}

type employeeLister interface {
	ListActive(ctx context.Context) ([]employees.Employee, error)
}

type entryLister interface {
	EntriesOnDay(ctx context.Context, day time.Time) ([]timeclock.TimeEntry, error)
}

// EmployeeStatus is one row of the admin roster.
type EmployeeStatus struct {
	EmployeeID string           `json:"employee_id"`
	Name       string           `json:"name"`
	State      enums.ClockState `json:"state"`
	ClockIn    *time.Time       `json:"clock_in,omitempty"`
	ClockOut   *time.Time       `json:"clock_out,omitempty"`
	Hours      string           `json:"hours"`
}

// Counts are the headline numbers of the dashboard.
type Counts struct {
	ClockedIn          int            `json:"clocked_in"`
	ClockedOut         int            `json:"clocked_out"`
	NotClockedIn       int            `json:"not_clocked_in"`
	JobsToday          int            `json:"jobs_today"`
	JobsByStatus       map[string]int `json:"jobs_by_status"`
	PendingReschedules int            `json:"pending_reschedules"`
}

// Overview is the admin dashboard for a single day.
type Overview struct {
	Date       string           `json:"date"`
	Employees  []EmployeeStatus `json:"employees"`
	Counts     Counts           `json:"counts"`
	TotalHours string           `json:"total_hours"`
}

// Service builds the admin dashboard and its exports.
type Service interface {
	Overview(ctx context.Context, day time.Time) (*Overview, error)
	ExportJobs(ctx context.Context, day time.Time) (*Export, error)
}

type ServiceParams struct {
	Jobs      jobLister
	Employees employeeLister
	Entries   entryLister
	Logger    *logger.Logger
	Location  *time.Location
	Now       func() time.Time
}

type service struct {
	jobs      jobLister
	employees employeeLister
	entries   entryLister
	logg      *logger.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Jobs == nil {
		return nil, fmt.Errorf("job service required")
	}
	if params.Employees == nil {
		return nil, fmt.Errorf("employee service required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("time clock service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		jobs:      params.Jobs,
		employees: params.Employees,
		entries:   params.Entries,
		logg:      params.Logger,
		loc:       params.Location,
		now:       params.Now,
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Overview(ctx context.Context, day time.Time) (*Overview, error) {
	roster, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.EntriesOnDay(ctx, day)
	if err != nil {
		return nil, err
	}
	todays, err := s.jobs.ListAllOnDay(ctx, day)
	if err != nil {
		return nil, err
	}
	pending, err := s.jobs.ListPendingReschedules(ctx)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[string][]timeclock.TimeEntry, len(roster))
	for _, entry := range entries {
		byEmployee[entry.EmployeeID] = append(byEmployee[entry.EmployeeID], entry)
	}

	now := s.now()
	total := decimal.Zero
	overview := &Overview{
		Date:      day.In(s.loc).Format(docstore.DateLayout),
		Employees: make([]EmployeeStatus, 0, len(roster)),
		Counts: Counts{
			JobsToday:          len(todays),
			JobsByStatus:       make(map[string]int),
			PendingReschedules: len(pending),
		},
	}
	for _, emp := range roster {
		status, hours := employeeStatus(emp, byEmployee[emp.ID], now)
		total = total.Add(hours)
		switch status.State {
		case enums.ClockStateClockedIn:
			overview.Counts.ClockedIn++
		case enums.ClockStateClockedOut:
			overview.Counts.ClockedOut++
		default:
			overview.Counts.NotClockedIn++
		}
		overview.Employees = append(overview.Employees, status)
	}
	for _, job := range todays {
		overview.Counts.JobsByStatus[job.Status.DisplayName()]++
	}
	overview.TotalHours = total.StringFixed(2)
	return overview, nil
}

// employeeStatus folds the day's entries (most recent first) into a roster
// row. Open entries count up to now.
func employeeStatus(emp employees.Employee, entries []timeclock.TimeEntry, now time.Time) (EmployeeStatus, decimal.Decimal) {
	status := EmployeeStatus{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		State:      enums.ClockStateNotClockedIn,
	}
	hours := decimal.Zero
	for _, entry := range entries {
		hours = hours.Add(entry.HoursAt(now))
	}
	status.Hours = hours.StringFixed(2)
	if len(entries) == 0 {
		return status, hours
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ClockIn.After(entries[j].ClockIn)
	})
	latest := entries[0]
	clockIn := latest.ClockIn
	status.ClockIn = &clockIn
	status.ClockOut = latest.ClockOut
	status.State = enums.ClockStateClockedOut
	for _, entry := range entries {
		if entry.IsActive() {
			status.State = enums.ClockStateClockedIn
			status.ClockOut = nil
			break
		}
	}
	return status, hours
}
