package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

const (
	productID    = "-//Quality Square//Field Ops//EN"
	uidDomain    = "fieldops.qualitysquare"
	visitLength  = 2 * time.Hour
	clockLayout  = "3:04 PM"
	ContentType  = "text/calendar; charset=utf-8"
	calendarName = "Field Ops Jobs"
)

type jobHistory interface {
	HistoryForEmployee(ctx context.Context, employeeID string) ([]jobs.Job, error)
}

// Service renders an employee's visible jobs as an iCalendar feed.
type Service interface {
	FeedForEmployee(ctx context.Context, employeeID string) (string, error)
}

type service struct {
	jobs jobHistory
	loc  *time.Location
	now  func() time.Time
}

func NewService(jobs jobHistory, loc *time.Location, now func() time.Time) (Service, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job service required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &service{jobs: jobs, loc: loc, now: now}, nil
}

// FeedForEmployee lists every dated job the employee can see. Jobs with only
// a date become all-day events.
func (s *service) FeedForEmployee(ctx context.Context, employeeID string) (string, error) {
	list, err := s.jobs.HistoryForEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(calendarName)

	stamp := s.now().UTC()
	for _, job := range list {
		if job.ScheduledDate == nil {
			continue
		}
		s.addEvent(cal, job, stamp)
	}
	return cal.Serialize(), nil
}

func (s *service) addEvent(cal *ics.Calendar, job jobs.Job, stamp time.Time) {
	event := cal.AddEvent(fmt.Sprintf("%s@%s", job.ID, uidDomain))
	event.SetDtStampTime(stamp)
	event.SetSummary(summary(job))
	if job.ClientAddress != "" {
		event.SetLocation(job.ClientAddress)
	}
	if desc := description(job); desc != "" {
		event.SetDescription(desc)
	}
	if job.Status == enums.JobStatusCancelled {
		event.SetStatus(ics.ObjectStatusCancelled)
	} else {
		event.SetStatus(ics.ObjectStatusConfirmed)
	}

	start, timed := s.startOf(job)
	if !timed {
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		return
	}
	event.SetStartAt(start)
	event.SetEndAt(start.Add(visitLength))
}

// startOf combines the scheduled date with the scheduled clock time. A start
// at local midnight means no time of day is known.
func (s *service) startOf(job jobs.Job) (time.Time, bool) {
	local := job.ScheduledDate.In(s.loc)
	hour, minute := local.Hour(), local.Minute()
	if clock, err := time.Parse(clockLayout, strings.ToUpper(strings.TrimSpace(job.ScheduledTime))); err == nil {
		hour, minute = clock.Hour(), clock.Minute()
	}
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, s.loc)
	return start, hour != 0 || minute != 0
}

func summary(job jobs.Job) string {
	title := job.ClientName
	if title == "" {
		title = job.JobNumber
	}
	if title == "" {
		title = "Job " + job.ID
	}
	if job.InstallType != "" && job.InstallType != "N/A" {
		title = fmt.Sprintf("%s (%s)", title, job.InstallType)
	}
	return title
}

func description(job jobs.Job) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Status", job.Status.DisplayName())
	add("Time frame", job.TimeFrame)
	add("Items", job.Items)
	add("Phone", job.ClientPhone)
	add("Pickup", job.PickUpAddress)
	if len(job.AssignedTeamMembers) > 0 {
		add("Team", strings.Join(job.AssignedTeamMembers, ", "))
	}
	add("Notes", job.Notes)
	return strings.Join(lines, "\n")
}
