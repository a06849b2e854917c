package timeclock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/internal/teams"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/metrics"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox/payloads"
)

// NotifyTopic is the realtime topic clock changes are broadcast on.
const NotifyTopic = "timeclock"

const recentEntriesLimit = 100

type entriesRepository interface {
	FindOpen(ctx context.Context, employeeID string) ([]docstore.Document, error)
	FindAllOpen(ctx context.Context) ([]docstore.Document, error)
	FindByEmployee(ctx context.Context, employeeID string) ([]docstore.Document, error)
	List(ctx context.Context, limit int64) ([]docstore.Document, error)
	Insert(ctx context.Context, doc docstore.Document) (string, error)
	Update(ctx context.Context, id string, update docstore.Update) error
}

type membershipLookup interface {
	MembershipsFor(ctx context.Context, employeeID string) ([]teams.Membership, error)
}

type plateService interface {
	Get(ctx context.Context, plateID string) (*vehicles.Plate, error)
	Assign(ctx context.Context, plateID string, driver vehicles.Actor, team *vehicles.TeamRef) (*vehicles.Plate, error)
	Release(ctx context.Context, plateID string, actor vehicles.Actor) (*vehicles.Plate, error)
	ReleaseHeldBy(ctx context.Context, employeeID string, actor vehicles.Actor) ([]vehicles.Plate, error)
}

type employeeNames interface {
	NamesByID(ctx context.Context) (map[string]string, error)
}

type changeNotifier interface {
	Notify(topic string, payload any)
}

// Actor is the employee clocking in or out.
type Actor struct {
	EmployeeID string
	Name       string
	Role       enums.Role
}

func (a Actor) vehicleActor() vehicles.Actor {
	return vehicles.Actor{EmployeeID: a.EmployeeID, Name: a.Name, Role: a.Role}
}

// ClockInResult is the opened record and the plate taken out, if any.
type ClockInResult struct {
	Record ClockRecord     `json:"record"`
	Plate  *vehicles.Plate `json:"plate,omitempty"`
}

// ClockOutResult is the closed record and the plates handed back.
type ClockOutResult struct {
	Record         ClockRecord      `json:"record"`
	Hours          string           `json:"hours"`
	ReleasedPlates []vehicles.Plate `json:"released_plates"`
}

// Change is the realtime payload sent after a clock write.
type Change struct {
	EmployeeID string           `json:"employee_id"`
	EntryID    string           `json:"entry_id"`
	State      enums.ClockState `json:"state"`
}

// Service records clock-ins and clock-outs.
type Service interface {
	ClockIn(ctx context.Context, actor Actor, plateID string) (*ClockInResult, error)
	ClockOut(ctx context.Context, actor Actor) (*ClockOutResult, error)
	Status(ctx context.Context, employeeID string) (*Status, error)
	ActiveEntries(ctx context.Context) ([]ClockRecord, error)
	EntriesForEmployee(ctx context.Context, employeeID string) ([]TimeEntry, error)
	EntriesOnDay(ctx context.Context, day time.Time) ([]TimeEntry, error)
	RecentEntries(ctx context.Context) ([]TimeEntry, error)
}

// ServiceParams groups the collaborators of the time clock.
type ServiceParams struct {
	Repo      entriesRepository
	Teams     membershipLookup
	Plates    plateService
	Employees employeeNames
	Events    outbox.Recorder
	Notifier  changeNotifier
	Metrics   *metrics.WorkflowMetrics
	Logger    *logger.Logger
	Location  *time.Location
	Now       func() time.Time
}

type service struct {
	repo      entriesRepository
	teams     membershipLookup
	plates    plateService
	employees employeeNames
	events    outbox.Recorder
	notifier  changeNotifier
	metrics   *metrics.WorkflowMetrics
	logg      *logger.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("time entries repository required")
	}
	if params.Teams == nil {
		return nil, fmt.Errorf("team lookup required")
	}
	if params.Plates == nil {
		return nil, fmt.Errorf("plate service required")
	}
	if params.Employees == nil {
		return nil, fmt.Errorf("employee directory required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:      params.Repo,
		teams:     params.Teams,
		plates:    params.Plates,
		employees: params.Employees,
		events:    params.Events,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
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

// ClockIn opens a time entry. When plateID is set the plate is taken out
// first so a refused plate leaves the employee off the clock. A plate already
// held by one of the employee's teams stays with that team; otherwise it goes
// out on behalf of the employee's first team.
func (s *service) ClockIn(ctx context.Context, actor Actor, plateID string) (*ClockInResult, error) {
	if strings.TrimSpace(actor.EmployeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	ctx = s.logg.WithEmployeeID(ctx, actor.EmployeeID)

	open, err := s.openEntries(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already clocked in")
	}

	result := &ClockInResult{}
	plateID = strings.TrimSpace(plateID)
	if plateID != "" {
		team, err := s.teamForPlate(ctx, actor.EmployeeID, plateID)
		if err != nil {
			return nil, err
		}
		plate, err := s.plates.Assign(ctx, plateID, actor.vehicleActor(), team)
		if err != nil {
			return nil, err
		}
		result.Plate = plate
	}

	now := s.now()
	id, err := s.repo.Insert(ctx, docstore.Document{
		fieldEmployeeID:  actor.EmployeeID,
		fieldClockIn:     now,
		fieldClockOut:    nil,
		fieldDuration:    nil,
		fieldPayPeriodID: unassignedPayPeriod,
	})
	if err != nil {
		if result.Plate != nil {
			if _, releaseErr := s.plates.Release(ctx, result.Plate.ID, actor.vehicleActor()); releaseErr != nil {
				s.logg.Error(ctx, "failed to hand back plate after clock-in failure", releaseErr)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record clock in")
	}

	entry := TimeEntry{ID: id, EmployeeID: actor.EmployeeID, ClockIn: now, PayPeriodID: unassignedPayPeriod}
	result.Record = newRecord(entry, actor.Name, s.loc)

	s.metrics.IncClock("in")
	s.record(ctx, enums.EventClockedIn, actor, payloads.ClockEvent{
		EntryID:      id,
		EmployeeID:   actor.EmployeeID,
		EmployeeName: actor.Name,
		ClockIn:      now,
	})
	s.notify(actor.EmployeeID, id, enums.ClockStateClockedIn)
	s.logg.Info(ctx, "clock.in")
	return result, nil
}

// ClockOut closes the open entry, stores its duration in hours and hands back
// any plate the employee is driving.
func (s *service) ClockOut(ctx context.Context, actor Actor) (*ClockOutResult, error) {
	if strings.TrimSpace(actor.EmployeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	ctx = s.logg.WithEmployeeID(ctx, actor.EmployeeID)

	open, err := s.openEntries(ctx, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active clock in found")
	}
	entry := open[0]

	now := s.now()
	hours := HoursBetween(entry.ClockIn, now)
	hoursValue, _ := hours.Float64()
	err = s.repo.Update(ctx, entry.ID, docstore.Update{
		Set: map[string]any{
			fieldClockOut: now,
			fieldDuration: hoursValue,
		},
		Precondition: docstore.Filter{fieldClockOut: nil},
	})
	if err != nil {
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			s.metrics.IncConflict(docstore.CollectionTimeEntries)
		}
		return nil, docstore.TypedError(err, "no active clock in found")
	}

	entry.ClockOut = &now
	entry.Duration = &hours
	result := &ClockOutResult{
		Record: newRecord(entry, actor.Name, s.loc),
		Hours:  hours.StringFixed(hoursPrecision),
	}

	released, err := s.plates.ReleaseHeldBy(ctx, actor.EmployeeID, actor.vehicleActor())
	if err != nil {
		s.logg.Error(ctx, "failed to release plates at clock out", err)
	}
	result.ReleasedPlates = released
	if result.ReleasedPlates == nil {
		result.ReleasedPlates = []vehicles.Plate{}
	}

	s.metrics.IncClock("out")
	s.record(ctx, enums.EventClockedOut, actor, payloads.ClockEvent{
		EntryID:      entry.ID,
		EmployeeID:   actor.EmployeeID,
		EmployeeName: actor.Name,
		ClockIn:      entry.ClockIn,
		ClockOut:     &now,
		TotalHours:   result.Hours,
	})
	s.notify(actor.EmployeeID, entry.ID, enums.ClockStateClockedOut)
	s.logg.Info(ctx, "clock.out")
	return result, nil
}

// Status reports the open entry if there is one, otherwise whether the
// employee already clocked out today.
func (s *service) Status(ctx context.Context, employeeID string) (*Status, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	entries, err := s.EntriesForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	today := s.now().In(s.loc).Format(docstore.DateLayout)
	for _, entry := range entries {
		if entry.IsActive() {
			record := newRecord(entry, "", s.loc)
			return &Status{State: enums.ClockStateClockedIn, Record: &record}, nil
		}
	}
	for _, entry := range entries {
		if record := newRecord(entry, "", s.loc); record.Date == today {
			return &Status{State: enums.ClockStateClockedOut, Record: &record}, nil
		}
	}
	return &Status{State: enums.ClockStateNotClockedIn}, nil
}

// ActiveEntries lists everyone on the clock, most recent clock-in first.
// Entries whose employee record is gone are skipped.
func (s *service) ActiveEntries(ctx context.Context) ([]ClockRecord, error) {
	docs, err := s.repo.FindAllOpen(ctx)
	if err != nil {
		return nil, docstore.TypedError(err, "time entries not found")
	}
	names, err := s.employees.NamesByID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClockRecord, 0, len(docs))
	for _, raw := range docs {
		entry, ok := decodeEntry(raw)
		if !ok {
			continue
		}
		name, known := names[entry.EmployeeID]
		if !known {
			s.logg.Warn(s.logg.WithEmployeeID(ctx, entry.EmployeeID), "open time entry for unknown employee")
			continue
		}
		out = append(out, newRecord(entry, name, s.loc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClockInTime.After(out[j].ClockInTime)
	})
	return out, nil
}

// EntriesForEmployee lists the employee's entries, most recent first.
func (s *service) EntriesForEmployee(ctx context.Context, employeeID string) ([]TimeEntry, error) {
	docs, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		return nil, docstore.TypedError(err, "time entries not found")
	}
	return sortedEntries(docs), nil
}

// EntriesOnDay returns entries clocked in on the given day plus any entry
// still open from an earlier day, most recent first.
func (s *service) EntriesOnDay(ctx context.Context, day time.Time) ([]TimeEntry, error) {
	docs, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, docstore.TypedError(err, "time entries not found")
	}
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.Add(24 * time.Hour)
	out := make([]TimeEntry, 0)
	for _, entry := range sortedEntries(docs) {
		onDay := !entry.ClockIn.Before(start) && entry.ClockIn.Before(end)
		carried := entry.IsActive() && entry.ClockIn.Before(start)
		if onDay || carried {
			out = append(out, entry)
		}
	}
	return out, nil
}

// RecentEntries returns the latest entries across all employees.
func (s *service) RecentEntries(ctx context.Context) ([]TimeEntry, error) {
	docs, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, docstore.TypedError(err, "time entries not found")
	}
	entries := sortedEntries(docs)
	if len(entries) > recentEntriesLimit {
		entries = entries[:recentEntriesLimit]
	}
	return entries, nil
}

func (s *service) openEntries(ctx context.Context, employeeID string) ([]TimeEntry, error) {
	docs, err := s.repo.FindOpen(ctx, employeeID)
	if err != nil {
		return nil, docstore.TypedError(err, "time entries not found")
	}
	return sortedEntries(docs), nil
}

func (s *service) teamForPlate(ctx context.Context, employeeID, plateID string) (*vehicles.TeamRef, error) {
	memberships, err := s.teams.MembershipsFor(ctx, employeeID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup team memberships")
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	plate, err := s.plates.Get(ctx, plateID)
	if err != nil {
		return nil, err
	}
	chosen := memberships[0]
	for _, m := range memberships {
		if plate.CurrentTeamID != "" && m.TeamID == plate.CurrentTeamID {
			chosen = m
			break
		}
	}
	return &vehicles.TeamRef{ID: chosen.TeamID, Name: chosen.TeamName, Members: chosen.MemberNames}, nil
}

func (s *service) record(ctx context.Context, eventType enums.OutboxEventType, actor Actor, data payloads.ClockEvent) {
	err := s.events.Record(ctx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTimeEntry,
		AggregateID:   data.EntryID,
		Actor:         &outbox.ActorRef{EmployeeID: actor.EmployeeID, Name: actor.Name, Role: string(actor.Role)},
		OccurredAt:    s.now(),
		Data:          data,
	})
	if err != nil {
		s.logg.Error(ctx, "failed to record clock event", err)
	}
}

func (s *service) notify(employeeID, entryID string, state enums.ClockState) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(NotifyTopic, Change{EmployeeID: employeeID, EntryID: entryID, State: state})
}

func sortedEntries(docs []docstore.Document) []TimeEntry {
	out := make([]TimeEntry, 0, len(docs))
	for _, raw := range docs {
		if entry, ok := decodeEntry(raw); ok {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClockIn.After(out[j].ClockIn)
	})
	return out
}
