package vehicles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/metrics"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox/payloads"
)

// NotifyTopic is the realtime topic plate changes are broadcast on.
const NotifyTopic = "plates"

type platesRepository interface {
	List(ctx context.Context) ([]docstore.Document, error)
	FindByID(ctx context.Context, id string) (docstore.Document, error)
	FindByDriver(ctx context.Context, employeeID string) ([]docstore.Document, error)
	FindByPlateNum(ctx context.Context, plateNum string) ([]docstore.Document, error)
	Insert(ctx context.Context, doc docstore.Document) (string, error)
	Update(ctx context.Context, id string, update docstore.Update) error
}

type teamLookup interface {
	TeamIDsFor(ctx context.Context, employeeID string) ([]string, error)
}

type changeNotifier interface {
	Notify(topic string, payload any)
}

// Actor is the authenticated caller of a plate operation.
type Actor struct {
	EmployeeID string
	Name       string
	Role       enums.Role
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{EmployeeID: a.EmployeeID, Name: a.Name, Role: string(a.Role)}
}

// Change is the realtime payload sent after a plate write.
type Change struct {
	PlateID   string `json:"plate_id"`
	PlateNum  string `json:"plate_num"`
	Action    string `json:"action"`
	Available bool   `json:"available"`
	DriverID  string `json:"driver_id,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
}

// Service manages fleet vehicles and who holds them.
type Service interface {
	List(ctx context.Context, requesterID string) ([]PlateView, error)
	Get(ctx context.Context, plateID string) (*Plate, error)
	Create(ctx context.Context, plateNum string, actor Actor) (*Plate, error)
	Assign(ctx context.Context, plateID string, driver Actor, team *TeamRef) (*Plate, error)
	Release(ctx context.Context, plateID string, actor Actor) (*Plate, error)
	ReleaseHeldBy(ctx context.Context, employeeID string, actor Actor) ([]Plate, error)
}

// ServiceParams groups the collaborators of the vehicle service.
type ServiceParams struct {
	Repo     platesRepository
	Teams    teamLookup
	Events   outbox.Recorder
	Notifier changeNotifier
	Metrics  *metrics.WorkflowMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     platesRepository
	teams    teamLookup
	events   outbox.Recorder
	notifier changeNotifier
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("plates repository required")
	}
	if params.Teams == nil {
		return nil, fmt.Errorf("team lookup required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		teams:    params.Teams,
		events:   params.Events,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, requesterID string) ([]PlateView, error) {
	teamIDs, err := s.teamIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, docstore.TypedError(err, "plates not found")
	}
	out := make([]PlateView, 0, len(docs))
	for _, doc := range docs {
		plate := decodePlate(doc)
		out = append(out, PlateView{Plate: plate, Classification: ClassifyForTeams(plate, requesterID, teamIDs)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlateNum < out[j].PlateNum
	})
	return out, nil
}

func (s *service) Get(ctx context.Context, plateID string) (*Plate, error) {
	_, plate, err := s.load(ctx, plateID)
	if err != nil {
		return nil, err
	}
	return &plate, nil
}

func (s *service) Create(ctx context.Context, plateNum string, actor Actor) (*Plate, error) {
	plateNum = strings.ToUpper(strings.TrimSpace(plateNum))
	if plateNum == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plate number is required")
	}
	existing, err := s.repo.FindByPlateNum(ctx, plateNum)
	if err != nil {
		return nil, docstore.TypedError(err, "plate not found")
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "plate already exists")
	}

	now := s.now()
	id, err := s.repo.Insert(ctx, docstore.Document{
		fieldPlateNum:  plateNum,
		fieldAvailable: true,
		fieldCreatedAt: now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plate")
	}
	plate := &Plate{ID: id, PlateNum: plateNum, Available: true, CreatedAt: &now}

	s.metrics.IncVehicle("created")
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventPlateCreated,
		AggregateType: enums.AggregateLicensePlate,
		AggregateID:   id,
		Actor:         actor.ref(),
		OccurredAt:    now,
		Data:          payloads.PlateCreatedEvent{PlateID: id, PlateNum: plateNum, CreatedAt: now},
	})
	s.notify(*plate, "created")
	s.logg.Info(s.logg.WithField(ctx, "plate_id", id), "plate.created")
	return plate, nil
}

// Assign hands the plate to driver, optionally on behalf of team. team must be
// one of the driver's teams. Plates held by someone else are refused, and the
// write only lands if the holder did not change since the plate was read.
func (s *service) Assign(ctx context.Context, plateID string, driver Actor, team *TeamRef) (*Plate, error) {
	ctx = s.logg.WithField(ctx, "plate_id", plateID)
	if strings.TrimSpace(driver.EmployeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver identity missing")
	}
	raw, plate, err := s.load(ctx, plateID)
	if err != nil {
		return nil, err
	}
	teamIDs, err := s.teamIDs(ctx, driver.EmployeeID)
	if err != nil {
		return nil, err
	}
	if team != nil && team.ID != "" && !contains(teamIDs, team.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this team").
			WithDetails(map[string]any{"team_id": team.ID})
	}
	if ClassifyForTeams(plate, driver.EmployeeID, teamIDs).HeldByOther {
		return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "vehicle is held by another driver").
			WithDetails(map[string]any{"current_driver_name": plate.CurrentDriverName, "current_team_name": plate.CurrentTeamName})
	}

	now := s.now()
	update := docstore.Update{
		Set: map[string]any{
			fieldCurrentDriverID:   driver.EmployeeID,
			fieldCurrentDriverName: driver.Name,
			fieldAssignedAt:        now,
			fieldAvailable:         false,
		},
		Precondition: raw.Snapshot(fieldCurrentDriverID, fieldCurrentTeamID, fieldAvailable),
	}
	if team != nil && team.ID != "" {
		update.Set[fieldCurrentTeamID] = team.ID
		update.Set[fieldCurrentTeamName] = team.Name
		update.Set[fieldCurrentTeamMembers] = team.Members
	} else {
		update.Unset = []string{fieldCurrentTeamID, fieldCurrentTeamName, fieldCurrentTeamMembers}
	}
	if err := s.update(ctx, plateID, update); err != nil {
		return nil, err
	}

	plate.CurrentDriverID = driver.EmployeeID
	plate.CurrentDriverName = driver.Name
	plate.AssignedAt = &now
	plate.Available = false
	plate.CurrentTeamID, plate.CurrentTeamName, plate.CurrentTeamMembers = "", "", nil
	if team != nil && team.ID != "" {
		plate.CurrentTeamID = team.ID
		plate.CurrentTeamName = team.Name
		plate.CurrentTeamMembers = team.Members
	}

	event := payloads.PlateAssignedEvent{
		PlateID:    plate.ID,
		PlateNum:   plate.PlateNum,
		DriverID:   driver.EmployeeID,
		DriverName: driver.Name,
		AssignedAt: now,
	}
	if team != nil {
		event.TeamID, event.TeamName, event.TeamMembers = team.ID, team.Name, team.Members
	}
	s.metrics.IncVehicle("assigned")
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventPlateAssigned,
		AggregateType: enums.AggregateLicensePlate,
		AggregateID:   plate.ID,
		Actor:         driver.ref(),
		OccurredAt:    now,
		Data:          event,
	})
	s.notify(plate, "assigned")
	s.logg.Info(ctx, "plate.assigned")
	return &plate, nil
}

// Release clears the holder and marks the plate available. Employees may only
// release plates they hold; admins may release any plate.
func (s *service) Release(ctx context.Context, plateID string, actor Actor) (*Plate, error) {
	ctx = s.logg.WithField(ctx, "plate_id", plateID)
	raw, plate, err := s.load(ctx, plateID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleAdmin {
		teamIDs, err := s.teamIDs(ctx, actor.EmployeeID)
		if err != nil {
			return nil, err
		}
		if c := ClassifyForTeams(plate, actor.EmployeeID, teamIDs); c.HeldByOther {
			return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "vehicle is held by another driver")
		}
	}
	released, err := s.release(ctx, raw, plate, actor)
	if err != nil {
		return nil, err
	}
	return &released, nil
}

// ReleaseHeldBy frees every plate employeeID is driving.
func (s *service) ReleaseHeldBy(ctx context.Context, employeeID string, actor Actor) ([]Plate, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	docs, err := s.repo.FindByDriver(ctx, employeeID)
	if err != nil {
		return nil, docstore.TypedError(err, "plates not found")
	}
	out := make([]Plate, 0, len(docs))
	for _, raw := range docs {
		released, err := s.release(s.logg.WithField(ctx, "plate_id", raw.ID()), raw, decodePlate(raw), actor)
		if err != nil {
			return out, err
		}
		out = append(out, released)
	}
	return out, nil
}

func (s *service) release(ctx context.Context, raw docstore.Document, plate Plate, actor Actor) (Plate, error) {
	now := s.now()
	update := docstore.Update{
		Set:          map[string]any{fieldAvailable: true},
		Unset:        holderFields,
		Precondition: raw.Snapshot(fieldCurrentDriverID, fieldCurrentTeamID),
	}
	if err := s.update(ctx, plate.ID, update); err != nil {
		return Plate{}, err
	}

	plate.Available = true
	plate.CurrentDriverID, plate.CurrentDriverName = "", ""
	plate.CurrentTeamID, plate.CurrentTeamName, plate.CurrentTeamMembers = "", "", nil
	plate.AssignedAt = nil

	s.metrics.IncVehicle("released")
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventPlateReleased,
		AggregateType: enums.AggregateLicensePlate,
		AggregateID:   plate.ID,
		Actor:         actor.ref(),
		OccurredAt:    now,
		Data: payloads.PlateReleasedEvent{
			PlateID:    plate.ID,
			PlateNum:   plate.PlateNum,
			ReleasedBy: actor.EmployeeID,
			ReleasedAt: now,
		},
	})
	s.notify(plate, "released")
	s.logg.Info(ctx, "plate.released")
	return plate, nil
}

func (s *service) load(ctx context.Context, plateID string) (docstore.Document, Plate, error) {
	if strings.TrimSpace(plateID) == "" {
		return nil, Plate{}, pkgerrors.New(pkgerrors.CodeValidation, "plate id is required")
	}
	raw, err := s.repo.FindByID(ctx, plateID)
	if err != nil {
		return nil, Plate{}, docstore.TypedError(err, "plate not found")
	}
	return raw, decodePlate(raw), nil
}

func (s *service) update(ctx context.Context, plateID string, update docstore.Update) error {
	err := s.repo.Update(ctx, plateID, update)
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		s.metrics.IncConflict(docstore.CollectionLicensePlates)
		s.logg.Warn(ctx, "plate write precondition failed")
	}
	return docstore.TypedError(err, "plate not found")
}

func (s *service) teamIDs(ctx context.Context, employeeID string) ([]string, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, nil
	}
	ids, err := s.teams.TeamIDsFor(ctx, employeeID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup team memberships")
	}
	return ids, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *service) record(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logg.Error(ctx, "failed to record plate event", err)
	}
}

func (s *service) notify(plate Plate, action string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(NotifyTopic, Change{
		PlateID:   plate.ID,
		PlateNum:  plate.PlateNum,
		Action:    action,
		Available: plate.Available,
		DriverID:  plate.CurrentDriverID,
		TeamID:    plate.CurrentTeamID,
	})
}
