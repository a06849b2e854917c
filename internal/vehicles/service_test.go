package vehicles

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox"
)

type stubTeams map[string][]string

func (s stubTeams) TeamIDsFor(ctx context.Context, employeeID string) ([]string, error) {
	return s[employeeID], nil
}

type stubRecorder struct {
	events []outbox.DomainEvent
}

func (s *stubRecorder) Record(ctx context.Context, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

// stealingRepo assigns the plate to someone else between read and write.
type stealingRepo struct {
	*Repository
	store *docstore.Memory
}

func (r stealingRepo) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	doc, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.store.Update(ctx, docstore.CollectionLicensePlates, id, docstore.Update{
		Set: map[string]any{"currentDriverId": "e9", "available": false},
	})
	return doc, err
}

var now = time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo platesRepository, recorder *stubRecorder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Teams:  stubTeams{"e1": {"t1"}, "e2": nil},
		Events: recorder,
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seed(t *testing.T, docs ...docstore.Document) *docstore.Memory {
	t.Helper()
	store := docstore.NewMemory()
	for _, doc := range docs {
		if _, err := store.Insert(context.Background(), docstore.CollectionLicensePlates, doc); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func employee(id string) Actor {
	return Actor{EmployeeID: id, Name: "Driver " + id, Role: enums.RoleEmployee}
}

func TestClassifyHeldBySelfAndOther(t *testing.T) {
	plate := Plate{PlateNum: "ABC123", Available: false, CurrentDriverID: "emp1"}

	self := Classify(plate, "emp1", "")
	if !self.HeldBySelf || !self.Available || self.HeldByOther {
		t.Fatalf("unexpected self classification %+v", self)
	}
	other := Classify(plate, "emp2", "")
	if !other.HeldByOther || other.Available || other.HeldBySelf {
		t.Fatalf("unexpected other classification %+v", other)
	}
}

func TestClassifyThroughTeam(t *testing.T) {
	plate := Plate{Available: false, CurrentDriverID: "emp9", CurrentTeamID: "t1"}

	if c := Classify(plate, "emp1", "t1"); !c.HeldBySelf {
		t.Fatalf("team holder should count as self, got %+v", c)
	}
	if c := ClassifyForTeams(plate, "emp1", []string{"t5", "t1"}); !c.HeldBySelf {
		t.Fatalf("any team match should count as self, got %+v", c)
	}
	if c := ClassifyForTeams(plate, "emp1", []string{"t5"}); !c.HeldByOther {
		t.Fatalf("expected held by other, got %+v", c)
	}
	free := Classify(Plate{Available: true}, "emp1", "")
	if !free.Available || free.HeldBySelf || free.HeldByOther {
		t.Fatalf("unexpected free classification %+v", free)
	}
}

func TestListClassifiesForRequesterTeams(t *testing.T) {
	store := seed(t,
		docstore.Document{"_id": "p2", "plateNum": "ZZZ999", "available": false, "currentDriverId": "e3", "currentTeamId": "t1"},
		docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": true},
		docstore.Document{"_id": "p3", "plateNum": "MMM555", "available": false, "currentDriverId": "e3"},
	)
	svc := newTestService(t, NewRepository(store), &stubRecorder{})

	views, err := svc.List(context.Background(), "e1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 3 || views[0].PlateNum != "AAA111" || views[2].PlateNum != "ZZZ999" {
		t.Fatalf("unexpected order %+v", views)
	}
	if !views[2].HeldBySelf {
		t.Fatalf("team-held plate should be held by self")
	}
	if !views[1].HeldByOther {
		t.Fatalf("plate driven by another employee should be held by other")
	}
}

func TestCreatePlate(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": true})
	recorder := &stubRecorder{}
	svc := newTestService(t, NewRepository(store), recorder)
	ctx := context.Background()

	admin := Actor{EmployeeID: "a1", Role: enums.RoleAdmin}
	plate, err := svc.Create(ctx, " bbb222 ", admin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if plate.PlateNum != "BBB222" || !plate.Available {
		t.Fatalf("unexpected plate %+v", plate)
	}
	if len(recorder.events) != 1 || recorder.events[0].EventType != enums.EventPlateCreated {
		t.Fatalf("expected plate_created event, got %+v", recorder.events)
	}

	_, err = svc.Create(ctx, "AAA111", admin)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = svc.Create(ctx, "  ", admin)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssignAndRelease(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": true})
	recorder := &stubRecorder{}
	svc := newTestService(t, NewRepository(store), recorder)
	ctx := context.Background()

	plate, err := svc.Assign(ctx, "p1", employee("e1"), &TeamRef{ID: "t1", Name: "Crew", Members: []string{"Alice"}})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if plate.Available || plate.CurrentDriverID != "e1" || plate.CurrentTeamID != "t1" {
		t.Fatalf("unexpected assigned plate %+v", plate)
	}

	_, err = svc.Assign(ctx, "p1", employee("e2"), nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodePreconditionFailed) {
		t.Fatalf("expected plate held by other, got %v", err)
	}
	_, err = svc.Release(ctx, "p1", employee("e2"))
	if !pkgerrors.IsCode(err, pkgerrors.CodePreconditionFailed) {
		t.Fatalf("employee must not release another driver's plate, got %v", err)
	}

	if _, err := svc.Assign(ctx, "p1", employee("e1"), nil); err != nil {
		t.Fatalf("re-assigning own plate should succeed: %v", err)
	}
	stored, _ := store.Get(ctx, docstore.CollectionLicensePlates, "p1")
	if stored.Has("currentTeamId") {
		t.Fatalf("assignment without team should clear team fields")
	}

	released, err := svc.Release(ctx, "p1", employee("e1"))
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !released.Available || released.CurrentDriverID != "" {
		t.Fatalf("unexpected released plate %+v", released)
	}
	stored, _ = store.Get(ctx, docstore.CollectionLicensePlates, "p1")
	if stored.Has("currentDriverId") || stored.Has("assignedAt") {
		t.Fatalf("release should clear holder fields, got %v", stored)
	}
	if len(recorder.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recorder.events))
	}
}

func TestAssignLosesRace(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": true})
	svc := newTestService(t, stealingRepo{Repository: NewRepository(store), store: store}, &stubRecorder{})

	_, err := svc.Assign(context.Background(), "p1", employee("e1"), nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodePreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	stored, _ := store.Get(context.Background(), docstore.CollectionLicensePlates, "p1")
	if stored.String("currentDriverId") != "e9" {
		t.Fatalf("winning assignment must survive, got %q", stored.String("currentDriverId"))
	}
}

func TestReleaseHeldBy(t *testing.T) {
	store := seed(t,
		docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": false, "currentDriverId": "e1"},
		docstore.Document{"_id": "p2", "plateNum": "BBB222", "available": false, "currentDriverId": "e1"},
		docstore.Document{"_id": "p3", "plateNum": "CCC333", "available": false, "currentDriverId": "e2"},
	)
	svc := newTestService(t, NewRepository(store), &stubRecorder{})
	ctx := context.Background()

	released, err := svc.ReleaseHeldBy(ctx, "e1", employee("e1"))
	if err != nil {
		t.Fatalf("release held by: %v", err)
	}
	if len(released) != 2 {
		t.Fatalf("expected 2 released plates, got %d", len(released))
	}
	other, _ := store.Get(ctx, docstore.CollectionLicensePlates, "p3")
	if other.String("currentDriverId") != "e2" {
		t.Fatalf("other driver's plate must stay assigned")
	}
}

func TestPlateWithoutAvailabilityFlagIsFree(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "ABC123"})
	svc := newTestService(t, NewRepository(store), &stubRecorder{})
	ctx := context.Background()

	views, err := svc.List(ctx, "e2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || !views[0].Classification.Available || views[0].HeldByOther || views[0].HeldBySelf {
		t.Fatalf("unflagged plate should be selectable, got %+v", views)
	}

	plate, err := svc.Assign(ctx, "p1", employee("e2"), nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if plate.Available || plate.CurrentDriverID != "e2" {
		t.Fatalf("unexpected assigned plate %+v", plate)
	}
	stored, _ := store.Get(ctx, docstore.CollectionLicensePlates, "p1")
	if available := stored.Bool("available"); available == nil || *available {
		t.Fatalf("assignment should store available=false, got %v", stored["available"])
	}
}

func TestAssignRefusesTeamOutsideMemberships(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": true})
	recorder := &stubRecorder{}
	svc := newTestService(t, NewRepository(store), recorder)
	ctx := context.Background()

	_, err := svc.Assign(ctx, "p1", employee("e2"), &TeamRef{ID: "t1", Name: "Crew"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign team, got %v", err)
	}
	stored, _ := store.Get(ctx, docstore.CollectionLicensePlates, "p1")
	if stored.Has("currentDriverId") || len(recorder.events) != 0 {
		t.Fatalf("refused assignment must not write, got %v", stored)
	}
}

func TestGetPlate(t *testing.T) {
	store := seed(t, docstore.Document{"_id": "p1", "plateNum": "AAA111", "available": false, "currentTeamId": "t1"})
	svc := newTestService(t, NewRepository(store), &stubRecorder{})

	plate, err := svc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if plate.CurrentTeamID != "t1" || plate.Available {
		t.Fatalf("unexpected plate %+v", plate)
	}
	_, err = svc.Get(context.Background(), "missing")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
