package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qualitysquare/fieldops-backend/api/middleware"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/internal/teams"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/types"
)

var testLogger = logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

// stubJobs satisfies jobs.Service; unset methods panic through the nil embed.
type stubJobs struct {
	jobs.Service
	listDayFn  func(ctx context.Context, employeeID string, day time.Time) ([]jobs.Job, error)
	advanceFn  func(ctx context.Context, jobID string, actor jobs.Actor, expected *enums.JobStatus) (*jobs.Job, error)
	submitFn   func(ctx context.Context, jobID string, actor jobs.Actor, input jobs.RescheduleInput) (*jobs.Job, error)
	approveFn  func(ctx context.Context, jobID string, actor jobs.Actor, newDate *time.Time) (*jobs.Job, error)
	setStatusF func(ctx context.Context, jobID string, actor jobs.Actor, status enums.JobStatus) (*jobs.Job, error)
}

func (s *stubJobs) ListForEmployeeOnDay(ctx context.Context, employeeID string, day time.Time) ([]jobs.Job, error) {
	return s.listDayFn(ctx, employeeID, day)
}

func (s *stubJobs) AdvanceStatus(ctx context.Context, jobID string, actor jobs.Actor, expected *enums.JobStatus) (*jobs.Job, error) {
	return s.advanceFn(ctx, jobID, actor, expected)
}

func (s *stubJobs) SubmitReschedule(ctx context.Context, jobID string, actor jobs.Actor, input jobs.RescheduleInput) (*jobs.Job, error) {
	return s.submitFn(ctx, jobID, actor, input)
}

func (s *stubJobs) ApproveReschedule(ctx context.Context, jobID string, actor jobs.Actor, newDate *time.Time) (*jobs.Job, error) {
	return s.approveFn(ctx, jobID, actor, newDate)
}

func (s *stubJobs) SetStatus(ctx context.Context, jobID string, actor jobs.Actor, status enums.JobStatus) (*jobs.Job, error) {
	return s.setStatusF(ctx, jobID, actor, status)
}

type stubClock struct {
	timeclock.Service
	clockInFn func(ctx context.Context, actor timeclock.Actor, plateID string) (*timeclock.ClockInResult, error)
}

func (s *stubClock) ClockIn(ctx context.Context, actor timeclock.Actor, plateID string) (*timeclock.ClockInResult, error) {
	return s.clockInFn(ctx, actor, plateID)
}

type stubPlates struct {
	vehicles.Service
	assignFn func(ctx context.Context, plateID string, driver vehicles.Actor, team *vehicles.TeamRef) (*vehicles.Plate, error)
}

func (s *stubPlates) Assign(ctx context.Context, plateID string, driver vehicles.Actor, team *vehicles.TeamRef) (*vehicles.Plate, error) {
	return s.assignFn(ctx, plateID, driver, team)
}

type stubMemberships []teams.Membership

func (s stubMemberships) MembershipsFor(ctx context.Context, employeeID string) ([]teams.Membership, error) {
	return s, nil
}

func newRequest(method, target, body string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithIdentity(req.Context(), "e1", "Alice", enums.RoleEmployee))
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestMyJobsParsesDateInLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	svc := &stubJobs{
		listDayFn: func(ctx context.Context, employeeID string, day time.Time) ([]jobs.Job, error) {
			if employeeID != "e1" {
				t.Fatalf("unexpected employee %s", employeeID)
			}
			if !day.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, loc)) {
				t.Fatalf("unexpected day %v", day)
			}
			return []jobs.Job{{ID: "j1"}}, nil
		},
	}

	resp := httptest.NewRecorder()
	MyJobs(svc, loc, testLogger)(resp, newRequest(http.MethodGet, "/api/v1/me/jobs?date=2024-03-04", "", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Jobs []jobs.Job `json:"jobs"`
		} `json:"data"`
		Meta types.DayMeta `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Jobs) != 1 || envelope.Data.Jobs[0].ID != "j1" {
		t.Fatalf("unexpected jobs %+v", envelope.Data.Jobs)
	}
	if envelope.Meta != (types.DayMeta{Day: "2024-03-04", Timezone: "EST", Count: 1}) {
		t.Fatalf("unexpected meta %+v", envelope.Meta)
	}
}

func TestMyJobsRejectsBadDate(t *testing.T) {
	resp := httptest.NewRecorder()
	MyJobs(&stubJobs{}, time.UTC, testLogger)(resp, newRequest(http.MethodGet, "/api/v1/me/jobs?date=03/04/2024", "", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if code := decodeError(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestAdvanceMyJobPassesExpectedStatus(t *testing.T) {
	svc := &stubJobs{
		advanceFn: func(ctx context.Context, jobID string, actor jobs.Actor, expected *enums.JobStatus) (*jobs.Job, error) {
			if jobID != "j1" || actor.EmployeeID != "e1" || actor.Name != "Alice" {
				t.Fatalf("unexpected call %s %+v", jobID, actor)
			}
			if expected == nil || *expected != enums.JobStatusEnRoute {
				t.Fatalf("unexpected expected status %v", expected)
			}
			return &jobs.Job{ID: jobID, Status: enums.JobStatusInProgress}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/me/jobs/j1/advance", `{"expected_status":"en_route"}`, map[string]string{"jobID": "j1"})
	AdvanceMyJob(svc, testLogger)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAdvanceMyJobMapsLockedJob(t *testing.T) {
	svc := &stubJobs{
		advanceFn: func(ctx context.Context, jobID string, actor jobs.Actor, expected *enums.JobStatus) (*jobs.Job, error) {
			if expected != nil {
				t.Fatalf("expected no status guard")
			}
			return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "job is locked pending reschedule")
		},
	}

	resp := httptest.NewRecorder()
	AdvanceMyJob(svc, testLogger)(resp, newRequest(http.MethodPost, "/api/v1/me/jobs/j1/advance", "", map[string]string{"jobID": "j1"}))

	if resp.Code != http.StatusPreconditionFailed {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRequestRescheduleValidatesReason(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/me/jobs/j1/reschedule", `{"reason":""}`, map[string]string{"jobID": "j1"})
	RequestReschedule(&stubJobs{}, time.UTC, testLogger)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRequestRescheduleParsesProposedDate(t *testing.T) {
	svc := &stubJobs{
		submitFn: func(ctx context.Context, jobID string, actor jobs.Actor, input jobs.RescheduleInput) (*jobs.Job, error) {
			if input.Reason != "customer away" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			if input.ProposedDate == nil || !input.ProposedDate.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected proposed date %v", input.ProposedDate)
			}
			return &jobs.Job{ID: jobID}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/me/jobs/j1/reschedule",
		`{"reason":"  customer away ","proposed_date":"2024-03-09"}`, map[string]string{"jobID": "j1"})
	RequestReschedule(svc, time.UTC, testLogger)(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAdminSetJobStatusRejectsUnknownStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/api/v1/admin/jobs/j1/status", `{"status":"teleported"}`, map[string]string{"jobID": "j1"})
	AdminSetJobStatus(&stubJobs{}, testLogger)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAdminApproveWithoutBody(t *testing.T) {
	called := false
	svc := &stubJobs{
		approveFn: func(ctx context.Context, jobID string, actor jobs.Actor, newDate *time.Time) (*jobs.Job, error) {
			called = true
			if newDate != nil {
				t.Fatalf("expected no new date")
			}
			return &jobs.Job{ID: jobID}, nil
		},
	}

	resp := httptest.NewRecorder()
	AdminApproveReschedule(svc, time.UTC, testLogger)(resp,
		newRequest(http.MethodPost, "/api/v1/admin/jobs/j1/reschedule/approve", "", map[string]string{"jobID": "j1"}))

	if resp.Code != http.StatusOK || !called {
		t.Fatalf("unexpected status %d called=%v", resp.Code, called)
	}
}

func TestClockInForwardsPlate(t *testing.T) {
	svc := &stubClock{
		clockInFn: func(ctx context.Context, actor timeclock.Actor, plateID string) (*timeclock.ClockInResult, error) {
			if actor.EmployeeID != "e1" || plateID != "p1" {
				t.Fatalf("unexpected call %+v %s", actor, plateID)
			}
			return &timeclock.ClockInResult{}, nil
		},
	}

	resp := httptest.NewRecorder()
	ClockIn(svc, testLogger)(resp, newRequest(http.MethodPost, "/api/v1/me/clock/in", `{"plate_id":"p1"}`, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestClockInRequiresIdentity(t *testing.T) {
	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/clock/in", nil)
	ClockIn(&stubClock{}, testLogger)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAssignVehicleResolvesTeam(t *testing.T) {
	svc := &stubPlates{
		assignFn: func(ctx context.Context, plateID string, driver vehicles.Actor, team *vehicles.TeamRef) (*vehicles.Plate, error) {
			if team == nil || team.ID != "t1" || len(team.Members) != 2 {
				t.Fatalf("unexpected team %+v", team)
			}
			return &vehicles.Plate{ID: plateID, CurrentDriverID: driver.EmployeeID}, nil
		},
	}
	memberships := stubMemberships{{TeamID: "t1", TeamName: "Crew A", MemberNames: []string{"Alice", "Bob"}}}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/vehicles/p1/assign", `{"team_id":"t1"}`, map[string]string{"plateID": "p1"})
	AssignVehicle(svc, memberships, testLogger)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAssignVehicleRejectsForeignTeam(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/vehicles/p1/assign", `{"team_id":"t9"}`, map[string]string{"plateID": "p1"})
	AssignVehicle(&stubPlates{}, stubMemberships{{TeamID: "t1"}}, testLogger)(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRequestRescheduleRejectsMalformedDate(t *testing.T) {
	svc := &stubJobs{
		submitFn: func(ctx context.Context, jobID string, actor jobs.Actor, input jobs.RescheduleInput) (*jobs.Job, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	}
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/v1/me/jobs/j1/reschedule",
		`{"reason":"customer away","proposed_date":"next week"}`, map[string]string{"jobID": "j1"})
	RequestReschedule(svc, time.UTC, testLogger)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if code := decodeError(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}
