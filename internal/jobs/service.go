package jobs

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

// NotifyTopic is the realtime topic job changes are broadcast on.
const NotifyTopic = "jobs"

const (
	defaultScanLimit    = 300
	defaultHistoryLimit = 500
)

type jobsRepository interface {
	FindByID(ctx context.Context, id string) (docstore.Document, error)
	Scan(ctx context.Context, limit int) ([]docstore.Document, error)
	Update(ctx context.Context, id string, update docstore.Update) error
}

type teamLookup interface {
	TeamIDsFor(ctx context.Context, employeeID string) ([]string, error)
}

type changeNotifier interface {
	Notify(topic string, payload any)
}

// Actor is the authenticated caller of a write.
type Actor struct {
	EmployeeID string
	Name       string
	Role       enums.Role
}

func (a Actor) displayName() string {
	return firstNonEmpty(a.Name, a.EmployeeID)
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{EmployeeID: a.EmployeeID, Name: a.Name, Role: string(a.Role)}
}

// RescheduleInput is an employee's reschedule request.
type RescheduleInput struct {
	Reason       string
	ProposedDate *time.Time
}

// Change is the realtime payload sent after a job write.
type Change struct {
	JobID           string                `json:"job_id"`
	Action          string                `json:"action"`
	Status          enums.JobStatus       `json:"status"`
	RescheduleState enums.RescheduleState `json:"reschedule_state"`
	AssignedTeamID  string                `json:"assigned_team_id,omitempty"`
}

// Service resolves jobs for employees and admins and drives the status and
// reschedule workflows.
type Service interface {
	ListForEmployeeOnDay(ctx context.Context, employeeID string, day time.Time) ([]Job, error)
	HistoryForEmployee(ctx context.Context, employeeID string) ([]Job, error)
	ListAllOnDay(ctx context.Context, day time.Time) ([]Job, error)
	ListPendingReschedules(ctx context.Context) ([]Job, error)
	GetForRequester(ctx context.Context, jobID, employeeID string) (*Job, error)
	GetForAdmin(ctx context.Context, jobID string) (*Job, error)
	AdvanceStatus(ctx context.Context, jobID string, actor Actor, expected *enums.JobStatus) (*Job, error)
	SetStatus(ctx context.Context, jobID string, actor Actor, status enums.JobStatus) (*Job, error)
	SubmitReschedule(ctx context.Context, jobID string, actor Actor, input RescheduleInput) (*Job, error)
	ApproveReschedule(ctx context.Context, jobID string, actor Actor, newDate *time.Time) (*Job, error)
	DeclineReschedule(ctx context.Context, jobID string, actor Actor) (*Job, error)
}

// ServiceParams groups the collaborators of the job service.
type ServiceParams struct {
	Repo         jobsRepository
	Teams        teamLookup
	Resolver     *Resolver
	Events       outbox.Recorder
	Notifier     changeNotifier
	Metrics      *metrics.WorkflowMetrics
	Logger       *logger.Logger
	ScanLimit    int
	HistoryLimit int
	Now          func() time.Time
}

type service struct {
	repo         jobsRepository
	teams        teamLookup
	resolver     *Resolver
	events       outbox.Recorder
	notifier     changeNotifier
	metrics      *metrics.WorkflowMetrics
	logg         *logger.Logger
	scanLimit    int
	historyLimit int
	now          func() time.Time
}

// NewService validates dependencies and builds the job service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	if params.Teams == nil {
		return nil, fmt.Errorf("team lookup required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:         params.Repo,
		teams:        params.Teams,
		resolver:     params.Resolver,
		events:       params.Events,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logg:         params.Logger,
		scanLimit:    params.ScanLimit,
		historyLimit: params.HistoryLimit,
		now:          params.Now,
	}
	if svc.scanLimit <= 0 {
		svc.scanLimit = defaultScanLimit
	}
	if svc.historyLimit <= 0 {
		svc.historyLimit = defaultHistoryLimit
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) ListForEmployeeOnDay(ctx context.Context, employeeID string, day time.Time) ([]Job, error) {
	visible, err := s.visibleJobs(ctx, employeeID, s.scanLimit)
	if err != nil {
		return nil, err
	}
	out := filterDay(visible, s.startOfDay(day))
	sortByDateAscending(out)
	return out, nil
}

func (s *service) HistoryForEmployee(ctx context.Context, employeeID string) ([]Job, error) {
	visible, err := s.visibleJobs(ctx, employeeID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	sortByDateDescending(visible)
	return visible, nil
}

func (s *service) ListAllOnDay(ctx context.Context, day time.Time) ([]Job, error) {
	all, err := s.adminJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := filterDay(all, s.startOfDay(day))
	sortByDateAscending(out)
	return out, nil
}

func (s *service) ListPendingReschedules(ctx context.Context) ([]Job, error) {
	all, err := s.adminJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Job, 0)
	for _, job := range all {
		if job.RescheduleRequest.IsPending() {
			out = append(out, job)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pendingSortKey(out[i]).before(pendingSortKey(out[j]))
	})
	return out, nil
}

func (s *service) GetForRequester(ctx context.Context, jobID, employeeID string) (*Job, error) {
	job, _, err := s.loadForRequester(ctx, jobID, employeeID)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *service) GetForAdmin(ctx context.Context, jobID string) (*Job, error) {
	job, _, err := s.loadForAdmin(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *service) AdvanceStatus(ctx context.Context, jobID string, actor Actor, expected *enums.JobStatus) (*Job, error) {
	ctx = s.logg.WithJobID(ctx, jobID)
	job, _, err := s.loadForRequester(ctx, jobID, actor.EmployeeID)
	if err != nil {
		return nil, err
	}
	if expected != nil && !job.Status.Equal(*expected) {
		return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "job status changed").
			WithDetails(map[string]any{"current_status": job.Status})
	}

	next, ok := NextStatus(job)
	if !ok {
		if IsLocked(job) {
			return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "job is locked pending reschedule")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job is already complete")
	}

	updated, err := s.writeStatus(ctx, job, next, actor)
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "job.status_advanced")
	return updated, nil
}

func (s *service) SetStatus(ctx context.Context, jobID string, actor Actor, status enums.JobStatus) (*Job, error) {
	ctx = s.logg.WithJobID(ctx, jobID)
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job status")
	}
	job, _, err := s.loadForAdmin(ctx, jobID)
	if err != nil {
		return nil, err
	}
	updated, err := s.writeStatus(ctx, job, status, actor)
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "job.status_set")
	return updated, nil
}

func (s *service) SubmitReschedule(ctx context.Context, jobID string, actor Actor, input RescheduleInput) (*Job, error) {
	ctx = s.logg.WithJobID(ctx, jobID)
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	job, _, err := s.loadForRequester(ctx, jobID, actor.EmployeeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	requestedBy := actor.displayName()
	if err := s.update(ctx, jobID, submitRescheduleUpdate(requestedBy, reason, input.ProposedDate, now)); err != nil {
		return nil, err
	}

	job.RescheduleRequest = &RescheduleRequest{
		RequestedBy:     requestedBy,
		RequestedDate:   &now,
		Reason:          reason,
		NewProposedDate: input.ProposedDate,
		path:            fieldRescheduleRequest,
	}
	job.UpdatedAt = &now

	s.metrics.IncReschedule("requested")
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventJobRescheduleRequested,
		AggregateType: enums.AggregateJob,
		AggregateID:   job.ID,
		Actor:         actor.ref(),
		OccurredAt:    now,
		Data: payloads.JobRescheduleRequestedEvent{
			JobID:           job.ID,
			JobNumber:       job.JobNumber,
			RequestedBy:     requestedBy,
			Reason:          reason,
			RequestedDate:   now,
			NewProposedDate: input.ProposedDate,
		},
	})
	s.notify(job, "reschedule_requested")
	s.logg.Info(ctx, "reschedule.requested")
	return &job, nil
}

func (s *service) ApproveReschedule(ctx context.Context, jobID string, actor Actor, newDate *time.Time) (*Job, error) {
	return s.decide(ctx, jobID, actor, true, newDate)
}

func (s *service) DeclineReschedule(ctx context.Context, jobID string, actor Actor) (*Job, error) {
	return s.decide(ctx, jobID, actor, false, nil)
}

func (s *service) decide(ctx context.Context, jobID string, actor Actor, approve bool, newDate *time.Time) (*Job, error) {
	ctx = s.logg.WithJobID(ctx, jobID)
	job, raw, err := s.loadForAdmin(ctx, jobID)
	if err != nil {
		return nil, err
	}
	request := job.RescheduleRequest
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job has no reschedule request")
	}
	if !request.IsPending() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reschedule request already decided").
			WithDetails(map[string]any{"reschedule_state": request.State()})
	}

	now := s.now()
	if err := s.update(ctx, jobID, decideRescheduleUpdate(raw, request, approve, newDate, now)); err != nil {
		return nil, err
	}

	decided := *request
	decided.IsApproved = &approve
	decided.ApprovedDate = &now
	from := job.Status
	if approve {
		job.Status = enums.JobStatusRescheduled
		if newDate != nil {
			date := *newDate
			decided.NewProposedDate = &date
			job.ScheduledDate = &date
		}
	}
	job.RescheduleRequest = &decided
	job.UpdatedAt = &now

	decision := enums.RescheduleStateDeclined
	msg := "reschedule.declined"
	if approve {
		decision = enums.RescheduleStateApproved
		msg = "reschedule.approved"
		s.metrics.IncTransition(from.String(), job.Status.String())
	}
	s.metrics.IncReschedule(string(decision))
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventJobRescheduleDecided,
		AggregateType: enums.AggregateJob,
		AggregateID:   job.ID,
		Actor:         actor.ref(),
		OccurredAt:    now,
		Data: payloads.JobRescheduleDecidedEvent{
			JobID:       job.ID,
			Decision:    decision,
			DecidedBy:   actor.displayName(),
			DecidedAt:   now,
			NewDate:     newDate,
			RequestedBy: request.RequestedBy,
		},
	})
	s.notify(job, "reschedule_"+string(decision))
	s.logg.Info(ctx, msg)
	return &job, nil
}

func (s *service) writeStatus(ctx context.Context, job Job, next enums.JobStatus, actor Actor) (*Job, error) {
	now := s.now()
	if err := s.update(ctx, job.ID, statusUpdate(job, next, now)); err != nil {
		return nil, err
	}

	from := job.Status
	job.Status = next
	job.UpdatedAt = &now
	job.rawStatus = string(next)
	job.rawRequestStatus = string(next)

	s.metrics.IncTransition(from.String(), next.String())
	s.record(ctx, outbox.DomainEvent{
		EventType:     enums.EventJobStatusChanged,
		AggregateType: enums.AggregateJob,
		AggregateID:   job.ID,
		Actor:         actor.ref(),
		OccurredAt:    now,
		Data: payloads.JobStatusChangedEvent{
			JobID:      job.ID,
			JobNumber:  job.JobNumber,
			FromStatus: from,
			ToStatus:   next,
			ChangedBy:  actor.displayName(),
			ChangedAt:  now,
		},
	})
	s.notify(job, "status_changed")
	return &job, nil
}

func (s *service) update(ctx context.Context, jobID string, update docstore.Update) error {
	err := s.repo.Update(ctx, jobID, update)
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		s.metrics.IncConflict(docstore.CollectionJobs)
		s.logg.Warn(ctx, "job write precondition failed")
	}
	return docstore.TypedError(err, "job not found")
}

func (s *service) loadForRequester(ctx context.Context, jobID, employeeID string) (Job, docstore.Document, error) {
	if strings.TrimSpace(employeeID) == "" {
		return Job{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	raw, err := s.find(ctx, jobID)
	if err != nil {
		return Job{}, nil, err
	}
	teamIDs, err := s.teamSet(ctx, employeeID)
	if err != nil {
		return Job{}, nil, err
	}
	job, ok := s.resolver.ResolveForRequester(raw, employeeID, teamIDs)
	if !ok {
		return Job{}, nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	return job, raw, nil
}

func (s *service) loadForAdmin(ctx context.Context, jobID string) (Job, docstore.Document, error) {
	raw, err := s.find(ctx, jobID)
	if err != nil {
		return Job{}, nil, err
	}
	return s.resolver.ResolveForAdmin(raw), raw, nil
}

func (s *service) find(ctx context.Context, jobID string) (docstore.Document, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id is required")
	}
	raw, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, docstore.TypedError(err, "job not found")
	}
	return raw, nil
}

func (s *service) visibleJobs(ctx context.Context, employeeID string, limit int) ([]Job, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee identity missing")
	}
	teamIDs, err := s.teamSet(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.Scan(ctx, limit)
	if err != nil {
		return nil, docstore.TypedError(err, "jobs not found")
	}
	out := make([]Job, 0, len(docs))
	for _, raw := range docs {
		if job, ok := s.resolver.ResolveForRequester(raw, employeeID, teamIDs); ok {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *service) adminJobs(ctx context.Context) ([]Job, error) {
	docs, err := s.repo.Scan(ctx, s.scanLimit)
	if err != nil {
		return nil, docstore.TypedError(err, "jobs not found")
	}
	out := make([]Job, 0, len(docs))
	for _, raw := range docs {
		out = append(out, s.resolver.ResolveForAdmin(raw))
	}
	return out, nil
}

func (s *service) teamSet(ctx context.Context, employeeID string) (map[string]struct{}, error) {
	ids, err := s.teams.TeamIDsFor(ctx, employeeID)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup team memberships")
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// record queues the event after the document write. The write already landed,
// so a failure is logged rather than returned.
func (s *service) record(ctx context.Context, event outbox.DomainEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logg.Error(ctx, "failed to record job event", err)
	}
}

func (s *service) notify(job Job, action string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(NotifyTopic, Change{
		JobID:           job.ID,
		Action:          action,
		Status:          job.Status,
		RescheduleState: job.RescheduleRequest.State(),
		AssignedTeamID:  job.AssignedTeamID,
	})
}

func (s *service) startOfDay(day time.Time) time.Time {
	loc := s.resolver.Location()
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func filterDay(list []Job, start time.Time) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		if job.ScheduledOn(start) {
			out = append(out, job)
		}
	}
	return out
}

func sortByDateAscending(list []Job) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ScheduledDate.Before(*list[j].ScheduledDate)
	})
}

// sortByDateDescending puts the most recent first and undated jobs last.
func sortByDateDescending(list []Job) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].ScheduledDate, list[j].ScheduledDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

type sortKey struct {
	first  *time.Time
	second *time.Time
}

func pendingSortKey(job Job) sortKey {
	return sortKey{first: job.RescheduleRequest.NewProposedDate, second: job.RescheduleRequest.RequestedDate}
}

// before orders by proposed date, then requested date; missing dates sort last.
func (k sortKey) before(other sortKey) bool {
	if c := compareOptional(k.first, other.first); c != 0 {
		return c < 0
	}
	return compareOptional(k.second, other.second) < 0
}

func compareOptional(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}
