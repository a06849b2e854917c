package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type fakeLock struct {
	held     map[string]bool
	releases []string
}

func newFakeLock(held ...string) *fakeLock {
	l := &fakeLock{held: map[string]bool{}}
	for _, job := range held {
		l.held[job] = true
	}
	return l
}

func (f *fakeLock) Acquire(_ context.Context, job string) (bool, error) {
	if f.held[job] {
		return false, nil
	}
	f.held[job] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, job string) error {
	delete(f.held, job)
	f.releases = append(f.releases, job)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleRunsEveryJobEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	lock := newFakeLock()
	service, err := NewService(ServiceParams{
		Logger: testLogger(),
		Jobs:   []Job{failing, nil, ok},
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job once, got ok=%d fail=%d", ok.runs, failing.runs)
	}
	if len(lock.releases) != 2 || len(lock.held) != 0 {
		t.Fatalf("expected both job locks released, releases=%v held=%v", lock.releases, lock.held)
	}
}

func TestRunCycleSkipsOnlyLockedJobs(t *testing.T) {
	retention := &testJob{name: "outbox-retention"}
	stale := &testJob{name: "stale-clock-ins"}
	service, err := NewService(ServiceParams{
		Logger: testLogger(),
		Jobs:   []Job{retention, stale},
		Lock:   newFakeLock("outbox-retention"),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if retention.runs != 0 {
		t.Fatalf("expected locked job skipped, ran %d", retention.runs)
	}
	if stale.runs != 1 {
		t.Fatalf("expected unlocked job to run, ran %d", stale.runs)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error without lock")
	}
}
