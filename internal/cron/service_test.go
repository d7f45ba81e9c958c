package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dealerops/partstrail-backend/pkg/logger"
)

type stubLock struct {
	locked   bool
	acquired int
	released int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquired++
	return !l.locked, nil
}

func (l *stubLock) Release(ctx context.Context) error {
	l.released++
	return nil
}

type recordedJob struct {
	name string
	runs int
	err  error
}

func (j *recordedJob) Name() string { return j.name }

func (j *recordedJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &recordedJob{name: "first"}
	second := &recordedJob{name: "second", err: errors.New("boom")}
	third := &recordedJob{name: "third"}
	lock := &stubLock{}

	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("all jobs must run despite failures: %d %d %d", first.runs, second.runs, third.runs)
	}
	if lock.released != 1 {
		t.Fatalf("lock must be released, got %d releases", lock.released)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &recordedJob{name: "only"}
	lock := &stubLock{locked: true}

	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run while another worker holds the lock")
	}
	if lock.released != 0 {
		t.Fatal("a lock we never acquired must not be released")
	}
}

func TestRegistryIgnoresNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &recordedJob{name: "kept"})
	registry.Register(nil)
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected one job, got %d", got)
	}
}
