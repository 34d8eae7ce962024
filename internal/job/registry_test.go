package job

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *stubRunner) {
	t.Helper()
	runner := &stubRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reg := NewRegistry(ctx, func(owner string) *Scheduler {
		return NewScheduler(testTracer(), runner, owner, time.Hour, nil)
	})
	t.Cleanup(reg.StopAll)
	return reg, runner
}

func TestRegistryRunsIndependentSchedulers(t *testing.T) {
	reg, runner := newTestRegistry(t)

	if _, err := reg.Start("alice"); err != nil {
		t.Fatalf("start alice: %v", err)
	}
	if _, err := reg.Start("bob"); err != nil {
		t.Fatalf("start bob: %v", err)
	}
	eventually(t, func() bool { return runner.calls() == 2 })

	if reg.Running() != 2 {
		t.Fatalf("expected 2 running schedulers, got %d", reg.Running())
	}
	list := reg.List()
	if len(list) != 2 || list[0].Owner != "alice" || list[1].Owner != "bob" {
		t.Fatalf("unexpected list: %+v", list)
	}

	st, err := reg.Stop("alice")
	if err != nil || st.Running {
		t.Fatalf("expected alice stopped, st=%+v err=%v", st, err)
	}
	if bob, ok := reg.Status("bob"); !ok || !bob.Running {
		t.Fatalf("expected bob to keep running: %+v", bob)
	}
}

func TestRegistryRestartAndErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.Stop("ghost"); !errors.Is(err, ErrUnknownScheduler) {
		t.Fatalf("expected ErrUnknownScheduler, got %v", err)
	}
	if _, ok := reg.Status("ghost"); ok {
		t.Fatal("expected unknown status")
	}

	if _, err := reg.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reg.Start(AllOwners); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning for the same owner, got %v", err)
	}
	if _, err := reg.Stop(""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	st, err := reg.Start(AllOwners)
	if err != nil || !st.Running {
		t.Fatalf("expected restart, st=%+v err=%v", st, err)
	}
}
