package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"autotrader/internal/engine"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AllOwners names the scheduler that ticks every owner's bots.
const AllOwners = "*"

var ErrAlreadyRunning = errors.New("scheduler already running")

type TickRunner interface {
	RunTick(ctx context.Context, scope engine.TickScope) engine.TickReport
}

// Locker guards a tick against other processes running the same scheduler.
// *cache.Lease satisfies it.
type Locker interface {
	Acquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}

type SchedulerStatus struct {
	Owner        string             `json:"owner"`
	Running      bool               `json:"running"`
	Interval     string             `json:"interval"`
	Ticks        int64              `json:"ticks"`
	SkippedTicks int64              `json:"skipped_ticks"`
	LastTick     *time.Time         `json:"last_tick,omitempty"`
	LastReport   *engine.TickReport `json:"last_report,omitempty"`
}

// Scheduler runs the engine for one owner on a fixed interval. Ticks of a
// single scheduler never overlap.
type Scheduler struct {
	tracer   trace.Tracer
	runner   TickRunner
	lease    Locker
	owner    string
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	ticks      int64
	skipped    int64
	lastTick   time.Time
	lastReport *engine.TickReport
}

// NewScheduler builds a stopped scheduler. lease may be nil.
func NewScheduler(tracer trace.Tracer, runner TickRunner, owner string, interval time.Duration, lease Locker) *Scheduler {
	if owner == "" {
		owner = AllOwners
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		tracer:   tracer,
		runner:   runner,
		lease:    lease,
		owner:    owner,
		interval: interval,
		now:      time.Now,
	}
}

func (s *Scheduler) Owner() string { return s.owner }

// Start runs the first tick immediately and then one per interval until Stop
// is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(runCtx, s.done)

	log.Info().Str("owner", s.owner).Dur("interval", s.interval).Msg("scheduler started")
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	log.Info().Str("owner", s.owner).Msg("scheduler stopped")
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SchedulerStatus{
		Owner:        s.owner,
		Running:      s.running,
		Interval:     s.interval.String(),
		Ticks:        s.ticks,
		SkippedTicks: s.skipped,
		LastReport:   s.lastReport,
	}
	if !s.lastTick.IsZero() {
		t := s.lastTick
		st.LastTick = &t
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "scheduler.tick")
	defer span.End()
	span.SetAttributes(attribute.String("owner", s.owner))

	name := "tick:" + s.owner
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("owner", s.owner).Msg("tick lease unavailable, running without it")
		} else if !ok {
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			log.Debug().Str("owner", s.owner).Msg("tick held by another process, skipping")
			return
		} else {
			defer func() {
				if err := s.lease.Release(context.WithoutCancel(ctx), name); err != nil {
					log.Warn().Err(err).Str("owner", s.owner).Msg("release tick lease failed")
				}
			}()
		}
	}

	scope := engine.TickScope{}
	if s.owner != AllOwners {
		scope.OwnerID = s.owner
	}
	report := s.runner.RunTick(ctx, scope)

	s.mu.Lock()
	s.ticks++
	s.lastTick = s.now().UTC()
	s.lastReport = &report
	s.mu.Unlock()
}
