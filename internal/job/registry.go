package job

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrUnknownScheduler = errors.New("unknown scheduler")

// Registry owns the schedulers of one process, keyed by owner id.
type Registry struct {
	base    context.Context
	factory func(owner string) *Scheduler

	mu     sync.Mutex
	scheds map[string]*Scheduler
}

// NewRegistry ties every scheduler it starts to base, so cancelling base
// stops them all.
func NewRegistry(base context.Context, factory func(owner string) *Scheduler) *Registry {
	return &Registry{base: base, factory: factory, scheds: make(map[string]*Scheduler)}
}

// Start creates the owner's scheduler if needed and starts it.
func (r *Registry) Start(owner string) (SchedulerStatus, error) {
	owner = normalizeOwner(owner)
	r.mu.Lock()
	s, ok := r.scheds[owner]
	if !ok {
		s = r.factory(owner)
		r.scheds[owner] = s
	}
	r.mu.Unlock()

	if err := s.Start(r.base); err != nil {
		return s.Status(), err
	}
	return s.Status(), nil
}

func (r *Registry) Stop(owner string) (SchedulerStatus, error) {
	s, ok := r.get(owner)
	if !ok {
		return SchedulerStatus{}, ErrUnknownScheduler
	}
	s.Stop()
	return s.Status(), nil
}

func (r *Registry) Status(owner string) (SchedulerStatus, bool) {
	s, ok := r.get(owner)
	if !ok {
		return SchedulerStatus{}, false
	}
	return s.Status(), true
}

// List returns every known scheduler's status ordered by owner.
func (r *Registry) List() []SchedulerStatus {
	r.mu.Lock()
	scheds := make([]*Scheduler, 0, len(r.scheds))
	for _, s := range r.scheds {
		scheds = append(scheds, s)
	}
	r.mu.Unlock()

	out := make([]SchedulerStatus, 0, len(scheds))
	for _, s := range scheds {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

func (r *Registry) Running() int {
	n := 0
	for _, st := range r.List() {
		if st.Running {
			n++
		}
	}
	return n
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	scheds := make([]*Scheduler, 0, len(r.scheds))
	for _, s := range r.scheds {
		scheds = append(scheds, s)
	}
	r.mu.Unlock()
	for _, s := range scheds {
		s.Stop()
	}
}

func (r *Registry) get(owner string) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scheds[normalizeOwner(owner)]
	return s, ok
}

func normalizeOwner(owner string) string {
	if owner == "" {
		return AllOwners
	}
	return owner
}
