package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/evalgraph/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// ErrJobInFlight is returned when a node already has a pending job.
var ErrJobInFlight = errors.New("job already in flight")

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("scheduler closed")

// Install applies a job's result on the evaluation goroutine.
type Install func() error

// Work runs on a worker goroutine and returns the step that installs its
// result. It must not touch evaluation state.
type Work func(ctx context.Context) (Install, error)

// Completion is the terminal outcome of a job, or one step of progressive work.
type Completion struct {
	Index int
	Name  string
	// Install is nil when the job failed.
	Install Install
	Err     error
	// Final is false only for intermediate progressive steps.
	Final bool
}

// Progressive is refinement work advanced once per pass.
type Progressive interface {
	Step(ctx context.Context) (converged bool, err error)
	// Present returns the step that installs the current result.
	Present() Install
}

type task struct {
	index int
	name  string
	work  Work
}

// Scheduler dispatches jobs onto a bounded worker pool.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	group  *errgroup.Group

	mu       sync.Mutex
	inFlight map[int]string
	backlog  []task
	done     []Completion
	closed   bool

	progressive map[int]Progressive
}

// New creates a scheduler running at most workers jobs at a time. The
// context bounds the lifetime of every job.
func New(ctx context.Context, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	group := &errgroup.Group{}
	group.SetLimit(workers)
	return &Scheduler{
		ctx:         ctx,
		cancel:      cancel,
		logger:      ctxlog.FromContext(ctx),
		group:       group,
		inFlight:    make(map[int]string),
		progressive: make(map[int]Progressive),
	}
}

// Dispatch starts work for node index. It is rejected while another job for
// the same node is in flight; the first job keeps running and its result is
// still applied.
func (s *Scheduler) Dispatch(index int, name string, work Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if current, busy := s.inFlight[index]; busy {
		s.logger.Warn("Job rejected: node already has a job in flight.", "node", index, "job", name, "in_flight", current)
		return fmt.Errorf("node %d: %w", index, ErrJobInFlight)
	}
	s.inFlight[index] = name
	t := task{index: index, name: name, work: work}
	if !s.group.TryGo(func() error { s.loop(t); return nil }) {
		s.backlog = append(s.backlog, t)
		s.logger.Debug("Job queued, all workers busy.", "node", index, "job", name)
	} else {
		s.logger.Debug("Job dispatched.", "node", index, "job", name)
	}
	return nil
}

// loop runs t and then keeps taking queued tasks while holding the worker slot.
func (s *Scheduler) loop(t task) {
	for {
		s.run(t)

		s.mu.Lock()
		if len(s.backlog) == 0 {
			s.mu.Unlock()
			return
		}
		t = s.backlog[0]
		s.backlog = s.backlog[1:]
		s.mu.Unlock()
	}
}

func (s *Scheduler) run(t task) {
	c := Completion{Index: t.index, Name: t.name, Final: true}
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.Install = nil
				c.Err = fmt.Errorf("job %q panicked: %v", t.name, r)
			}
		}()
		if err := s.ctx.Err(); err != nil {
			c.Err = err
			return
		}
		install, err := t.work(ctxlog.With(s.ctx, "node", t.index, "job", t.name))
		if err != nil {
			c.Err = err
			return
		}
		c.Install = install
	}()

	s.mu.Lock()
	s.done = append(s.done, c)
	s.mu.Unlock()
}

// Drain returns every completion posted since the last call and clears the
// in-flight marks of their nodes. It also starts queued tasks that found no
// free worker.
func (s *Scheduler) Drain() []Completion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.done
	s.done = nil
	for _, c := range out {
		delete(s.inFlight, c.Index)
		if c.Err != nil {
			s.logger.Warn("Job failed.", "node", c.Index, "job", c.Name, "error", c.Err)
		}
	}
	s.startQueued()
	return out
}

// Resume starts queued tasks on free workers. A worker that found the
// backlog empty may still hold its slot for a moment, so a task queued in
// that window waits for Drain or Resume.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startQueued()
}

// startQueued must be called with s.mu held.
func (s *Scheduler) startQueued() {
	for len(s.backlog) > 0 && !s.closed {
		t := s.backlog[0]
		if !s.group.TryGo(func() error { s.loop(t); return nil }) {
			return
		}
		s.backlog = s.backlog[1:]
	}
}

// Queued is the number of dispatched tasks still waiting for a worker.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backlog)
}

// InFlight reports whether node index has a job that has not been drained.
func (s *Scheduler) InFlight(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[index]
	return ok
}

// Pending is the number of jobs dispatched and not yet drained.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Ready is the number of completions waiting to be drained.
func (s *Scheduler) Ready() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}

// Track registers progressive work for node index, replacing any previous one.
func (s *Scheduler) Track(index int, p Progressive) {
	s.progressive[index] = p
}

// Untrack stops advancing node index.
func (s *Scheduler) Untrack(index int) {
	delete(s.progressive, index)
}

// Tracking reports whether node index has progressive work.
func (s *Scheduler) Tracking(index int) bool {
	_, ok := s.progressive[index]
	return ok
}

// Tracked is the number of progressive tasks being advanced.
func (s *Scheduler) Tracked() int {
	return len(s.progressive)
}

// Advance steps every progressive task once, in node order. Converged or
// failed tasks are untracked and reported as final.
func (s *Scheduler) Advance(ctx context.Context) []Completion {
	if len(s.progressive) == 0 {
		return nil
	}
	indices := make([]int, 0, len(s.progressive))
	for i := range s.progressive {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]Completion, 0, len(indices))
	for _, i := range indices {
		p := s.progressive[i]
		converged, err := p.Step(ctx)
		c := Completion{Index: i, Name: "progressive", Final: converged || err != nil}
		if err != nil {
			c.Err = err
			s.logger.Warn("Progressive job failed.", "node", i, "error", err)
		} else {
			c.Install = p.Present()
		}
		if c.Final {
			delete(s.progressive, i)
		}
		out = append(out, c)
	}
	return out
}

// Close cancels outstanding jobs and waits for workers to exit.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	s.backlog = nil
	s.mu.Unlock()

	s.cancel()
	return s.group.Wait()
}
