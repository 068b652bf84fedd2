// Package scheduler runs named periodic tasks on behalf of long-lived
// components. Each task runs in its own goroutine and never overlaps with
// itself; ticks that fire while a run is in progress are dropped.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/objectfs/mountfs/pkg/errors"
)

// TaskFunc is a unit of periodic work. The context is cancelled when the
// task's handle is cancelled or the scheduler stops.
type TaskFunc func(ctx context.Context)

// Scheduler owns a set of periodic tasks.
type Scheduler struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	tasks   map[*Handle]struct{}
	stopped bool
	logger  *slog.Logger
}

// Handle controls one scheduled task.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	owner  *Scheduler

	mu   sync.Mutex
	runs int64
}

// New creates a running scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[*Handle]struct{}),
		logger: logger.With("component", "scheduler"),
	}
}

// Schedule runs fn after delay and then every period. A period of zero runs
// fn once.
func (s *Scheduler) Schedule(name string, delay, period time.Duration, fn TaskFunc) (*Handle, error) {
	if fn == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "task function is required").
			WithComponent("scheduler").WithDetail("task", name)
	}
	if delay < 0 || period < 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "delay and period must not be negative").
			WithComponent("scheduler").WithDetail("task", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, errors.NewError(errors.ErrCodeComponentStopped, "scheduler is stopped").
			WithComponent("scheduler").WithDetail("task", name)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	h := &Handle{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
		owner:  s,
	}
	s.tasks[h] = struct{}{}
	s.wg.Add(1)
	go s.run(ctx, h, delay, period, fn)

	s.logger.Debug("task scheduled", "task", name, "delay", delay, "period", period)
	return h, nil
}

func (s *Scheduler) run(ctx context.Context, h *Handle, delay, period time.Duration, fn TaskFunc) {
	defer func() {
		s.mu.Lock()
		delete(s.tasks, h)
		s.mu.Unlock()
		close(h.done)
		s.wg.Done()
	}()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.invoke(ctx, h, fn)
	if period == 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.invoke(ctx, h, fn)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, h *Handle, fn TaskFunc) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "task", h.name, "panic", r)
		}
	}()

	fn(ctx)

	h.mu.Lock()
	h.runs++
	h.mu.Unlock()
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every task and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Debug("scheduler stopped")
}

// Name returns the task name.
func (h *Handle) Name() string {
	return h.name
}

// Runs returns how many times the task has completed.
func (h *Handle) Runs() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runs
}

// Cancel stops future runs of the task. It does not wait for a run in
// progress; use Done for that.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the task goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
