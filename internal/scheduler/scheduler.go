// Package scheduler fires each sync worker at its configured cadence:
// one github.com/robfig/cron/v3.Cron instance with N cron specs, each
// driving one worker on its own schedule, guarded against overlapping
// runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is one scheduled unit of work: a name for logging, a standard
// 5-field cron spec, and the function the cadence fires.
type Task struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// boundTask pairs a Task with the overlap guard the scheduler enforces
// around every fire. Workers are idempotent but not safe to overlap, so
// a tick that lands while a slow run is still in flight is skipped.
type boundTask struct {
	task    Task
	running atomic.Bool
}

// Scheduler fires registered tasks on their cron cadence. Each task's
// top-level failure is caught and logged here, never propagated to the
// cron dispatcher or to sibling tasks.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu    sync.Mutex
	tasks []*boundTask
}

// New builds an unstarted Scheduler. taskTimeout bounds how long any
// single fire may run before its context is cancelled -- a backstop,
// not a normal code path, since every worker already bounds its own
// per-run record/page counts. A zero taskTimeout disables the bound.
func New(taskTimeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		timeout: taskTimeout,
	}
}

// Register adds a task to the schedule. Safe to call before or after
// Start.
func (s *Scheduler) Register(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bt := &boundTask{task: t}
	if _, err := s.cron.AddFunc(t.Spec, func() { s.fire(bt) }); err != nil {
		return fmt.Errorf("scheduler: register %s (%q): %w", t.Name, t.Spec, err)
	}
	s.tasks = append(s.tasks, bt)
	return nil
}

// Start begins firing registered tasks on their cadence. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop signals the cron dispatcher to stop scheduling new fires and
// blocks until every in-flight fire has returned.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) fire(bt *boundTask) {
	if !bt.running.CompareAndSwap(false, true) {
		slog.Warn("scheduler: skipping overlapping run", slog.String("task", bt.task.Name))
		return
	}
	defer bt.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: task panicked", slog.String("task", bt.task.Name), slog.Any("panic", r))
		}
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := bt.task.Run(ctx); err != nil {
		slog.Error("scheduler: task failed",
			slog.String("task", bt.task.Name),
			slog.String("err", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return
	}
	slog.Info("scheduler: task completed",
		slog.String("task", bt.task.Name),
		slog.Duration("elapsed", time.Since(start)))
}
