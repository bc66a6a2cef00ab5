// Package scheduler runs the periodic cleanup tasks. Every task is an idempotent
// "delete where expired", so several instances may run the same schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-sso-server/internal/logging"
	"github.com/jrsteele09/go-sso-server/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Task is one cleanup job. Run returns the number of records removed.
type Task interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

type taskFunc struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func (t taskFunc) Name() string                           { return t.name }
func (t taskFunc) Run(ctx context.Context) (int64, error) { return t.run(ctx) }

// TaskFunc adapts a cleanup method to a Task.
func TaskFunc(name string, run func(ctx context.Context) (int64, error)) Task {
	return taskFunc{name: name, run: run}
}

type Scheduler struct {
	tasks    []Task
	interval time.Duration
	timeout  time.Duration
}

type Option func(*Scheduler)

// WithRunTimeout bounds a single run of a task.
func WithRunTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = timeout
	}
}

func New(interval time.Duration, tasks []Task, options ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("[scheduler.New] interval must be positive")
	}
	s := &Scheduler{
		tasks:    tasks,
		interval: interval,
		timeout:  30 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Run ticks every task on its own goroutine until ctx is cancelled. A failing
// run is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range s.tasks {
		task := task
		g.Go(func() error {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					_, _ = s.runTask(ctx, task)
				}
			}
		})
	}
	return g.Wait()
}

// RunOnce runs every task once, in order, and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(s.tasks))
	var errs []error
	for _, task := range s.tasks {
		n, err := s.runTask(ctx, task)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task.Name(), err))
			continue
		}
		counts[task.Name()] = n
	}
	return counts, errors.Join(errs...)
}

func (s *Scheduler) runTask(ctx context.Context, task Task) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	n, err := task.Run(runCtx)
	if err != nil {
		logger.Error().Err(err).Str("task", task.Name()).Msg("cleanup task failed")
		return 0, err
	}
	metrics.CleanupDeleted(task.Name(), n)
	logger.Debug().Str("task", task.Name()).Int64("deleted", n).Msg("cleanup task finished")
	return n, nil
}
