// Package scheduler drives independent periodic tasks from clock tickers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wellbeing/internal/clock"
	"wellbeing/internal/infrastructure/logging"
)

// Task is one periodic job. Run errors are logged and never stop the loop.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the task once immediately instead of waiting a full interval
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// TaskStats counts executions of one task
type TaskStats struct {
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs each task in its own goroutine. A slow task delays only its
// own next tick; ticks that arrive while it runs are dropped.
type Scheduler struct {
	clock  clock.Clock
	logger logging.Logger

	mu      sync.Mutex
	tasks   []Task
	stats   map[string]*TaskStats
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates an empty scheduler
func New(clk clock.Clock, logger logging.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Scheduler{
		clock:  clk,
		logger: logging.With(logger, "component", "scheduler"),
		stats:  make(map[string]*TaskStats),
	}
}

// Add registers a task. Tasks cannot be added while the scheduler runs.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" {
		return errors.New("scheduler: task name cannot be empty")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("scheduler: task %q needs a positive interval", task.Name)
	}
	if task.Run == nil {
		return fmt.Errorf("scheduler: task %q has no Run function", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler: cannot add task %q while running", task.Name)
	}
	if _, exists := s.stats[task.Name]; exists {
		return fmt.Errorf("scheduler: duplicate task %q", task.Name)
	}
	s.tasks = append(s.tasks, task)
	s.stats[task.Name] = &TaskStats{}
	return nil
}

// Start launches every task loop and returns immediately
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler: already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	s.logger.Info("Scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop cancels every loop and waits for in-flight runs to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stats returns a copy of the per-task counters
func (s *Scheduler) Stats() map[string]TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(task.Interval)
	defer ticker.Stop()

	if task.RunOnStart {
		s.runOnce(ctx, task)
	}

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, task)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}

	start := s.clock.Now()
	err := task.Run(ctx)

	s.mu.Lock()
	st := s.stats[task.Name]
	st.Runs++
	st.LastRun = start
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
	s.mu.Unlock()

	// Tasks log their own failures; shutdown cancellation is expected
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Task run failed", "task", task.Name, "error", err)
	}
}
