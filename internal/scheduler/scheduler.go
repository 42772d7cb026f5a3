package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler manages the periodic pipeline jobs and delayed one-off jobs
// behind a single lifecycle. Every job receives the scheduler's context,
// which is cancelled on Stop so in-flight database and provider calls abort
// with the shutdown.
type Scheduler struct {
	cron      *cron.Cron
	entries   map[string]cron.EntryID
	timers    map[uint64]*time.Timer
	timerSeq  uint64
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// JobStatus reports the schedule position of one registered job.
type JobStatus struct {
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
}

// New creates a new scheduler with no jobs registered
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[string]cron.EntryID),
		timers:  make(map[uint64]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Every registers a repeating job under a stable name. Registering the same
// name again replaces the previous schedule, so wiring code may re-register
// freely without stacking duplicate jobs.
func (s *Scheduler) Every(name string, interval time.Duration, job func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}

	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()

		if ctx.Err() != nil {
			return
		}

		s.wg.Add(1)
		defer s.wg.Done()
		job(ctx)
	}))
	s.entries[name] = id

	logrus.Infof("Registered job %q every %s", name, interval)
}

// After schedules a one-off job. The job is skipped if the scheduler stops
// before the delay elapses.
func (s *Scheduler) After(delay time.Duration, job func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timerSeq++
	id := s.timerSeq
	ctx := s.ctx

	s.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		job(ctx)
	})
	s.timers[id] = timer
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// A stopped scheduler keeps its job table but needs a fresh context
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with %d registered jobs", len(s.entries))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	// Drop delayed jobs that have not fired yet
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}

	// Stop the cron scheduler
	ctx := s.cron.Stop()

	// Wait for all jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Jobs returns the schedule position of every registered job
func (s *Scheduler) Jobs() map[string]JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]JobStatus, len(s.entries))
	for name, id := range s.entries {
		entry := s.cron.Entry(id)
		jobs[name] = JobStatus{NextRun: entry.Next, LastRun: entry.Prev}
	}
	return jobs
}

// PendingTimers returns the number of delayed jobs that have not fired yet
func (s *Scheduler) PendingTimers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.timers)
}

// Wait waits for in-flight jobs to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
