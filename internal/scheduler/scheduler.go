package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rickgao/coingecko-data/internal/metrics"
)

var (
	// ErrJobRunning is returned when a run is requested while the job runs.
	ErrJobRunning = errors.New("job already running")

	// ErrUnknownJob is returned for a name that was never registered.
	ErrUnknownJob = errors.New("unknown job")

	// ErrStopped is returned by RunOnce after Stop.
	ErrStopped = errors.New("scheduler stopped")

	// ErrJobPanicked wraps a panic recovered from a job run.
	ErrJobPanicked = errors.New("job panicked")
)

// Outcome is what a job reports about one run.
type Outcome struct {
	Items    int
	Requests int64
}

// JobFunc executes one run of a job.
type JobFunc func(ctx context.Context) (Outcome, error)

// Job is a named unit of scheduled work.
type Job struct {
	Name     string
	Schedule string // cron expression or @every descriptor; empty means manual runs only
	Run      JobFunc

	// Fatal jobs return their errors to the caller. Other jobs' errors are
	// logged and recorded only.
	Fatal bool
}

// Scheduler triggers registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	stats  *Stats
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	stopped bool

	wg sync.WaitGroup // manual runs; Add only under mu while !stopped
}

// New creates a Scheduler recording into stats. Triggers use UTC.
func New(stats *Stats, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		stats:  stats,
		logger: logger,
		jobs:   make(map[string]Job),
	}
}

// Stats returns the statistics context.
func (s *Scheduler) Stats() *Stats {
	return s.stats
}

// Register adds a job and, if it has a schedule, its trigger.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	if job.Schedule != "" {
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("schedule job %q (%s): %w", job.Name, job.Schedule, err)
		}
	}
	s.jobs[job.Name] = job
	s.stats.register(job.Name, job.Schedule)
	return nil
}

// Start starts the triggers.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop stops the triggers and waits for in-flight runs or ctx.
// Manual runs are rejected from then on.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a registered job now, outside its schedule.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s not run", ErrStopped, name)
	}
	job, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	return s.execute(ctx, job)
}

// fire is the cron entry point. Errors were logged by execute.
func (s *Scheduler) fire(job Job) {
	_ = s.execute(context.Background(), job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start, ok := s.stats.begin(job.Name)
	if !ok {
		s.logger.Warn("job already running, skipping", "job", job.Name)
		metrics.JobRuns.WithLabelValues(job.Name, "skipped").Inc()
		return fmt.Errorf("%w: %s", ErrJobRunning, job.Name)
	}

	s.logger.Info("job started", "job", job.Name)
	out, err := safeRun(context.WithoutCancel(ctx), job.Run)
	dur := s.stats.finish(job.Name, start, out, err)

	metrics.JobDuration.WithLabelValues(job.Name).Observe(dur.Seconds())
	metrics.JobItems.WithLabelValues(job.Name).Set(float64(out.Items))

	if err != nil {
		metrics.JobRuns.WithLabelValues(job.Name, "failed").Inc()
		s.logger.Error("job failed",
			"job", job.Name,
			"duration", dur,
			"error", err,
		)
		if job.Fatal {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		return nil
	}

	metrics.JobRuns.WithLabelValues(job.Name, "completed").Inc()
	s.logger.Info("job completed",
		"job", job.Name,
		"duration", dur,
		"items", out.Items,
		"requests", out.Requests,
	)
	return nil
}

// safeRun turns a panic in run into an ErrJobPanicked error so the job
// leaves the running state.
func safeRun(ctx context.Context, run JobFunc) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return run(ctx)
}

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
