// Package jobs defines the scheduled jobs of the ingester.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/coingecko-data/internal/pipeline"
	"github.com/rickgao/coingecko-data/internal/scheduler"
)

// Job names.
const (
	FullSync     = "full_sync"
	QuickRefresh = "quick_refresh"
	HealthCheck  = "health_check"
	Maintenance  = "maintenance"
)

// Names lists every job in registration order.
var Names = []string{FullSync, QuickRefresh, HealthCheck, Maintenance}

// Syncer runs the two sync modes.
type Syncer interface {
	FullSync(ctx context.Context) (pipeline.FullSyncResult, error)
	QuickRefresh(ctx context.Context) (pipeline.QuickRefreshResult, error)
	ValidateAPI(ctx context.Context) bool
}

// RequestCounter is the outbound request counter reset by maintenance.
type RequestCounter interface {
	ResetRequestCount() int64
}

// Sweeper deletes expired records from stores without native TTL.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Schedules holds the trigger spec of each job.
type Schedules struct {
	FullSync     string
	QuickRefresh string
	HealthCheck  string
	Maintenance  string
}

// Deps are the collaborators of the jobs. Sweeper may be nil.
type Deps struct {
	Syncer  Syncer
	Counter RequestCounter
	Sweeper Sweeper
	Logger  *slog.Logger
}

// Register adds every job to s.
func Register(s *scheduler.Scheduler, sched Schedules, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	for _, job := range []scheduler.Job{
		fullSyncJob(sched.FullSync, deps),
		quickRefreshJob(sched.QuickRefresh, deps),
		healthCheckJob(sched.HealthCheck, deps),
		maintenanceJob(sched.Maintenance, deps),
	} {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// fullSyncJob is fatal: its errors reach RunOnce callers.
func fullSyncJob(schedule string, deps Deps) scheduler.Job {
	return scheduler.Job{
		Name:     FullSync,
		Schedule: schedule,
		Fatal:    true,
		Run: func(ctx context.Context) (scheduler.Outcome, error) {
			res, err := deps.Syncer.FullSync(ctx)
			out := scheduler.Outcome{Items: res.Items(), Requests: res.Requests}
			if err != nil {
				return out, err
			}
			if !res.SavesOK() {
				deps.Logger.Warn("full sync saved partially",
					"exchange_failed_chunks", res.ExchangeSave.FailedChunks,
					"token_failed_chunks", res.TokenSave.FailedChunks,
				)
			}
			return out, nil
		},
	}
}

func quickRefreshJob(schedule string, deps Deps) scheduler.Job {
	return scheduler.Job{
		Name:     QuickRefresh,
		Schedule: schedule,
		Run: func(ctx context.Context) (scheduler.Outcome, error) {
			res, err := deps.Syncer.QuickRefresh(ctx)
			return scheduler.Outcome{Items: res.Updates, Requests: res.Requests}, err
		},
	}
}

func healthCheckJob(schedule string, deps Deps) scheduler.Job {
	return scheduler.Job{
		Name:     HealthCheck,
		Schedule: schedule,
		Run: func(ctx context.Context) (scheduler.Outcome, error) {
			if !deps.Syncer.ValidateAPI(ctx) {
				return scheduler.Outcome{Requests: 1}, pipeline.ErrAPIUnreachable
			}
			deps.Logger.Info("api health check passed")
			return scheduler.Outcome{Requests: 1}, nil
		},
	}
}

// maintenanceJob resets the request counter and sweeps expired records.
func maintenanceJob(schedule string, deps Deps) scheduler.Job {
	return scheduler.Job{
		Name:     Maintenance,
		Schedule: schedule,
		Run: func(ctx context.Context) (scheduler.Outcome, error) {
			if deps.Counter != nil {
				prev := deps.Counter.ResetRequestCount()
				deps.Logger.Info("request counter reset", "previous", prev)
			}
			if deps.Sweeper == nil {
				return scheduler.Outcome{}, nil
			}

			n, err := deps.Sweeper.Sweep(ctx)
			if err != nil {
				return scheduler.Outcome{}, fmt.Errorf("sweep expired records: %w", err)
			}
			deps.Logger.Info("expired records swept", "deleted", n)
			return scheduler.Outcome{Items: int(n)}, nil
		},
	}
}
