package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rickgao/coingecko-data/internal/pipeline"
	"github.com/rickgao/coingecko-data/internal/scheduler"
	"github.com/rickgao/coingecko-data/internal/store"
)

type fakeSyncer struct {
	reachable bool
	fullRes   pipeline.FullSyncResult
	quickErr  error
	fullRuns  int
}

func (f *fakeSyncer) FullSync(context.Context) (pipeline.FullSyncResult, error) {
	f.fullRuns++
	if !f.reachable {
		return pipeline.FullSyncResult{}, pipeline.ErrAPIUnreachable
	}
	return f.fullRes, nil
}

func (f *fakeSyncer) QuickRefresh(context.Context) (pipeline.QuickRefreshResult, error) {
	return pipeline.QuickRefreshResult{Updates: 3, Requests: 4}, f.quickErr
}

func (f *fakeSyncer) ValidateAPI(context.Context) bool { return f.reachable }

type fakeCounter struct{ resets int }

func (f *fakeCounter) ResetRequestCount() int64 { f.resets++; return 42 }

type fakeSweeper struct {
	n   int64
	err error
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) { return f.n, f.err }

func setup(t *testing.T, deps Deps) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(nil, nil)
	if err := Register(s, Schedules{FullSync: "0 3 * * *", QuickRefresh: "@every 1h"}, deps); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return s
}

func TestFullSync_ProbeFailureIsAFailedRun(t *testing.T) {
	syncer := &fakeSyncer{reachable: false}
	s := setup(t, Deps{Syncer: syncer})

	err := s.RunOnce(context.Background(), FullSync)
	if !errors.Is(err, pipeline.ErrAPIUnreachable) {
		t.Fatalf("RunOnce(full_sync) error = %v, want ErrAPIUnreachable", err)
	}
	js, _ := s.Stats().Job(FullSync)
	if js.State != scheduler.StateFailed || js.Failures != 1 {
		t.Errorf("full_sync stats = %+v, want one failed run", js)
	}
}

func TestFullSync_ReportsSavedItems(t *testing.T) {
	syncer := &fakeSyncer{reachable: true, fullRes: pipeline.FullSyncResult{
		ExchangeSave: store.SaveResult{Total: 10, Successful: 10},
		TokenSave:    store.SaveResult{Total: 30, Successful: 25, FailedChunks: 1},
		Requests:     61,
	}}
	s := setup(t, Deps{Syncer: syncer})

	if err := s.RunOnce(context.Background(), FullSync); err != nil {
		t.Fatalf("RunOnce(full_sync) error = %v", err)
	}
	js, _ := s.Stats().Job(FullSync)
	if js.LastItems != 35 || js.LastRequests != 61 {
		t.Errorf("LastItems = %d, LastRequests = %d, want 35 and 61", js.LastItems, js.LastRequests)
	}
	if js.State != scheduler.StateCompleted {
		t.Errorf("State = %s, want completed despite a failed chunk", js.State)
	}
}

func TestNonFatalJobsAbsorbErrors(t *testing.T) {
	tests := []struct {
		name string
		job  string
		deps Deps
	}{
		{
			name: "quick refresh",
			job:  QuickRefresh,
			deps: Deps{Syncer: &fakeSyncer{reachable: true, quickErr: errors.New("markets page exhausted")}},
		},
		{
			name: "health check",
			job:  HealthCheck,
			deps: Deps{Syncer: &fakeSyncer{reachable: false}},
		},
		{
			name: "maintenance sweep",
			job:  Maintenance,
			deps: Deps{Syncer: &fakeSyncer{}, Sweeper: &fakeSweeper{err: errors.New("db down")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setup(t, tt.deps)
			if err := s.RunOnce(context.Background(), tt.job); err != nil {
				t.Fatalf("RunOnce(%s) error = %v, want nil", tt.job, err)
			}
			js, _ := s.Stats().Job(tt.job)
			if js.State != scheduler.StateFailed || js.LastError == "" {
				t.Errorf("%s stats = %+v, want a recorded failure", tt.job, js)
			}
		})
	}
}

func TestMaintenance(t *testing.T) {
	counter := &fakeCounter{}
	s := setup(t, Deps{Syncer: &fakeSyncer{}, Counter: counter, Sweeper: &fakeSweeper{n: 12}})

	if err := s.RunOnce(context.Background(), Maintenance); err != nil {
		t.Fatalf("RunOnce(maintenance) error = %v", err)
	}
	if counter.resets != 1 {
		t.Errorf("resets = %d, want 1", counter.resets)
	}
	js, _ := s.Stats().Job(Maintenance)
	if js.LastItems != 12 {
		t.Errorf("LastItems = %d, want 12 swept records", js.LastItems)
	}
}

func TestRegister_AllJobs(t *testing.T) {
	s := setup(t, Deps{Syncer: &fakeSyncer{}})
	for _, name := range Names {
		if _, ok := s.Stats().Job(name); !ok {
			t.Errorf("job %q not registered", name)
		}
	}
}
