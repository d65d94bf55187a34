package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/jobs"
	"github.com/rickgao/coingecko-data/internal/scheduler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCoinGecko serves ping and two markets pages, the second empty.
func newCoinGecko(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	})
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000.12,"market_cap":1280000000000},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3100.5,"market_cap":null}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.IngesterConfig {
	cfg := &config.IngesterConfig{
		API:       config.APIConfig{BaseURL: baseURL, MaxRetries: 1, Timeout: 5 * time.Second},
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
		Store:     config.StoreConfig{Driver: "memory"},
		Sync:      config.SyncConfig{MarketsMaxPages: 2},
	}
	cfg.ApplyDefaults()
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	srv := newCoinGecko(t)
	a, err := New(context.Background(), testConfig(srv.URL), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Store.Driver = "cassandra"

	_, err := New(context.Background(), cfg, discardLogger())
	if err == nil || !strings.Contains(err.Error(), `unknown store driver "cassandra"`) {
		t.Fatalf("New() error = %v, want unknown store driver", err)
	}
}

func TestNew_StatsRetentionCoversVolumeHistory(t *testing.T) {
	day := 24 * time.Hour
	off := false

	tests := []struct {
		name          string
		volumeHistory *bool
		wantStats     time.Duration
	}{
		{name: "volume history on", wantStats: 31 * day},
		{name: "volume history off", volumeHistory: &off, wantStats: 7 * day},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(newCoinGecko(t).URL)
			cfg.Retention.StatsDays = 7
			cfg.Sync.VolumeHistory = tt.volumeHistory

			a, err := New(context.Background(), cfg, discardLogger())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			t.Cleanup(a.Close)

			if a.retention.Stats != tt.wantStats {
				t.Errorf("stats retention = %v, want %v", a.retention.Stats, tt.wantStats)
			}
		})
	}
}

func TestExecuteJob_QuickRefresh(t *testing.T) {
	a := newTestApp(t)

	if !a.ValidateAPIConnection(context.Background()) {
		t.Fatal("ValidateAPIConnection() = false, want true")
	}
	if err := a.ExecuteJob(context.Background(), jobs.QuickRefresh); err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}

	js, ok := a.stats.Job(jobs.QuickRefresh)
	if !ok {
		t.Fatal("quick_refresh not registered")
	}
	if js.State != scheduler.StateCompleted {
		t.Errorf("State = %q, want %q", js.State, scheduler.StateCompleted)
	}
	if js.LastItems != 2 {
		t.Errorf("LastItems = %d, want 2", js.LastItems)
	}
	// ping plus two markets pages
	if js.LastRequests != 3 {
		t.Errorf("LastRequests = %d, want 3", js.LastRequests)
	}

	snap, err := a.repo.LatestQuickPrice(context.Background(), "btc")
	if err != nil {
		t.Fatalf("LatestQuickPrice: %v", err)
	}
	if snap == nil {
		t.Fatal("no BTC quick price stored")
	}
}

func TestExecuteJob_Unknown(t *testing.T) {
	a := newTestApp(t)

	err := a.ExecuteJob(context.Background(), "reindex")
	if !errors.Is(err, scheduler.ErrUnknownJob) {
		t.Errorf("ExecuteJob() error = %v, want ErrUnknownJob", err)
	}
}

func TestMigrate_MemoryIsNoop(t *testing.T) {
	a := newTestApp(t)
	if err := a.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
}

func TestHandler(t *testing.T) {
	a := newTestApp(t)
	if err := a.ExecuteJob(context.Background(), jobs.HealthCheck); err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}
	h := a.Handler("/metrics")

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/health", http.StatusOK, `"status":"healthy"`},
		{"/stats", http.StatusOK, `"store_driver":"memory"`},
		{"/metrics", http.StatusOK, "coingecko_"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_HealthStatus(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	tests := []struct {
		name       string
		apiDown    bool
		storeDown  bool
		wantStatus int
		wantBody   string
	}{
		{name: "all good", wantStatus: http.StatusOK, wantBody: `"status":"healthy"`},
		{name: "only failed runs", apiDown: true, wantStatus: http.StatusOK, wantBody: `"status":"degraded"`},
		{name: "store down", storeDown: true, wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"unhealthy"`},
		{name: "store down and failed runs", apiDown: true, storeDown: true, wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"unhealthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseURL := newCoinGecko(t).URL
			if tt.apiDown {
				baseURL = down.URL
			}
			a, err := New(context.Background(), testConfig(baseURL), discardLogger())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			t.Cleanup(a.Close)

			if tt.storeDown {
				a.backend.ping = func(context.Context) error { return errors.New("connection refused") }
			}
			if err := a.ExecuteJob(context.Background(), jobs.HealthCheck); err != nil {
				t.Fatalf("ExecuteJob: %v", err)
			}

			rec := httptest.NewRecorder()
			a.Handler("/metrics").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestComprehensiveStats(t *testing.T) {
	a := newTestApp(t)
	if err := a.ExecuteJob(context.Background(), jobs.QuickRefresh); err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}

	cs := a.ComprehensiveStats()
	if cs.Requests != 3 {
		t.Errorf("Requests = %d, want 3", cs.Requests)
	}
	if cs.CacheOn {
		t.Error("CacheOn = true, want false without cache.addr")
	}
	if cs.Scheduler.SuccessfulRuns != 1 {
		t.Errorf("SuccessfulRuns = %d, want 1", cs.Scheduler.SuccessfulRuns)
	}
	if cs.RateLimit.TotalGranted != 3 {
		t.Errorf("RateLimit.TotalGranted = %d, want 3", cs.RateLimit.TotalGranted)
	}

	body, err := sonic.Marshal(cs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(body), `"requests_since_reset":3`) {
		t.Errorf("body = %s", body)
	}
}
