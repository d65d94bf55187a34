package scheduler

import (
	"sort"
	"sync"
	"time"
)

// State is the lifecycle state of a job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// JobStats holds the statistics of one job.
type JobStats struct {
	Name         string        `json:"name"`
	Schedule     string        `json:"schedule,omitempty"`
	State        State         `json:"state"`
	Runs         int64         `json:"runs"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastItems    int           `json:"last_items"`
	LastRequests int64         `json:"last_requests"`
	LastError    string        `json:"last_error,omitempty"`
}

// Snapshot is a copy of all statistics.
type Snapshot struct {
	StartedAt      time.Time  `json:"started_at"`
	TotalRuns      int64      `json:"total_runs"`
	SuccessfulRuns int64      `json:"successful_runs"`
	FailedRuns     int64      `json:"failed_runs"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorAt    time.Time  `json:"last_error_at,omitempty"`
	RequestsToday  int64      `json:"requests_today"`
	Jobs           []JobStats `json:"jobs"` // sorted by name
}

// Stats is the process-wide statistics context. It is created once and
// shared by the scheduler and whoever reports on it.
type Stats struct {
	mu sync.Mutex

	startedAt time.Time
	jobs      map[string]*JobStats

	total     int64
	succeeded int64
	failed    int64
	lastErr   string
	lastErrAt time.Time

	requestsDay   string // UTC date of requestsToday
	requestsToday int64

	now func() time.Time
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	s := &Stats{
		jobs: make(map[string]*JobStats),
		now:  time.Now,
	}
	s.startedAt = s.now().UTC()
	return s
}

func (s *Stats) register(name, schedule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		s.jobs[name] = &JobStats{Name: name, Schedule: schedule, State: StateIdle}
	}
}

// begin moves a job to Running. It returns false if the job already is.
func (s *Stats) begin(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	js, ok := s.jobs[name]
	if !ok {
		js = &JobStats{Name: name}
		s.jobs[name] = js
	}
	if js.State == StateRunning {
		return time.Time{}, false
	}
	js.State = StateRunning
	return s.now(), true
}

// finish records the end of a run started at start.
func (s *Stats) finish(name string, start time.Time, out Outcome, err error) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dur := now.Sub(start)
	js := s.jobs[name]

	js.Runs++
	js.LastRun = start.UTC()
	js.LastDuration = dur
	js.LastItems = out.Items
	js.LastRequests = out.Requests
	s.total++

	if err != nil {
		js.State = StateFailed
		js.Failures++
		js.LastError = err.Error()
		s.failed++
		s.lastErr = name + ": " + err.Error()
		s.lastErrAt = now.UTC()
	} else {
		js.State = StateCompleted
		js.Successes++
		js.LastError = ""
		s.succeeded++
	}

	day := now.UTC().Format(time.DateOnly)
	if day != s.requestsDay {
		s.requestsDay = day
		s.requestsToday = 0
	}
	s.requestsToday += out.Requests
	return dur
}

// Job returns the statistics of one job.
func (s *Stats) Job(name string) (JobStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	js, ok := s.jobs[name]
	if !ok {
		return JobStats{}, false
	}
	return *js, true
}

// Snapshot returns a copy of all statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		StartedAt:      s.startedAt,
		TotalRuns:      s.total,
		SuccessfulRuns: s.succeeded,
		FailedRuns:     s.failed,
		LastError:      s.lastErr,
		LastErrorAt:    s.lastErrAt,
		Jobs:           make([]JobStats, 0, len(s.jobs)),
	}
	if s.requestsDay == s.now().UTC().Format(time.DateOnly) {
		snap.RequestsToday = s.requestsToday
	}
	for _, js := range s.jobs {
		snap.Jobs = append(snap.Jobs, *js)
	}
	sort.Slice(snap.Jobs, func(i, j int) bool { return snap.Jobs[i].Name < snap.Jobs[j].Name })
	return snap
}
