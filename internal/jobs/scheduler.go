// Package jobs runs the named recurring triggers of the service and the
// retention cleanups.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/types"
)

const (
	Hourly = time.Hour
	Daily  = 24 * time.Hour
	Weekly = 7 * 24 * time.Hour

	// DefaultRunTimeout bounds one run of a job
	DefaultRunTimeout = 5 * time.Minute
)

var (
	// ErrUnknownJob is returned for a name that was never registered
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobRunning is returned when the previous run is still in flight
	ErrJobRunning = errors.New("job already running")
)

var jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scheduler_job_runs_total",
	Help: "Total number of scheduled job runs by job and outcome",
}, []string{"job", "outcome"}) // outcome: ok, error, skipped

// Func is the body of a job. The result is kept as the last result.
type Func func(ctx context.Context) (any, error)

// Job is a named recurring trigger
type Job struct {
	Name    string
	Every   time.Duration
	Timeout time.Duration // DefaultRunTimeout when zero
	Run     Func
}

// Status is the observable state of a registered job
type Status struct {
	Name         string     `json:"name"`
	Every        string     `json:"every"`
	Running      bool       `json:"running"`
	Runs         int        `json:"runs"`
	Skipped      int        `json:"skipped"`
	LastStarted  *time.Time `json:"lastStarted,omitempty"`
	LastFinished *time.Time `json:"lastFinished,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	LastResult   any        `json:"lastResult,omitempty"`
}

// RunStore persists job timing so schedules survive restarts
type RunStore interface {
	ListJobRuns(ctx context.Context) (map[string]types.JobRun, error)
	SaveJobRun(ctx context.Context, run types.JobRun) error
}

type entry struct {
	job     Job
	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// Scheduler fires registered jobs on their interval. A trigger that finds
// the previous run of the same job still in flight is skipped.
type Scheduler struct {
	mu      sync.RWMutex
	entries map[string]*entry
	runs    RunStore

	now    func() time.Time
	logger zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger *zerolog.Logger) *Scheduler {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "scheduler").Logger()
	}
	return &Scheduler{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  l,
	}
}

// WithStore persists job runs to store and resumes schedules from it
func (s *Scheduler) WithStore(store RunStore) *Scheduler {
	s.runs = store
	return s
}

// WithClock overrides the time source
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register adds a job. Names must be unique.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a body")
	}
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = DefaultRunTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[job.Name]; dup {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	s.entries[job.Name] = &entry{job: job, status: Status{Name: job.Name, Every: job.Every.String()}}
	return nil
}

// Start launches one timer per job. A job fires one interval after its last
// recorded start; a job that never ran, or whose last start is older than
// its interval, fires immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.restore(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.logger.Info().Int("jobs", len(s.entries)).Msg("Starting scheduler")
	now := s.now().UTC()
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e, e.firstDelay(now))
	}
}

// restore loads the persisted runs into each job's status
func (s *Scheduler) restore(ctx context.Context) {
	if s.runs == nil {
		return
	}
	runs, err := s.runs.ListJobRuns(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load job runs, every job is treated as due")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, run := range runs {
		e, ok := s.entries[name]
		if !ok {
			continue
		}
		e.mu.Lock()
		e.status.LastStarted = run.LastStarted
		e.status.LastFinished = run.LastFinished
		e.status.LastError = run.LastError
		e.mu.Unlock()
	}
}

// firstDelay is the wait until the job is next due
func (e *entry) firstDelay(now time.Time) time.Duration {
	e.mu.Lock()
	last := e.status.LastStarted
	e.mu.Unlock()
	if last == nil {
		return 0
	}
	if d := last.Add(e.job.Every).Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *Scheduler) persist(ctx context.Context, e *entry) {
	if s.runs == nil {
		return
	}
	e.mu.Lock()
	run := types.JobRun{
		Name:         e.job.Name,
		LastStarted:  e.status.LastStarted,
		LastFinished: e.status.LastFinished,
		LastError:    e.status.LastError,
	}
	e.mu.Unlock()
	if err := s.runs.SaveJobRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error().Err(err).Str("job", e.job.Name).Msg("Failed to persist job run")
	}
}

// Stop cancels every loop and waits for in-flight runs
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.logger.Info().Msg("Stopping scheduler...")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped")
	case <-time.After(10 * time.Second):
		s.logger.Warn().Msg("Scheduler did not stop gracefully")
	}
}

func (s *Scheduler) loop(ctx context.Context, e *entry, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.run(ctx, e); err != nil && !errors.Is(err, ErrJobRunning) {
				s.logger.Error().Err(err).Str("job", e.job.Name).Msg("Scheduled job failed")
			}
			timer.Reset(e.job.Every)
		}
	}
}

// Run executes a job now and waits for it. It returns ErrJobRunning when
// the job is already in flight.
func (s *Scheduler) Run(ctx context.Context, name string) (any, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) (any, error) {
	if !e.running.CompareAndSwap(false, true) {
		jobRuns.WithLabelValues(e.job.Name, "skipped").Inc()
		e.mu.Lock()
		e.status.Skipped++
		e.mu.Unlock()
		s.logger.Warn().Str("job", e.job.Name).Msg("Previous run still in flight, skipping")
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, e.job.Name)
	}
	defer e.running.Store(false)

	started := s.now().UTC()
	e.mu.Lock()
	e.status.LastStarted = &started
	e.mu.Unlock()
	s.persist(ctx, e)

	runCtx, cancel := context.WithTimeout(ctx, e.job.Timeout)
	defer cancel()

	log := s.logger.With().Str("job", e.job.Name).Logger()
	log.Info().Msg("Job started")
	result, err := e.job.Run(runCtx)

	finished := s.now().UTC()
	e.mu.Lock()
	e.status.Runs++
	e.status.LastFinished = &finished
	e.status.LastResult = result
	e.status.LastError = ""
	if err != nil {
		e.status.LastError = err.Error()
	}
	e.mu.Unlock()
	s.persist(ctx, e)

	if err != nil {
		jobRuns.WithLabelValues(e.job.Name, "error").Inc()
		return result, err
	}
	jobRuns.WithLabelValues(e.job.Name, "ok").Inc()
	log.Info().Dur("duration", finished.Sub(started)).Msg("Job finished")
	return result, nil
}

// Status lists every job ordered by name
func (s *Scheduler) Status() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		st := e.status
		e.mu.Unlock()
		st.Running = e.running.Load()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
