package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/fetcher"
	"flight-mail-review-go/internal/metrics"
	"flight-mail-review-go/internal/model"
	"flight-mail-review-go/internal/service/review"
)

// ErrCycleInProgress is returned by RunOnce while another cycle is running
var ErrCycleInProgress = errors.New("ingestion cycle already in progress")

// Ingester stores scored candidates from raw email records
type Ingester interface {
	IngestEmails(ctx context.Context, emails []model.EmailMessage) (*review.IngestResult, error)
}

// Status describes the scheduler state
type Status struct {
	Running         bool                 `json:"running"`
	IntervalMinutes int                  `json:"interval_minutes"`
	NextRun         *time.Time           `json:"next_run,omitempty"`
	LastRun         *time.Time           `json:"last_run,omitempty"`
	LastResult      *review.IngestResult `json:"last_result,omitempty"`
	LastError       string               `json:"last_error,omitempty"`
}

// Scheduler manages the periodic mailbox ingestion
type Scheduler struct {
	cron     *cron.Cron
	entryID  cron.EntryID
	config   config.SchedulerConfig
	fetcher  fetcher.EmailFetcher
	ingester Ingester
	metrics  *metrics.Metrics
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	isRunning bool
	mu        sync.RWMutex

	// one cycle at a time, scheduled or manual
	cycleMu    sync.Mutex
	lastRun    time.Time
	lastResult *review.IngestResult
	lastErr    error
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg config.SchedulerConfig, f fetcher.EmailFetcher, ingester Ingester, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		config:   cfg,
		fetcher:  f,
		ingester: ingester,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func cronSpec(minutes int) string {
	if minutes > 0 && minutes < 60 && 60%minutes == 0 {
		return fmt.Sprintf("0 */%d * * * *", minutes)
	}
	return fmt.Sprintf("@every %dm", minutes)
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.config.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	// a stopped cron and a cancelled context cannot be reused
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.cron = cron.New(cron.WithSeconds())

	entryID, err := s.cron.AddFunc(cronSpec(s.config.IntervalMinutes), s.processEmails)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}

	s.isRunning = false
	s.cancel()
	ctx := s.cron.Stop()
	// a running cycle records its outcome under mu, so wait unlocked
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// processEmails is the cron job
func (s *Scheduler) processEmails() {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping ingestion cycle")
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
		logrus.WithError(err).Error("Scheduled ingestion cycle failed")
	}
}

// RunOnce fetches new mail and ingests it. It fails with ErrCycleInProgress
// instead of waiting when another cycle is running.
func (s *Scheduler) RunOnce(ctx context.Context) (*review.IngestResult, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.cycleMu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	logrus.Info("Starting ingestion cycle")
	startTime := time.Now()

	result, err := s.runCycle(ctx)

	s.mu.Lock()
	s.lastRun = startTime
	s.lastResult = result
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"inserted": result.Inserted,
		"duration": time.Since(startTime).String(),
	}).Info("Ingestion cycle completed")
	return result, nil
}

func (s *Scheduler) runCycle(ctx context.Context) (*review.IngestResult, error) {
	if s.fetcher == nil {
		return nil, fetcher.ErrNoSource
	}

	emails, err := s.fetcher.FetchNewEmails(ctx)
	s.metrics.ObserveFetch(err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	logrus.Infof("Fetched %d new emails", len(emails))

	result, err := s.ingester.IngestEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest emails: %w", err)
	}
	return result, nil
}

// GetStatus returns the scheduler state and the outcome of the last cycle
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:         s.isRunning,
		IntervalMinutes: s.config.IntervalMinutes,
		LastResult:      s.lastResult,
	}
	if s.isRunning {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetLastRun returns the start time of the last cycle
func (s *Scheduler) GetLastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Wait waits for running cycles to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
