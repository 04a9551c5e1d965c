// Package scheduler fires extraction runs for every tenant with an
// active schedule, on either a fixed interval or a cron expression.
// Scheduled jobs live in a mutex-guarded per-tenant map; whether a run
// is in flight is tracked per tenant by a Redis lock rather than one
// package-level flag.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/repository"
)

// Runner is the subset of the extraction pipeline the scheduler
// drives. Kept as an interface so this package never imports the
// extractor package directly, matching the one-way dependency the
// teacher keeps between its scheduler and crawler packages.
type Runner interface {
	Run(ctx context.Context, tenantID string) error
}

// job tracks one tenant's scheduled firing mechanism so it can be
// torn down cleanly on Remove/Toggle.
type job struct {
	tenantID string
	kind     models.ScheduleKind

	ticker   *time.Ticker
	tickDone chan struct{}

	cronID cron.EntryID
}

// Scheduler owns every tenant's active schedule and fires Runner.Run
// for each, guarded by a per-tenant Redis advisory lock so a slow run
// and its next scheduled fire never overlap.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	cron *cron.Cron
	lock *tenantLock
	repo *repository.ScheduleRepo
	run  Runner
	log  *logger.Logger

	shutdownGrace time.Duration
}

// New builds a Scheduler. redisClient backs the per-tenant coalescing
// lock; repo is the source of truth for which tenants have an active
// schedule.
func New(redisClient *redis.Client, repo *repository.ScheduleRepo, run Runner, log *logger.Logger, shutdownGrace time.Duration) *Scheduler {
	return &Scheduler{
		jobs:          make(map[string]*job),
		cron:          cron.New(),
		lock:          newTenantLock(redisClient),
		repo:          repo,
		run:           run,
		log:           log,
		shutdownGrace: shutdownGrace,
	}
}

// Load reads every active schedule from the database and starts a job
// for each. Intended to run once at startup.
func (s *Scheduler) Load(ctx context.Context) error {
	schedules, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active schedules: %w", err)
	}

	s.cron.Start()
	for _, sched := range schedules {
		if err := s.Add(sched); err != nil {
			s.log.LogError(ctx, err, "failed to start schedule for tenant "+sched.TenantID)
		}
	}
	return nil
}

// Add starts a job for sched, replacing any job already running for
// that tenant.
func (s *Scheduler) Add(sched models.ExtractionSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[sched.TenantID]; ok {
		s.stopLocked(existing)
	}

	switch sched.Kind {
	case models.ScheduleInterval:
		return s.addIntervalLocked(sched)
	case models.ScheduleCron:
		return s.addCronLocked(sched)
	default:
		return fmt.Errorf("unknown schedule kind %q for tenant %s", sched.Kind, sched.TenantID)
	}
}

func (s *Scheduler) addIntervalLocked(sched models.ExtractionSchedule) error {
	d, err := time.ParseDuration(sched.Expression)
	if err != nil {
		return fmt.Errorf("parse interval expression %q: %w", sched.Expression, err)
	}
	if d <= 0 {
		return fmt.Errorf("interval expression %q must be positive", sched.Expression)
	}

	j := &job{
		tenantID: sched.TenantID,
		kind:     models.ScheduleInterval,
		ticker:   time.NewTicker(d),
		tickDone: make(chan struct{}),
	}
	go s.runIntervalLoop(j)
	s.jobs[sched.TenantID] = j
	return nil
}

func (s *Scheduler) runIntervalLoop(j *job) {
	for {
		select {
		case <-j.tickDone:
			return
		case <-j.ticker.C:
			s.fire(j.tenantID)
		}
	}
}

func (s *Scheduler) addCronLocked(sched models.ExtractionSchedule) error {
	tenantID := sched.TenantID
	id, err := s.cron.AddFunc(sched.Expression, func() { s.fire(tenantID) })
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", sched.Expression, err)
	}
	s.jobs[sched.TenantID] = &job{tenantID: tenantID, kind: models.ScheduleCron, cronID: id}
	return nil
}

// fire attempts the per-tenant lock and, on success, runs the
// extraction in its own goroutine. Failing to acquire the lock means a
// run is already in flight for this tenant; this fire is dropped, not
// queued — missed fires coalesce.
func (s *Scheduler) fire(tenantID string) {
	ctx := context.Background()
	ok, err := s.lock.TryAcquire(ctx, tenantID)
	if err != nil {
		s.log.LogError(ctx, err, "failed to acquire extraction lock for tenant "+tenantID)
		return
	}
	if !ok {
		s.log.Scoped(ctx).Info("skipping scheduled fire, extraction already running", "tenant_id", tenantID)
		return
	}

	go func() {
		defer func() {
			if err := s.lock.Release(context.Background(), tenantID); err != nil {
				s.log.LogError(context.Background(), err, "failed to release extraction lock for tenant "+tenantID)
			}
		}()
		if err := s.run.Run(ctx, tenantID); err != nil {
			s.log.LogError(ctx, err, "scheduled extraction run failed for tenant "+tenantID)
		}
	}()
}

// Remove stops and discards the job for tenantID, if any.
func (s *Scheduler) Remove(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[tenantID]; ok {
		s.stopLocked(j)
		delete(s.jobs, tenantID)
	}
}

// Toggle reloads a tenant's schedule from the database: active
// schedules get (re)started, inactive or deleted ones are stopped.
func (s *Scheduler) Toggle(ctx context.Context, tenantID string) error {
	sched, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if sched == nil || !sched.IsActive {
		s.Remove(tenantID)
		return nil
	}
	return s.Add(*sched)
}

func (s *Scheduler) stopLocked(j *job) {
	switch j.kind {
	case models.ScheduleInterval:
		j.ticker.Stop()
		close(j.tickDone)
	case models.ScheduleCron:
		s.cron.Remove(j.cronID)
	}
}

// Shutdown stops every job and waits up to the configured grace
// period for the cron scheduler's own drain.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	for _, j := range s.jobs {
		s.stopLocked(j)
	}
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	grace := s.shutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	select {
	case <-cronCtx.Done():
	case <-time.After(grace):
		s.log.Warn("scheduler shutdown grace period elapsed before cron drained")
	case <-ctx.Done():
	}
}
