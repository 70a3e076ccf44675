package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jhalves/rss-sync/app/cfg"
	syncpkg "github.com/jhalves/rss-sync/app/sync"
	"github.com/jhalves/rss-sync/app/tenant"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type schedule struct {
	recurrence time.Duration
	nextRunAt  time.Time
}

// TenantStats is a snapshot of one tenant's sync history.
type TenantStats struct {
	TotalRuns   int64
	TotalErrors int64
	LastRunAt   *time.Time
	LastCreated int
	LastUpdated int
	LastSkipped int
	LastFailed  int
}

// Scheduler owns the recurring per-tenant sync schedules and the worker pool
// that executes them. Schedules are installed and cleared per tenant;
// installing enqueues an immediate first run.
type Scheduler struct {
	tenants     *tenant.Cache
	runners     map[string]SyncRunner
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu        sync.Mutex
	schedules map[string]*schedule
	stats     map[string]*TenantStats
}

func NewScheduler(tenants *tenant.Cache, runners map[string]SyncRunner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		tenants:     tenants,
		runners:     runners,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		schedules:   make(map[string]*schedule),
		stats:       make(map[string]*TenantStats),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTenants()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

// InstallSchedule registers the tenant's recurring sync and enqueues an
// immediate first run. Reinstalling an already scheduled tenant only
// refreshes its recurrence; it does not trigger another immediate run.
func (s *Scheduler) InstallSchedule(tenantID string) error {
	config, err := s.tenants.GetConfig(tenantID)
	if err != nil {
		return err
	}

	recurrence := config.RecurrenceInterval()

	s.mu.Lock()
	existing, ok := s.schedules[tenantID]
	if ok {
		existing.recurrence = recurrence
		s.mu.Unlock()
		slog.Debug("Schedule already installed", "tenant", tenantID, "recurrence", recurrence.String())
		return nil
	}
	s.schedules[tenantID] = &schedule{
		recurrence: recurrence,
		nextRunAt:  time.Now().Add(recurrence),
	}
	s.mu.Unlock()

	slog.Info("Schedule installed", "tenant", tenantID, "recurrence", recurrence.String())

	return s.TriggerNow(tenantID)
}

// ClearSchedule removes the tenant's recurring sync. Clearing an unknown
// tenant is a no-op.
func (s *Scheduler) ClearSchedule(tenantID string) {
	s.mu.Lock()
	_, ok := s.schedules[tenantID]
	delete(s.schedules, tenantID)
	s.mu.Unlock()

	if ok {
		slog.Info("Schedule cleared", "tenant", tenantID)
	}
}

// TriggerNow enqueues a one-off sync for the tenant without touching its
// schedule.
func (s *Scheduler) TriggerNow(tenantID string) error {
	config, err := s.tenants.GetConfig(tenantID)
	if err != nil {
		return err
	}

	runner, ok := s.runners[tenantID]
	if !ok {
		return fmt.Errorf("no sync runner for tenant %s", tenantID)
	}

	task := NewSyncTenantTask(config, runner, s.recordReport)
	return s.EnqueueTask(task)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// GetStats returns a snapshot of per-tenant sync statistics.
func (s *Scheduler) GetStats() map[string]TenantStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]TenantStats, len(s.stats))
	for id, st := range s.stats {
		snapshot[id] = *st
	}
	return snapshot
}

func (s *Scheduler) enqueueDueTenants() {
	now := time.Now()

	s.mu.Lock()
	var due []string
	for tenantID, sched := range s.schedules {
		if !sched.nextRunAt.After(now) {
			due = append(due, tenantID)
			sched.nextRunAt = now.Add(sched.recurrence)
		}
	}
	s.mu.Unlock()

	for _, tenantID := range due {
		if err := s.TriggerNow(tenantID); err != nil {
			slog.Warn("Failed to enqueue scheduled sync", "tenant", tenantID, "error", err)
		}
	}
}

func (s *Scheduler) recordReport(tenantID string, report syncpkg.Report) {
	created, updated, skipped, failed := report.Totals()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[tenantID]
	if !ok {
		st = &TenantStats{}
		s.stats[tenantID] = st
	}

	st.TotalRuns++
	st.LastRunAt = &now
	st.LastCreated = created
	st.LastUpdated = updated
	st.LastSkipped = skipped
	st.LastFailed = failed
	if report.AllSourcesFailed() {
		st.TotalErrors++
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 10*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "tenant", task.GetTenant(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
