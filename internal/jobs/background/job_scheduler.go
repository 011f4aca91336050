package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"licensor/internal/services"
)

const (
	usageRetentionJob = "usage-retention"
	usageStatsJob     = "usage-stats"

	usageRetentionInterval = time.Hour
	usageStatsInterval     = 15 * time.Minute
	jobTimeout             = 10 * time.Minute
)

// JobScheduler runs the periodic maintenance jobs.
type JobScheduler struct {
	scheduler        gocron.Scheduler
	archiveService   services.ArchiveService
	dashboardService services.DashboardService
	retention        time.Duration
	logger           *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	jobs map[string]gocron.Job
	mu   sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers every job. Jobs do not
// run until Start.
func NewJobScheduler(archiveService services.ArchiveService, dashboardService services.DashboardService,
	retention time.Duration, logger *slog.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler:        scheduler,
		archiveService:   archiveService,
		dashboardService: dashboardService,
		retention:        retention,
		logger:           logger,
		ctx:              ctx,
		cancel:           cancel,
		jobs:             make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", "jobs", js.JobNames())
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

// JobNames lists the registered jobs.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

func (js *JobScheduler) registerJobs() error {
	defs := []struct {
		name     string
		interval time.Duration
		task     func()
	}{
		{usageRetentionJob, usageRetentionInterval, js.pruneUsage},
		{usageStatsJob, usageStatsInterval, js.collectUsageStats},
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	for _, d := range defs {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(d.interval),
			gocron.NewTask(d.task),
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to register %s job: %w", d.name, err)
		}
		js.jobs[d.name] = job
	}
	return nil
}

// pruneUsage archives and deletes usage records older than the retention
// window.
func (js *JobScheduler) pruneUsage() {
	ctx, cancel := context.WithTimeout(js.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	deleted, err := js.archiveService.PruneUsage(ctx, js.retention)
	if err != nil {
		js.logger.Error("usage retention failed", "job", usageRetentionJob, "deleted", deleted, "error", err)
		return
	}
	js.logger.Info("usage retention finished", "job", usageRetentionJob, "deleted", deleted, "duration", time.Since(start))
}

// collectUsageStats refreshes the dashboard gauges and logs the counters.
func (js *JobScheduler) collectUsageStats() {
	ctx, cancel := context.WithTimeout(js.ctx, jobTimeout)
	defer cancel()

	stats, err := js.dashboardService.Stats(ctx)
	if err != nil {
		js.logger.Error("usage stats failed", "job", usageStatsJob, "error", err)
		return
	}
	js.logger.Info("usage stats",
		"job", usageStatsJob,
		"total_users", stats.TotalUsers,
		"active_licenses", stats.ActiveLicenses,
		"active_subscriptions", stats.ActiveSubscriptions,
		"revenue", stats.Revenue,
		"validations_24h", stats.Validations24h,
	)
}
