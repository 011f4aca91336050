package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"licensor/internal/metrics"
	"licensor/internal/models"
	"licensor/internal/repositories"
)

// UsageRecorder accepts audit entries off the request path.
type UsageRecorder interface {
	// Record never blocks. When the queue is full the record is dropped.
	Record(rec *models.UsageRecord)
}

type UsageRecorderOptions struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// AsyncUsageRecorder writes usage records from a bounded queue with a fixed
// pool of workers. Records that carry a license id also bump that license's
// validation counter, so neither write sits on the request path.
type AsyncUsageRecorder struct {
	repo     repositories.UsageRepository
	licenses repositories.LicenseRepository
	logger   *slog.Logger
	queue  chan *models.UsageRecord
	opts   UsageRecorderOptions

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewUsageRecorder(repo repositories.UsageRepository, licenses repositories.LicenseRepository, logger *slog.Logger, opts UsageRecorderOptions) *AsyncUsageRecorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &AsyncUsageRecorder{
		repo:     repo,
		licenses: licenses,
		logger:   logger,
		queue:    make(chan *models.UsageRecord, opts.QueueSize),
		opts:     opts,
	}
}

func (r *AsyncUsageRecorder) Record(rec *models.UsageRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		metrics.UsageRecordsDropped.Inc()
		return
	}

	select {
	case r.queue <- rec:
	default:
		metrics.UsageRecordsDropped.Inc()
		r.logger.Warn("usage queue full, dropping record", "outcome", rec.Outcome, "license_id", rec.LicenseID)
	}
}

// Start launches the workers. They run until Stop is called.
func (r *AsyncUsageRecorder) Start(ctx context.Context) {
	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.work(context.WithoutCancel(ctx))
	}
	r.logger.Info("usage recorder started", "workers", r.opts.Workers, "queue_size", r.opts.QueueSize)
}

// Stop stops accepting records, drains what is queued, and waits for the
// workers to finish.
func (r *AsyncUsageRecorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("usage recorder stopped")
}

func (r *AsyncUsageRecorder) work(ctx context.Context) {
	defer r.wg.Done()
	for rec := range r.queue {
		r.write(ctx, rec)
	}
}

func (r *AsyncUsageRecorder) write(ctx context.Context, rec *models.UsageRecord) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.WriteTimeout)
	defer cancel()

	if rec.LicenseID != nil {
		r.touch(ctx, rec)
	}
	if err := r.repo.Append(ctx, rec); err != nil {
		metrics.UsageRecordsFailed.Inc()
		r.logger.Error("failed to write usage record", "outcome", rec.Outcome, "error", err)
	}
}

// touch bumps the license's validation counter. The repository never moves
// last_validated_at backwards, so workers may apply records in any order.
func (r *AsyncUsageRecorder) touch(ctx context.Context, rec *models.UsageRecord) {
	vctx := models.ValidationContext{
		ClientVersion:     rec.ClientVersion,
		DeviceFingerprint: rec.DeviceFingerprint,
		IPAddress:         rec.IPAddress,
		UserAgent:         rec.UserAgent,
	}
	if err := r.licenses.RecordValidation(ctx, *rec.LicenseID, rec.CreatedAt, vctx); err != nil {
		metrics.ValidationTouchFailures.Inc()
		r.logger.Warn("failed to record validation", "license_id", *rec.LicenseID, "error", err)
	}
}
