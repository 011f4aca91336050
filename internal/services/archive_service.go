package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"licensor/internal/metrics"
	"licensor/internal/repositories"
)

const archiveBatchSize = 1000

// ArchiveService enforces usage retention. Expired records are copied to the
// object store, when one is configured, before they are deleted.
type ArchiveService interface {
	PruneUsage(ctx context.Context, retention time.Duration) (int64, error)
}

type archiveService struct {
	usageRepo repositories.UsageRepository
	store     ObjectStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiveService accepts a nil store, in which case expired records are
// deleted without a copy.
func NewArchiveService(usageRepo repositories.UsageRepository, store ObjectStore, logger *slog.Logger) ArchiveService {
	return &archiveService{usageRepo: usageRepo, store: store, logger: logger, now: time.Now}
}

// PruneUsage works in id-ordered batches. A batch is only deleted after its
// archive object was written, so a failed upload leaves the rows in place.
func (s *archiveService) PruneUsage(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UTC()
	var afterID, total int64

	for {
		records, err := s.usageRepo.ListBefore(ctx, cutoff, afterID, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to list expired usage: %w", err)
		}
		if len(records) == 0 {
			break
		}
		first, last := records[0].ID, records[len(records)-1].ID

		if s.store != nil {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return total, err
				}
			}
			name := fmt.Sprintf("usage/%s/%020d-%020d.ndjson", cutoff.Format("2006-01-02"), first, last)
			if err := s.store.PutObject(ctx, name, "application/x-ndjson", buf.Bytes()); err != nil {
				return total, fmt.Errorf("failed to archive usage batch: %w", err)
			}
		}

		deleted, err := s.usageRepo.DeleteThrough(ctx, cutoff, last)
		if err != nil {
			return total, fmt.Errorf("failed to delete archived usage: %w", err)
		}
		total += deleted
		metrics.UsageRecordsArchived.Add(float64(deleted))
		afterID = last

		if len(records) < archiveBatchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("usage records pruned", "count", total, "cutoff", cutoff)
	}
	return total, nil
}
