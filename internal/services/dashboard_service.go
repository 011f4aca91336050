package services

import (
	"context"
	"time"

	"licensor/internal/metrics"
	"licensor/internal/models"
	"licensor/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	UsageForLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error)
}

type dashboardService struct {
	statsRepo repositories.StatsRepository
	usageRepo repositories.UsageRepository
	now       func() time.Time
}

func NewDashboardService(statsRepo repositories.StatsRepository, usageRepo repositories.UsageRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo, usageRepo: usageRepo, now: time.Now}
}

// Stats runs the aggregate queries concurrently and publishes them as gauges.
func (s *dashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalUsers, err = s.statsRepo.CountOwners(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveLicenses, err = s.statsRepo.CountActiveLicenses(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveSubscriptions, err = s.statsRepo.CountEntitledSubscriptions(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Revenue, err = s.statsRepo.SumEntitledRevenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Validations24h, err = s.usageRepo.CountSince(ctx, s.now().Add(-24*time.Hour))
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.DashboardGauges.WithLabelValues("total_users").Set(float64(stats.TotalUsers))
	metrics.DashboardGauges.WithLabelValues("active_licenses").Set(float64(stats.ActiveLicenses))
	metrics.DashboardGauges.WithLabelValues("active_subscriptions").Set(float64(stats.ActiveSubscriptions))
	metrics.DashboardGauges.WithLabelValues("revenue").Set(stats.Revenue)
	metrics.DashboardGauges.WithLabelValues("validations_24h").Set(float64(stats.Validations24h))
	return stats, nil
}

func (s *dashboardService) UsageForLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error) {
	return s.usageRepo.ListByLicense(ctx, licenseID, limit)
}
