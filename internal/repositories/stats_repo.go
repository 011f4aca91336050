package repositories

import (
	"context"
)

// StatsRepository serves the admin dashboard aggregates.
type StatsRepository interface {
	CountOwners(ctx context.Context) (int64, error)
	CountActiveLicenses(ctx context.Context) (int64, error)
	CountEntitledSubscriptions(ctx context.Context) (int64, error)
	SumEntitledRevenue(ctx context.Context) (float64, error)
}

type statsRepo struct {
	db Database
}

func NewStatsRepo(db Database) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) CountOwners(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT owner_ref FROM licenses
			UNION
			SELECT owner_ref FROM subscriptions
		) owners
	`
	return r.count(ctx, query)
}

func (r *statsRepo) CountActiveLicenses(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM licenses WHERE is_active AND NOT is_suspended`)
}

// currentSubscriptions picks each owner's current row, the same one
// FindCurrentByOwner resolves, so history rows are not counted.
const currentSubscriptions = `
	SELECT DISTINCT ON (owner_ref) status, amount
	FROM subscriptions
	ORDER BY owner_ref, updated_at DESC, created_at DESC
`

func (r *statsRepo) CountEntitledSubscriptions(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM (`+currentSubscriptions+`) current_subs WHERE status IN ('active', 'trialing')`)
}

func (r *statsRepo) SumEntitledRevenue(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::float8 FROM (`+currentSubscriptions+`) current_subs WHERE status IN ('active', 'trialing')`).Scan(&total)
	return total, err
}

func (r *statsRepo) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, query).Scan(&n)
	return n, err
}
