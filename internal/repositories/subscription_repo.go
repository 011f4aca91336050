package repositories

import (
	"context"
	"errors"

	"licensor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
	List(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	FindCurrentByOwner(ctx context.Context, ownerRef string) (*models.Subscription, error)
	ApplyEvent(ctx context.Context, id uuid.UUID, event *models.SubscriptionEvent) (bool, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, owner_ref, external_ref, status, plan_name, amount, currency, current_period_end, trial_end, cancel_at_period_end, last_event_at, created_at, updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.OwnerRef, &s.ExternalRef, &s.Status, &s.PlanName, &s.Amount, &s.Currency, &s.CurrentPeriodEnd, &s.TrialEnd, &s.CancelAtPeriodEnd, &s.LastEventAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, s *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, owner_ref, external_ref, status, plan_name, amount, currency, current_period_end, trial_end, cancel_at_period_end, last_event_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), NOW())
		RETURNING last_event_at, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, s.ID, s.OwnerRef, s.ExternalRef, s.Status, s.PlanName, s.Amount, s.Currency, s.CurrentPeriodEnd, s.TrialEnd, s.CancelAtPeriodEnd).Scan(&s.LastEventAt, &s.CreatedAt, &s.UpdatedAt)
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return s, nil
}

// Update is the admin edit path. It stamps last_event_at so that billing
// events older than the edit cannot overwrite it.
func (r *subscriptionRepo) Update(ctx context.Context, s *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $2, plan_name = $3, amount = $4, currency = $5, current_period_end = $6, trial_end = $7, cancel_at_period_end = $8, last_event_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	return expectOneRow(r.db.Exec(ctx, query, s.ID, s.Status, s.PlanName, s.Amount, s.Currency, s.CurrentPeriodEnd, s.TrialEnd, s.CancelAtPeriodEnd))
}

func (r *subscriptionRepo) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subscriptions := []*models.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, s)
	}
	return subscriptions, rows.Err()
}

// FindCurrentByOwner returns the owner's most recently updated subscription,
// or nil, nil when the owner has none.
func (r *subscriptionRepo) FindCurrentByOwner(ctx context.Context, ownerRef string) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE owner_ref = $1
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, ownerRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyEvent upserts by external reference. The write lands when the event is
// at least as new as the last one applied, so out-of-order deliveries are
// no-ops. Provider timestamps have one-second resolution: on a tie the later
// arrival wins, except that an incomplete status never overwrites a
// subscription that has moved past it. The returned bool reports whether it
// landed.
func (r *subscriptionRepo) ApplyEvent(ctx context.Context, id uuid.UUID, e *models.SubscriptionEvent) (bool, error) {
	query := `
		INSERT INTO subscriptions (id, owner_ref, external_ref, status, plan_name, amount, currency, current_period_end, trial_end, cancel_at_period_end, last_event_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (external_ref) DO UPDATE
		SET owner_ref = EXCLUDED.owner_ref,
			status = EXCLUDED.status,
			plan_name = COALESCE(NULLIF(EXCLUDED.plan_name, ''), subscriptions.plan_name),
			amount = CASE WHEN EXCLUDED.amount > 0 THEN EXCLUDED.amount ELSE subscriptions.amount END,
			currency = COALESCE(NULLIF(EXCLUDED.currency, ''), subscriptions.currency),
			current_period_end = EXCLUDED.current_period_end,
			trial_end = EXCLUDED.trial_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = NOW()
		WHERE subscriptions.last_event_at IS NULL
			OR subscriptions.last_event_at < EXCLUDED.last_event_at
			OR (subscriptions.last_event_at = EXCLUDED.last_event_at
				AND NOT (EXCLUDED.status = 'incomplete' AND subscriptions.status <> 'incomplete'))
	`
	tag, err := r.db.Exec(ctx, query, id, e.OwnerRef, e.ExternalRef, e.Status, e.PlanName, e.Amount, e.Currency, e.CurrentPeriodEnd, e.TrialEnd, e.CancelAtPeriodEnd, e.OccurredAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
