package services

import (
	"context"
	"sync"
	"time"

	"licensor/internal/models"
	"licensor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// memLicenseRepo is an in-memory LicenseRepository for scenario tests. subs
// backs the subscription join in ListRecentlyValidated.
type memLicenseRepo struct {
	mu       sync.Mutex
	licenses map[uuid.UUID]*models.License
	subs     *memSubscriptionRepo
}

func newMemLicenseRepo() *memLicenseRepo {
	return &memLicenseRepo{licenses: make(map[uuid.UUID]*models.License)}
}

func (r *memLicenseRepo) Create(_ context.Context, license *models.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.KeyFingerprint == license.KeyFingerprint {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	license.CreatedAt = time.Now()
	license.UpdatedAt = license.CreatedAt
	copied := *license
	r.licenses[license.ID] = &copied
	return nil
}

func (r *memLicenseRepo) GetByID(_ context.Context, id uuid.UUID) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *memLicenseRepo) FindByFingerprint(_ context.Context, fingerprint string) (*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.KeyFingerprint == fingerprint {
			copied := *l
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memLicenseRepo) List(_ context.Context, limit, offset int) ([]*models.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.License{}
	for _, l := range r.licenses {
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memLicenseRepo) ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error) {
	all, _ := r.List(ctx, 0, 0)
	out := []*models.License{}
	for _, l := range all {
		if l.OwnerRef == ownerRef {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memLicenseRepo) update(id uuid.UUID, fn func(l *models.License)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[id]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(l)
	l.UpdatedAt = time.Now()
	return nil
}

func (r *memLicenseRepo) Suspend(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(l *models.License) { l.IsSuspended = true })
}

func (r *memLicenseRepo) Activate(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(l *models.License) { l.IsSuspended = false; l.IsActive = true })
}

func (r *memLicenseRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(l *models.License) { l.IsActive = false })
}

func (r *memLicenseRepo) ReplaceFingerprint(_ context.Context, id uuid.UUID, fingerprint string) error {
	return r.update(id, func(l *models.License) { l.KeyFingerprint = fingerprint })
}

func (r *memLicenseRepo) RecordValidation(_ context.Context, id uuid.UUID, at time.Time, _ models.ValidationContext) error {
	return r.update(id, func(l *models.License) {
		l.ValidationCount++
		if l.LastValidatedAt == nil || at.After(*l.LastValidatedAt) {
			l.LastValidatedAt = &at
		}
	})
}

func (r *memLicenseRepo) ListRecentlyValidated(ctx context.Context, since time.Time) ([]*models.ActiveLicense, error) {
	r.mu.Lock()
	var candidates []models.License
	for _, l := range r.licenses {
		if l.IsActive && !l.IsSuspended && l.LastValidatedAt != nil && !l.LastValidatedAt.Before(since) {
			candidates = append(candidates, *l)
		}
	}
	r.mu.Unlock()

	var active []*models.ActiveLicense
	for _, l := range candidates {
		if r.subs == nil {
			break
		}
		sub, err := r.subs.FindCurrentByOwner(ctx, l.OwnerRef)
		if err != nil {
			return nil, err
		}
		if sub == nil || !sub.Status.IsEntitled() {
			continue
		}
		active = append(active, &models.ActiveLicense{License: l, SubscriptionStatus: sub.Status, SubscriptionExpires: sub.ExpiresAt()})
	}
	return active, nil
}

// memSubscriptionRepo is an in-memory SubscriptionRepository keyed by
// external reference.
type memSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*models.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{subs: make(map[string]*models.Subscription)}
}

func (r *memSubscriptionRepo) Create(_ context.Context, s *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	s.CreatedAt, s.UpdatedAt, s.LastEventAt = now, now, &now
	copied := *s
	r.subs[s.ExternalRef] = &copied
	return nil
}

func (r *memSubscriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memSubscriptionRepo) Update(_ context.Context, s *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ref, existing := range r.subs {
		if existing.ID == s.ID {
			now := time.Now()
			copied := *s
			copied.UpdatedAt, copied.LastEventAt = now, &now
			r.subs[ref] = &copied
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *memSubscriptionRepo) List(_ context.Context, limit, offset int) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Subscription{}
	for _, s := range r.subs {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memSubscriptionRepo) FindCurrentByOwner(_ context.Context, ownerRef string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current *models.Subscription
	for _, s := range r.subs {
		if s.OwnerRef != ownerRef {
			continue
		}
		if current == nil || s.UpdatedAt.After(current.UpdatedAt) {
			current = s
		}
	}
	if current == nil {
		return nil, nil
	}
	copied := *current
	return &copied, nil
}

func (r *memSubscriptionRepo) ApplyEvent(_ context.Context, id uuid.UUID, e *models.SubscriptionEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.subs[e.ExternalRef]
	if ok && existing.LastEventAt != nil {
		if e.OccurredAt.Before(*existing.LastEventAt) {
			return false, nil
		}
		if e.OccurredAt.Equal(*existing.LastEventAt) &&
			e.Status == models.SubscriptionIncomplete && existing.Status != models.SubscriptionIncomplete {
			return false, nil
		}
	}
	now := time.Now()
	occurred := e.OccurredAt
	s := &models.Subscription{
		ID:                id,
		OwnerRef:          e.OwnerRef,
		ExternalRef:       e.ExternalRef,
		Status:            e.Status,
		PlanName:          e.PlanName,
		Amount:            e.Amount,
		Currency:          e.Currency,
		CurrentPeriodEnd:  e.CurrentPeriodEnd,
		TrialEnd:          e.TrialEnd,
		CancelAtPeriodEnd: e.CancelAtPeriodEnd,
		LastEventAt:       &occurred,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	r.subs[e.ExternalRef] = s
	return true, nil
}

// inlineRecorder applies the counter bump synchronously and discards the
// audit entry.
type inlineRecorder struct {
	licenses *memLicenseRepo
}

func (r inlineRecorder) Record(rec *models.UsageRecord) {
	if rec.LicenseID != nil {
		_ = r.licenses.RecordValidation(context.Background(), *rec.LicenseID, rec.CreatedAt, models.ValidationContext{})
	}
}
