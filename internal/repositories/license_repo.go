package repositories

import (
	"context"
	"errors"
	"time"

	"licensor/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LicenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.License, error)
	List(ctx context.Context, limit, offset int) ([]*models.License, error)
	ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error)
	Suspend(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ReplaceFingerprint(ctx context.Context, id uuid.UUID, fingerprint string) error
	RecordValidation(ctx context.Context, id uuid.UUID, at time.Time, vctx models.ValidationContext) error
	ListRecentlyValidated(ctx context.Context, since time.Time) ([]*models.ActiveLicense, error)
}

type licenseRepo struct {
	db Database
}

func NewLicenseRepo(db Database) LicenseRepository {
	return &licenseRepo{db: db}
}

const licenseColumns = `id, key_fingerprint, owner_ref, is_active, is_suspended, created_at, updated_at, last_validated_at, validation_count, last_ip, client_version, device_fingerprint`

func scanLicense(row rowScanner) (*models.License, error) {
	license := &models.License{}
	err := row.Scan(&license.ID, &license.KeyFingerprint, &license.OwnerRef, &license.IsActive, &license.IsSuspended, &license.CreatedAt, &license.UpdatedAt, &license.LastValidatedAt, &license.ValidationCount, &license.LastIP, &license.ClientVersion, &license.DeviceFingerprint)
	if err != nil {
		return nil, err
	}
	return license, nil
}

func (r *licenseRepo) Create(ctx context.Context, license *models.License) error {
	query := `
		INSERT INTO licenses (id, key_fingerprint, owner_ref, is_active, is_suspended, validation_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, license.ID, license.KeyFingerprint, license.OwnerRef, license.IsActive, license.IsSuspended).Scan(&license.CreatedAt, &license.UpdatedAt)
}

func (r *licenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	license, err := scanLicense(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return license, nil
}

// FindByFingerprint returns nil, nil when no license carries the fingerprint.
func (r *licenseRepo) FindByFingerprint(ctx context.Context, fingerprint string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE key_fingerprint = $1`
	license, err := scanLicense(r.db.QueryRow(ctx, query, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return license, nil
}

func (r *licenseRepo) List(ctx context.Context, limit, offset int) ([]*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectLicenses(rows)
}

func (r *licenseRepo) ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE owner_ref = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, ownerRef)
	if err != nil {
		return nil, err
	}
	return collectLicenses(rows)
}

func collectLicenses(rows pgx.Rows) ([]*models.License, error) {
	defer rows.Close()

	licenses := []*models.License{}
	for rows.Next() {
		license, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		licenses = append(licenses, license)
	}
	return licenses, rows.Err()
}

// Each flag change is a single-row UPDATE so concurrent validations see
// either the old or the new state.

func (r *licenseRepo) Suspend(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE licenses SET is_suspended = TRUE, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.Exec(ctx, query, id))
}

func (r *licenseRepo) Activate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE licenses SET is_suspended = FALSE, is_active = TRUE, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.Exec(ctx, query, id))
}

func (r *licenseRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE licenses SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.Exec(ctx, query, id))
}

func (r *licenseRepo) ReplaceFingerprint(ctx context.Context, id uuid.UUID, fingerprint string) error {
	query := `UPDATE licenses SET key_fingerprint = $2, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.Exec(ctx, query, id, fingerprint))
}

// RecordValidation bumps the counter in place and never moves
// last_validated_at backwards.
func (r *licenseRepo) RecordValidation(ctx context.Context, id uuid.UUID, at time.Time, vctx models.ValidationContext) error {
	query := `
		UPDATE licenses
		SET validation_count = validation_count + 1,
			last_validated_at = GREATEST(last_validated_at, $2),
			last_ip = COALESCE($3, last_ip),
			client_version = COALESCE($4, client_version),
			device_fingerprint = COALESCE($5, device_fingerprint)
		WHERE id = $1
	`
	return expectOneRow(r.db.Exec(ctx, query, id, at, nullIfEmpty(vctx.IPAddress), nullIfEmpty(vctx.ClientVersion), nullIfEmpty(vctx.DeviceFingerprint)))
}

// ListRecentlyValidated returns usable licenses validated at or after since
// whose owner's current subscription is entitled, most recent first.
func (r *licenseRepo) ListRecentlyValidated(ctx context.Context, since time.Time) ([]*models.ActiveLicense, error) {
	query := `
		SELECT l.id, l.key_fingerprint, l.owner_ref, l.is_active, l.is_suspended, l.created_at, l.updated_at, l.last_validated_at, l.validation_count, l.last_ip, l.client_version, l.device_fingerprint,
			s.status, s.current_period_end, s.trial_end
		FROM licenses l
		JOIN LATERAL (
			SELECT status, current_period_end, trial_end
			FROM subscriptions
			WHERE owner_ref = l.owner_ref
			ORDER BY updated_at DESC, created_at DESC
			LIMIT 1
		) s ON TRUE
		WHERE l.is_active AND NOT l.is_suspended
			AND l.last_validated_at >= $1
			AND s.status IN ('active', 'trialing')
		ORDER BY l.last_validated_at DESC
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []*models.ActiveLicense
	for rows.Next() {
		a := &models.ActiveLicense{}
		l := &a.License
		var sub models.Subscription
		if err := rows.Scan(&l.ID, &l.KeyFingerprint, &l.OwnerRef, &l.IsActive, &l.IsSuspended, &l.CreatedAt, &l.UpdatedAt, &l.LastValidatedAt, &l.ValidationCount, &l.LastIP, &l.ClientVersion, &l.DeviceFingerprint,
			&sub.Status, &sub.CurrentPeriodEnd, &sub.TrialEnd); err != nil {
			return nil, err
		}
		a.SubscriptionStatus = sub.Status
		a.SubscriptionExpires = sub.ExpiresAt()
		active = append(active, a)
	}
	return active, rows.Err()
}
