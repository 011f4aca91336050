package repositories

import (
	"context"
	"time"

	"licensor/internal/models"

	"github.com/google/uuid"
)

type UsageRepository interface {
	Append(ctx context.Context, record *models.UsageRecord) error
	ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]*models.UsageRecord, error)
	DeleteThrough(ctx context.Context, cutoff time.Time, maxID int64) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type usageRepo struct {
	db Database
}

func NewUsageRepo(db Database) UsageRepository {
	return &usageRepo{db: db}
}

const usageColumns = `id, license_id, outcome, ip_address, user_agent, client_version, device_fingerprint, created_at`

func (r *usageRepo) Append(ctx context.Context, rec *models.UsageRecord) error {
	query := `
		INSERT INTO usage_records (license_id, outcome, ip_address, user_agent, client_version, device_fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, rec.LicenseID, rec.Outcome, rec.IPAddress, rec.UserAgent, rec.ClientVersion, rec.DeviceFingerprint, rec.CreatedAt)
	return err
}

func (r *usageRepo) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage_records
		WHERE license_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, licenseID, limit)
}

// ListBefore pages through records older than cutoff in id order.
func (r *usageRepo) ListBefore(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]*models.UsageRecord, error) {
	query := `
		SELECT ` + usageColumns + `
		FROM usage_records
		WHERE created_at < $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`
	return r.query(ctx, query, cutoff, afterID, limit)
}

func (r *usageRepo) DeleteThrough(ctx context.Context, cutoff time.Time, maxID int64) (int64, error) {
	query := `DELETE FROM usage_records WHERE created_at < $1 AND id <= $2`
	tag, err := r.db.Exec(ctx, query, cutoff, maxID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *usageRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM usage_records WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

func (r *usageRepo) query(ctx context.Context, query string, args ...any) ([]*models.UsageRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.UsageRecord{}
	for rows.Next() {
		rec := &models.UsageRecord{}
		if err := rows.Scan(&rec.ID, &rec.LicenseID, &rec.Outcome, &rec.IPAddress, &rec.UserAgent, &rec.ClientVersion, &rec.DeviceFingerprint, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
