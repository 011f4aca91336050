package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"licensor/internal/models"
	"licensor/pkg/database"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// every table. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := database.Migrate(connString); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, connString, 4)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE usage_records, subscriptions, licenses RESTART IDENTITY CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("Failed to reset test database: %v", err)
	}

	db := &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
	t.Cleanup(func() { _ = db.Cleanup() })
	return db
}

// SetupTestLicense inserts an active license with the given fingerprint.
func SetupTestLicense(t *testing.T, db *TestDB, ownerRef, fingerprint string) *models.License {
	t.Helper()

	license := &models.License{
		ID:             uuid.New(),
		KeyFingerprint: fingerprint,
		OwnerRef:       ownerRef,
		IsActive:       true,
	}

	query := `
		INSERT INTO licenses (id, key_fingerprint, owner_ref, is_active, is_suspended)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := db.Pool.QueryRow(context.Background(), query,
		license.ID, license.KeyFingerprint, license.OwnerRef, license.IsActive, license.IsSuspended,
	).Scan(&license.CreatedAt, &license.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test license: %v", err)
	}

	return license
}
