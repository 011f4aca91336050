package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"licensor/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockLicenseRepository struct {
	mock.Mock
}

func (m *MockLicenseRepository) Create(ctx context.Context, license *models.License) error {
	args := m.Called(ctx, license)
	return args.Error(0)
}

func (m *MockLicenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.License, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseRepository) List(ctx context.Context, limit, offset int) ([]*models.License, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLicenseRepository) ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error) {
	args := m.Called(ctx, ownerRef)
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLicenseRepository) Suspend(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLicenseRepository) Activate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLicenseRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLicenseRepository) ReplaceFingerprint(ctx context.Context, id uuid.UUID, fingerprint string) error {
	args := m.Called(ctx, id, fingerprint)
	return args.Error(0)
}

func (m *MockLicenseRepository) RecordValidation(ctx context.Context, id uuid.UUID, at time.Time, vctx models.ValidationContext) error {
	args := m.Called(ctx, id, at, vctx)
	return args.Error(0)
}

func (m *MockLicenseRepository) ListRecentlyValidated(ctx context.Context, since time.Time) ([]*models.ActiveLicense, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActiveLicense), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindCurrentByOwner(ctx context.Context, ownerRef string) (*models.Subscription, error) {
	args := m.Called(ctx, ownerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ApplyEvent(ctx context.Context, id uuid.UUID, event *models.SubscriptionEvent) (bool, error) {
	args := m.Called(ctx, id, event)
	return args.Bool(0), args.Error(1)
}

type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Append(ctx context.Context, record *models.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRepository) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, licenseID, limit)
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

func (m *MockUsageRepository) ListBefore(ctx context.Context, cutoff time.Time, afterID int64, limit int) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, cutoff, afterID, limit)
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

func (m *MockUsageRepository) DeleteThrough(ctx context.Context, cutoff time.Time, maxID int64) (int64, error) {
	args := m.Called(ctx, cutoff, maxID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) CountOwners(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountActiveLicenses(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountEntitledSubscriptions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) SumEntitledRevenue(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

type MockUsageRecorder struct {
	mock.Mock
}

func (m *MockUsageRecorder) Record(rec *models.UsageRecord) {
	m.Called(rec)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, objectName, contentType string, data []byte) error {
	args := m.Called(ctx, objectName, contentType, data)
	return args.Error(0)
}

func (m *MockObjectStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
