package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"licensor/internal/keycodec"
	"licensor/internal/models"
	"licensor/internal/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	return serve(e, newJSONRequest(method, path, body))
}

type MockValidationService struct {
	mock.Mock
}

func (m *MockValidationService) Validate(ctx context.Context, presentedKey string, vctx models.ValidationContext) models.Decision {
	args := m.Called(ctx, presentedKey, vctx)
	return args.Get(0).(models.Decision)
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) Create(ctx context.Context, ownerRef string) (*models.License, keycodec.Key, error) {
	args := m.Called(ctx, ownerRef)
	if args.Get(0) == nil {
		return nil, keycodec.Key{}, args.Error(2)
	}
	return args.Get(0).(*models.License), args.Get(1).(keycodec.Key), args.Error(2)
}

func (m *MockLifecycleService) Get(ctx context.Context, id uuid.UUID) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLifecycleService) List(ctx context.Context, limit, offset int) ([]*models.License, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLifecycleService) ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error) {
	args := m.Called(ctx, ownerRef)
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLifecycleService) Suspend(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLifecycleService) Activate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLifecycleService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLifecycleService) Rotate(ctx context.Context, id uuid.UUID) (keycodec.Key, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(keycodec.Key), args.Error(1)
}

func (m *MockLifecycleService) ListRecentlyActive(ctx context.Context, window time.Duration) ([]*models.ActiveLicense, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActiveLicense), args.Error(1)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Create(ctx context.Context, input services.SubscriptionInput) (*models.Subscription, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Update(ctx context.Context, id uuid.UUID, input services.SubscriptionInput) (*models.Subscription, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSubscriptionService) SyncSubscription(ctx context.Context, event models.SubscriptionEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}

func (m *MockDashboardService) UsageForLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, licenseID, limit)
	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) ForgetEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
