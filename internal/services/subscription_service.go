package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"licensor/internal/metrics"
	"licensor/internal/models"
	"licensor/internal/repositories"

	"github.com/google/uuid"
)

// SubscriptionInput carries the admin-editable subscription fields.
type SubscriptionInput struct {
	OwnerRef          string
	ExternalRef       string
	Status            string
	PlanName          string
	Amount            float64
	Currency          string
	CurrentPeriodEnd  *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
}

// SubscriptionService manages subscriptions from both admin edits and
// billing events. Both paths write the same row.
type SubscriptionService interface {
	Create(ctx context.Context, input SubscriptionInput) (*models.Subscription, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	List(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	Update(ctx context.Context, id uuid.UUID, input SubscriptionInput) (*models.Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SyncSubscription(ctx context.Context, event models.SubscriptionEvent) (bool, error)
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	logger           *slog.Logger
}

func NewSubscriptionService(subscriptionRepo repositories.SubscriptionRepository, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Create creates a subscription entered by an admin. Without an external
// reference one is generated so the row never collides with billing data.
func (s *subscriptionService) Create(ctx context.Context, input SubscriptionInput) (*models.Subscription, error) {
	status, err := models.ParseSubscriptionStatus(input.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	sub := &models.Subscription{
		ID:                uuid.New(),
		OwnerRef:          input.OwnerRef,
		ExternalRef:       input.ExternalRef,
		Status:            status,
		PlanName:          input.PlanName,
		Amount:            input.Amount,
		Currency:          input.Currency,
		CurrentPeriodEnd:  input.CurrentPeriodEnd,
		TrialEnd:          input.TrialEnd,
		CancelAtPeriodEnd: input.CancelAtPeriodEnd,
	}
	if sub.ExternalRef == "" {
		sub.ExternalRef = "manual:" + sub.ID.String()
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.logger.Info("subscription created", "subscription_id", sub.ID, "owner_ref", sub.OwnerRef, "status", sub.Status)
	return sub, nil
}

func (s *subscriptionService) Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapSubscriptionErr(err)
	}
	return sub, nil
}

func (s *subscriptionService) List(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	return s.subscriptionRepo.List(ctx, limit, offset)
}

// Update applies an admin edit. Owner and external reference are fixed once
// created.
func (s *subscriptionService) Update(ctx context.Context, id uuid.UUID, input SubscriptionInput) (*models.Subscription, error) {
	status, err := models.ParseSubscriptionStatus(input.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapSubscriptionErr(err)
	}

	sub.Status = status
	sub.PlanName = input.PlanName
	sub.Amount = input.Amount
	sub.Currency = input.Currency
	sub.CurrentPeriodEnd = input.CurrentPeriodEnd
	sub.TrialEnd = input.TrialEnd
	sub.CancelAtPeriodEnd = input.CancelAtPeriodEnd

	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, mapSubscriptionErr(err)
	}
	s.logger.Info("subscription updated", "subscription_id", id, "status", status)
	return sub, nil
}

// Delete ends the subscription. Rows are kept for history.
func (s *subscriptionService) Delete(ctx context.Context, id uuid.UUID) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return mapSubscriptionErr(err)
	}

	sub.Status = models.SubscriptionEnded
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return mapSubscriptionErr(err)
	}
	s.logger.Info("subscription ended", "subscription_id", id)
	return nil
}

// SyncSubscription applies a billing event. Delivery is at least once and
// unordered; the repository keeps whichever event occurred last. It reports
// whether the event changed anything.
func (s *subscriptionService) SyncSubscription(ctx context.Context, event models.SubscriptionEvent) (bool, error) {
	if event.OwnerRef == "" {
		return false, fmt.Errorf("subscription event has no owner reference")
	}
	if event.OccurredAt.IsZero() {
		return false, fmt.Errorf("subscription event has no timestamp")
	}
	event.Status = models.NormalizeSubscriptionStatus(string(event.Status))
	if event.ExternalRef == "" {
		event.ExternalRef = "owner:" + event.OwnerRef
	}

	applied, err := s.subscriptionRepo.ApplyEvent(ctx, uuid.New(), &event)
	if err != nil {
		metrics.SubscriptionEvents.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("failed to apply subscription event: %w", err)
	}

	if applied {
		metrics.SubscriptionEvents.WithLabelValues("applied").Inc()
		s.logger.Info("subscription synced", "external_ref", event.ExternalRef, "owner_ref", event.OwnerRef, "status", event.Status)
	} else {
		metrics.SubscriptionEvents.WithLabelValues("stale").Inc()
		s.logger.Info("stale subscription event ignored", "external_ref", event.ExternalRef, "occurred_at", event.OccurredAt)
	}
	return applied, nil
}

func mapSubscriptionErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrSubscriptionNotFound
	}
	return err
}
