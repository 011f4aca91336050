package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"licensor/internal/keycodec"
	"licensor/internal/metrics"
	"licensor/internal/models"
	"licensor/internal/repositories"

	"github.com/google/uuid"
)

const (
	msgInvalidFormat  = "Invalid license key format"
	msgInvalidKey     = "Invalid license key"
	msgSuspended      = "License key is suspended"
	msgInactive       = "License key is inactive"
	msgNoSubscription = "No active subscription found"
	msgServiceError   = "Validation service unavailable"

	serviceErrorRecheck = 5 * time.Minute
)

// ValidationService decides whether a presented license key is entitled.
type ValidationService interface {
	Validate(ctx context.Context, presentedKey string, vctx models.ValidationContext) models.Decision
}

type ValidationOptions struct {
	// RecheckAfter is the interval clients should wait before validating again.
	RecheckAfter time.Duration
	// LookupTimeout bounds all repository reads for one call.
	LookupTimeout time.Duration
}

type validationService struct {
	codec            *keycodec.Codec
	licenseRepo      repositories.LicenseRepository
	subscriptionRepo repositories.SubscriptionRepository
	recorder         UsageRecorder
	logger           *slog.Logger
	opts             ValidationOptions
	now              func() time.Time
}

func NewValidationService(codec *keycodec.Codec, licenseRepo repositories.LicenseRepository, subscriptionRepo repositories.SubscriptionRepository, recorder UsageRecorder, logger *slog.Logger, opts ValidationOptions) ValidationService {
	if opts.RecheckAfter <= 0 {
		opts.RecheckAfter = 24 * time.Hour
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 3 * time.Second
	}
	return &validationService{
		codec:            codec,
		licenseRepo:      licenseRepo,
		subscriptionRepo: subscriptionRepo,
		recorder:         recorder,
		logger:           logger,
		opts:             opts,
		now:              time.Now,
	}
}

// Validate never returns an error. Infrastructure failures become a
// SERVICE_ERROR denial. The counter bump and audit entry for a matched
// license are handed to the recorder together.
func (s *validationService) Validate(ctx context.Context, presentedKey string, vctx models.ValidationContext) models.Decision {
	start := s.now()
	decision, licenseID := s.decide(ctx, presentedKey)

	s.recorder.Record(&models.UsageRecord{
		LicenseID:         licenseID,
		Outcome:           decision.Outcome(),
		IPAddress:         vctx.IPAddress,
		UserAgent:         vctx.UserAgent,
		ClientVersion:     vctx.ClientVersion,
		DeviceFingerprint: vctx.DeviceFingerprint,
		CreatedAt:         start,
	})

	metrics.ValidationDecisions.WithLabelValues(decision.Outcome()).Inc()
	metrics.ValidationDuration.Observe(time.Since(start).Seconds())
	return decision
}

// decide evaluates the rules in order; the first match wins. Admin flags are
// checked before billing state. The returned id is set whenever a license
// was found.
func (s *validationService) decide(ctx context.Context, presentedKey string) (models.Decision, *uuid.UUID) {
	secret, ok := keycodec.Normalize(presentedKey)
	if !ok {
		return s.deny(models.ReasonInvalidKey, nil, msgInvalidFormat), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	license, err := s.licenseRepo.FindByFingerprint(ctx, s.codec.Fingerprint(secret))
	if err != nil {
		return s.serviceError("license lookup", err), nil
	}
	if license == nil {
		return s.deny(models.ReasonInvalidKey, nil, msgInvalidKey), nil
	}
	id := license.ID

	if license.IsSuspended {
		return s.deny(models.ReasonSuspended, nil, msgSuspended), &id
	}
	if !license.IsActive {
		return s.deny(models.ReasonInactive, nil, msgInactive), &id
	}

	sub, err := s.subscriptionRepo.FindCurrentByOwner(ctx, license.OwnerRef)
	if err != nil {
		return s.serviceError("subscription lookup", err), &id
	}
	if sub == nil {
		return s.deny(models.ReasonNoSubscription, nil, msgNoSubscription), &id
	}
	if !sub.Status.IsEntitled() {
		status := sub.Status
		return s.deny(models.ReasonSubscriptionInactive, &status, fmt.Sprintf("Subscription is %s", status)), &id
	}

	return models.Granted{
		ExpiresAt:          sub.ExpiresAt(),
		SubscriptionStatus: sub.Status,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		RecheckAfter:       s.opts.RecheckAfter,
	}, &id
}

func (s *validationService) deny(reason models.ReasonCode, status *models.SubscriptionStatus, message string) models.Denied {
	return models.Denied{
		Reason:             reason,
		SubscriptionStatus: status,
		Message:            message,
		RecheckAfter:       s.opts.RecheckAfter,
	}
}

func (s *validationService) serviceError(op string, err error) models.Denied {
	s.logger.Error("validation failed closed", "op", op, "error", err)
	recheck := serviceErrorRecheck
	if s.opts.RecheckAfter < recheck {
		recheck = s.opts.RecheckAfter
	}
	return models.Denied{
		Reason:       models.ReasonServiceError,
		Message:      msgServiceError,
		RecheckAfter: recheck,
	}
}
