package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"licensor/internal/common"
	"licensor/internal/keycodec"
	"licensor/internal/models"
	"licensor/internal/repositories"

	"github.com/google/uuid"
)

// maxKeyAttempts bounds retries when a generated fingerprint collides with a
// stored one.
const maxKeyAttempts = 3

// LifecycleService performs the administrative state changes on licenses.
type LifecycleService interface {
	Create(ctx context.Context, ownerRef string) (*models.License, keycodec.Key, error)
	Get(ctx context.Context, id uuid.UUID) (*models.License, error)
	List(ctx context.Context, limit, offset int) ([]*models.License, error)
	ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error)
	Suspend(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Rotate(ctx context.Context, id uuid.UUID) (keycodec.Key, error)
	ListRecentlyActive(ctx context.Context, window time.Duration) ([]*models.ActiveLicense, error)
}

type lifecycleService struct {
	codec       *keycodec.Codec
	licenseRepo repositories.LicenseRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewLifecycleService(codec *keycodec.Codec, licenseRepo repositories.LicenseRepository, logger *slog.Logger) LifecycleService {
	return &lifecycleService{
		codec:       codec,
		licenseRepo: licenseRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// Create issues a new license for the owner. The returned key is the only
// copy of the secret; it cannot be recovered later.
func (s *lifecycleService) Create(ctx context.Context, ownerRef string) (*models.License, keycodec.Key, error) {
	if err := common.ValidateRequiredString(ownerRef, "owner_ref"); err != nil {
		return nil, keycodec.Key{}, err
	}

	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		key, err := s.codec.Generate()
		if err != nil {
			return nil, keycodec.Key{}, err
		}

		license := &models.License{
			ID:             uuid.New(),
			KeyFingerprint: s.codec.Fingerprint(key.Secret),
			OwnerRef:       ownerRef,
			IsActive:       true,
			IsSuspended:    false,
		}
		err = s.licenseRepo.Create(ctx, license)
		if repositories.IsUniqueViolation(err) {
			s.logger.Warn("license key collision, regenerating", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, keycodec.Key{}, fmt.Errorf("failed to create license: %w", err)
		}

		s.logger.Info("license created", "license_id", license.ID, "owner_ref", ownerRef)
		return license, key, nil
	}
	return nil, keycodec.Key{}, ErrKeyCollision
}

func (s *lifecycleService) Get(ctx context.Context, id uuid.UUID) (*models.License, error) {
	license, err := s.licenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLicenseErr(err)
	}
	return license, nil
}

func (s *lifecycleService) List(ctx context.Context, limit, offset int) ([]*models.License, error) {
	return s.licenseRepo.List(ctx, limit, offset)
}

func (s *lifecycleService) ListByOwner(ctx context.Context, ownerRef string) ([]*models.License, error) {
	return s.licenseRepo.ListByOwner(ctx, ownerRef)
}

// Suspend takes effect for every validation that starts after it returns.
func (s *lifecycleService) Suspend(ctx context.Context, id uuid.UUID) error {
	if err := s.licenseRepo.Suspend(ctx, id); err != nil {
		return mapLicenseErr(err)
	}
	s.logger.Info("license suspended", "license_id", id)
	return nil
}

// Activate lifts a suspension and re-enables a deactivated license.
func (s *lifecycleService) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.licenseRepo.Activate(ctx, id); err != nil {
		return mapLicenseErr(err)
	}
	s.logger.Info("license activated", "license_id", id)
	return nil
}

func (s *lifecycleService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.licenseRepo.Deactivate(ctx, id); err != nil {
		return mapLicenseErr(err)
	}
	s.logger.Info("license deactivated", "license_id", id)
	return nil
}

// Rotate swaps the stored fingerprint in one statement, so the old key stops
// matching at the same instant the new one starts. Flags are untouched.
func (s *lifecycleService) Rotate(ctx context.Context, id uuid.UUID) (keycodec.Key, error) {
	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		key, err := s.codec.Generate()
		if err != nil {
			return keycodec.Key{}, err
		}

		err = s.licenseRepo.ReplaceFingerprint(ctx, id, s.codec.Fingerprint(key.Secret))
		if repositories.IsUniqueViolation(err) {
			s.logger.Warn("license key collision on rotate, regenerating", "license_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return keycodec.Key{}, mapLicenseErr(err)
		}

		s.logger.Info("license key rotated", "license_id", id)
		return key, nil
	}
	return keycodec.Key{}, ErrKeyCollision
}

// ListRecentlyActive returns the licenses in use: validated within window,
// not suspended or deactivated, and backed by an entitled subscription.
func (s *lifecycleService) ListRecentlyActive(ctx context.Context, window time.Duration) ([]*models.ActiveLicense, error) {
	active, err := s.licenseRepo.ListRecentlyValidated(ctx, s.now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to list active licenses: %w", err)
	}
	return active, nil
}

func mapLicenseErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrLicenseNotFound
	}
	return err
}
