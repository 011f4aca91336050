package models

import (
	"time"

	"github.com/google/uuid"
)

type LicenseState string

const (
	LicenseStateActive      LicenseState = "active"
	LicenseStateSuspended   LicenseState = "suspended"
	LicenseStateDeactivated LicenseState = "deactivated"
)

// License is a revocable grant identified by the fingerprint of its key.
// The key itself is never stored.
type License struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	KeyFingerprint    string     `json:"-" db:"key_fingerprint"`
	OwnerRef          string     `json:"owner_ref" db:"owner_ref"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	IsSuspended       bool       `json:"is_suspended" db:"is_suspended"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	LastValidatedAt   *time.Time `json:"last_validated_at" db:"last_validated_at"`
	ValidationCount   int64      `json:"validation_count" db:"validation_count"`
	LastIP            *string    `json:"last_ip" db:"last_ip"`
	ClientVersion     *string    `json:"client_version" db:"client_version"`
	DeviceFingerprint *string    `json:"device_fingerprint" db:"device_fingerprint"`
}

// State collapses the two independent flags. Suspension wins over deactivation
// so the admin can see a suspend is in force.
func (l *License) State() LicenseState {
	switch {
	case l.IsSuspended:
		return LicenseStateSuspended
	case !l.IsActive:
		return LicenseStateDeactivated
	default:
		return LicenseStateActive
	}
}

// ValidationContext is client metadata attached to a validation attempt.
// It feeds the audit trail only.
type ValidationContext struct {
	ClientVersion     string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
}

// ActiveLicense is a license seen recently together with the owner's current
// entitled subscription.
type ActiveLicense struct {
	License
	SubscriptionStatus  SubscriptionStatus `json:"subscription_status"`
	SubscriptionExpires *time.Time         `json:"subscription_expires"`
}
