package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is an append-only audit entry for one validation attempt.
// LicenseID is nil when the presented key matched nothing.
type UsageRecord struct {
	ID                int64      `json:"id" db:"id"`
	LicenseID         *uuid.UUID `json:"license_id" db:"license_id"`
	Outcome           string     `json:"outcome" db:"outcome"`
	IPAddress         string     `json:"ip_address" db:"ip_address"`
	UserAgent         string     `json:"user_agent" db:"user_agent"`
	ClientVersion     string     `json:"client_version" db:"client_version"`
	DeviceFingerprint string     `json:"device_fingerprint" db:"device_fingerprint"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// DashboardStats are the aggregate counts shown on the admin dashboard.
type DashboardStats struct {
	TotalUsers          int64   `json:"total_users"`
	ActiveLicenses      int64   `json:"active_licenses"`
	ActiveSubscriptions int64   `json:"active_subscriptions"`
	Revenue             float64 `json:"revenue"`
	Validations24h      int64   `json:"validations_24h"`
}
