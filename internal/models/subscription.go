package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the billing provider's status string. The core
// treats it as opaque apart from deciding which values are entitled.
type SubscriptionStatus string

const (
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionEnded             SubscriptionStatus = "ended"
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

var knownStatuses = map[SubscriptionStatus]bool{
	SubscriptionActive:            true,
	SubscriptionTrialing:          true,
	SubscriptionPastDue:           true,
	SubscriptionCanceled:          true,
	SubscriptionUnpaid:            true,
	SubscriptionEnded:             true,
	SubscriptionIncomplete:        true,
	SubscriptionIncompleteExpired: true,
}

// IsEntitled reports whether the status grants access.
func (s SubscriptionStatus) IsEntitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrialing
}

// NormalizeSubscriptionStatus lower-cases a provider status and folds the
// British spelling of canceled. Unknown values pass through unchanged.
func NormalizeSubscriptionStatus(raw string) SubscriptionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "cancelled" {
		s = string(SubscriptionCanceled)
	}
	return SubscriptionStatus(s)
}

// ParseSubscriptionStatus is the strict variant used for admin input.
func ParseSubscriptionStatus(raw string) (SubscriptionStatus, error) {
	s := NormalizeSubscriptionStatus(raw)
	if !knownStatuses[s] {
		return "", fmt.Errorf("unknown subscription status %q", raw)
	}
	return s, nil
}

type Subscription struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	OwnerRef          string             `json:"owner_ref" db:"owner_ref"`
	ExternalRef       string             `json:"external_ref" db:"external_ref"`
	Status            SubscriptionStatus `json:"status" db:"status"`
	PlanName          string             `json:"plan_name" db:"plan_name"`
	Amount            float64            `json:"amount" db:"amount"`
	Currency          string             `json:"currency" db:"currency"`
	CurrentPeriodEnd  *time.Time         `json:"current_period_end" db:"current_period_end"`
	TrialEnd          *time.Time         `json:"trial_end" db:"trial_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	LastEventAt       *time.Time         `json:"last_event_at" db:"last_event_at"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}

// ExpiresAt is the end of the current entitlement window: the period end, or
// the trial end when trialing and it comes first.
func (s *Subscription) ExpiresAt() *time.Time {
	if s.Status == SubscriptionTrialing && s.TrialEnd != nil {
		if s.CurrentPeriodEnd == nil || s.TrialEnd.Before(*s.CurrentPeriodEnd) {
			return s.TrialEnd
		}
	}
	return s.CurrentPeriodEnd
}

// SubscriptionEvent is a billing notification reduced to the fields the core
// consumes. OccurredAt orders events; arrival order does not matter.
type SubscriptionEvent struct {
	OwnerRef          string
	ExternalRef       string
	Status            SubscriptionStatus
	PlanName          string
	Amount            float64
	Currency          string
	CurrentPeriodEnd  *time.Time
	TrialEnd          *time.Time
	CancelAtPeriodEnd bool
	OccurredAt        time.Time
}
