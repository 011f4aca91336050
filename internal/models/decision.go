package models

import "time"

// ReasonCode is the stable, machine-readable explanation of a denial.
// Clients branch on it; messages are advisory.
type ReasonCode string

const (
	ReasonInvalidKey           ReasonCode = "INVALID_KEY"
	ReasonInactive             ReasonCode = "INACTIVE"
	ReasonSuspended            ReasonCode = "SUSPENDED"
	ReasonNoSubscription       ReasonCode = "NO_SUBSCRIPTION"
	ReasonSubscriptionInactive ReasonCode = "SUBSCRIPTION_INACTIVE"
	ReasonServiceError         ReasonCode = "SERVICE_ERROR"
)

// OutcomeGranted is recorded in the usage log for successful validations.
const OutcomeGranted = "GRANTED"

// Decision is the result of a validation. It is either Granted or Denied.
type Decision interface {
	Valid() bool
	Outcome() string
	RecheckIn() time.Duration
	decision()
}

type Granted struct {
	ExpiresAt          *time.Time
	SubscriptionStatus SubscriptionStatus
	CancelAtPeriodEnd  bool
	RecheckAfter       time.Duration
}

func (Granted) Valid() bool                { return true }
func (Granted) Outcome() string            { return OutcomeGranted }
func (g Granted) RecheckIn() time.Duration { return g.RecheckAfter }
func (Granted) decision()                  {}

type Denied struct {
	Reason ReasonCode
	// SubscriptionStatus is set when a subscription was found, so clients can
	// tell past_due from canceled.
	SubscriptionStatus *SubscriptionStatus
	Message            string
	RecheckAfter       time.Duration
}

func (Denied) Valid() bool                { return false }
func (d Denied) Outcome() string          { return string(d.Reason) }
func (d Denied) RecheckIn() time.Duration { return d.RecheckAfter }
func (Denied) decision()                  {}
