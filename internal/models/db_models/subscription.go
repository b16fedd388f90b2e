package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubStatusTrialing          SubscriptionStatus = "trialing"
	SubStatusActive            SubscriptionStatus = "active"
	SubStatusPastDue           SubscriptionStatus = "past_due"
	SubStatusCancelAtPeriodEnd SubscriptionStatus = "cancel_at_period_end"
	SubStatusCanceled          SubscriptionStatus = "canceled"
)

// subscriptionTransitions mirrors the provider lifecycle. canceled is
// terminal; past_due recovers to active when a later invoice settles.
var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubStatusTrialing:          {SubStatusActive, SubStatusPastDue, SubStatusCancelAtPeriodEnd, SubStatusCanceled},
	SubStatusActive:            {SubStatusPastDue, SubStatusCancelAtPeriodEnd, SubStatusCanceled},
	SubStatusPastDue:           {SubStatusActive, SubStatusCancelAtPeriodEnd, SubStatusCanceled},
	SubStatusCancelAtPeriodEnd: {SubStatusActive, SubStatusCanceled},
	SubStatusCanceled:          {},
}

// CanTransitionTo reports whether moving to next is legal. Same-status
// updates are legal so redelivered events stay idempotent.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Subscription is the recurring billing relationship. At most one
// non-canceled row per account; handlers upsert keyed by AccountID.
type Subscription struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`

	Status SubscriptionStatus `gorm:"type:subscription_status;index"`
	Plan   string             `gorm:"index"`

	// Unix seconds
	CurrentPeriodStart int64 `gorm:"not null"`
	CurrentPeriodEnd   int64 `gorm:"not null"`
	CanceledAt         *int64
	LastPaymentAt      *int64
	TrialEndsAt        *int64

	CancelAtPeriodEnd bool         `gorm:"default:false"`
	BillingCycle      BillingCycle `gorm:"type:billing_cycle"`

	Provider           string `gorm:"index"` // "stripe","lemonsqueezy"
	ProviderCustomerID string `gorm:"index"`
	ProviderSubID      string `gorm:"uniqueIndex"`

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Account Account `gorm:"foreignKey:AccountID"`
}
