package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// paymentTransitions is the authoritative transition table. A status maps to
// the set of statuses it may move to; anything else must be rejected by the
// caller, not silently applied.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCanceled},
	PaymentStatusSucceeded: {PaymentStatusRefunded},
	PaymentStatusFailed:    {},
	PaymentStatusCanceled:  {},
	PaymentStatusRefunded:  {},
}

// CanTransitionTo reports whether moving to next is a legal transition.
// A same-status update is always legal (webhooks redeliver).
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
	CycleOneTime BillingCycle = "one_time"
)

// Payment is one charge attempt. Rows are never deleted; status history lives
// in the audit trail.
type Payment struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`

	AmountMinor int64         // e.g. 1500 = $15.00
	Currency    string        `gorm:"size:3"` // ISO 4217
	Status      PaymentStatus `gorm:"type:payment_status;index"`

	Plan         string       `gorm:"index"`
	BillingCycle BillingCycle `gorm:"type:billing_cycle"`

	Provider           string `gorm:"index"` // "stripe","oxxo","lemonsqueezy"
	ProviderPaymentID  string `gorm:"uniqueIndex"`
	ProviderCustomerID string `gorm:"index"`

	// Unix seconds
	PaidAt     *int64
	RefundedAt *int64

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Account Account `gorm:"foreignKey:AccountID"`
}
