package db_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    SubscriptionStatus
		to      SubscriptionStatus
		allowed bool
	}{
		{"trialing to active", SubStatusTrialing, SubStatusActive, true},
		{"trialing to canceled", SubStatusTrialing, SubStatusCanceled, true},
		{"active to past_due", SubStatusActive, SubStatusPastDue, true},
		{"active to cancel_at_period_end", SubStatusActive, SubStatusCancelAtPeriodEnd, true},
		{"active to trialing", SubStatusActive, SubStatusTrialing, false},
		{"past_due recovers to active", SubStatusPastDue, SubStatusActive, true},
		{"cancel_at_period_end resumes to active", SubStatusCancelAtPeriodEnd, SubStatusActive, true},
		{"cancel_at_period_end to past_due", SubStatusCancelAtPeriodEnd, SubStatusPastDue, false},
		{"canceled is terminal", SubStatusCanceled, SubStatusActive, false},
		{"canceled never trials again", SubStatusCanceled, SubStatusTrialing, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestSubscriptionStatusRedeliveryIsIdempotent(t *testing.T) {
	for _, s := range []SubscriptionStatus{
		SubStatusTrialing,
		SubStatusActive,
		SubStatusPastDue,
		SubStatusCancelAtPeriodEnd,
		SubStatusCanceled,
	} {
		assert.True(t, s.CanTransitionTo(s), "status %s should allow itself", s)
	}
}
