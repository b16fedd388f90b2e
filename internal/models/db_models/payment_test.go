package db_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{"pending to succeeded", PaymentStatusPending, PaymentStatusSucceeded, true},
		{"pending to failed", PaymentStatusPending, PaymentStatusFailed, true},
		{"pending to canceled", PaymentStatusPending, PaymentStatusCanceled, true},
		{"pending to refunded", PaymentStatusPending, PaymentStatusRefunded, false},
		{"succeeded to refunded", PaymentStatusSucceeded, PaymentStatusRefunded, true},
		{"succeeded to failed", PaymentStatusSucceeded, PaymentStatusFailed, false},
		{"succeeded to pending", PaymentStatusSucceeded, PaymentStatusPending, false},
		{"failed is terminal", PaymentStatusFailed, PaymentStatusSucceeded, false},
		{"canceled is terminal", PaymentStatusCanceled, PaymentStatusSucceeded, false},
		{"refunded is terminal", PaymentStatusRefunded, PaymentStatusSucceeded, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestPaymentStatusRedeliveryIsIdempotent(t *testing.T) {
	// Providers redeliver events, so a same-status update is always legal,
	// even for terminal statuses.
	for _, s := range []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusCanceled,
		PaymentStatusRefunded,
	} {
		assert.True(t, s.CanTransitionTo(s), "status %s should allow itself", s)
	}
}
