package services

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"nexora/pkg/utils"
)

// SignatureVerifier authenticates a raw webhook delivery and parses it into
// a provider event. Verification runs over the exact byte sequence, so the
// body must not be decoded before calling Verify.
type SignatureVerifier interface {
	Verify(payload []byte, sigHeader string) (*stripe.Event, error)
}

type stripeVerifier struct {
	secret    string
	freshness time.Duration
	now       func() time.Time
}

func NewStripeVerifier(secret string, freshness time.Duration) SignatureVerifier {
	return &stripeVerifier{
		secret:    secret,
		freshness: freshness,
		now:       time.Now,
	}
}

func (v *stripeVerifier) Verify(payload []byte, sigHeader string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidSignature, err)
	}

	// Replay mitigation on top of the signature timestamp tolerance: reject
	// events the provider created too long ago.
	if v.freshness > 0 {
		age := v.now().Sub(time.Unix(event.Created, 0))
		if age > v.freshness {
			return nil, fmt.Errorf("%w: event %s created %s ago", utils.ErrStaleEvent, event.ID, age.Round(time.Second))
		}
	}

	return &event, nil
}
