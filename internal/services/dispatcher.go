package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/stripe/stripe-go/v79"
	"nexora/pkg/utils"
)

// HandlerResult describes the side effects a handler performed, in order.
type HandlerResult struct {
	Actions []string
}

// EventHandler applies the domain state transition for one event type.
// Handlers must be idempotent at the data layer (upsert by stable external
// IDs): the ledger suppresses duplicate events, not duplicate state changes
// arriving via different event types.
type EventHandler func(ctx context.Context, event *stripe.Event) (*HandlerResult, error)

// RetryPolicy is the dispatcher's bounded-retry configuration.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Delay returns the backoff before retrying after the given zero-based
// attempt: base * multiplier^attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  1.5,
		MaxDelay:    10 * time.Second,
	}
}

// EventDispatcher routes a verified, non-duplicate event to its handler and
// runs it under a timeout with bounded retries.
type EventDispatcher interface {
	Register(eventType stripe.EventType, handler EventHandler)
	Dispatch(ctx context.Context, event *stripe.Event) (*HandlerResult, error)
}

type eventDispatcher struct {
	handlers map[stripe.EventType]EventHandler
	policy   RetryPolicy
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEventDispatcher(policy RetryPolicy, timeout time.Duration) EventDispatcher {
	return &eventDispatcher{
		handlers: make(map[stripe.EventType]EventHandler),
		policy:   policy,
		timeout:  timeout,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *eventDispatcher) Register(eventType stripe.EventType, handler EventHandler) {
	d.handlers[eventType] = handler
}

func (d *eventDispatcher) Dispatch(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	handler, ok := d.handlers[event.Type]
	if !ok {
		// Unknown types must succeed or the provider retries forever; new
		// event types appear in its API over time.
		log.Printf("webhook: unhandled event type %s (%s)", event.Type, event.ID)
		return &HandlerResult{Actions: []string{"unhandled_event_type"}}, nil
	}

	var lastErr error
	for attempt := 0; attempt < d.policy.MaxAttempts; attempt++ {
		result, err := d.runAttempt(ctx, handler, event)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if utils.IsTerminal(err) {
			// Retrying won't fix a structurally malformed event.
			log.Printf("webhook: event %s failed validation: %v", event.ID, err)
			return nil, err
		}

		if attempt+1 < d.policy.MaxAttempts {
			delay := d.policy.Delay(attempt)
			log.Printf("webhook: event %s attempt %d failed (%v), retrying in %s", event.ID, attempt+1, err, delay)
			if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("event %s failed after %d attempts: %w", event.ID, d.policy.MaxAttempts, lastErr)
}

type attemptOutcome struct {
	result *HandlerResult
	err    error
}

func (d *eventDispatcher) runAttempt(ctx context.Context, handler EventHandler, event *stripe.Event) (*HandlerResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		result, err := handler(attemptCtx, event)
		done <- attemptOutcome{result: result, err: err}
	}()

	// A handler that overruns the timeout is abandoned; its in-flight side
	// effects are upserts keyed by external IDs, so a late completion is
	// harmless on retry.
	select {
	case out := <-done:
		return out.result, out.err
	case <-attemptCtx.Done():
		return nil, fmt.Errorf("handler timed out after %s: %w", d.timeout, attemptCtx.Err())
	}
}
