package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v79"
	"nexora/internal/models/db_models"
	"nexora/internal/models/response_models"
	"nexora/internal/repositories"
	"nexora/pkg/utils"
)

// WebhookConfig carries the externally tunable knobs of the pipeline.
type WebhookConfig struct {
	Secret          string
	FreshnessWindow time.Duration
	HandlerTimeout  time.Duration
	Retry           RetryPolicy
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// WebhookService runs the full event pipeline: verify, claim the ledger row,
// dispatch, finalize, audit.
type WebhookService interface {
	ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) (*response_models.WebhookResult, error)

	// ReplayEvent re-runs a failed ledger entry from its stored payload.
	ReplayEvent(ctx context.Context, eventID string) (*response_models.WebhookResult, error)
}

type webhookService struct {
	verifier   SignatureVerifier
	ledger     repositories.IEventLedgerRepository
	dispatcher EventDispatcher
	analytics  AnalyticsSink
	now        func() time.Time
}

func NewWebhookService(
	verifier SignatureVerifier,
	ledger repositories.IEventLedgerRepository,
	dispatcher EventDispatcher,
	analytics AnalyticsSink,
) WebhookService {
	return &webhookService{
		verifier:   verifier,
		ledger:     ledger,
		dispatcher: dispatcher,
		analytics:  analytics,
		now:        time.Now,
	}
}

func (s *webhookService) ProcessWebhook(ctx context.Context, payload []byte, sigHeader string) (*response_models.WebhookResult, error) {
	event, err := s.verifier.Verify(payload, sigHeader)
	if err != nil {
		return nil, err
	}

	start := s.now()
	if err := s.ledger.RecordReceived(ctx, event.ID, string(event.Type), payload); err != nil {
		if errors.Is(err, utils.ErrDuplicateEvent) {
			log.Printf("webhook: duplicate delivery of %s, ignoring", event.ID)
			return &response_models.WebhookResult{
				Received:  true,
				Duplicate: true,
				EventID:   event.ID,
				EventType: string(event.Type),
				Actions:   []string{"duplicate_ignored"},
			}, nil
		}
		return nil, fmt.Errorf("%w: record event %s: %v", utils.ErrDatabaseError, event.ID, err)
	}

	return s.runEvent(ctx, event, start)
}

func (s *webhookService) ReplayEvent(ctx context.Context, eventID string) (*response_models.WebhookResult, error) {
	row, err := s.ledger.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if row == nil {
		return nil, utils.ErrRecordNotFound
	}
	if row.Status != db_models.EventStatusFailed {
		return nil, fmt.Errorf("%w: event %s is %s, only failed events can be replayed", utils.ErrNotReplayable, eventID, row.Status)
	}

	// Reclaim the failed row; a concurrent redelivery may beat us to it.
	if err := s.ledger.RecordReceived(ctx, eventID, row.EventType, row.Payload); err != nil {
		if errors.Is(err, utils.ErrDuplicateEvent) {
			return nil, fmt.Errorf("%w: event %s is already being reprocessed", utils.ErrNotReplayable, eventID)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		markErr := fmt.Errorf("stored payload unparseable: %w", err)
		_ = s.ledger.MarkProcessed(ctx, eventID, db_models.EventStatusFailed, nil, 0, markErr)
		return nil, markErr
	}

	return s.runEvent(ctx, &event, s.now())
}

func (s *webhookService) runEvent(ctx context.Context, event *stripe.Event, start time.Time) (*response_models.WebhookResult, error) {
	result, dispatchErr := s.dispatcher.Dispatch(ctx, event)
	elapsedMs := s.now().Sub(start).Milliseconds()

	if dispatchErr != nil {
		// failed, not processed: the ledger allows this event to be retried
		// on the provider's next redelivery.
		if err := s.ledger.MarkProcessed(ctx, event.ID, db_models.EventStatusFailed, nil, elapsedMs, dispatchErr); err != nil {
			log.Printf("webhook: marking event %s failed: %v", event.ID, err)
		}
		s.analytics.Track(ctx, "webhook_failed", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": string(event.Type),
			"error":      dispatchErr.Error(),
		})
		return nil, dispatchErr
	}

	if err := s.ledger.MarkProcessed(ctx, event.ID, db_models.EventStatusProcessed, result.Actions, elapsedMs, nil); err != nil {
		log.Printf("webhook: marking event %s processed: %v", event.ID, err)
	}
	s.analytics.Track(ctx, "webhook_processed", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"actions":    result.Actions,
		"elapsed_ms": elapsedMs,
	})

	return &response_models.WebhookResult{
		Received:         true,
		Processed:        true,
		EventID:          event.ID,
		EventType:        string(event.Type),
		ProcessingTimeMs: elapsedMs,
		Actions:          result.Actions,
	}, nil
}
