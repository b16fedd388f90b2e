package services

import (
	"context"
	"log"
)

// AnalyticsSink records processing outcomes and revenue events. All calls
// are fire-and-forget: a sink failure must never fail the webhook response.
type AnalyticsSink interface {
	Track(ctx context.Context, event string, props map[string]interface{})
}

type logAnalyticsSink struct{}

func NewLogAnalyticsSink() AnalyticsSink {
	return &logAnalyticsSink{}
}

func (s *logAnalyticsSink) Track(_ context.Context, event string, props map[string]interface{}) {
	log.Printf("analytics: %s %v", event, props)
}
