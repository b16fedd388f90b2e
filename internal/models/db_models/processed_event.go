package db_models

import (
	"gorm.io/datatypes"
)

type EventStatus string

const (
	EventStatusReceived  EventStatus = "received"
	EventStatusDuplicate EventStatus = "duplicate"
	EventStatusProcessed EventStatus = "processed"
	EventStatusFailed    EventStatus = "failed"
)

// ProcessedEvent is the webhook ledger. The uniqueIndex on EventID is the
// serialization point for duplicate suppression: concurrent deliveries of the
// same event race on this insert and exactly one wins.
type ProcessedEvent struct {
	BaseModel
	EventID   string      `gorm:"uniqueIndex;size:255;not null"`
	EventType string      `gorm:"size:100;index"`
	Status    EventStatus `gorm:"type:event_status;index"`

	ProcessingTimeMs int64
	Attempts         int `gorm:"default:0"`

	// Ordered side-effect names performed by the handler, e.g.
	// ["payment_updated","plan_entitlement_updated"].
	Actions datatypes.JSON `gorm:"type:jsonb;default:'[]'"`

	// Raw provider payload, kept so failed events can be replayed from the
	// admin API without waiting for provider redelivery.
	Payload datatypes.JSON `gorm:"type:jsonb"`

	Error       *string
	ProcessedAt *int64 // unix seconds
}
