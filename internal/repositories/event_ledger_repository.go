package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"gorm.io/gorm"
	"nexora/internal/models/db_models"
	"nexora/pkg/utils"
)

type IEventLedgerRepository interface {
	// RecordReceived inserts a received row for eventID. Exactly one caller
	// wins for a given eventID; losers get utils.ErrDuplicateEvent. A prior
	// failed row is reclaimed in place so provider redelivery can retry it.
	RecordReceived(ctx context.Context, eventID, eventType string, payload []byte) error

	HasProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed finalizes the row. procErr may be nil.
	MarkProcessed(ctx context.Context, eventID string, status db_models.EventStatus, actions []string, processingTimeMs int64, procErr error) error

	FindByEventID(ctx context.Context, eventID string) (*db_models.ProcessedEvent, error)
	ListRecent(ctx context.Context, limit, offset int) ([]db_models.ProcessedEvent, error)
}

type EventLedgerRepository struct {
	db *gorm.DB
}

func NewEventLedgerRepository(db *gorm.DB) IEventLedgerRepository {
	return &EventLedgerRepository{db: db}
}

func (r EventLedgerRepository) RecordReceived(ctx context.Context, eventID, eventType string, payload []byte) error {
	row := db_models.ProcessedEvent{
		EventID:   eventID,
		EventType: eventType,
		Status:    db_models.EventStatusReceived,
		Attempts:  1,
		Payload:   payload,
	}

	err := r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	// The unique index rejected us. Failed rows are reclaimable: flip one
	// back to received, guarded by the status predicate so concurrent
	// reclaimers race on RowsAffected rather than double-processing.
	res := r.db.WithContext(ctx).Model(&db_models.ProcessedEvent{}).
		Where("event_id = ? AND status = ?", eventID, db_models.EventStatusFailed).
		Updates(map[string]interface{}{
			"status":   db_models.EventStatusReceived,
			"attempts": gorm.Expr("attempts + 1"),
			"error":    nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return utils.ErrDuplicateEvent
}

func (r EventLedgerRepository) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db_models.ProcessedEvent{}).
		Where("event_id = ? AND status = ?", eventID, db_models.EventStatusProcessed).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r EventLedgerRepository) MarkProcessed(ctx context.Context, eventID string, status db_models.EventStatus, actions []string, processingTimeMs int64, procErr error) error {
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":             status,
		"actions":            actionsJSON,
		"processing_time_ms": processingTimeMs,
		"processed_at":       utils.NowUnixSeconds(),
	}
	if procErr != nil {
		msg := procErr.Error()
		updates["error"] = msg
	}

	// A processed row is immutable; only in-flight rows may be finalized.
	return r.db.WithContext(ctx).Model(&db_models.ProcessedEvent{}).
		Where("event_id = ? AND status = ?", eventID, db_models.EventStatusReceived).
		Updates(updates).Error
}

func (r EventLedgerRepository) FindByEventID(ctx context.Context, eventID string) (*db_models.ProcessedEvent, error) {
	var row db_models.ProcessedEvent
	err := r.db.WithContext(ctx).First(&row, "event_id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r EventLedgerRepository) ListRecent(ctx context.Context, limit, offset int) ([]db_models.ProcessedEvent, error) {
	var rows []db_models.ProcessedEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
