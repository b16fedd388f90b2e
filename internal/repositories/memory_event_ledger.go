package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"nexora/internal/models/db_models"
	"nexora/pkg/utils"
)

// MemoryEventLedger is the single-instance fallback implementation of the
// event ledger. The mutex plays the role the database unique index plays in
// the gorm implementation.
type MemoryEventLedger struct {
	mu   sync.Mutex
	rows map[string]*db_models.ProcessedEvent
	seq  int64
}

func NewMemoryEventLedger() *MemoryEventLedger {
	return &MemoryEventLedger{rows: make(map[string]*db_models.ProcessedEvent)}
}

func (m *MemoryEventLedger) RecordReceived(_ context.Context, eventID, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rows[eventID]; ok {
		if existing.Status == db_models.EventStatusFailed {
			existing.Status = db_models.EventStatusReceived
			existing.Attempts++
			existing.Error = nil
			return nil
		}
		return utils.ErrDuplicateEvent
	}

	m.seq++
	row := &db_models.ProcessedEvent{
		EventID:   eventID,
		EventType: eventType,
		Status:    db_models.EventStatusReceived,
		Attempts:  1,
		Payload:   payload,
	}
	row.CreatedAt = m.seq
	m.rows[eventID] = row
	return nil
}

func (m *MemoryEventLedger) HasProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[eventID]
	return ok && row.Status == db_models.EventStatusProcessed, nil
}

func (m *MemoryEventLedger) MarkProcessed(_ context.Context, eventID string, status db_models.EventStatus, actions []string, processingTimeMs int64, procErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[eventID]
	if !ok || row.Status != db_models.EventStatusReceived {
		return nil
	}

	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	row.Status = status
	row.Actions = actionsJSON
	row.ProcessingTimeMs = processingTimeMs
	now := utils.NowUnixSeconds()
	row.ProcessedAt = &now
	if procErr != nil {
		msg := procErr.Error()
		row.Error = &msg
	}
	return nil
}

func (m *MemoryEventLedger) FindByEventID(_ context.Context, eventID string) (*db_models.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[eventID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (m *MemoryEventLedger) ListRecent(_ context.Context, limit, offset int) ([]db_models.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]db_models.ProcessedEvent, 0, len(m.rows))
	for _, row := range m.rows {
		all = append(all, *row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })

	if offset >= len(all) {
		return []db_models.ProcessedEvent{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
