package response_models

type LedgerEntry struct {
	EventID          string   `json:"event_id"`
	EventType        string   `json:"event_type"`
	Status           string   `json:"status"`
	Attempts         int      `json:"attempts"`
	Actions          []string `json:"actions"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Error            *string  `json:"error,omitempty"`
	ProcessedAt      string   `json:"processed_at,omitempty"`
	ReceivedAt       string   `json:"received_at,omitempty"`
}
