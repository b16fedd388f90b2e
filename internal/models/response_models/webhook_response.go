package response_models

// WebhookResult is the body returned to the provider for every accepted
// delivery, duplicates included.
type WebhookResult struct {
	Received         bool     `json:"received"`
	Processed        bool     `json:"processed"`
	Duplicate        bool     `json:"duplicate,omitempty"`
	EventID          string   `json:"eventId"`
	EventType        string   `json:"eventType"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
	Actions          []string `json:"actions,omitempty"`
}
