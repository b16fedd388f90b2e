package response_models

type PaymentSummary struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Plan     string `json:"plan"`
	Provider string `json:"provider"`
	PaidAt   string `json:"paid_at,omitempty"`
}

type SubscriptionSummary struct {
	Status             string `json:"status"`
	Plan               string `json:"plan"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	BillingCycle       string `json:"billing_cycle"`
}

type AccountBilling struct {
	AccountID    string               `json:"account_id"`
	Email        string               `json:"email"`
	Plan         string               `json:"plan"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
	Payments     []PaymentSummary     `json:"payments"`
}
