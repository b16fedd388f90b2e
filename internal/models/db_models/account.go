package db_models

// Account mirrors the user owned by the external auth provider. Only the
// billing-relevant slice lives here; identity and credentials stay upstream.
type Account struct {
	BaseModel
	Name  string
	Email string `gorm:"unique"`

	// Current entitlement, kept in sync by webhook handlers.
	Plan string `gorm:"default:'free';index"`

	Provider           string `gorm:"index"`
	ProviderCustomerID string `gorm:"index"`

	Payments      []Payment
	Subscriptions []Subscription
}
