package db_models

import (
	"gorm.io/datatypes"
)

// Plan is the local catalog entry a provider price maps onto. Entitlement
// decisions key off Code, not provider price IDs.
type Plan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g. "free", "pro", "studio"
	Name        string
	Description *string

	Cycle      BillingCycle `gorm:"type:billing_cycle"`
	PriceMinor int64        // 1500 = $15.00
	Currency   string       `gorm:"size:3"`

	// Provider price identifier, e.g. a Stripe price ID, used to resolve the
	// plan from webhook payloads when metadata is missing.
	ProviderPriceID string `gorm:"index"`

	Credits  int32 `gorm:"default:0"` // portrait credits granted per cycle
	IsActive bool  `gorm:"default:true"`

	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
