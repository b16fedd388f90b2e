package response_models

type PlanInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Cycle      string `json:"cycle"`
	PriceMinor int64  `json:"price_minor"`
	Currency   string `json:"currency"`
	Credits    int32  `json:"credits"`
	IsActive   bool   `json:"is_active"`
}
