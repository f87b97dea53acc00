package models

// Requests for the forecast HTTP endpoints. Defined in domain for consistency and reuse.

type RefreshRequest struct {
	Force bool `query:"force" json:"force" default:"false"`
}

type HistoryRequest struct {
	Limit      int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=500"`
	WindowDays int `query:"window_days" json:"window_days" default:"0" validate:"gte=0,lte=3650"`
}

type PricesRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=3650"`
}
