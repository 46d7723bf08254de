package models

// Requests for the prediction HTTP endpoints. Defined in domain for
// consistency and reuse.

type PredictRequest struct {
	Symbol       string    `json:"symbol" validate:"required"`
	Horizon      string    `json:"horizon" default:"10d" validate:"oneof=1d 5d 10d 30d"`
	RecentPrices []float64 `json:"recent_prices,omitempty" validate:"omitempty,min=1,dive,gt=0"`
}

type BatchPredictRequest struct {
	Symbols        []string  `json:"symbols" validate:"required,min=1,max=100,dive,required"`
	Horizon        string    `json:"horizon" default:"10d" validate:"oneof=1d 5d 10d 30d"`
	RecentPrices   []float64 `json:"recent_prices,omitempty" validate:"omitempty,min=1,dive,gt=0"`
	MaxConcurrency int       `json:"max_concurrency" default:"4" validate:"gte=1,lte=32"`
}
