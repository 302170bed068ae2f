package models

// Requests for the analysis HTTP endpoints. Defined in domain for consistency and reuse.

type ExpirationsRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,min=4,max=9"`
}

type GreekAnalysisRequest struct {
	Greek          string `param:"greek" json:"-" validate:"required,oneof=gamma delta vega theta"`
	Ticker         string `json:"ticker" validate:"required,min=4,max=9"`
	ExpirationCode string `json:"expiration_code" validate:"omitempty,len=8,numeric"`
	DaysBack       int    `json:"days_back" default:"10" validate:"gte=2,lte=30"`
}

type MacroAnalysisRequest struct {
	Ticker         string `json:"ticker" validate:"required,min=4,max=9"`
	ExpirationCode string `json:"expiration_code" validate:"omitempty,len=8,numeric"`
}

type HistoricalAnalysisRequest struct {
	Ticker     string `json:"ticker" validate:"required,min=4,max=9"`
	Vencimento string `json:"vencimento" validate:"required,len=8,numeric"`
	DaysBack   int    `json:"days_back" default:"3" validate:"gte=2,lte=5"`
}

type BandsRequest struct {
	Ticker string `json:"ticker" validate:"required,min=4,max=9"`
	Period string `json:"period" default:"2y" validate:"oneof=1y 2y 3y 5y"`
}
