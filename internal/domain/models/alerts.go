package models

import "time"

// Severity of an alert.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Alert is a macro-level condition worth surfacing.
type Alert struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    *float64 `json:"value"`
}

// Opportunity is a trade idea derived from combined exposures.
type Opportunity struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RiskZone marks a strike of elevated risk.
type RiskZone struct {
	Strike float64  `json:"strike"`
	Impact Severity `json:"impact"`
	Reason string   `json:"reason"`
}

// AlertEvent is the message published for downstream consumers.
type AlertEvent struct {
	Symbol     string    `json:"symbol"`
	Expiration string    `json:"expiration"`
	Spot       float64   `json:"spot"`
	Alerts     []Alert   `json:"alerts"`
	At         time.Time `json:"at"`
}
