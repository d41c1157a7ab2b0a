package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthTotal is the summed amount of one YYYY-MM month.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// AlertKind classifies a composed alert.
type AlertKind string

const (
	AlertBudgetExceeded AlertKind = "budget_exceeded"
	AlertInactivity     AlertKind = "inactivity"
	AlertRecentActivity AlertKind = "recent_activity"
	AlertNoRecords      AlertKind = "no_records"
)

// Alert is a derived, human-readable message. It is never persisted.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}
