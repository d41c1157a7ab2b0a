package analytics

import (
	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Report bundles every aggregate for one snapshot.
type Report struct {
	Count          int                   `json:"count"`
	Total          decimal.Decimal       `json:"total"`
	Stats          Stats                 `json:"stats"`
	DailyAverage   decimal.Decimal       `json:"daily_average"`
	MonthlyAverage decimal.Decimal       `json:"monthly_average"`
	TopCategory    *core.CategoryAmount  `json:"top_category"`
	GapDays        int                   `json:"gap_days"`
	ByCategory     []core.CategoryAmount `json:"by_category"`
	ByMonth        []core.MonthTotal     `json:"by_month"`
}

// Summarize computes a Report. TopCategory is nil for an empty snapshot.
func Summarize(records []core.Record) Report {
	rep := Report{
		Count:          len(records),
		Total:          Total(records),
		Stats:          Basic(records),
		DailyAverage:   DailyAverage(records),
		MonthlyAverage: MonthlyAverage(records),
		GapDays:        GapDays(records),
		ByCategory:     CategoryTotals(records),
		ByMonth:        MonthlyTotals(records),
	}
	if name, total, ok := TopCategory(records); ok {
		rep.TopCategory = &core.CategoryAmount{Name: name, Amount: total}
	}
	if rep.ByCategory == nil {
		rep.ByCategory = []core.CategoryAmount{}
	}
	return rep
}
