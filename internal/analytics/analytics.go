// Package analytics computes summary statistics over a ledger snapshot.
// Every function is pure and deterministic; empty input yields zero values
// rather than errors.
package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Stats describes the dispersion of record amounts.
type Stats struct {
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Avg    decimal.Decimal `json:"avg"`
	StdDev decimal.Decimal `json:"std_dev"`
}

// Basic returns min, max, mean and population standard deviation. Avg and
// StdDev are rounded to two decimals.
func Basic(records []core.Record) Stats {
	if len(records) == 0 {
		return Stats{Min: decimal.Zero, Max: decimal.Zero, Avg: decimal.Zero, StdDev: decimal.Zero}
	}

	minAmt, maxAmt := records[0].Amount, records[0].Amount
	for _, r := range records[1:] {
		if r.Amount.LessThan(minAmt) {
			minAmt = r.Amount
		}
		if r.Amount.GreaterThan(maxAmt) {
			maxAmt = r.Amount
		}
	}

	n := decimal.NewFromInt(int64(len(records)))
	mean := Total(records).Div(n)

	variance := decimal.Zero
	for _, r := range records {
		diff := r.Amount.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(n)
	v, _ := variance.Float64()

	return Stats{
		Min:    minAmt,
		Max:    maxAmt,
		Avg:    core.Round2(mean),
		StdDev: core.Round2(decimal.NewFromFloat(math.Sqrt(v))),
	}
}

// Total sums all amounts.
func Total(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// DailyAverage divides the total by the number of distinct dates. With no
// dates it returns the raw total.
func DailyAverage(records []core.Record) decimal.Decimal {
	days := make(map[string]struct{})
	for _, r := range records {
		days[r.Date.String()] = struct{}{}
	}
	return averageOver(Total(records), len(days))
}

// MonthlyAverage divides the total by the number of distinct YYYY-MM months.
func MonthlyAverage(records []core.Record) decimal.Decimal {
	months := make(map[string]struct{})
	for _, r := range records {
		months[r.Date.MonthKey()] = struct{}{}
	}
	return averageOver(Total(records), len(months))
}

func averageOver(total decimal.Decimal, buckets int) decimal.Decimal {
	if buckets == 0 {
		return total
	}
	return core.Round2(total.Div(decimal.NewFromInt(int64(buckets))))
}

// CategoryTotals sums amounts per category in first-seen order.
func CategoryTotals(records []core.Record) []core.CategoryAmount {
	index := make(map[string]int)
	var out []core.CategoryAmount
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, core.CategoryAmount{Name: r.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}

// TopCategory returns the category with the largest total. Among equal
// totals the category seen first wins. ok is false when there are no records.
func TopCategory(records []core.Record) (name string, total decimal.Decimal, ok bool) {
	total = decimal.Zero
	for _, c := range CategoryTotals(records) {
		if !ok || c.Amount.GreaterThan(total) {
			name, total, ok = c.Name, c.Amount, true
		}
	}
	return name, total, ok
}

// MonthlyTotals sums amounts per month in ascending month order.
func MonthlyTotals(records []core.Record) []core.MonthTotal {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		key := r.Date.MonthKey()
		sums[key] = sums[key].Add(r.Amount)
	}
	out := make([]core.MonthTotal, 0, len(sums))
	for month, total := range sums {
		out = append(out, core.MonthTotal{Month: month, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// GapDays counts calendar days with no activity that lie strictly between
// two days with activity.
func GapDays(records []core.Record) int {
	seen := make(map[string]core.Date)
	for _, r := range records {
		seen[r.Date.String()] = r.Date
	}
	if len(seen) < 2 {
		return 0
	}

	dates := make([]core.Date, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j].Time) })

	gaps := 0
	for i := 1; i < len(dates); i++ {
		if diff := dates[i-1].DaysUntil(dates[i]); diff > 1 {
			gaps += diff - 1
		}
	}
	return gaps
}
