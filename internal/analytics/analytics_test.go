package analytics

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

func rec(date string, amount string, category string) core.Record {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Record{Description: "x", Category: category, Amount: decimal.RequireFromString(amount), Date: d}
}

func sample() []core.Record {
	return []core.Record{
		rec("2024-01-01", "10", "Food"),
		rec("2024-01-02", "20", "Food"),
		rec("2024-02-01", "5", "Transport"),
	}
}

func requireDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestEmptySnapshotIsZero(t *testing.T) {
	s := Basic(nil)
	for name, v := range map[string]decimal.Decimal{"min": s.Min, "max": s.Max, "avg": s.Avg, "std_dev": s.StdDev} {
		requireDec(t, name, v, "0")
	}
	requireDec(t, "daily", DailyAverage(nil), "0")
	requireDec(t, "monthly", MonthlyAverage(nil), "0")
	if name, total, ok := TopCategory(nil); ok || name != "" || !total.IsZero() {
		t.Fatalf("expected no top category, got %q %s %v", name, total, ok)
	}
	if got := GapDays(nil); got != 0 {
		t.Fatalf("expected 0 gaps, got %d", got)
	}
}

func TestAverages(t *testing.T) {
	requireDec(t, "daily", DailyAverage(sample()), "11.67")
	requireDec(t, "monthly", MonthlyAverage(sample()), "17.5")
}

func TestDailyAverageCountsDistinctDates(t *testing.T) {
	records := []core.Record{
		rec("2024-03-01", "10", "A"),
		rec("2024-03-01", "20", "B"),
	}
	requireDec(t, "daily", DailyAverage(records), "30")
}

func TestTopCategory(t *testing.T) {
	name, total, ok := TopCategory(sample())
	if !ok || name != "Food" {
		t.Fatalf("expected Food, got %q ok=%v", name, ok)
	}
	requireDec(t, "total", total, "30")
}

func TestTopCategoryTieKeepsFirstSeen(t *testing.T) {
	records := []core.Record{
		rec("2024-01-01", "5", "Transport"),
		rec("2024-01-01", "3", "Food"),
		rec("2024-01-02", "2", "Food"),
	}
	name, _, _ := TopCategory(records)
	if name != "Transport" {
		t.Fatalf("expected first-seen Transport to win the tie, got %q", name)
	}
}

func TestGapDays(t *testing.T) {
	cases := []struct {
		name    string
		records []core.Record
		want    int
	}{
		{"single date", []core.Record{rec("2024-01-01", "1", "A")}, 0},
		{"same day twice", []core.Record{rec("2024-01-01", "1", "A"), rec("2024-01-01", "2", "A")}, 0},
		{"contiguous", []core.Record{rec("2024-01-01", "1", "A"), rec("2024-01-02", "1", "A")}, 0},
		{"example", sample(), 29},
		{"unsorted", []core.Record{rec("2024-01-10", "1", "A"), rec("2024-01-01", "1", "A"), rec("2024-01-05", "1", "A")}, 7},
		{"leap february", []core.Record{rec("2024-02-28", "1", "A"), rec("2024-03-01", "1", "A")}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GapDays(tc.records); got != tc.want {
				t.Fatalf("GapDays = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBasicStats(t *testing.T) {
	s := Basic([]core.Record{
		rec("2024-01-01", "2", "A"),
		rec("2024-01-01", "4", "A"),
		rec("2024-01-01", "4", "A"),
		rec("2024-01-01", "4", "A"),
		rec("2024-01-01", "5", "A"),
		rec("2024-01-01", "5", "A"),
		rec("2024-01-01", "7", "A"),
		rec("2024-01-01", "9", "A"),
	})
	requireDec(t, "min", s.Min, "2")
	requireDec(t, "max", s.Max, "9")
	requireDec(t, "avg", s.Avg, "5")
	requireDec(t, "std_dev", s.StdDev, "2")

	s = Basic(sample())
	requireDec(t, "avg", s.Avg, "11.67")
	requireDec(t, "std_dev", s.StdDev, "6.24")
}

func TestBasicStatsBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(20)
		records := make([]core.Record, n)
		for j := range records {
			cents := rng.Int63n(1_000_000)
			records[j] = core.Record{
				Description: "x",
				Category:    "A",
				Amount:      decimal.New(cents, -2),
				Date:        core.NewDate(2024, 1, 1+rng.Intn(28)),
			}
		}
		s := Basic(records)
		if s.Avg.LessThan(s.Min) || s.Avg.GreaterThan(s.Max) {
			t.Fatalf("avg %s outside [%s, %s]", s.Avg, s.Min, s.Max)
		}
		if s.StdDev.IsNegative() {
			t.Fatalf("negative std dev %s", s.StdDev)
		}
	}
}

func TestMonthlyTotals(t *testing.T) {
	got := MonthlyTotals([]core.Record{
		rec("2024-02-01", "5", "A"),
		rec("2024-01-01", "10", "A"),
		rec("2024-01-20", "2.5", "B"),
	})
	if len(got) != 2 || got[0].Month != "2024-01" || got[1].Month != "2024-02" {
		t.Fatalf("unexpected months: %+v", got)
	}
	requireDec(t, "january", got[0].Total, "12.5")
}

func TestSummarize(t *testing.T) {
	rep := Summarize(sample())
	if rep.Count != 3 || rep.GapDays != 29 || rep.TopCategory == nil || rep.TopCategory.Name != "Food" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	requireDec(t, "total", rep.Total, "35")
	if len(rep.ByCategory) != 2 || rep.ByCategory[0].Name != "Food" {
		t.Fatalf("unexpected categories: %+v", rep.ByCategory)
	}

	empty := Summarize(nil)
	if empty.TopCategory != nil || empty.ByCategory == nil {
		t.Fatalf("unexpected empty report: %+v", empty)
	}
}
