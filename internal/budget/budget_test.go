package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/session"
	"ledger/internal/store/memory"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func record(t *testing.T, amount, date string) core.Record {
	t.Helper()
	r, err := core.NewRecord("item", "Misc", dec(amount), date)
	require.NoError(t, err)
	return r
}

func TestEvaluate(t *testing.T) {
	limit := func(s string) core.BudgetState {
		return core.BudgetState{MonthlyLimit: decimal.NewNullDecimal(dec(s))}
	}

	cases := []struct {
		name      string
		state     core.BudgetState
		amounts   []string
		kind      Kind
		remaining string
		overspend string
	}{
		{"unset", core.BudgetState{}, []string{"40"}, KindUnset, "0", "0"},
		{"under", limit("100"), []string{"30", "20"}, KindOK, "50", "0"},
		{"exactly at limit", limit("100"), []string{"60", "40"}, KindOK, "0", "0"},
		{"over", limit("100"), []string{"100", "50"}, KindExceeded, "0", "50"},
		{"zero limit no spend", limit("0"), nil, KindOK, "0", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var records []core.Record
			for _, a := range tc.amounts {
				records = append(records, record(t, a, "2024-03-02"))
			}
			st := Evaluate(tc.state, records, "2024-03")
			assert.Equal(t, tc.kind, st.Kind)
			assert.True(t, st.Remaining.Equal(dec(tc.remaining)), "remaining %s", st.Remaining)
			assert.True(t, st.Overspend.Equal(dec(tc.overspend)), "overspend %s", st.Overspend)
		})
	}
}

func TestSpentInIgnoresOtherMonths(t *testing.T) {
	records := []core.Record{
		record(t, "10", "2024-02-29"),
		record(t, "5", "2024-03-01"),
		record(t, "7.25", "2024-03-31"),
		record(t, "100", "2023-03-15"),
	}
	assert.True(t, SpentIn(records, "2024-03").Equal(dec("12.25")))
	assert.True(t, SpentIn(records, "2025-01").IsZero())
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "No budget configured", Status{Kind: KindUnset}.Message())
	msg := Status{Kind: KindExceeded, Month: "2024-03", Limit: dec("100"), Spent: dec("150"), Overspend: dec("50")}.Message()
	assert.Contains(t, msg, "50.00")
	assert.Contains(t, msg, "150.00")
}

func TestManagerRejectsNegativeBudget(t *testing.T) {
	st := memory.New()
	m := NewManager(st, st, WithClock(fixedNow))

	_, err := m.SetMonthlyBudget(context.Background(), dec("-1"))
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	state, err := m.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsSet())
}

func TestManagerStatusUsesCurrentMonth(t *testing.T) {
	st := memory.New()
	ctx := session.WithTenant(context.Background(), "alice")
	require.NoError(t, st.Save(ctx, []core.Record{
		record(t, "90", "2024-03-01"),
		record(t, "60", "2024-03-14"),
		record(t, "500", "2024-02-10"),
	}))

	m := NewManager(st, st, WithClock(fixedNow))

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindUnset, status.Kind)

	state, err := m.SetMonthlyBudget(ctx, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), state.UpdatedAt)

	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindExceeded, status.Kind)
	assert.Equal(t, "2024-03", status.Month)
	assert.True(t, status.Overspend.Equal(dec("50")))

	// Setting again stays set with the new value.
	_, err = m.SetMonthlyBudget(ctx, dec("150"))
	require.NoError(t, err)
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindOK, status.Kind)
	assert.True(t, status.Remaining.IsZero())

	// Another tenant keeps its own budget.
	other, err := m.State(session.WithTenant(context.Background(), "bob"))
	require.NoError(t, err)
	assert.False(t, other.IsSet())
}

func TestManagerMonthlySpent(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, []core.Record{
		record(t, "3", "2024-03-01"),
		record(t, "4", "2024-01-01"),
	}))
	m := NewManager(st, st, WithClock(fixedNow))

	spent, err := m.MonthlySpent(ctx, "")
	require.NoError(t, err)
	assert.True(t, spent.Equal(dec("3")))

	spent, err = m.MonthlySpent(ctx, "2024-01")
	require.NoError(t, err)
	assert.True(t, spent.Equal(dec("4")))
}

type brokenBudgets struct{ *memory.Store }

func (brokenBudgets) SaveBudget(context.Context, core.BudgetState) error {
	return errors.New("read-only")
}

func TestManagerPropagatesSaveFailure(t *testing.T) {
	st := memory.New()
	m := NewManager(brokenBudgets{st}, st, WithClock(fixedNow))
	_, err := m.SetMonthlyBudget(context.Background(), dec("10"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrInvalidAmount))
}
