// Package budget manages the monthly spending limit and classifies the
// current month's spend against it.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/session"
	"ledger/internal/store"
)

// Kind is the budget state as seen by callers.
type Kind string

const (
	KindUnset    Kind = "unset"
	KindOK       Kind = "ok"
	KindExceeded Kind = "exceeded"
)

// Status is the outcome of comparing a month's spend to the limit.
// Remaining is set only for KindOK, Overspend only for KindExceeded.
type Status struct {
	Kind      Kind            `json:"kind"`
	Month     string          `json:"month"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Overspend decimal.Decimal `json:"overspend"`
}

// Message renders the status as a single human-readable line.
func (s Status) Message() string {
	switch s.Kind {
	case KindOK:
		return fmt.Sprintf("Budget OK: %s remaining of %s for %s",
			s.Remaining.StringFixed(2), s.Limit.StringFixed(2), s.Month)
	case KindExceeded:
		return fmt.Sprintf("Budget exceeded by %s: spent %s of %s for %s",
			s.Overspend.StringFixed(2), s.Spent.StringFixed(2), s.Limit.StringFixed(2), s.Month)
	default:
		return "No budget configured"
	}
}

// SpentIn sums the amounts of records dated in month (YYYY-MM).
func SpentIn(records []core.Record, month string) decimal.Decimal {
	spent := decimal.Zero
	for _, r := range records {
		if r.Date.MonthKey() == month {
			spent = spent.Add(r.Amount)
		}
	}
	return spent
}

// Evaluate classifies the spend of month against state. Spending exactly the
// limit is still within budget.
func Evaluate(state core.BudgetState, records []core.Record, month string) Status {
	spent := SpentIn(records, month)
	st := Status{
		Kind:      KindUnset,
		Month:     month,
		Limit:     decimal.Zero,
		Spent:     spent,
		Remaining: decimal.Zero,
		Overspend: decimal.Zero,
	}
	if !state.IsSet() {
		return st
	}

	st.Limit = state.MonthlyLimit.Decimal
	if spent.GreaterThan(st.Limit) {
		st.Kind = KindExceeded
		st.Overspend = spent.Sub(st.Limit)
		return st
	}
	st.Kind = KindOK
	st.Remaining = st.Limit.Sub(spent)
	return st
}

type Manager struct {
	budgets store.BudgetStore
	records store.RecordStore
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(budgets store.BudgetStore, records store.RecordStore, opts ...Option) *Manager {
	m := &Manager{
		budgets: budgets,
		records: records,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMonthlyBudget overwrites the limit and stamps it with the current time.
func (m *Manager) SetMonthlyBudget(ctx context.Context, amount decimal.Decimal) (core.BudgetState, error) {
	if amount.IsNegative() {
		return core.BudgetState{}, fmt.Errorf("%w: monthly budget must not be negative", core.ErrInvalidAmount)
	}

	state := core.BudgetState{
		MonthlyLimit: decimal.NewNullDecimal(amount),
		UpdatedAt:    m.now().UTC(),
	}
	if err := m.budgets.SaveBudget(ctx, state); err != nil {
		return core.BudgetState{}, fmt.Errorf("save budget: %w", err)
	}

	m.logger.InfoContext(ctx, "Monthly budget set",
		"tenant", session.TenantOrDefault(ctx).String(),
		"limit", amount.String())
	return state, nil
}

// State returns the persisted budget. An unset budget is not an error.
func (m *Manager) State(ctx context.Context) (core.BudgetState, error) {
	state, err := m.budgets.LoadBudget(ctx)
	if err != nil {
		return core.BudgetState{}, fmt.Errorf("load budget: %w", err)
	}
	return state, nil
}

// MonthlySpent sums the spend of month, or of the current month when month
// is empty.
func (m *Manager) MonthlySpent(ctx context.Context, month string) (decimal.Decimal, error) {
	if month == "" {
		month = m.currentMonth()
	}
	records, err := m.records.Load(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load ledger: %w", err)
	}
	return SpentIn(records, month), nil
}

// Status evaluates the current month against the persisted budget.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	state, err := m.State(ctx)
	if err != nil {
		return Status{}, err
	}
	records, err := m.records.Load(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load ledger: %w", err)
	}
	st := Evaluate(state, records, m.currentMonth())
	if st.Kind == KindExceeded {
		m.logger.WarnContext(ctx, "Monthly budget exceeded",
			"tenant", session.TenantOrDefault(ctx).String(),
			"month", st.Month,
			"overspend", st.Overspend.String())
	}
	return st, nil
}

func (m *Manager) currentMonth() string {
	return core.DateOf(m.now()).MonthKey()
}
