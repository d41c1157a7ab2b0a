// Package alerts composes the budget and inactivity messages shown to a
// tenant.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/budget"
	"ledger/internal/core"
	"ledger/internal/store"
)

// InactivityThreshold is the number of days without records after which an
// inactivity alert is raised.
const InactivityThreshold = 3

// Compose returns the budget alert (only when exceeded) followed by exactly
// one activity message. It never fails.
func Compose(records []core.Record, status budget.Status, today core.Date) []core.Alert {
	var out []core.Alert
	if status.Kind == budget.KindExceeded {
		out = append(out, core.Alert{
			Kind: core.AlertBudgetExceeded,
			Message: fmt.Sprintf("Monthly budget exceeded: spent %s of %s",
				status.Spent.StringFixed(2), status.Limit.StringFixed(2)),
		})
	}
	return append(out, activity(records, today))
}

func activity(records []core.Record, today core.Date) core.Alert {
	if len(records) == 0 {
		return core.Alert{Kind: core.AlertNoRecords, Message: "No expenses recorded yet"}
	}

	last := records[0].Date
	for _, r := range records[1:] {
		if r.Date.After(last.Time) {
			last = r.Date
		}
	}

	days := last.DaysUntil(today)
	if days >= InactivityThreshold {
		return core.Alert{
			Kind:    core.AlertInactivity,
			Message: fmt.Sprintf("No expenses recorded in the last %d days", days),
		}
	}
	return core.Alert{Kind: core.AlertRecentActivity, Message: "Expenses recorded recently"}
}

// Service loads the tenant's records and budget status and composes alerts.
type Service struct {
	records store.RecordStore
	budget  *budget.Manager
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(records store.RecordStore, manager *budget.Manager, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, budget: manager, now: now, logger: logger}
}

// Alerts returns the composed alerts for the tenant in ctx. The budget and
// activity alerts are both computed from one load of the ledger.
func (s *Service) Alerts(ctx context.Context) ([]core.Alert, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	state, err := s.budget.State(ctx)
	if err != nil {
		return nil, err
	}
	today := core.DateOf(s.now())
	status := budget.Evaluate(state, records, today.MonthKey())
	alerts := Compose(records, status, today)
	s.logger.DebugContext(ctx, "Alerts composed", "count", len(alerts))
	return alerts, nil
}
