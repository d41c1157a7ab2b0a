package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/analytics"
	"ledger/internal/core"
	"ledger/internal/currency"
	"ledger/internal/log"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var (
		records []core.Record
		err     error
	)
	if month := strings.TrimSpace(r.URL.Query().Get("month")); month != "" {
		records, err = s.services.Ledger.FilterByMonth(r.Context(), month)
	} else {
		records, err = s.services.Ledger.List(r.Context())
	}
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(analytics.Summarize(records)).Write(w)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.services.Alerts.Alerts(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(alerts).Write(w)
}

// budgetView is the JSON shape of the budget state. MonthlyLimit is null
// while no budget is configured.
type budgetView struct {
	MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
	UpdatedAt    *string          `json:"updated_at"`
}

func newBudgetView(state core.BudgetState) budgetView {
	var v budgetView
	if state.IsSet() {
		limit := state.MonthlyLimit.Decimal
		ts := state.UpdatedAt.UTC().Format(time.RFC3339)
		v.MonthlyLimit, v.UpdatedAt = &limit, &ts
	}
	return v
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	state, err := s.services.Budget.State(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(newBudgetView(state)).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		s.fail(w, r, err, log.OpUpdate)
		return
	}
	state, err := s.services.Budget.SetMonthlyBudget(r.Context(), req.MonthlyLimit)
	if err != nil {
		s.fail(w, r, err, log.OpUpdate)
		return
	}
	NewJSONResponse().Data(newBudgetView(state)).Write(w)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Budget.Status(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(struct {
		Kind      string          `json:"kind"`
		Month     string          `json:"month"`
		Limit     decimal.Decimal `json:"limit"`
		Spent     decimal.Decimal `json:"spent"`
		Remaining decimal.Decimal `json:"remaining"`
		Overspend decimal.Decimal `json:"overspend"`
		Message   string          `json:"message"`
	}{
		Kind:      string(status.Kind),
		Month:     status.Month,
		Limit:     status.Limit,
		Spent:     status.Spent,
		Remaining: status.Remaining,
		Overspend: status.Overspend,
		Message:   status.Message(),
	}).Write(w)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: amount %q is not a number", core.ErrValidation, q.Get("amount")), log.OpRead)
		return
	}
	code := q.Get("code")
	converted, err := currency.Convert(amount, code)
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"amount":    amount,
		"code":      strings.ToUpper(strings.TrimSpace(code)),
		"converted": converted,
		"supported": currency.Codes(),
	}).Write(w)
}
