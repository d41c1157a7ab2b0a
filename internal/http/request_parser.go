// Package http provides the JSON HTTP binding of the ledger.
//
// This file implements utilities for parsing and validating request data.
// Bodies are decoded strictly: unknown fields and trailing data are rejected.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/session"
)

const (
	// TenantHeader selects the active tenant. Absent means the shared ledger.
	TenantHeader = "X-Ledger-Tenant"

	maxBodyBytes = 1 << 20
)

// AmountInput accepts an amount as a JSON number, including exponent form,
// or as a string with a dot or comma decimal separator. Either way the value
// is rounded half-up to cents.
type AmountInput struct {
	Value decimal.Decimal
	Set   bool
}

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return fmt.Errorf("%w: amount must not be null", core.ErrValidation)
	}

	var (
		d   decimal.Decimal
		err error
	)
	if unq, uerr := strconv.Unquote(s); uerr == nil {
		d, err = core.ParseAmount(unq)
	} else {
		d, err = parseJSONNumber(s)
	}
	if err != nil {
		return err
	}
	a.Value, a.Set = d, true
	return nil
}

func parseJSONNumber(s string) (decimal.Decimal, error) {
	if strings.ContainsAny(s, "eE") {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, core.ErrInvalidAmountFormat
		}
		if d.IsNegative() {
			return decimal.Zero, core.ErrNegativeAmount
		}
		return core.Round2(d), nil
	}
	return core.ParseAmount(s)
}

// CreateRecordRequest is the body of POST /api/expenses and /api/incomes.
type CreateRecordRequest struct {
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Amount      AmountInput `json:"amount"`
	Date        string      `json:"date"`
}

// UpdateRecordRequest is the body of PUT /api/{expenses,incomes}/{position}. Omitted
// fields keep their current value.
type UpdateRecordRequest struct {
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Amount      *AmountInput `json:"amount"`
	Date        *string      `json:"date"`
}

// Patch converts the request into a ledger patch.
func (u UpdateRecordRequest) Patch() ledger.Patch {
	p := ledger.Patch{Description: u.Description, Category: u.Category, Date: u.Date}
	if u.Amount != nil {
		amount := u.Amount.Value
		p.Amount = &amount
	}
	return p
}

// BudgetRequest is the body of PUT /api/budget. The limit is parsed without
// the record amount rules so that a negative limit reaches the budget manager.
type BudgetRequest struct {
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

// DecodeJSON decodes a single JSON object into v, rejecting unknown fields.
// Malformed bodies are reported as validation errors.
func DecodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: request body too large", core.ErrValidation)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after request body", core.ErrValidation)
	}
	return nil
}

// ParsePosition reads the {position} path value.
func ParsePosition(r *http.Request) (int, error) {
	raw := r.PathValue("position")
	pos, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: position %q is not an integer", core.ErrValidation, raw)
	}
	return pos, nil
}

// TenantFromRequest validates the tenant header.
func TenantFromRequest(r *http.Request) (session.TenantID, error) {
	id := session.TenantID(strings.TrimSpace(r.Header.Get(TenantHeader)))
	if err := id.Validate(); err != nil {
		return session.DefaultTenant, err
	}
	return id, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
