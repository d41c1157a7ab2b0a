package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted textual form of a ledger date.
const DateLayout = "2006-01-02"

const maxDescriptionLength = 200

type (
	Date struct {
		time.Time
	}

	// Record is one ledger line. Its identity within a session is its
	// position in the tenant's sequence; positions shift after any mutation.
	Record struct {
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
	}

	// BudgetState holds the monthly spending limit. An invalid MonthlyLimit
	// means no budget has been configured yet.
	BudgetState struct {
		MonthlyLimit decimal.NullDecimal `json:"monthly_limit"`
		UpdatedAt    time.Time           `json:"updated_at"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a strict YYYY-MM-DD date. Out-of-range days such as
// 2025-11-31 or 2025-02-29 are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM prefix of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	a := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(other.Year(), other.Month(), other.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewRecord is the boundary constructor for ledger lines: it trims text
// fields, parses the date and validates the result.
func NewRecord(description, category string, amount decimal.Decimal, date string) (Record, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Amount:      amount,
		Date:        d,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Equal reports whether two records carry the same values.
func (r Record) Equal(other Record) bool {
	return r.Description == other.Description &&
		r.Category == other.Category &&
		r.Amount.Equal(other.Amount) &&
		r.Date.String() == other.Date.String()
}

// IsSet reports whether a monthly limit has been configured.
func (b BudgetState) IsSet() bool {
	return b.MonthlyLimit.Valid
}
