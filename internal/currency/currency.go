// Package currency converts local amounts into a small fixed set of
// reference currencies.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// factors holds how many local units equal one unit of each code.
var factors = map[string]decimal.Decimal{
	"COP": decimal.NewFromInt(1),
	"USD": decimal.NewFromInt(4000),
	"EUR": decimal.NewFromInt(4300),
	"GBP": decimal.NewFromInt(5000),
}

// Convert divides amount by the factor of code. Codes are matched
// case-insensitively.
func Convert(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if key == "" || len(key) > 3 {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrUnsupportedCurrency, code)
	}
	factor, ok := factors[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrUnsupportedCurrency, code)
	}
	return amount.Div(factor), nil
}

// Codes lists the supported codes in alphabetical order.
func Codes() []string {
	codes := make([]string, 0, len(factors))
	for c := range factors {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
