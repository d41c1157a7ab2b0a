package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Concrete failures wrap one of these so
// callers can branch with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("record not found")
	ErrEmptyLedger         = errors.New("ledger is empty")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidAmount       = errors.New("invalid amount")
)

var (
	ErrEmptyDescription    = fmt.Errorf("%w: empty description", ErrValidation)
	ErrDescriptionTooLong  = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescriptionLength)
	ErrEmptyCategory       = fmt.Errorf("%w: empty category", ErrValidation)
	ErrNegativeAmount      = fmt.Errorf("%w: amount must not be negative", ErrValidation)
	ErrInvalidAmountFormat = fmt.Errorf("%w: malformed amount", ErrValidation)
	ErrInvalidDate         = fmt.Errorf("%w: invalid date, use YYYY-MM-DD", ErrValidation)
)
