package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a base-unit integer amount such as "2000000000000000000".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects negative and fractional amounts. Zero is allowed here;
// whether zero is an error depends on the operation.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	if !d.IsInteger() {
		return fmt.Errorf("%w: fractional", ErrInvalidAmount)
	}
	return nil
}

// RequirePositive returns ErrZeroAmount for zero and ErrInvalidAmount for
// negative or fractional values.
func RequirePositive(d decimal.Decimal) error {
	if err := ValidateAmount(d); err != nil {
		return err
	}
	if d.IsZero() {
		return ErrZeroAmount
	}
	return nil
}
