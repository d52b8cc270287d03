package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConvertDecimals rescales an integer amount from one precision to another.
// Scaling down truncates (floor for non-negative input); scaling up is exact.
func ConvertDecimals(amount decimal.Decimal, fromDecimals, toDecimals uint8) (decimal.Decimal, error) {
	switch {
	case fromDecimals == toDecimals:
		return amount, nil
	case fromDecimals > toDecimals:
		diff := int(fromDecimals - toDecimals)
		if diff > MaxDecimalsExponent {
			return decimal.Zero, fmt.Errorf("%w: decimals gap %d too large", ErrInvalidConfiguration, diff)
		}
		return floorDiv(amount, pow10(diff)), nil
	default:
		diff := int(toDecimals - fromDecimals)
		if diff > MaxDecimalsExponent {
			return decimal.Zero, fmt.Errorf("%w: decimals gap %d too large", ErrInvalidConfiguration, diff)
		}
		return amount.Mul(pow10(diff)), nil
	}
}

// ToUnit converts an amount at the given precision into the unit of account.
func ToUnit(amount decimal.Decimal, fromDecimals uint8) (decimal.Decimal, error) {
	return ConvertDecimals(amount, fromDecimals, UnitDecimals)
}

// NormalizeNative values a native amount in usd6 using quote:
// floor(amount * price / 10^18) at feed precision, then floor to 6 decimals.
func NormalizeNative(amount decimal.Decimal, quote PriceQuote) (decimal.Decimal, error) {
	if !quote.Valid || !quote.Value.IsPositive() {
		return decimal.Zero, ErrOracleUnavailable
	}
	atFeed := floorDiv(amount.Mul(quote.Value), pow10(int(NativeDecimals)))
	return ConvertDecimals(atFeed, FeedDecimals, UnitDecimals)
}

// SaturatingSub returns a-b, or zero when b >= a.
func SaturatingSub(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a.Sub(b)
	}
	return decimal.Zero
}

func pow10(n int) decimal.Decimal {
	return decimal.New(1, int32(n))
}

func floorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	if a.IsNegative() && !q.Mul(b).Equal(a) {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q
}
