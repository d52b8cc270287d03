package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrZeroAmount           = errors.New("amount must be greater than zero")
	ErrInvalidAmount        = errors.New("amount must be a non-negative integer")
	ErrAssetNotRegistered   = errors.New("asset not registered")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrCapExceeded          = errors.New("deposit cap exceeded")
	ErrTransferFailed       = errors.New("asset transfer failed")
	ErrOracleUnavailable    = errors.New("price oracle unavailable")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNativeAssetReserved  = fmt.Errorf("%w: native asset id is reserved", ErrInvalidConfiguration)
)

// CapExceededError carries the total a deposit would have produced.
type CapExceededError struct {
	Attempted decimal.Decimal
	Cap       decimal.Decimal
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("deposit cap exceeded: attempted %s, cap %s", e.Attempted.String(), e.Cap.String())
}

func (e *CapExceededError) Is(target error) bool {
	return target == ErrCapExceeded
}

// UnauthorizedError names the principal and the role it lacked. When more
// than one role would have sufficed, AnyOf lists all of them and Role is the
// least privileged.
type UnauthorizedError struct {
	Principal Principal
	Role      Role
	AnyOf     []Role
}

func (e *UnauthorizedError) Error() string {
	if len(e.AnyOf) > 1 {
		names := make([]string, len(e.AnyOf))
		for i, r := range e.AnyOf {
			names[i] = string(r)
		}
		return fmt.Sprintf("unauthorized: %s lacks any of roles %s", e.Principal, strings.Join(names, ", "))
	}
	return fmt.Sprintf("unauthorized: %s lacks role %s", e.Principal, e.Role)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ErrorKind maps an error to its stable kind label, or "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAssetNotRegistered):
		return "asset_not_registered"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrCapExceeded):
		return "cap_exceeded"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	default:
		return "internal"
	}
}
