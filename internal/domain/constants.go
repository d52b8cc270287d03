package domain

import "github.com/shopspring/decimal"

// NativeAsset is the reserved asset id of the platform's intrinsic unit.
// It is never stored in the asset registry.
const NativeAsset AssetID = "0x0000000000000000000000000000000000000000"

const (
	// NativeDecimals is the precision of native amounts (wei-style).
	NativeDecimals uint8 = 18
	// UnitDecimals is the precision of the unit of account (usd6).
	UnitDecimals uint8 = 6
	// FeedDecimals is the fixed precision of oracle price quotes.
	FeedDecimals uint8 = 8

	// MaxDecimalsExponent bounds rescaling so 10^n stays within 256-bit range.
	MaxDecimalsExponent = 77
)

// DefaultCapUSD6 is 100,000 units of account expressed in usd6.
var DefaultCapUSD6 = decimal.New(100_000, int32(UnitDecimals))

// Roles
const (
	RoleDefaultAdmin  Role = "DEFAULT_ADMIN"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// Bare receive paths. Fallback tolerates zero, receive does not.
const (
	ReceivePathFallback ReceivePath = "fallback"
	ReceivePathReceive  ReceivePath = "receive"
)

// Event kinds
const (
	EventRegistered          = "Registered"
	EventDeposited           = "Deposited"
	EventWithdrawn           = "Withdrawn"
	EventCapNotificationOnly = "CapNotificationOnly"
	EventRoleGranted         = "RoleGranted"
	EventRoleRevoked         = "RoleRevoked"
)

// Ledger operation labels used in logs and metrics.
const (
	OpDepositNative  = "deposit_native"
	OpDepositAsset   = "deposit_asset"
	OpWithdrawNative = "withdraw_native"
	OpWithdrawAsset  = "withdraw_asset"
	OpReceiveBare    = "receive_bare"
)
