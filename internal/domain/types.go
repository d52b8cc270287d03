package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Principal identifies a balance holder or role grantee (address-like).
type Principal string

// NewPrincipal normalizes an identity so lookups are case-insensitive.
func NewPrincipal(s string) Principal {
	return Principal(strings.ToLower(strings.TrimSpace(s)))
}

func (p Principal) String() string { return string(p) }

// Role is a capability tag.
type Role string

// ParseRole accepts the canonical role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleDefaultAdmin:
		return RoleDefaultAdmin, true
	case RoleAdministrator:
		return RoleAdministrator, true
	}
	return "", false
}

// AssetID identifies the native asset or a registered external asset.
type AssetID string

// NewAssetID normalizes an asset identifier.
func NewAssetID(s string) AssetID {
	return AssetID(strings.ToLower(strings.TrimSpace(s)))
}

func (a AssetID) String() string { return string(a) }

// IsNative reports whether a is the native sentinel.
func (a AssetID) IsNative() bool { return a == NativeAsset }

// ReceivePath distinguishes how native value arrived without a deposit call.
type ReceivePath string

// AssetRecord is a registry entry.
type AssetRecord struct {
	AssetID      AssetID   `json:"asset_id"`
	Decimals     uint8     `json:"decimals"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Balance is the amount a principal holds of one asset, in the asset's own precision.
type Balance struct {
	Principal Principal       `json:"principal"`
	AssetID   AssetID         `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// GlobalCapState is the running normalized native total and its ceiling.
type GlobalCapState struct {
	TotalNormalized decimal.Decimal `json:"total_normalized"`
	Cap             decimal.Decimal `json:"cap"`
}

// Remaining returns how much more can be deposited before the cap, floored at zero.
func (s GlobalCapState) Remaining() decimal.Decimal {
	if s.TotalNormalized.GreaterThanOrEqual(s.Cap) {
		return decimal.Zero
	}
	return s.Cap.Sub(s.TotalNormalized)
}

// PriceQuote is a native-asset price at FeedDecimals precision.
type PriceQuote struct {
	Value     decimal.Decimal
	Decimals  uint8
	UpdatedAt time.Time
	Valid     bool
}
