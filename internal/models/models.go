// Package models holds the JSON request and response bodies of the HTTP API.
package models

import (
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/service"
)

// Amounts travel as decimal strings of base units so values above 2^53 survive JSON.

type TokenRequest struct {
	Principal string `json:"principal" validate:"required,eth_addr"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterAssetRequest struct {
	AssetID  string `json:"asset_id" validate:"required,eth_addr"`
	Decimals *uint8 `json:"decimals" validate:"required"`
}

type Asset struct {
	AssetID      string    `json:"asset_id"`
	Decimals     uint8     `json:"decimals"`
	Registered   bool      `json:"registered"`
	RegisteredAt time.Time `json:"registered_at"`
}

type GrantRoleRequest struct {
	Principal string `json:"principal" validate:"required,eth_addr"`
}

type RoleGrant struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
	Granted   bool   `json:"granted"`
}

type NativeAmountRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

type AssetAmountRequest struct {
	AssetID string `json:"asset_id" validate:"required,eth_addr"`
	Amount  string `json:"amount" validate:"required,amount"`
}

type ReceiveRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
	Path   string `json:"path" validate:"required,receive_path"`
}

type Receipt struct {
	Principal       string `json:"principal"`
	AssetID         string `json:"asset_id"`
	Amount          string `json:"amount"`
	Balance         string `json:"balance"`
	TotalNormalized string `json:"total_normalized"`
	ValueUSD6       string `json:"value_usd6"`
	Noop            bool   `json:"noop,omitempty"`
}

type Balance struct {
	AssetID string `json:"asset_id"`
	Amount  string `json:"amount"`
}

type Balances struct {
	Principal        string    `json:"principal"`
	Balances         []Balance `json:"balances"`
	NativeValueUSD6  string    `json:"native_value_usd6,omitempty"`
	ValuationWarning string    `json:"valuation_warning,omitempty"`
}

type CapState struct {
	TotalNormalized string `json:"total_normalized"`
	Cap             string `json:"cap"`
	Remaining       string `json:"remaining"`
}

type Reconciliation struct {
	RecordedTotal string    `json:"recorded_total"`
	RevaluedTotal string    `json:"revalued_total"`
	Drift         string    `json:"drift"`
	Holders       int       `json:"holders"`
	Price         string    `json:"price"`
	OverCap       bool      `json:"over_cap"`
	CheckedAt     time.Time `json:"checked_at"`
}

func NewAsset(rec domain.AssetRecord) Asset {
	return Asset{
		AssetID:      rec.AssetID.String(),
		Decimals:     rec.Decimals,
		Registered:   rec.Decimals != 0,
		RegisteredAt: rec.RegisteredAt,
	}
}

func NewReceipt(r service.Receipt) Receipt {
	return Receipt{
		Principal:       r.Principal.String(),
		AssetID:         r.AssetID.String(),
		Amount:          r.Amount.String(),
		Balance:         r.Balance.String(),
		TotalNormalized: r.TotalNormalized.String(),
		ValueUSD6:       r.ValueUSD6.String(),
		Noop:            r.Noop,
	}
}

func NewBalances(p domain.Principal, bals []domain.Balance) Balances {
	out := Balances{Principal: p.String(), Balances: make([]Balance, 0, len(bals))}
	for _, b := range bals {
		out.Balances = append(out.Balances, Balance{AssetID: b.AssetID.String(), Amount: b.Amount.String()})
	}
	return out
}

func NewCapState(st domain.GlobalCapState) CapState {
	return CapState{
		TotalNormalized: st.TotalNormalized.String(),
		Cap:             st.Cap.String(),
		Remaining:       st.Remaining().String(),
	}
}

func NewReconciliation(rep service.ReconciliationReport) Reconciliation {
	return Reconciliation{
		RecordedTotal: rep.Recorded.String(),
		RevaluedTotal: rep.Revalued.String(),
		Drift:         rep.Drift.String(),
		Holders:       rep.Holders,
		Price:         rep.Price.String(),
		OverCap:       rep.OverCapped,
		CheckedAt:     rep.CheckedAt,
	}
}
