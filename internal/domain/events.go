package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is an observable ledger fact, persisted to the outbox and published after commit.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type RegisteredPayload struct {
	AssetID  AssetID `json:"asset_id"`
	Decimals uint8   `json:"decimals"`
}

type MovementPayload struct {
	Principal Principal       `json:"principal"`
	AssetID   AssetID         `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type CapNotificationPayload struct {
	Attempted decimal.Decimal `json:"attempted"`
	Cap       decimal.Decimal `json:"cap"`
}

type RolePayload struct {
	Role      Role      `json:"role"`
	Principal Principal `json:"principal"`
	Sender    Principal `json:"sender"`
}

// NewEvent builds an event with a fresh id. Payload types above always marshal.
func NewEvent(kind string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}
}

func RegisteredEvent(asset AssetID, decimals uint8) Event {
	return NewEvent(EventRegistered, RegisteredPayload{AssetID: asset, Decimals: decimals})
}

func DepositedEvent(p Principal, asset AssetID, amount decimal.Decimal) Event {
	return NewEvent(EventDeposited, MovementPayload{Principal: p, AssetID: asset, Amount: amount})
}

func WithdrawnEvent(p Principal, asset AssetID, amount decimal.Decimal) Event {
	return NewEvent(EventWithdrawn, MovementPayload{Principal: p, AssetID: asset, Amount: amount})
}

func CapNotificationEvent(attempted, cap decimal.Decimal) Event {
	return NewEvent(EventCapNotificationOnly, CapNotificationPayload{Attempted: attempted, Cap: cap})
}

func RoleGrantedEvent(role Role, p, sender Principal) Event {
	return NewEvent(EventRoleGranted, RolePayload{Role: role, Principal: p, Sender: sender})
}

func RoleRevokedEvent(role Role, p, sender Principal) Event {
	return NewEvent(EventRoleRevoked, RolePayload{Role: role, Principal: p, Sender: sender})
}
