package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"go.uber.org/zap"
)

// AssetRegistry tracks the non-native assets the ledger accepts and their precision.
// It never touches balances or the global total.
type AssetRegistry struct {
	store     repository.Store
	publisher events.Publisher
	now       func() time.Time
}

func NewAssetRegistry(store repository.Store, publisher events.Publisher) *AssetRegistry {
	return &AssetRegistry{store: store, publisher: publisher, now: time.Now}
}

// Register stores decimals for asset. Re-registering overwrites the precision
// without migrating balances already held under the old one.
func (s *AssetRegistry) Register(ctx context.Context, caller domain.Principal, asset domain.AssetID, decimals uint8) (domain.AssetRecord, error) {
	if asset == "" {
		return domain.AssetRecord{}, fmt.Errorf("%w: asset id is required", domain.ErrInvalidConfiguration)
	}
	rec := domain.AssetRecord{AssetID: asset, Decimals: decimals, RegisteredAt: s.now().UTC()}

	err := runAndPublish(ctx, s.store, s.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		if err := requireRole(ctx, tx, caller, domain.RoleAdministrator); err != nil {
			return nil, err
		}
		if asset.IsNative() {
			return nil, domain.ErrNativeAssetReserved
		}

		prev, existed, err := tx.Asset(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("read asset: %w", err)
		}
		if existed {
			rec.RegisteredAt = prev.RegisteredAt
			if prev.Decimals != decimals {
				zap.L().Warn("asset precision overwritten; existing balances are not rescaled",
					zap.String("asset_id", asset.String()),
					zap.Uint8("previous_decimals", prev.Decimals),
					zap.Uint8("decimals", decimals),
				)
			}
		}
		if err := tx.PutAsset(ctx, rec); err != nil {
			return nil, fmt.Errorf("store asset: %w", err)
		}
		return []domain.Event{domain.RegisteredEvent(asset, decimals)}, nil
	})
	if err != nil {
		return domain.AssetRecord{}, err
	}
	return rec, nil
}

// IsRegistered reports whether asset has a non-zero decimals entry.
func (s *AssetRegistry) IsRegistered(ctx context.Context, asset domain.AssetID) (bool, error) {
	var ok bool
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		ok, err = isRegistered(ctx, tx, asset)
		return err
	})
	return ok, err
}

// DecimalsOf returns the registered precision or ErrAssetNotRegistered.
func (s *AssetRegistry) DecimalsOf(ctx context.Context, asset domain.AssetID) (uint8, error) {
	rec, err := s.Get(ctx, asset)
	if err != nil {
		return 0, err
	}
	return rec.Decimals, nil
}

// Get returns the registry entry for asset.
func (s *AssetRegistry) Get(ctx context.Context, asset domain.AssetID) (domain.AssetRecord, error) {
	var rec domain.AssetRecord
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		rec, err = registeredAsset(ctx, tx, asset)
		return err
	})
	return rec, err
}

// List returns every registry entry, including zero-decimals ones.
func (s *AssetRegistry) List(ctx context.Context) ([]domain.AssetRecord, error) {
	var out []domain.AssetRecord
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListAssets(ctx)
		return err
	})
	return out, err
}

// isRegistered treats a zero-decimals entry as absent.
func isRegistered(ctx context.Context, tx repository.Tx, asset domain.AssetID) (bool, error) {
	rec, ok, err := tx.Asset(ctx, asset)
	if err != nil {
		return false, fmt.Errorf("read asset: %w", err)
	}
	return ok && rec.Decimals != 0, nil
}

func registeredAsset(ctx context.Context, tx repository.Tx, asset domain.AssetID) (domain.AssetRecord, error) {
	rec, ok, err := tx.Asset(ctx, asset)
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("read asset: %w", err)
	}
	if !ok || rec.Decimals == 0 {
		return domain.AssetRecord{}, fmt.Errorf("%w: %s", domain.ErrAssetNotRegistered, asset)
	}
	return rec, nil
}
