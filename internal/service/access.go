package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/ayo6706/custody-ledger/internal/events"
	"github.com/ayo6706/custody-ledger/internal/repository"
	"go.uber.org/zap"
)

// AccessControl holds role grants and answers authorization queries.
type AccessControl struct {
	store     repository.Store
	publisher events.Publisher
}

func NewAccessControl(store repository.Store, publisher events.Publisher) *AccessControl {
	return &AccessControl{store: store, publisher: publisher}
}

// HasRole reports whether p currently holds role.
func (s *AccessControl) HasRole(ctx context.Context, p domain.Principal, role domain.Role) (bool, error) {
	var has bool
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		has, err = tx.HasRole(ctx, role, p)
		return err
	})
	return has, err
}

// RequireRole fails with ErrUnauthorized unless p holds role.
func (s *AccessControl) RequireRole(ctx context.Context, p domain.Principal, role domain.Role) error {
	return s.store.View(ctx, func(tx repository.Tx) error {
		return requireRole(ctx, tx, p, role)
	})
}

// GrantRole gives role to p. Granting the root role needs the root role;
// granting Administrator needs the root role or Administrator.
func (s *AccessControl) GrantRole(ctx context.Context, caller domain.Principal, role domain.Role, p domain.Principal) error {
	if err := validRole(role); err != nil {
		return err
	}
	return runAndPublish(ctx, s.store, s.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		if err := requireGrantAuthority(ctx, tx, caller, role); err != nil {
			return nil, err
		}
		added, err := tx.GrantRole(ctx, role, p)
		if err != nil {
			return nil, fmt.Errorf("grant role: %w", err)
		}
		if !added {
			return nil, nil
		}
		zap.L().Info("role granted", zap.String("role", string(role)), zap.String("principal", p.String()), zap.String("sender", caller.String()))
		return []domain.Event{domain.RoleGrantedEvent(role, p, caller)}, nil
	})
}

// RevokeRole removes role from p under the same authority rules as GrantRole.
func (s *AccessControl) RevokeRole(ctx context.Context, caller domain.Principal, role domain.Role, p domain.Principal) error {
	if err := validRole(role); err != nil {
		return err
	}
	return runAndPublish(ctx, s.store, s.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		if err := requireGrantAuthority(ctx, tx, caller, role); err != nil {
			return nil, err
		}
		return revoke(ctx, tx, role, p, caller)
	})
}

// RenounceRole lets caller drop one of its own roles.
func (s *AccessControl) RenounceRole(ctx context.Context, caller domain.Principal, role domain.Role) error {
	if err := validRole(role); err != nil {
		return err
	}
	return runAndPublish(ctx, s.store, s.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		return revoke(ctx, tx, role, caller, caller)
	})
}

// Bootstrap grants both roles to the deployer principal. Safe to repeat.
func (s *AccessControl) Bootstrap(ctx context.Context, admin domain.Principal) error {
	if admin == "" {
		return fmt.Errorf("%w: bootstrap admin is required", domain.ErrInvalidConfiguration)
	}
	return runAndPublish(ctx, s.store, s.publisher, func(tx repository.Tx) ([]domain.Event, error) {
		var evs []domain.Event
		for _, role := range []domain.Role{domain.RoleDefaultAdmin, domain.RoleAdministrator} {
			added, err := tx.GrantRole(ctx, role, admin)
			if err != nil {
				return nil, fmt.Errorf("bootstrap %s: %w", role, err)
			}
			if added {
				evs = append(evs, domain.RoleGrantedEvent(role, admin, admin))
			}
		}
		return evs, nil
	})
}

func revoke(ctx context.Context, tx repository.Tx, role domain.Role, p, sender domain.Principal) ([]domain.Event, error) {
	removed, err := tx.RevokeRole(ctx, role, p)
	if err != nil {
		return nil, fmt.Errorf("revoke role: %w", err)
	}
	if !removed {
		return nil, nil
	}
	zap.L().Info("role revoked", zap.String("role", string(role)), zap.String("principal", p.String()), zap.String("sender", sender.String()))
	return []domain.Event{domain.RoleRevokedEvent(role, p, sender)}, nil
}

func requireRole(ctx context.Context, tx repository.Tx, p domain.Principal, role domain.Role) error {
	has, err := tx.HasRole(ctx, role, p)
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if !has {
		return &domain.UnauthorizedError{Principal: p, Role: role}
	}
	return nil
}

func requireGrantAuthority(ctx context.Context, tx repository.Tx, caller domain.Principal, role domain.Role) error {
	isRoot, err := tx.HasRole(ctx, domain.RoleDefaultAdmin, caller)
	if err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if isRoot {
		return nil
	}
	if role != domain.RoleDefaultAdmin {
		isAdmin, err := tx.HasRole(ctx, domain.RoleAdministrator, caller)
		if err != nil {
			return fmt.Errorf("check role: %w", err)
		}
		if isAdmin {
			return nil
		}
	}
	if role == domain.RoleDefaultAdmin {
		return &domain.UnauthorizedError{Principal: caller, Role: domain.RoleDefaultAdmin}
	}
	return &domain.UnauthorizedError{
		Principal: caller,
		Role:      domain.RoleAdministrator,
		AnyOf:     []domain.Role{domain.RoleDefaultAdmin, domain.RoleAdministrator},
	}
}

func validRole(role domain.Role) error {
	if r, ok := domain.ParseRole(string(role)); !ok || r != role {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidConfiguration, role)
	}
	return nil
}
