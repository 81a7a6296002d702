package rbac

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Store defines the persistence operations the admin service needs.
type Store interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, identifier, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) (int64, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]string, error)
	AttachPermission(ctx context.Context, roleID int64, identifier string) error
	DetachPermission(ctx context.Context, roleID int64, identifier string) error
	AssignRoleToUser(ctx context.Context, userID string, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID string, roleID int64) error
}

// Service orchestrates role and permission administration. Mutations that
// change what users may do also drop the affected resolver cache entries.
type Service struct {
	store    Store
	resolver *Resolver
}

// NewService constructs a Service.
func NewService(store Store, resolver *Resolver) *Service {
	return &Service{store: store, resolver: resolver}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, identifier, name, description string) (Role, error) {
	identifier = strings.TrimSpace(strings.ToLower(identifier))
	name = strings.TrimSpace(name)
	if identifier == "" {
		return Role{}, errors.New("rbac: role identifier required")
	}
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.store.CreateRole(ctx, identifier, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role by ID. Returns ErrNotFound if nothing was
// deleted. Every cached resolution may have depended on the role, so the
// whole cache is reset.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	rows, err := s.store.DeleteRole(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.invalidateAll()
	return nil
}

// ListPermissions returns the permission catalogue.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// RolePermissions returns the permission identifiers attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces the permissions attached to a role by diffing
// the current assignments against the requested set.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, identifiers []string) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	current, err := s.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[string]struct{}, len(current))
	for _, p := range current {
		existing[p] = struct{}{}
	}
	keep := make(map[string]struct{}, len(identifiers))
	for _, identifier := range identifiers {
		identifier = strings.TrimSpace(identifier)
		if identifier == "" {
			continue
		}
		keep[identifier] = struct{}{}
		if _, ok := existing[identifier]; !ok {
			if err := s.store.AttachPermission(ctx, roleID, identifier); err != nil {
				return err
			}
		}
	}
	for identifier := range existing {
		if _, ok := keep[identifier]; !ok {
			if err := s.store.DetachPermission(ctx, roleID, identifier); err != nil {
				return err
			}
		}
	}
	s.invalidateAll()
	return nil
}

// AssignRole grants a role to the given user and drops the user's cached
// permission set.
func (s *Service) AssignRole(ctx context.Context, userID string, roleID int64) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(userID)
	return nil
}

// RemoveRole revokes a role from a user and drops the user's cached
// permission set.
func (s *Service) RemoveRole(ctx context.Context, userID string, roleID int64) error {
	if err := s.store.RemoveRoleFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(userID)
	return nil
}

// EffectivePermissions returns the resolved, deduplicated permission
// identifiers for a user, legacy groups included.
func (s *Service) EffectivePermissions(ctx context.Context, userID string) []string {
	if s.resolver == nil {
		return nil
	}
	return s.resolver.UserPermissions(ctx, userID).Values()
}

func (s *Service) invalidateUser(userID string) {
	if s.resolver != nil {
		s.resolver.Invalidate(userID)
	}
}

func (s *Service) invalidateAll() {
	if s.resolver != nil {
		s.resolver.Reset()
	}
}
