package rbac

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	roles      map[int64]Role
	rolePerms  map[int64][]string
	userRoles  map[string][]int64
	nextRoleID int64
}

func newMockStore() *mockStore {
	return &mockStore{
		roles:      make(map[int64]Role),
		rolePerms:  make(map[int64][]string),
		userRoles:  make(map[string][]int64),
		nextRoleID: 1,
	}
}

func (m *mockStore) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	for _, r := range m.roles {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (m *mockStore) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *mockStore) CreateRole(ctx context.Context, identifier, name, description string) (Role, error) {
	role := Role{ID: m.nextRoleID, Identifier: identifier, Name: name, Description: description}
	m.roles[role.ID] = role
	m.nextRoleID++
	return role, nil
}

func (m *mockStore) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name = name
	role.Description = description
	m.roles[id] = role
	return role, nil
}

func (m *mockStore) DeleteRole(ctx context.Context, id int64) (int64, error) {
	if _, ok := m.roles[id]; !ok {
		return 0, nil
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	return 1, nil
}

func (m *mockStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	return nil, nil
}

func (m *mockStore) ListRolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	return append([]string(nil), m.rolePerms[roleID]...), nil
}

func (m *mockStore) AttachPermission(ctx context.Context, roleID int64, identifier string) error {
	m.rolePerms[roleID] = append(m.rolePerms[roleID], identifier)
	return nil
}

func (m *mockStore) DetachPermission(ctx context.Context, roleID int64, identifier string) error {
	kept := m.rolePerms[roleID][:0]
	for _, p := range m.rolePerms[roleID] {
		if p != identifier {
			kept = append(kept, p)
		}
	}
	m.rolePerms[roleID] = kept
	return nil
}

func (m *mockStore) AssignRoleToUser(ctx context.Context, userID string, roleID int64) error {
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *mockStore) RemoveRoleFromUser(ctx context.Context, userID string, roleID int64) error {
	kept := m.userRoles[userID][:0]
	for _, id := range m.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

// UserRoleGrants exposes the mock's state through the Source interface so a
// resolver can sit on top of it.
func (m *mockStore) UserRoleGrants(ctx context.Context, userID string) ([]RoleGrant, error) {
	var grants []RoleGrant
	for _, roleID := range m.userRoles[userID] {
		role := m.roles[roleID]
		grants = append(grants, RoleGrant{
			RoleID:      roleID,
			Identifier:  role.Identifier,
			Permissions: append([]string(nil), m.rolePerms[roleID]...),
		})
	}
	return grants, nil
}

func newServiceUnderTest(t *testing.T) (*Service, *mockStore, *Resolver) {
	t.Helper()
	store := newMockStore()
	resolver := NewResolver(ResolverConfig{
		Source: store,
		Logger: slog.New(slog.DiscardHandler),
		TTL:    5 * time.Minute,
	})
	return NewService(store, resolver), store, resolver
}

func TestCreateRoleValidation(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "", "Support", "")
	assert.Error(t, err)

	_, err = svc.CreateRole(ctx, "support", "   ", "")
	assert.Error(t, err)

	role, err := svc.CreateRole(ctx, "  Support ", "Support Team", "front line")
	require.NoError(t, err)
	assert.Equal(t, "support", role.Identifier)
}

func TestSetRolePermissionsDiffs(t *testing.T) {
	svc, store, _ := newServiceUnderTest(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "support", "Support", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{"support.read", "support.reply"}))
	assert.ElementsMatch(t, []string{"support.read", "support.reply"}, store.rolePerms[role.ID])

	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{"support.read", "support.close"}))
	assert.ElementsMatch(t, []string{"support.read", "support.close"}, store.rolePerms[role.ID])

	err = svc.SetRolePermissions(ctx, 404, []string{"support.read"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignRoleInvalidatesResolverEntry(t *testing.T) {
	svc, _, resolver := newServiceUnderTest(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "support", "Support", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{"support.read"}))

	// Prime the cache with an empty resolution for the user.
	assert.Empty(t, resolver.UserPermissions(ctx, "user-u"))

	require.NoError(t, svc.AssignRole(ctx, "user-u", role.ID))
	set := resolver.UserPermissions(ctx, "user-u")
	assert.True(t, set.Has("support.read"), "assignment must be visible immediately, not after TTL")
	assert.True(t, set.Has("group.ftw_support"))

	require.NoError(t, svc.RemoveRole(ctx, "user-u", role.ID))
	assert.Empty(t, resolver.UserPermissions(ctx, "user-u"))
}

func TestDeleteRoleNotFound(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)
	err := svc.DeleteRole(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEffectivePermissionsSorted(t *testing.T) {
	svc, _, _ := newServiceUnderTest(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "admin", "Admin", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{"admin.players", "admin.basic"}))
	require.NoError(t, svc.AssignRole(ctx, "user-a", role.ID))

	perms := svc.EffectivePermissions(ctx, "user-a")
	assert.Equal(t, []string{"admin.basic", "admin.players", "group.ftw_admin"}, perms)
}
