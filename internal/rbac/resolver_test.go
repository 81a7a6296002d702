package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	grants map[string][]RoleGrant
	err    error
	calls  int
}

func (f *fakeSource) UserRoleGrants(ctx context.Context, userID string) ([]RoleGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[userID], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func newTestResolver(source Source, clock *fakeClock) *Resolver {
	return NewResolver(ResolverConfig{
		Source: source,
		Logger: slog.New(slog.DiscardHandler),
		TTL:    5 * time.Minute,
		Now:    clock.Now,
	})
}

func TestUserPermissionsBlankUserID(t *testing.T) {
	source := &fakeSource{}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "   ")
	assert.Empty(t, set)
	assert.Equal(t, 0, source.callCount(), "blank user id must not touch the source")
}

func TestUserPermissionsNoRoles(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-v")
	assert.Empty(t, set)
	assert.False(t, resolver.HasPermission(context.Background(), "user-v", "admin.basic"))
}

func TestUserPermissionsUnionAndGroups(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {
			{RoleID: 1, Identifier: "support", Permissions: []string{"support.read", "support.reply"}},
			{RoleID: 2, Identifier: "admin", Permissions: []string{"admin.basic"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-u")
	assert.ElementsMatch(t, []string{
		"support.read",
		"support.reply",
		"admin.basic",
		"group.ftw_support",
		"group.ftw_admin",
	}, set.Values())
}

func TestUserPermissionsDuplicatesCollapse(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {
			{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}},
			{RoleID: 2, Identifier: "helper", Permissions: []string{"support.read"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-u")
	assert.ElementsMatch(t, []string{"support.read", "group.ftw_support"}, set.Values())
}

func TestUserPermissionsGroupDerivationIndependent(t *testing.T) {
	// Holding support.* and bugs.* must not imply group.ftw_admin.
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {
			{RoleID: 1, Identifier: "mixed", Permissions: []string{"support.read", "bugs.read"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-u")
	assert.True(t, set.Has("group.ftw_support"))
	assert.True(t, set.Has("group.ftw_bugs"))
	assert.False(t, set.Has("group.ftw_admin"))
	assert.False(t, set.Has("group.ftw_supervise"))
	assert.False(t, set.Has("group.ftw_management"))
}

func TestUserPermissionsManagementGroup(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-m": {
			{RoleID: 9, Identifier: "management", Permissions: []string{"management.all"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-m")
	assert.ElementsMatch(t, []string{"management.all", "group.ftw_management"}, set.Values())
}

func TestUserPermissionsRoleWithoutPermissions(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {
			{RoleID: 1, Identifier: "empty"},
			{RoleID: 2, Identifier: "support", Permissions: []string{"support.read"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-u")
	assert.ElementsMatch(t, []string{"support.read", "group.ftw_support"}, set.Values())
}

func TestUserPermissionsBlankIdentifierSkipped(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {
			{RoleID: 1, Identifier: "support", Permissions: []string{"", "  ", "support.read"}},
		},
	}}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-u")
	assert.ElementsMatch(t, []string{"support.read", "group.ftw_support"}, set.Values())
}

func TestUserPermissionsCacheHitWithinTTL(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	}}
	clock := newFakeClock()
	resolver := newTestResolver(source, clock)

	first := resolver.UserPermissions(context.Background(), "user-u")
	clock.Advance(4 * time.Minute)
	second := resolver.UserPermissions(context.Background(), "user-u")

	assert.Equal(t, first.Values(), second.Values())
	assert.Equal(t, 1, source.callCount(), "second call within TTL must be served from cache")
}

func TestUserPermissionsCacheExpiresAfterTTL(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	}}
	clock := newFakeClock()
	resolver := newTestResolver(source, clock)

	resolver.UserPermissions(context.Background(), "user-u")
	clock.Advance(5*time.Minute + time.Second)
	resolver.UserPermissions(context.Background(), "user-u")

	assert.Equal(t, 2, source.callCount())
}

func TestInvalidateForcesFreshQuery(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	}}
	resolver := newTestResolver(source, newFakeClock())

	resolver.UserPermissions(context.Background(), "user-u")
	resolver.Invalidate("user-u")
	resolver.UserPermissions(context.Background(), "user-u")

	assert.Equal(t, 2, source.callCount())
}

func TestResetClearsAllEntries(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-a": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
		"user-b": {{RoleID: 2, Identifier: "admin", Permissions: []string{"admin.basic"}}},
	}}
	resolver := newTestResolver(source, newFakeClock())

	resolver.UserPermissions(context.Background(), "user-a")
	resolver.UserPermissions(context.Background(), "user-b")
	resolver.Reset()
	resolver.UserPermissions(context.Background(), "user-a")
	resolver.UserPermissions(context.Background(), "user-b")

	assert.Equal(t, 4, source.callCount())
}

func TestSourceFailureNotCached(t *testing.T) {
	source := &fakeSource{
		grants: map[string][]RoleGrant{
			"user-w": {{RoleID: 1, Identifier: "admin", Permissions: []string{"admin.basic"}}},
		},
		err: errors.New("connection refused"),
	}
	resolver := newTestResolver(source, newFakeClock())

	set := resolver.UserPermissions(context.Background(), "user-w")
	require.Empty(t, set, "failure must resolve to an empty set")

	// Source recovers; the failure must not have been cached.
	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()

	set = resolver.UserPermissions(context.Background(), "user-w")
	assert.ElementsMatch(t, []string{"admin.basic", "group.ftw_admin"}, set.Values())
	assert.Equal(t, 2, source.callCount())
}

func TestHasAllPermissionsVacuousTruth(t *testing.T) {
	source := &fakeSource{}
	resolver := newTestResolver(source, newFakeClock())

	assert.True(t, resolver.HasAllPermissions(context.Background(), "user-v"))
	assert.False(t, resolver.HasAnyPermission(context.Background(), "user-v"))
}

func TestHasPermissionHelpers(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read", "support.reply"}}},
	}}
	resolver := newTestResolver(source, newFakeClock())
	ctx := context.Background()

	assert.True(t, resolver.HasPermission(ctx, "user-u", "support.read"))
	assert.False(t, resolver.HasPermission(ctx, "user-u", "admin.basic"))
	assert.True(t, resolver.HasAnyPermission(ctx, "user-u", "admin.basic", "support.reply"))
	assert.False(t, resolver.HasAnyPermission(ctx, "user-u", "admin.basic", "admin.roles"))
	assert.True(t, resolver.HasAllPermissions(ctx, "user-u", "support.read", "support.reply"))
	assert.False(t, resolver.HasAllPermissions(ctx, "user-u", "support.read", "admin.basic"))
}

func TestReturnedSetIsACopy(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	}}
	resolver := newTestResolver(source, newFakeClock())
	ctx := context.Background()

	set := resolver.UserPermissions(ctx, "user-u")
	set["admin.basic"] = struct{}{}

	again := resolver.UserPermissions(ctx, "user-u")
	assert.False(t, again.Has("admin.basic"), "mutating a returned set must not poison the cache")
	assert.Equal(t, 1, source.callCount())
}

func TestConcurrentResolution(t *testing.T) {
	source := &fakeSource{grants: map[string][]RoleGrant{
		"user-u": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	}}
	resolver := newTestResolver(source, newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			set := resolver.UserPermissions(ctx, "user-u")
			assert.True(t, set.Has("support.read"))
			if n%8 == 0 {
				resolver.Invalidate("user-u")
			}
		}(i)
	}
	wg.Wait()
}
