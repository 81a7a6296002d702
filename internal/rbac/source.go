package rbac

import "context"

// Source loads the roles a user holds and the permissions linked to each role
// from the system of record. Implementations must treat the lookup as
// read-only; a user with no roles yields an empty slice, not an error.
type Source interface {
	UserRoleGrants(ctx context.Context, userID string) ([]RoleGrant, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, userID string) ([]RoleGrant, error)

// UserRoleGrants implements Source.
func (f SourceFunc) UserRoleGrants(ctx context.Context, userID string) ([]RoleGrant, error) {
	return f(ctx, userID)
}
