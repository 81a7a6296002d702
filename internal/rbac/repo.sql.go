package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for roles, permissions
// and their associations. It also implements Source for the Resolver.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Source = (*Repository)(nil)

// UserRoleGrants loads every role linked to the user and, for each role, the
// permission identifiers linked to it. Roles without permissions are included
// with an empty permission list.
func (r *Repository) UserRoleGrants(ctx context.Context, userID string) ([]RoleGrant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.identifier, COALESCE(rp.permission_identifier, '')
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleGrant
	index := make(map[int64]int)
	for rows.Next() {
		var (
			roleID     int64
			identifier string
			permission string
		)
		if err := rows.Scan(&roleID, &identifier, &permission); err != nil {
			return nil, err
		}
		pos, ok := index[roleID]
		if !ok {
			grants = append(grants, RoleGrant{RoleID: roleID, Identifier: identifier})
			pos = len(grants) - 1
			index[roleID] = pos
		}
		if permission != "" {
			grants[pos].Permissions = append(grants[pos].Permissions, permission)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// ListRoles returns all roles ordered by identifier.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, identifier, name, description, created_at, updated_at FROM roles ORDER BY identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Identifier, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, identifier, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Identifier, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, identifier, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (identifier, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, identifier, name, description, created_at, updated_at`, identifier, name, description).
		Scan(&role.ID, &role.Identifier, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// UpdateRole updates name and description of an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, identifier, name, description, created_at, updated_at`, id, name, description).
		Scan(&role.ID, &role.Identifier, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

// DeleteRole removes a role by ID and returns the number of deleted rows.
func (r *Repository) DeleteRole(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListPermissions returns the permission catalogue ordered by identifier.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT identifier, description FROM permissions ORDER BY identifier`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Identifier, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsurePermission upserts a permission ensuring the description is stored.
func (r *Repository) EnsurePermission(ctx context.Context, identifier, description string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permissions (identifier, description) VALUES ($1, $2)
		ON CONFLICT (identifier) DO UPDATE SET description = EXCLUDED.description`, identifier, description)
	return err
}

// ListRolePermissions returns the permission identifiers attached to a role.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission_identifier FROM role_permissions WHERE role_id = $1 ORDER BY permission_identifier`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// AttachPermission links a permission to a role.
func (r *Repository) AttachPermission(ctx context.Context, roleID int64, identifier string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_identifier) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, roleID, identifier)
	return err
}

// DetachPermission unlinks a permission from a role.
func (r *Repository) DetachPermission(ctx context.Context, roleID int64, identifier string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_identifier = $2`, roleID, identifier)
	return err
}

// AssignRoleToUser grants a role to the user.
func (r *Repository) AssignRoleToUser(ctx context.Context, userID string, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

// RemoveRoleFromUser revokes a role from the user.
func (r *Repository) RemoveRoleFromUser(ctx context.Context, userID string, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}
