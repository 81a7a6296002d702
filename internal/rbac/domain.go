package rbac

import (
	"sort"
	"time"
)

// Role represents a named bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Identifier  string    `json:"identifier"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability.
type Permission struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
}

// RoleGrant is one role held by a user together with the permission
// identifiers linked to it, as loaded from the system of record.
type RoleGrant struct {
	RoleID      int64
	Identifier  string
	Permissions []string
}

// PermissionSet is a deduplicated set of permission identifiers.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given identifiers.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether perm is a member of the set.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// HasAny reports whether at least one of perms is a member. An empty
// requirement list is an empty disjunction and yields false.
func (s PermissionSet) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is a member. An empty requirement
// list is vacuously true.
func (s PermissionSet) HasAll(perms ...string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Values returns the members in sorted order.
func (s PermissionSet) Values() []string {
	values := make([]string, 0, len(s))
	for p := range s {
		values = append(values, p)
	}
	sort.Strings(values)
	return values
}

func (s PermissionSet) clone() PermissionSet {
	copied := make(PermissionSet, len(s))
	for p := range s {
		copied[p] = struct{}{}
	}
	return copied
}
