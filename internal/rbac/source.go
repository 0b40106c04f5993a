// Package rbac evaluates role permissions and manages roles, permissions and
// their assignments.
package rbac

import (
	"context"
	"sort"

	"classhub/internal/store"
)

// PermissionSet holds the permission titles granted to one role.
type PermissionSet map[string]struct{}

func NewPermissionSet(titles ...string) PermissionSet {
	set := make(PermissionSet, len(titles))
	for _, t := range titles {
		set[t] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(title string) bool {
	_, ok := s[title]
	return ok
}

func (s PermissionSet) Titles() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PermissionSource resolves the permission set of a role.
type PermissionSource interface {
	PermissionsFor(ctx context.Context, roleID uint) (PermissionSet, error)
}

// StoreSource reads assignments straight from the RBAC store.
type StoreSource struct {
	store store.RBAC
}

func NewStoreSource(s store.RBAC) *StoreSource {
	return &StoreSource{store: s}
}

func (s *StoreSource) PermissionsFor(ctx context.Context, roleID uint) (PermissionSet, error) {
	perms, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p.Title] = struct{}{}
	}
	return set, nil
}
