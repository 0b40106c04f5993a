package memstore

import (
	"context"
	"sort"
	"time"

	"classhub/internal/models"
	"classhub/internal/store"
)

func (s *Store) CreateRole(_ context.Context, r *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, existing := range s.roles {
		if existing.Title == r.Title {
			return store.ErrDuplicate
		}
	}
	if _, taken := s.roles[r.ID]; r.ID != 0 && taken {
		return store.ErrDuplicate
	}
	r.ID = s.bump("roles", r.ID)
	stamp(&r.CreatedAt, &r.UpdatedAt)
	s.roles[r.ID] = *r
	return nil
}

func (s *Store) GetRole(_ context.Context, id uint) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Role{}, s.FailWith
	}
	r, ok := s.roles[id]
	if !ok {
		return models.Role{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetRoleByTitle(_ context.Context, title string) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Role{}, s.FailWith
	}
	for _, r := range s.roles {
		if r.Title == title {
			return r, nil
		}
	}
	return models.Role{}, store.ErrNotFound
}

func (s *Store) ListRoles(context.Context) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	out := make([]models.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreatePermission(_ context.Context, p *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, existing := range s.permissions {
		if existing.Title == p.Title {
			return store.ErrDuplicate
		}
	}
	if _, taken := s.permissions[p.ID]; p.ID != 0 && taken {
		return store.ErrDuplicate
	}
	p.ID = s.bump("permissions", p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.permissions[p.ID] = *p
	return nil
}

func (s *Store) ListPermissions(context.Context) ([]models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	out := make([]models.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindPermissions(_ context.Context, ids []uint) ([]models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	out := []models.Permission{}
	seen := map[uint]bool{}
	for _, id := range ids {
		if p, ok := s.permissions[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RolePermissions(_ context.Context, roleID uint) ([]models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	out := []models.Permission{}
	for pid := range s.rolePermissions[roleID] {
		if p, ok := s.permissions[pid]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceRolePermissions(_ context.Context, roleID uint, permissionIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.roles[roleID]; !ok {
		return store.ErrNotFound
	}
	set := make(map[uint]time.Time, len(permissionIDs))
	now := time.Now()
	for _, pid := range permissionIDs {
		if _, ok := s.permissions[pid]; !ok {
			return store.ErrNotFound
		}
		set[pid] = now
	}
	s.rolePermissions[roleID] = set
	return nil
}
