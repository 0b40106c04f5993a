// Package memstore is an in-memory store.Store used by tests and local runs.
// It enforces the same uniqueness rules as the Postgres schema.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"classhub/internal/models"
	"classhub/internal/store"
)

type Store struct {
	mu sync.RWMutex

	seq map[string]uint

	users           map[uint]models.User
	roles           map[uint]models.Role
	permissions     map[uint]models.Permission
	rolePermissions map[uint]map[uint]time.Time
	tokens          map[string]models.RefreshToken
	courses         map[uint]models.Course
	sessions        map[uint]models.Session
	enrollments     map[uint]models.Enrollment
	attendance      map[uint]models.Attendance
	payments        map[uint]models.Payment
	audit           []models.AuditLog

	// FailWith makes every call return the given error. Tests use it to
	// simulate an unavailable backend.
	FailWith error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		seq:             map[string]uint{},
		users:           map[uint]models.User{},
		roles:           map[uint]models.Role{},
		permissions:     map[uint]models.Permission{},
		rolePermissions: map[uint]map[uint]time.Time{},
		tokens:          map[string]models.RefreshToken{},
		courses:         map[uint]models.Course{},
		sessions:        map[uint]models.Session{},
		enrollments:     map[uint]models.Enrollment{},
		attendance:      map[uint]models.Attendance{},
		payments:        map[uint]models.Payment{},
	}
}

func (s *Store) next(table string) uint {
	s.seq[table]++
	return s.seq[table]
}

// bump keeps the sequence ahead of explicitly chosen ids (seeded rows).
func (s *Store) bump(table string, id uint) uint {
	if id == 0 {
		return s.next(table)
	}
	if id > s.seq[table] {
		s.seq[table] = id
	}
	return id
}

func (s *Store) Ping(context.Context) error { return s.FailWith }

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func paginate[T any](items []T, p store.Page) ([]T, int64) {
	total := int64(len(items))
	start := max(0, min(p.Offset, len(items)))
	end := len(items)
	if p.Limit > 0 && start+p.Limit < end {
		end = start + p.Limit
	}
	return items[start:end], total
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func byIDDesc[T any](items []T, id func(T) uint) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })
}

// Users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = s.bump("users", u.ID)
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.User{}, s.FailWith
	}
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.User{}, s.FailWith
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, f store.UserFilter) ([]models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.User{}
	for _, u := range s.users {
		if f.RoleID != 0 && u.RoleID != f.RoleID {
			continue
		}
		if f.Search != "" && !contains(u.Name, f.Search) && !contains(u.Email, f.Search) {
			continue
		}
		out = append(out, u)
	}
	byIDDesc(out, func(u models.User) uint { return u.ID })
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	stamp(nil, &u.UpdatedAt)
	s.users[u.ID] = *u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Refresh tokens

func (s *Store) CreateRefreshToken(_ context.Context, t *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.tokens[t.Token]; ok {
		return store.ErrDuplicate
	}
	t.ID = s.next("refresh_tokens")
	stamp(&t.CreatedAt, nil)
	s.tokens[t.Token] = *t
	return nil
}

func (s *Store) GetRefreshToken(_ context.Context, token string) (models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.RefreshToken{}, s.FailWith
	}
	t, ok := s.tokens[token]
	if !ok {
		return models.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if t, ok := s.tokens[token]; ok {
		t.IsRevoked = true
		s.tokens[token] = t
	}
	return nil
}

func (s *Store) RevokeUserRefreshTokens(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for k, t := range s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			s.tokens[k] = t
		}
	}
	return nil
}

// Audit logs

func (s *Store) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	l.ID = int64(s.next("audit_logs"))
	stamp(&l.CreatedAt, nil)
	s.audit = append(s.audit, *l)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, f store.AuditFilter) ([]models.AuditLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.AuditLog{}
	for i := len(s.audit) - 1; i >= 0; i-- {
		l := s.audit[i]
		if f.UserID != 0 && (l.UserID == nil || *l.UserID != f.UserID) {
			continue
		}
		out = append(out, l)
	}
	items, total := paginate(out, f.Page)
	return items, total, nil
}
