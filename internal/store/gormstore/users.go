package gormstore

import (
	"context"

	"classhub/internal/models"
	"classhub/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate("create user", s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id uint) (models.User, error) {
	return getByID[models.User](ctx, s.db, id, "get user")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	return u, translate("get user by email", err)
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.RoleID != 0 {
		q = q.Where("role_id = ?", f.RoleID)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like(f.Search), like(f.Search))
	}
	return list[models.User](q, f.Page, "id desc", "list users")
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return save(ctx, s.db, u, u.ID, "update user")
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.User{}, id, "delete user")
}

func (s *Store) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate("create refresh token", s.db.WithContext(ctx).Create(t).Error)
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.db.WithContext(ctx).First(&t, "token = ?", token).Error
	return t, translate("get refresh token", err)
}

func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("is_revoked", true).Error
	return translate("revoke refresh token", err)
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true).Error
	return translate("revoke user refresh tokens", err)
}

func (s *Store) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return translate("create audit log", s.db.WithContext(ctx).Create(l).Error)
}

func (s *Store) ListAuditLogs(ctx context.Context, f store.AuditFilter) ([]models.AuditLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	return list[models.AuditLog](q, f.Page, "created_at desc", "list audit logs")
}
