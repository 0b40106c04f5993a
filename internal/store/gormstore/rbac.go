package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classhub/internal/models"
	"classhub/internal/store"
)

func (s *Store) CreateRole(ctx context.Context, r *models.Role) error {
	return translate("create role", s.db.WithContext(ctx).Create(r).Error)
}

func (s *Store) GetRole(ctx context.Context, id uint) (models.Role, error) {
	return getByID[models.Role](ctx, s.db, id, "get role")
}

func (s *Store) GetRoleByTitle(ctx context.Context, title string) (models.Role, error) {
	var r models.Role
	err := s.db.WithContext(ctx).First(&r, "title = ?", title).Error
	return r, translate("get role by title", err)
}

func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, translate("list roles", err)
}

func (s *Store) CreatePermission(ctx context.Context, p *models.Permission) error {
	return translate("create permission", s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var out []models.Permission
	err := s.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, translate("list permissions", err)
}

func (s *Store) FindPermissions(ctx context.Context, ids []uint) ([]models.Permission, error) {
	out := []models.Permission{}
	if len(ids) == 0 {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, translate("find permissions", err)
}

func (s *Store) RolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	out := []models.Permission{}
	err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ?", roleID).
		Order("permissions.id").
		Find(&out).Error
	return out, translate("role permissions", err)
}

func (s *Store) ReplaceRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	err := s.WithTx(ctx, func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Select("id").First(&role, roleID).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		now := time.Now()
		rows := make([]models.RolePermission, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: pid, CreatedAt: now})
		}
		return tx.Create(&rows).Error
	})
	return translate("replace role permissions", err)
}

var _ store.RBAC = (*Store)(nil)
