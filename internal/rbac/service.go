package rbac

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

// Invalidator drops cached snapshots for a role.
type Invalidator interface {
	Invalidate(ctx context.Context, roleID uint) error
}

type Service struct {
	store       store.RBAC
	invalidator Invalidator
	publisher   events.Publisher
	lg          *zap.SugaredLogger
}

func NewService(s store.RBAC, inv Invalidator, pub events.Publisher, lg *zap.SugaredLogger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: s, invalidator: inv, publisher: pub, lg: lg}
}

type RoleInput struct {
	Title       string `json:"title" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=255"`
}

type PermissionInput struct {
	Title       string `json:"title" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=255"`
}

type AssignInput struct {
	RoleID        uint   `json:"role_id" validate:"required"`
	PermissionIDs []uint `json:"permission_ids" validate:"required"`
}

func (s *Service) CreateRole(ctx context.Context, in RoleInput) (models.Role, error) {
	if err := validation.Struct(in); err != nil {
		return models.Role{}, err
	}
	role := models.Role{Title: in.Title, Description: in.Description}
	if err := s.store.CreateRole(ctx, &role); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Role{}, apperr.Conflict(apperr.MsgRoleExists)
		}
		return models.Role{}, apperr.Server(err)
	}
	return role, nil
}

func (s *Service) CreatePermission(ctx context.Context, in PermissionInput) (models.Permission, error) {
	if err := validation.Struct(in); err != nil {
		return models.Permission{}, err
	}
	perm := models.Permission{Title: in.Title, Description: in.Description}
	if err := s.store.CreatePermission(ctx, &perm); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Permission{}, apperr.Conflict(apperr.MsgPermissionExists)
		}
		return models.Permission{}, apperr.Server(err)
	}
	return perm, nil
}

// AssignPermissions replaces the role's permission set. Repeated ids are
// collapsed; any unknown id rejects the whole request.
func (s *Service) AssignPermissions(ctx context.Context, actorID uint, in AssignInput) ([]models.Permission, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRole(ctx, in.RoleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(apperr.MsgRoleNotFound)
		}
		return nil, apperr.Server(err)
	}
	ids := dedupe(in.PermissionIDs)
	found, err := s.store.FindPermissions(ctx, ids)
	if err != nil {
		return nil, apperr.Server(err)
	}
	if len(found) != len(ids) {
		return nil, apperr.InvalidInput(apperr.MsgInvalidPermissionList)
	}
	if err := s.store.ReplaceRolePermissions(ctx, in.RoleID, ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.InvalidInput(apperr.MsgInvalidPermissionList)
		}
		return nil, apperr.Server(err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, in.RoleID); err != nil {
			// stale snapshots must not outlive a reassignment
			return nil, apperr.Server(fmt.Errorf("invalidate permission snapshot: %w", err))
		}
	}
	ev := events.New(events.RolePermissionsAssigned, actorID, fmt.Sprintf("role:%d", in.RoleID),
		map[string]any{"permission_ids": ids})
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.lg.Warnw("event publish failed", "type", ev.Type, "error", err)
	}
	return found, nil
}

func (s *Service) ListRolePermissions(ctx context.Context, roleID uint) (models.Role, []models.Permission, error) {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Role{}, nil, apperr.NotFound(apperr.MsgRoleMissing)
		}
		return models.Role{}, nil, apperr.Server(err)
	}
	perms, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return models.Role{}, nil, apperr.Server(err)
	}
	return role, perms, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return roles, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return perms, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
