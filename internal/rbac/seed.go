package rbac

import (
	"context"
	"errors"
	"fmt"

	"classhub/internal/models"
	"classhub/internal/store"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Permission titles checked by the router.
const (
	UserView   = "user:view"
	UserCreate = "user:create"
	UserUpdate = "user:update"
	UserDelete = "user:delete"

	CourseView   = "course:view"
	CourseCreate = "course:create"
	CourseUpdate = "course:update"
	CourseDelete = "course:delete"

	SessionView   = "session:view"
	SessionCreate = "session:create"
	SessionUpdate = "session:update"
	SessionDelete = "session:delete"

	EnrollmentView   = "enrollment:view"
	EnrollmentCreate = "enrollment:create"
	EnrollmentUpdate = "enrollment:update"
	EnrollmentDelete = "enrollment:delete"

	AttendanceView   = "attendance:view"
	AttendanceCreate = "attendance:create"
	AttendanceUpdate = "attendance:update"
	AttendanceDelete = "attendance:delete"

	PaymentView   = "payment:view"
	PaymentCreate = "payment:create"
	PaymentUpdate = "payment:update"
	PaymentDelete = "payment:delete"

	ReportView = "report:view"

	RBACView   = "rbac:view"
	RBACManage = "rbac:manage"
)

var seedRoles = []models.Role{
	{Title: RoleAdmin, Description: "مدیر سیستم"},
	{Title: RoleTeacher, Description: "استاد"},
	{Title: RoleStudent, Description: "دانشجو"},
}

// seedPermissions is inserted in order, so a fresh database numbers them 1..n.
var seedPermissions = []string{
	UserView, UserCreate, UserUpdate, UserDelete,
	CourseView, CourseCreate, CourseUpdate, CourseDelete,
	SessionView, SessionCreate, SessionUpdate, SessionDelete,
	EnrollmentView, EnrollmentCreate, EnrollmentUpdate, EnrollmentDelete,
	AttendanceView, AttendanceCreate, AttendanceUpdate, AttendanceDelete,
	PaymentView, PaymentCreate, PaymentUpdate, PaymentDelete,
	ReportView,
	RBACView, RBACManage,
}

var seedGrants = map[string][]string{
	RoleAdmin: seedPermissions,
	RoleTeacher: {
		UserView,
		CourseView, CourseCreate, CourseUpdate, CourseDelete,
		SessionView, SessionCreate, SessionUpdate, SessionDelete,
		EnrollmentView, EnrollmentCreate, EnrollmentUpdate, EnrollmentDelete,
		AttendanceView, AttendanceCreate, AttendanceUpdate, AttendanceDelete,
		ReportView,
	},
	RoleStudent: {
		CourseView, SessionView, EnrollmentView, EnrollmentCreate,
		AttendanceView, PaymentView, PaymentCreate,
	},
}

// Seed creates the default roles and permissions. Grants are only written
// for roles that have none yet, so edits made through the API survive restarts.
func Seed(ctx context.Context, s store.RBAC) error {
	for _, r := range seedRoles {
		role := r
		if _, err := s.GetRoleByTitle(ctx, role.Title); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("seed role %s: %w", role.Title, err)
		}
		if err := s.CreateRole(ctx, &role); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("seed role %s: %w", role.Title, err)
		}
	}

	existing, err := s.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	byTitle := make(map[string]uint, len(existing))
	for _, p := range existing {
		byTitle[p.Title] = p.ID
	}
	for _, title := range seedPermissions {
		if _, ok := byTitle[title]; ok {
			continue
		}
		p := models.Permission{Title: title}
		if err := s.CreatePermission(ctx, &p); err != nil {
			return fmt.Errorf("seed permission %s: %w", title, err)
		}
		byTitle[title] = p.ID
	}

	for roleTitle, titles := range seedGrants {
		role, err := s.GetRoleByTitle(ctx, roleTitle)
		if err != nil {
			return fmt.Errorf("seed grants %s: %w", roleTitle, err)
		}
		current, err := s.RolePermissions(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("seed grants %s: %w", roleTitle, err)
		}
		if len(current) > 0 {
			continue
		}
		ids := make([]uint, 0, len(titles))
		for _, t := range titles {
			ids = append(ids, byTitle[t])
		}
		if err := s.ReplaceRolePermissions(ctx, role.ID, ids); err != nil {
			return fmt.Errorf("seed grants %s: %w", roleTitle, err)
		}
	}
	return nil
}
