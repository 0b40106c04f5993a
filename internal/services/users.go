package services

import (
	"context"
	"strings"

	"classhub/internal/apperr"
	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

type UserService struct {
	base
}

func NewUserService(o Options) *UserService {
	return &UserService{base: newBase(o)}
}

type CreateUserInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	RoleID   uint   `json:"role_id" validate:"required"`
}

type UpdateUserInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	RoleID   *uint   `json:"role_id" validate:"omitempty,gt=0"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	if _, err := s.store.GetRole(ctx, in.RoleID); err != nil {
		return models.User{}, storeErr(err, apperr.MsgRoleMissing, "")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Server(err)
	}
	u := models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, RoleID: in.RoleID}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return models.User{}, storeErr(err, "", apperr.MsgUserExists)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	return s.userExists(ctx, id)
}

func (s *UserService) List(ctx context.Context, f store.UserFilter) ([]models.User, int64, error) {
	users, total, err := s.store.ListUsers(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return users, total, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (models.User, error) {
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	u, err := s.userExists(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.RoleID != nil {
		if _, err := s.store.GetRole(ctx, *in.RoleID); err != nil {
			return models.User{}, storeErr(err, apperr.MsgRoleMissing, "")
		}
		u.RoleID = *in.RoleID
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return models.User{}, apperr.Server(err)
		}
		u.PasswordHash = hash
	}
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return models.User{}, storeErr(err, apperr.MsgUserNotFound, apperr.MsgUserExists)
	}
	return u, nil
}

// Delete refuses users that still teach courses or own enrollments or payments.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.userExists(ctx, id); err != nil {
		return err
	}
	_, courses, err := s.store.ListCourses(ctx, store.CourseFilter{TeacherID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	_, enrollments, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{UserID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	_, payments, err := s.store.ListPayments(ctx, store.PaymentFilter{UserID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	if courses+enrollments+payments > 0 {
		return apperr.Conflict(apperr.MsgUserHasDependencies)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return storeErr(err, apperr.MsgUserNotFound, "")
	}
	if err := s.store.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.lg.Warnw("revoke tokens of deleted user failed", "user_id", id, "error", err)
	}
	return nil
}
