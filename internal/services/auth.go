package services

import (
	"context"
	"errors"
	"strings"

	"classhub/internal/apperr"
	"classhub/internal/auth"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store"
	"classhub/internal/validation"
)

type AuthService struct {
	base
	access  *auth.Signer
	refresh *auth.Signer
}

func NewAuthService(o Options, access, refresh *auth.Signer) *AuthService {
	return &AuthService{base: newBase(o), access: access, refresh: refresh}
}

type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email" validate:"omitempty,email,max=100"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// ClientMeta is stored alongside refresh tokens.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type Profile struct {
	models.User
	Role models.Role `json:"role"`
}

type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         models.User `json:"user"`
}

// Signup always registers a student; other roles are granted through the users API.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return models.User{}, apperr.InvalidInput(apperr.MsgIncompleteData)
	}
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	role, err := s.store.GetRoleByTitle(ctx, rbac.RoleStudent)
	if err != nil {
		return models.User{}, apperr.Server(err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Server(err)
	}
	u := models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, RoleID: role.ID}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return models.User{}, storeErr(err, "", apperr.MsgSignupExists)
	}
	s.emit(ctx, events.UserRegistered, u.ID, subject("user", u.ID), map[string]any{"email": u.Email})
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput, meta ClientMeta) (TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return TokenPair{}, err
	}
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, apperr.Unauthenticated(apperr.MsgUserNotFound)
		}
		return TokenPair{}, apperr.Server(err)
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Password); err != nil {
		return TokenPair{}, apperr.Unauthenticated(apperr.MsgWrongPassword)
	}
	access, err := s.access.Sign(u.ID, u.RoleID)
	if err != nil {
		return TokenPair{}, apperr.Server(err)
	}
	refresh, exp, err := s.refresh.SignRefresh(u.ID)
	if err != nil {
		return TokenPair{}, apperr.Server(err)
	}
	row := models.RefreshToken{
		Token:     refresh,
		UserID:    u.ID,
		ExpiresAt: exp,
		IPAddress: truncate(meta.IP, 45),
		UserAgent: truncate(meta.UserAgent, 500),
	}
	if err := s.store.CreateRefreshToken(ctx, &row); err != nil {
		return TokenPair{}, apperr.Server(err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Refresh issues a new access token for a stored, unrevoked refresh token.
func (s *AuthService) Refresh(ctx context.Context, token string) (TokenPair, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenPair{}, apperr.InvalidInput(apperr.MsgIncompleteData)
	}
	claims, err := s.refresh.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return TokenPair{}, apperr.Unauthenticated(apperr.MsgRefreshExpired)
		}
		return TokenPair{}, apperr.Unauthenticated(apperr.MsgRefreshInvalid)
	}
	row, err := s.store.GetRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, apperr.Unauthenticated(apperr.MsgRefreshInvalid)
		}
		return TokenPair{}, apperr.Server(err)
	}
	if row.IsRevoked || row.UserID != claims.UserID {
		return TokenPair{}, apperr.Unauthenticated(apperr.MsgRefreshInvalid)
	}
	if !s.now().Before(row.ExpiresAt) {
		return TokenPair{}, apperr.Unauthenticated(apperr.MsgRefreshExpired)
	}
	u, err := s.store.GetUser(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, apperr.Unauthenticated(apperr.MsgUserNotFound)
		}
		return TokenPair{}, apperr.Server(err)
	}
	access, err := s.access.Sign(u.ID, u.RoleID)
	if err != nil {
		return TokenPair{}, apperr.Server(err)
	}
	return TokenPair{AccessToken: access, User: u}, nil
}

// Logout revokes one of the caller's refresh tokens. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, userID uint, token string) error {
	if token = strings.TrimSpace(token); token == "" {
		return nil
	}
	row, err := s.store.GetRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return apperr.Server(err)
	}
	if row.UserID != userID {
		return apperr.Forbidden(apperr.MsgAccessDenied)
	}
	if err := s.store.RevokeRefreshToken(ctx, token); err != nil {
		return apperr.Server(err)
	}
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.store.RevokeUserRefreshTokens(ctx, userID); err != nil {
		return apperr.Server(err)
	}
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (Profile, error) {
	u, err := s.userExists(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	role, err := s.store.GetRole(ctx, u.RoleID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Profile{}, apperr.Server(err)
	}
	return Profile{User: u, Role: role}, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (models.User, error) {
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	u, err := s.userExists(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return models.User{}, storeErr(err, apperr.MsgUserNotFound, apperr.MsgUserExists)
	}
	return u, nil
}

// ChangePassword also revokes every refresh token of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	u, err := s.userExists(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, in.CurrentPassword); err != nil {
		return apperr.InvalidInput(apperr.MsgWrongCurrentPass)
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Server(err)
	}
	u.PasswordHash = hash
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return storeErr(err, apperr.MsgUserNotFound, "")
	}
	return s.LogoutAll(ctx, userID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
