package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/rbac"
	"classhub/internal/store"
)

// Authorizer is satisfied by rbac.Evaluator.
type Authorizer interface {
	Authorize(ctx context.Context, roleID uint, permission string) (rbac.Decision, error)
}

// Authenticate verifies the bearer access token and loads the caller, so the
// role used for authorization is always the one currently stored.
func Authenticate(signer *Signer, users store.Users, lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			scheme, raw, ok := strings.Cut(h, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				deny(w, apperr.Unauthenticated(apperr.MsgLoginRequired))
				return
			}
			claims, err := signer.Verify(strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					deny(w, apperr.Unauthenticated(apperr.MsgExpiredToken))
					return
				}
				deny(w, apperr.Unauthenticated(apperr.MsgInvalidToken))
				return
			}
			u, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					deny(w, apperr.Unauthenticated(apperr.MsgUserNotFound))
					return
				}
				lg.Errorw("load caller failed", "user_id", claims.UserID, "error", err)
				deny(w, apperr.Server(err))
				return
			}
			id := Identity{UserID: u.ID, RoleID: u.RoleID, Email: u.Email}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequirePermission lets the request through only when the caller's role
// holds permission.
func RequirePermission(az Authorizer, permission string, lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				deny(w, apperr.Unauthenticated(apperr.MsgLoginRequired))
				return
			}
			if id.RoleID == 0 {
				deny(w, apperr.Forbidden(apperr.MsgRoleUnknown))
				return
			}
			decision, err := az.Authorize(r.Context(), id.RoleID, permission)
			if err != nil {
				lg.Errorw("authorization failed", "role_id", id.RoleID, "permission", permission, "error", err)
				deny(w, apperr.Server(err))
				return
			}
			if decision != rbac.Allow {
				lg.Warnw("access denied", "user_id", id.UserID, "role_id", id.RoleID, "permission", permission)
				deny(w, apperr.Forbidden(apperr.MsgAccessDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Can reports whether the caller holds permission without rejecting the request.
func Can(ctx context.Context, az Authorizer, permission string) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	d, err := az.Authorize(ctx, id.RoleID, permission)
	return err == nil && d == rbac.Allow
}

func deny(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Kind.HTTPStatus())
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]any{"success": false, "message": e.Message})
}
