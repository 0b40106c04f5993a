package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/rbac"
)

func ListRoles(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", roles)
	}
}

func CreateRole(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.RoleInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		role, err := svc.CreateRole(r.Context(), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, role)
	}
}

func ListPermissions(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := svc.ListPermissions(r.Context())
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", perms)
	}
}

func CreatePermission(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.PermissionInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		p, err := svc.CreatePermission(r.Context(), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, p)
	}
}

func AssignPermissions(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.AssignInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		perms, err := svc.AssignPermissions(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgAssigned, map[string]any{
			"role_id":     req.RoleID,
			"permissions": perms,
		})
	}
}

func RolePermissions(svc *rbac.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "roleId")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		role, perms, err := svc.ListRolePermissions(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", struct {
			Role        models.Role         `json:"role"`
			Permissions []models.Permission `json:"permissions"`
		}{role, perms})
	}
}
