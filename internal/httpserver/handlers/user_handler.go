package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"classhub/internal/services"
	"classhub/internal/store"
)

func ListUsers(svc *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roleID, err := queryID(r, "role_id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		users, total, err := svc.List(r.Context(), store.UserFilter{
			RoleID: roleID,
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Page:   p.store(),
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, users, total, p)
	}
}

func GetUser(svc *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		u, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", u)
	}
}

func CreateUser(svc *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.CreateUserInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		u, err := svc.Create(r.Context(), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, u)
	}
}

func UpdateUser(svc *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.UpdateUserInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		u, err := svc.Update(r.Context(), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, u)
	}
}

func DeleteUser(svc *services.UserService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgDeleted, nil)
	}
}
