package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/services"
)

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func Signup(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.SignupInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		u, err := svc.Signup(r.Context(), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgSignedUp, u)
	}
}

func Login(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.LoginInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		meta := services.ClientMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
		pair, err := svc.Login(r.Context(), req, meta)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgLoggedIn, pair)
	}
}

func Refresh(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshReq
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", pair)
	}
}

// Logout revokes the given refresh token; an empty body is accepted.
func Logout(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshReq
		if r.ContentLength != 0 {
			if err := decode(r, &req); err != nil {
				respondError(w, r, lg, err)
				return
			}
		}
		if err := svc.Logout(r.Context(), auth.UserID(r.Context()), req.RefreshToken); err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgLoggedOut, nil)
	}
}

func LogoutAll(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.LogoutAll(r.Context(), auth.UserID(r.Context())); err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgLoggedOut, nil)
	}
}

func Profile(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Profile(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", p)
	}
}

func UpdateProfile(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.ProfileInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		u, err := svc.UpdateProfile(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, u)
	}
}

func ChangePassword(svc *services.AuthService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.ChangePasswordInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := svc.ChangePassword(r.Context(), auth.UserID(r.Context()), req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgPasswordChanged, nil)
	}
}
