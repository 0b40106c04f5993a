package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/services"
	"classhub/internal/store"
)

// statuses splits a comma separated status query parameter.
func statuses[T ~string](r *http.Request) []T {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	var out []T
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, T(s))
		}
	}
	return out
}

func sessionFilter(r *http.Request) (store.SessionFilter, error) {
	f := store.SessionFilter{Statuses: statuses[models.SessionStatus](r)}
	var err error
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		return f, err
	}
	if f.From, err = queryTime(r, "start_date", false); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "end_date", true); err != nil {
		return f, err
	}
	return f, nil
}

func ListSessions(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := sessionFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		f.Page = p.store()
		sessions, total, err := svc.List(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, sessions, total, p)
	}
}

func CourseSessions(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, err := urlID(r, "courseId")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		f, err := sessionFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		f.CourseID, f.Page = courseID, p.store()
		sessions, total, err := svc.List(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, sessions, total, p)
	}
}

func SessionStats(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, err := queryID(r, "course_id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		st, err := svc.Stats(r.Context(), courseID)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", st)
	}
}

func GetSession(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		s, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", s)
	}
}

func CreateSession(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.SessionInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		s, err := svc.Create(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, s)
	}
}

func UpdateSession(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.SessionUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		s, err := svc.Update(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, s)
	}
}

func ChangeSessionStatus(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.SessionStatusInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		s, err := svc.ChangeStatus(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgStatusChanged, s)
	}
}

func DeleteSession(svc *services.SessionService, lg *zap.SugaredLogger) http.HandlerFunc {
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
