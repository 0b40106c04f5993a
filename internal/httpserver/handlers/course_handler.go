package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/services"
	"classhub/internal/store"
)

func ListCourses(svc *services.CourseService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teacherID, err := queryID(r, "teacher_id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		courses, total, err := svc.List(r.Context(), store.CourseFilter{
			TeacherID: teacherID,
			Search:    strings.TrimSpace(r.URL.Query().Get("search")),
			Page:      p.store(),
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, courses, total, p)
	}
}

func GetCourse(svc *services.CourseService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		c, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", c)
	}
}

func CreateCourse(svc *services.CourseService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.CourseInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		c, err := svc.Create(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, c)
	}
}

func UpdateCourse(svc *services.CourseService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.CourseUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		c, err := svc.Update(r.Context(), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, c)
	}
}

func DeleteCourse(svc *services.CourseService, lg *zap.SugaredLogger) http.HandlerFunc {
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
