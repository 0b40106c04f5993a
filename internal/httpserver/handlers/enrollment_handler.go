package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/services"
	"classhub/internal/store"
)

func enrollmentFilter(r *http.Request) (store.EnrollmentFilter, error) {
	f := store.EnrollmentFilter{Statuses: statuses[models.EnrollmentStatus](r)}
	var err error
	if f.UserID, err = queryID(r, "user_id"); err != nil {
		return f, err
	}
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		return f, err
	}
	return f, nil
}

func listEnrollments(svc *services.EnrollmentService, lg *zap.SugaredLogger, scope func(r *http.Request, f *store.EnrollmentFilter) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := enrollmentFilter(r)
		if err == nil && scope != nil {
			err = scope(r, &f)
		}
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		f.Page = p.store()
		rows, total, err := svc.List(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, rows, total, p)
	}
}

func ListEnrollments(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listEnrollments(svc, lg, nil)
}

// MyEnrollments lists the caller's own enrollments regardless of user_id.
func MyEnrollments(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listEnrollments(svc, lg, func(r *http.Request, f *store.EnrollmentFilter) error {
		f.UserID = auth.UserID(r.Context())
		return nil
	})
}

func CourseEnrollments(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listEnrollments(svc, lg, func(r *http.Request, f *store.EnrollmentFilter) error {
		id, err := urlID(r, "courseId")
		f.CourseID = id
		return err
	})
}

func EnrollmentStats(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
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

func GetEnrollment(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		e, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", e)
	}
}

// CreateEnrollment enrolls the caller. Naming another user_id needs enrollment:update.
func CreateEnrollment(svc *services.EnrollmentService, az auth.Authorizer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.EnrollmentInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		actor := services.Actor{
			UserID: auth.UserID(r.Context()),
			Manage: auth.Can(r.Context(), az, rbac.EnrollmentUpdate),
		}
		e, err := svc.Create(r.Context(), actor, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, e)
	}
}

func UpdateEnrollment(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.EnrollmentUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		e, err := svc.Update(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, e)
	}
}

func ChangeEnrollmentStatus(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.EnrollmentStatusInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		e, err := svc.ChangeStatus(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgStatusChanged, e)
	}
}

func DeleteEnrollment(svc *services.EnrollmentService, lg *zap.SugaredLogger) http.HandlerFunc {
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
