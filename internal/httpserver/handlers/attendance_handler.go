package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/services"
	"classhub/internal/store"
)

func attendanceFilter(r *http.Request) (store.AttendanceFilter, error) {
	var f store.AttendanceFilter
	var err error
	if f.EnrollmentID, err = queryID(r, "enrollment_id"); err != nil {
		return f, err
	}
	if f.SessionID, err = queryID(r, "session_id"); err != nil {
		return f, err
	}
	if f.UserID, err = queryID(r, "user_id"); err != nil {
		return f, err
	}
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		return f, err
	}
	if f.Present, err = queryBool(r, "present"); err != nil {
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

func listAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger, scope func(r *http.Request, f *store.AttendanceFilter) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := attendanceFilter(r)
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

func ListAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAttendance(svc, lg, nil)
}

func MyAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAttendance(svc, lg, func(r *http.Request, f *store.AttendanceFilter) error {
		f.UserID = auth.UserID(r.Context())
		return nil
	})
}

func SessionAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAttendance(svc, lg, func(r *http.Request, f *store.AttendanceFilter) error {
		id, err := urlID(r, "sessionId")
		f.SessionID = id
		return err
	})
}

var attendanceCSVHeader = []string{
	"id", "enrollment_id", "session_id", "present", "arrival_time", "departure_time",
	"late_minutes", "early_departure_minutes", "recording_method", "notes", "created_at",
}

func attendanceRows(records []models.Attendance) [][]string {
	rows := make([][]string, 0, len(records))
	for _, a := range records {
		rows = append(rows, []string{
			formatUint(a.ID),
			formatUint(a.EnrollmentID),
			formatUint(a.SessionID),
			strconv.FormatBool(a.Present),
			deref(a.ArrivalTime),
			deref(a.DepartureTime),
			strconv.Itoa(a.LateMinutes),
			strconv.Itoa(a.EarlyDepartureMinutes),
			string(a.RecordingMethod),
			a.Notes,
			formatTime(&a.CreatedAt),
		})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func AttendanceReport(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := attendanceFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Report(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if wantsCSV(r) {
			writeCSV(w, lg, "attendance-report.csv", attendanceCSVHeader, attendanceRows(rep.Records))
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

func GetAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		a, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", a)
	}
}

func RecordAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.AttendanceInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		a, err := svc.Record(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, a)
	}
}

// RecordBulkAttendance answers 201 even when some entries failed; the result
// lists every item error.
func RecordBulkAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.BulkAttendanceInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		res, err := svc.RecordBulk(r.Context(), auth.UserID(r.Context()), req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgAttendanceBulk, res)
	}
}

func UpdateAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.AttendanceUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		a, err := svc.Update(r.Context(), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, a)
	}
}

func DeleteAttendance(svc *services.AttendanceService, lg *zap.SugaredLogger) http.HandlerFunc {
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
