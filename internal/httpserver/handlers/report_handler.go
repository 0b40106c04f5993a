package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"classhub/internal/services"
	"classhub/internal/store"
)

func period(r *http.Request) (services.Period, error) {
	var p services.Period
	var err error
	if p.From, err = queryTime(r, "start_date", false); err != nil {
		return p, err
	}
	if p.To, err = queryTime(r, "end_date", true); err != nil {
		return p, err
	}
	return p, nil
}

func OverviewReport(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := period(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Overview(r.Context(), p)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

var studentCSVHeader = []string{"user_id", "name", "email", "enrollment_id", "status", "enrollment_date", "grade"}

func CourseReport(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "courseId")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Course(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if wantsCSV(r) {
			rows := make([][]string, 0, len(rep.Students))
			for _, s := range rep.Students {
				grade := ""
				if s.Grade != nil {
					grade = formatFloat(*s.Grade)
				}
				rows = append(rows, []string{
					formatUint(s.UserID), s.Name, s.Email, formatUint(s.EnrollmentID),
					string(s.Status), formatTime(&s.EnrollmentDate), grade,
				})
			}
			writeCSV(w, lg, "course-"+formatUint(id)+"-students.csv", studentCSVHeader, rows)
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

func StudentReport(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "userId")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Student(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

func FinancialReport(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, err := queryID(r, "course_id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p, err := period(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Financial(r.Context(), courseID, p)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if wantsCSV(r) {
			writeCSV(w, lg, "financial-report.csv", paymentCSVHeader, paymentRows(rep.Payments))
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

var courseAttendanceCSVHeader = []string{"course_id", "course_title", "present", "absent"}

func AttendanceOverview(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := attendanceFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.Attendance(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if wantsCSV(r) {
			rows := make([][]string, 0, len(rep.ByCourse))
			for _, c := range rep.ByCourse {
				rows = append(rows, []string{formatUint(c.CourseID), c.CourseTitle, strconv.Itoa(c.Present), strconv.Itoa(c.Absent)})
			}
			writeCSV(w, lg, "attendance-overview.csv", courseAttendanceCSVHeader, rows)
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

func TeacherPerformance(svc *services.ReportService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "teacherId")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rep, err := svc.TeacherPerformance(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", rep)
	}
}

// ListAuditLogs pages through the audit trail written by the event publisher.
func ListAuditLogs(logs store.AuditLogs, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := queryID(r, "user_id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		rows, total, err := logs.ListAuditLogs(r.Context(), store.AuditFilter{UserID: userID, Page: p.store()})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, rows, total, p)
	}
}
