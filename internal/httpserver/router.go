package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/auth"
	"classhub/internal/httpserver/handlers"
	"classhub/internal/rbac"
	"classhub/internal/services"
	"classhub/internal/store"
)

// Deps is everything the router hands to handlers.
type Deps struct {
	Store      store.Store
	Authorizer auth.Authorizer
	Access     *auth.Signer

	RBAC        *rbac.Service
	Auth        *services.AuthService
	Users       *services.UserService
	Courses     *services.CourseService
	Sessions    *services.SessionService
	Enrollments *services.EnrollmentService
	Attendance  *services.AttendanceService
	Payments    *services.PaymentService
	Reports     *services.ReportService

	// Registerer and Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *zap.SugaredLogger
}

func NewRouter(d Deps) http.Handler {
	lg := d.Logger
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	metrics := newHTTPMetrics(d.Registerer)

	can := func(permission string) func(http.Handler) http.Handler {
		return auth.RequirePermission(d.Authorizer, permission, lg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requestLogger(lg), metrics.observe)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, apperr.NotFound(apperr.MsgRouteNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, apperr.NotFound(apperr.MsgRouteNotFound))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(a chi.Router) {
			a.Post("/signup", handlers.Signup(d.Auth, lg))
			a.Post("/login", handlers.Login(d.Auth, lg))
			a.Post("/refresh", handlers.Refresh(d.Auth, lg))
			a.Group(func(me chi.Router) {
				me.Use(auth.Authenticate(d.Access, d.Store, lg))
				me.Post("/logout", handlers.Logout(d.Auth, lg))
				me.Post("/logout-all", handlers.LogoutAll(d.Auth, lg))
				me.Get("/profile", handlers.Profile(d.Auth, lg))
				me.Put("/profile", handlers.UpdateProfile(d.Auth, lg))
				me.Put("/change-password", handlers.ChangePassword(d.Auth, lg))
			})
		})

		api.Group(func(protected chi.Router) {
			protected.Use(auth.Authenticate(d.Access, d.Store, lg))

			protected.Route("/rbac", func(rb chi.Router) {
				rb.With(can(rbac.RBACView)).Get("/roles", handlers.ListRoles(d.RBAC, lg))
				rb.With(can(rbac.RBACManage)).Post("/roles", handlers.CreateRole(d.RBAC, lg))
				rb.With(can(rbac.RBACView)).Get("/permissions", handlers.ListPermissions(d.RBAC, lg))
				rb.With(can(rbac.RBACManage)).Post("/permissions", handlers.CreatePermission(d.RBAC, lg))
				rb.With(can(rbac.RBACManage)).Post("/roles/assign-permissions", handlers.AssignPermissions(d.RBAC, lg))
				rb.With(can(rbac.RBACView)).Get("/roles/{roleId}/permissions", handlers.RolePermissions(d.RBAC, lg))
			})
			protected.With(can(rbac.RBACView)).Get("/audit-logs", handlers.ListAuditLogs(d.Store, lg))

			protected.Route("/users", func(u chi.Router) {
				u.With(can(rbac.UserView)).Get("/", handlers.ListUsers(d.Users, lg))
				u.With(can(rbac.UserCreate)).Post("/", handlers.CreateUser(d.Users, lg))
				u.With(can(rbac.UserView)).Get("/{id}", handlers.GetUser(d.Users, lg))
				u.With(can(rbac.UserUpdate)).Put("/{id}", handlers.UpdateUser(d.Users, lg))
				u.With(can(rbac.UserDelete)).Delete("/{id}", handlers.DeleteUser(d.Users, lg))
			})

			protected.Route("/courses", func(c chi.Router) {
				c.With(can(rbac.CourseView)).Get("/", handlers.ListCourses(d.Courses, lg))
				c.With(can(rbac.CourseCreate)).Post("/", handlers.CreateCourse(d.Courses, lg))
				c.With(can(rbac.CourseView)).Get("/{id}", handlers.GetCourse(d.Courses, lg))
				c.With(can(rbac.CourseUpdate)).Put("/{id}", handlers.UpdateCourse(d.Courses, lg))
				c.With(can(rbac.CourseDelete)).Delete("/{id}", handlers.DeleteCourse(d.Courses, lg))
			})

			protected.Route("/sessions", func(s chi.Router) {
				s.With(can(rbac.SessionView)).Get("/", handlers.ListSessions(d.Sessions, lg))
				s.With(can(rbac.SessionView)).Get("/stats", handlers.SessionStats(d.Sessions, lg))
				s.With(can(rbac.SessionView)).Get("/course/{courseId}", handlers.CourseSessions(d.Sessions, lg))
				s.With(can(rbac.SessionCreate)).Post("/", handlers.CreateSession(d.Sessions, lg))
				s.With(can(rbac.SessionView)).Get("/{id}", handlers.GetSession(d.Sessions, lg))
				s.With(can(rbac.SessionUpdate)).Put("/{id}", handlers.UpdateSession(d.Sessions, lg))
				s.With(can(rbac.SessionUpdate)).Patch("/{id}/status", handlers.ChangeSessionStatus(d.Sessions, lg))
				s.With(can(rbac.SessionDelete)).Delete("/{id}", handlers.DeleteSession(d.Sessions, lg))
			})

			protected.Route("/enrollments", func(e chi.Router) {
				e.With(can(rbac.EnrollmentView)).Get("/", handlers.ListEnrollments(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentView)).Get("/stats", handlers.EnrollmentStats(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentView)).Get("/my", handlers.MyEnrollments(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentView)).Get("/course/{courseId}", handlers.CourseEnrollments(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentCreate)).Post("/", handlers.CreateEnrollment(d.Enrollments, d.Authorizer, lg))
				e.With(can(rbac.EnrollmentView)).Get("/{id}", handlers.GetEnrollment(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentUpdate)).Put("/{id}", handlers.UpdateEnrollment(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentUpdate)).Patch("/{id}/status", handlers.ChangeEnrollmentStatus(d.Enrollments, lg))
				e.With(can(rbac.EnrollmentDelete)).Delete("/{id}", handlers.DeleteEnrollment(d.Enrollments, lg))
			})

			protected.Route("/attendance", func(a chi.Router) {
				a.With(can(rbac.AttendanceView)).Get("/", handlers.ListAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceView)).Get("/my", handlers.MyAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceView)).Get("/report", handlers.AttendanceReport(d.Attendance, lg))
				a.With(can(rbac.AttendanceView)).Get("/session/{sessionId}", handlers.SessionAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceCreate)).Post("/", handlers.RecordAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceCreate)).Post("/bulk", handlers.RecordBulkAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceView)).Get("/{id}", handlers.GetAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceUpdate)).Put("/{id}", handlers.UpdateAttendance(d.Attendance, lg))
				a.With(can(rbac.AttendanceDelete)).Delete("/{id}", handlers.DeleteAttendance(d.Attendance, lg))
			})

			protected.Route("/payments", func(p chi.Router) {
				p.With(can(rbac.PaymentView)).Get("/", handlers.ListPayments(d.Payments, lg))
				p.With(can(rbac.PaymentView)).Get("/stats", handlers.PaymentStats(d.Payments, lg))
				p.With(can(rbac.PaymentView)).Get("/my", handlers.MyPayments(d.Payments, lg))
				p.With(can(rbac.PaymentView)).Get("/report", handlers.PaymentReport(d.Payments, lg))
				p.With(can(rbac.PaymentView)).Get("/course/{courseId}", handlers.CoursePayments(d.Payments, lg))
				p.With(can(rbac.PaymentCreate)).Post("/", handlers.CreatePayment(d.Payments, d.Authorizer, lg))
				p.With(can(rbac.PaymentView)).Get("/{id}", handlers.GetPayment(d.Payments, lg))
				p.With(can(rbac.PaymentUpdate)).Put("/{id}", handlers.UpdatePayment(d.Payments, lg))
				p.With(can(rbac.PaymentUpdate)).Patch("/{id}/status", handlers.ChangePaymentStatus(d.Payments, lg))
				p.With(can(rbac.PaymentDelete)).Delete("/{id}", handlers.DeletePayment(d.Payments, lg))
			})

			protected.Route("/reports", func(rp chi.Router) {
				rp.Use(can(rbac.ReportView))
				rp.Get("/overview", handlers.OverviewReport(d.Reports, lg))
				rp.Get("/course/{courseId}", handlers.CourseReport(d.Reports, lg))
				rp.Get("/student/{userId}", handlers.StudentReport(d.Reports, lg))
				rp.Get("/financial", handlers.FinancialReport(d.Reports, lg))
				rp.Get("/attendance", handlers.AttendanceOverview(d.Reports, lg))
				rp.Get("/teacher-performance/{teacherId}", handlers.TeacherPerformance(d.Reports, lg))
			})
		})
	})

	r.Get("/healthz", health(d.Store, lg))
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	return r
}

func health(s store.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status, body := http.StatusOK, "ok"
		if err := s.Ping(ctx); err != nil {
			lg.Warnw("health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "unavailable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": body})
	}
}

func writeError(w http.ResponseWriter, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Kind.HTTPStatus())
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(map[string]any{"success": false, "message": e.Message})
}
