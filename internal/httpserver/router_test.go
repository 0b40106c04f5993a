package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"classhub/internal/apperr"
	"classhub/internal/auth"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/services"
	"classhub/internal/store/memstore"
)

func TestMain(m *testing.M) {
	auth.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type api struct {
	t       *testing.T
	handler http.Handler
	store   *memstore.Store
	access  *auth.Signer
	opts    services.Options
	admin   models.User
	teacher models.User
	student models.User
	course  models.Course
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, rbac.Seed(ctx, st))

	opts := services.Options{Store: st, Publisher: events.NewAuditPublisher(st)}
	a := &api{t: t, store: st, access: auth.NewSigner("access-secret", 15*time.Minute), opts: opts}

	users := services.NewUserService(opts)
	mk := func(name, email, role string) models.User {
		r, err := st.GetRoleByTitle(ctx, role)
		require.NoError(t, err)
		u, err := users.Create(ctx, services.CreateUserInput{Name: name, Email: email, Password: "secret123", RoleID: r.ID})
		require.NoError(t, err)
		return u
	}
	a.admin = mk("Admin", "admin@example.com", rbac.RoleAdmin)
	a.teacher = mk("Teacher", "teacher@example.com", rbac.RoleTeacher)
	a.student = mk("Student", "student@example.com", rbac.RoleStudent)

	c, err := services.NewCourseService(opts).Create(ctx, a.admin.ID, services.CourseInput{Title: "Go Basics", TeacherID: a.teacher.ID})
	require.NoError(t, err)
	a.course = c

	reg := prometheus.NewRegistry()
	a.handler = NewRouter(Deps{
		Store:       st,
		Authorizer:  rbac.NewEvaluator(rbac.NewStoreSource(st), reg),
		Access:      a.access,
		RBAC:        rbac.NewService(st, nil, opts.Publisher, nil),
		Auth:        services.NewAuthService(opts, a.access, auth.NewSigner("refresh-secret", time.Hour)),
		Users:       users,
		Courses:     services.NewCourseService(opts),
		Sessions:    services.NewSessionService(opts),
		Enrollments: services.NewEnrollmentService(opts),
		Attendance:  services.NewAttendanceService(opts),
		Payments:    services.NewPaymentService(opts),
		Reports:     services.NewReportService(opts),
		Registerer:  reg,
		Gatherer:    reg,
	})
	return a
}

func (a *api) token(u models.User) string {
	a.t.Helper()
	tok, err := a.access.Sign(u.ID, u.RoleID)
	require.NoError(a.t, err)
	return tok
}

// do sends body as JSON. A nil caller sends no Authorization header.
func (a *api) do(method, path string, caller *models.User, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(*caller))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Details    []apperr.FieldError `json:"details"`
	Pagination *struct {
		CurrentPage  int   `json:"current_page"`
		TotalPages   int   `json:"total_pages"`
		TotalItems   int64 `json:"total_items"`
		ItemsPerPage int   `json:"items_per_page"`
	} `json:"pagination"`
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return r
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/courses", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	r := parse(t, rec)
	assert.False(t, r.Success)
	assert.Equal(t, apperr.MsgLoginRequired, r.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.MsgInvalidToken, parse(t, rec).Message)
}

func TestPermissionGate(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/courses", &a.student, services.CourseInput{Title: "Nope", TeacherID: a.teacher.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.MsgAccessDenied, parse(t, rec).Message)

	rec = a.do(http.MethodPost, "/api/courses", &a.teacher, services.CourseInput{Title: "Allowed", TeacherID: a.teacher.ID})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/reports/overview", &a.student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPermissionReassignmentAppliesImmediately(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	student, err := a.store.GetRoleByTitle(ctx, rbac.RoleStudent)
	require.NoError(t, err)
	perms, err := a.store.ListPermissions(ctx)
	require.NoError(t, err)
	var reportView uint
	for _, p := range perms {
		if p.Title == rbac.ReportView {
			reportView = p.ID
		}
	}
	require.NotZero(t, reportView)

	rec := a.do(http.MethodPost, "/api/rbac/roles/assign-permissions", &a.admin, rbac.AssignInput{RoleID: student.ID, PermissionIDs: []uint{reportView}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/reports/overview", &a.student, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/courses", &a.student, nil).Code)
}

func TestListPagination(t *testing.T) {
	a := newAPI(t)
	svc := services.NewCourseService(a.opts)
	for _, title := range []string{"Second", "Third", "Fourth"} {
		_, err := svc.Create(context.Background(), a.admin.ID, services.CourseInput{Title: title, TeacherID: a.teacher.ID})
		require.NoError(t, err)
	}

	rec := a.do(http.MethodGet, "/api/courses?page=2&limit=3", &a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	r := parse(t, rec)
	require.NotNil(t, r.Pagination)
	assert.Equal(t, 2, r.Pagination.CurrentPage)
	assert.Equal(t, 2, r.Pagination.TotalPages)
	assert.Equal(t, int64(4), r.Pagination.TotalItems)
	assert.Equal(t, 3, r.Pagination.ItemsPerPage)
	var courses []models.Course
	require.NoError(t, json.Unmarshal(r.Data, &courses))
	assert.Len(t, courses, 1)
}

func TestBadRequests(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/courses", &a.admin, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.MsgMalformedBody, parse(t, rec).Message)

	rec = a.do(http.MethodPost, "/api/courses", &a.admin, map[string]any{"title": "ab", "teacher_id": a.teacher.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	r := parse(t, rec)
	assert.Equal(t, apperr.MsgInvalidData, r.Message)
	require.Len(t, r.Details, 1)
	assert.Equal(t, "title", r.Details[0].Field)

	rec = a.do(http.MethodGet, "/api/courses/abc", &a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.MsgInvalidID, parse(t, rec).Message)

	rec = a.do(http.MethodGet, "/api/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.MsgRouteNotFound, parse(t, rec).Message)
}

func TestStudentEnrollsOnlyThemselves(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/enrollments", &a.student, services.EnrollmentInput{CourseID: a.course.ID, UserID: a.admin.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/enrollments", &a.student, services.EnrollmentInput{CourseID: a.course.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/enrollments", &a.student, services.EnrollmentInput{CourseID: a.course.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.MsgEnrollmentExists, parse(t, rec).Message)

	rec = a.do(http.MethodGet, "/api/enrollments/my", &a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), parse(t, rec).Pagination.TotalItems)
}

func TestBulkAttendanceEndpoint(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	e, err := services.NewEnrollmentService(a.opts).Create(ctx, services.Actor{UserID: a.student.ID}, services.EnrollmentInput{CourseID: a.course.ID})
	require.NoError(t, err)
	s, err := services.NewSessionService(a.opts).Create(ctx, a.teacher.ID, services.SessionInput{
		CourseID: a.course.ID, Title: "Intro", Date: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	body := map[string]any{
		"session_id": s.ID,
		"attendance_data": []map[string]any{
			{"enrollment_id": e.ID, "present": true},
			{"enrollment_id": 999, "present": true},
		},
	}
	rec := a.do(http.MethodPost, "/api/attendance/bulk", &a.teacher, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.BulkResult
	require.NoError(t, json.Unmarshal(parse(t, rec).Data, &res))
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, []services.BulkItemError{{EnrollmentID: 999, Error: apperr.MsgEnrollmentNotFound}}, res.Details)

	rec = a.do(http.MethodPost, "/api/attendance/bulk", &a.teacher, map[string]any{"session_id": s.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.MsgIncompleteData, parse(t, rec).Message)
}

func TestPaymentReportCSV(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/api/payments", &a.student, services.PaymentInput{CourseID: a.course.ID, Amount: 1000, PaymentMethod: "card", TransactionID: "TX-7"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/payments/report?format=csv", &a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,user_id,course_id,amount"))
	assert.Contains(t, lines[1], "1090.00")
	assert.Contains(t, lines[1], "TX-7")

	rec = a.do(http.MethodPatch, "/api/payments/1/status", &a.admin, map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodDelete, "/api/payments/1", &a.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.MsgPaymentPaidUndeleted, parse(t, rec).Message)
}

func TestLoginAndProfile(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/login", nil, services.LoginInput{Email: "student@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair services.TokenPair
	require.NoError(t, json.Unmarshal(parse(t, rec).Data, &pair))
	require.NotEmpty(t, pair.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var p services.Profile
	require.NoError(t, json.Unmarshal(parse(t, rec).Data, &p))
	assert.Equal(t, rbac.RoleStudent, p.Role.Title)

	rec = a.do(http.MethodPost, "/api/auth/refresh", nil, map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditLogsRecordEvents(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/api/enrollments", &a.student, services.EnrollmentInput{CourseID: a.course.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/api/audit-logs?user_id="+strconv.FormatUint(uint64(a.student.ID), 10), &a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []models.AuditLog
	require.NoError(t, json.Unmarshal(parse(t, rec).Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, events.EnrollmentCreated, logs[0].Action)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	a.do(http.MethodGet, "/api/courses", &a.student, nil)
	rec = a.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `classhub_http_request_duration_seconds_count{method="GET",route="/api/courses`)
	assert.Contains(t, rec.Body.String(), "classhub_authorization_decisions_total")

	a.store.FailWith = errors.New("connection refused")
	rec = a.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
