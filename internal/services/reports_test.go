package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/apperr"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store"
)

// seedActivity gives the fixture course two students, two sessions, three
// attendance records and two payments, one of them paid.
func seedActivity(t *testing.T, f *fixture) {
	t.Helper()
	a := f.enroll(t, f.student)
	b := f.enroll(t, f.user(t, "Second", "second@example.com", rbac.RoleStudent))
	s1 := f.session(t, clock.Add(24*time.Hour))
	s2 := f.session(t, clock.Add(96*time.Hour))

	att := NewAttendanceService(f.opts)
	for _, in := range []AttendanceInput{
		{SessionID: s1.ID, AttendanceEntry: AttendanceEntry{EnrollmentID: a.ID, Present: ptr(true)}},
		{SessionID: s1.ID, AttendanceEntry: AttendanceEntry{EnrollmentID: b.ID, Present: ptr(false)}},
		{SessionID: s2.ID, AttendanceEntry: AttendanceEntry{EnrollmentID: a.ID, Present: ptr(true), LateMinutes: 3}},
	} {
		_, err := att.Record(f.ctx, f.teacher.ID, in)
		require.NoError(t, err)
	}

	enr := NewEnrollmentService(f.opts)
	_, err := enr.Update(f.ctx, f.teacher.ID, a.ID, EnrollmentUpdate{Grade: ptr(90.0)})
	require.NoError(t, err)
	_, err = enr.Update(f.ctx, f.teacher.ID, b.ID, EnrollmentUpdate{Grade: ptr(70.0)})
	require.NoError(t, err)

	_, err = NewSessionService(f.opts).ChangeStatus(f.ctx, f.teacher.ID, s1.ID, SessionStatusInput{Status: models.SessionCompleted})
	require.NoError(t, err)

	paid := f.pay(t, PaymentInput{Amount: 1000, DiscountAmount: 100})
	f.pay(t, PaymentInput{Amount: 500, PaymentMethod: "cash"})
	_, err = NewPaymentService(f.opts).ChangeStatus(f.ctx, f.admin.ID, paid.ID, PaymentStatusInput{Status: models.PaymentPaid})
	require.NoError(t, err)
}

func TestOverviewReport(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	r, err := NewReportService(f.opts).Overview(f.ctx, Period{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.UsersByRole[rbac.RoleStudent])
	assert.Equal(t, int64(1), r.UsersByRole[rbac.RoleTeacher])
	assert.Equal(t, int64(1), r.Courses)
	assert.Equal(t, int64(1), r.Sessions[models.SessionCompleted])
	assert.Equal(t, int64(2), r.Enrollments[models.EnrollmentPending])
	assert.Equal(t, int64(2), r.Payments.TotalPayments)
	assert.Equal(t, 3, r.Attendance.Total)
}

func TestCourseReport(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	r, err := NewReportService(f.opts).Course(f.ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, r.Students, 2)
	assert.Equal(t, f.student.Email, r.Students[0].Email)
	assert.Equal(t, 90.0, *r.Students[0].Grade)
	assert.Equal(t, int64(2), r.Sessions.Total)
	assert.Equal(t, 2, r.Attendance.Present)
	assert.Equal(t, 990.0, r.Payments.PaidAmount)

	_, err = NewReportService(f.opts).Course(f.ctx, 999)
	requireKind(t, err, apperr.KindNotFound, apperr.MsgCourseNotFound)
}

func TestStudentReport(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	r, err := NewReportService(f.opts).Student(f.ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, r.Enrollments, 1)
	assert.Equal(t, f.course.Title, r.Enrollments[0].CourseTitle)
	assert.Equal(t, AttendanceStats{Total: 2, Present: 2, Late: 1, Rate: 100}, r.Attendance)
	assert.Len(t, r.Payments, 2)
}

func TestFinancialReportSummarizesPaidPayments(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	r, err := NewReportService(f.opts).Financial(f.ctx, 0, Period{})
	require.NoError(t, err)
	assert.Equal(t, FinancialSummary{TotalRevenue: 990, TotalDiscount: 100, TotalTax: 90, NetRevenue: 890}, r.Summary)
	require.Len(t, r.ByCourse, 1)
	assert.Equal(t, CourseTotal{CourseID: f.course.ID, CourseTitle: f.course.Title, Count: 2, TotalAmount: 1535}, r.ByCourse[0])
	require.Len(t, r.ByStatusMethod, 2)
	assert.Equal(t, models.PaymentPaid, r.ByStatusMethod[0].Status)
	assert.Len(t, r.Monthly, 1)
	assert.Len(t, r.Payments, 2)

	future := clock.AddDate(10, 0, 0)
	r, err = NewReportService(f.opts).Financial(f.ctx, 0, Period{From: &future})
	require.NoError(t, err)
	assert.Empty(t, r.Payments)
	assert.Equal(t, FinancialSummary{}, r.Summary)
}

func TestAttendanceReportGroupsByCourse(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)

	r, err := NewReportService(f.opts).Attendance(f.ctx, store.AttendanceFilter{})
	require.NoError(t, err)
	assert.Len(t, r.Records, 3)
	assert.Equal(t, []CourseAttendance{{CourseID: f.course.ID, CourseTitle: f.course.Title, Present: 2, Absent: 1}}, r.ByCourse)
}

func TestTeacherPerformanceReport(t *testing.T) {
	f := newFixture(t)
	seedActivity(t, f)
	svc := NewReportService(f.opts)

	r, err := svc.TeacherPerformance(f.ctx, f.teacher.ID)
	require.NoError(t, err)
	require.Len(t, r.Courses, 1)
	assert.Equal(t, TeacherCourseStats{
		CourseID:          f.course.ID,
		CourseTitle:       f.course.Title,
		SessionCount:      2,
		EnrollmentCount:   2,
		CompletedSessions: 1,
		AverageGrade:      80,
	}, r.Courses[0])
	assert.Equal(t, 50.0, r.Summary.CompletionRate)

	_, err = svc.TeacherPerformance(f.ctx, f.student.ID)
	requireKind(t, err, apperr.KindNotFound, apperr.MsgTeacherNotFound)
}
