package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store"
)

func TestEnrollmentCreateRejectsDuplicatePair(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)

	e := f.enroll(t, f.student)
	assert.Equal(t, models.EnrollmentPending, e.Status)
	assert.Equal(t, clock, e.EnrollmentDate)
	assert.Contains(t, f.rec.Types(), events.EnrollmentCreated)

	_, err := svc.Create(f.ctx, Actor{UserID: f.student.ID}, EnrollmentInput{CourseID: f.course.ID})
	requireKind(t, err, apperr.KindConflict, apperr.MsgEnrollmentExists)
}

func TestEnrollmentConcurrentCreatesLeaveOneRow(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(f.ctx, Actor{UserID: f.student.ID}, EnrollmentInput{CourseID: f.course.ID})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, apperr.KindConflict, apperr.MsgEnrollmentExists)
	}
	assert.Equal(t, 1, ok)
	_, n, err := svc.List(f.ctx, store.EnrollmentFilter{UserID: f.student.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEnrollmentCapacity(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)
	f.course.MaxStudents = ptr(1)
	require.NoError(t, f.store.UpdateCourse(f.ctx, &f.course))

	first := f.enroll(t, f.student)
	other := f.user(t, "Other", "other@example.com", rbac.RoleStudent)
	_, err := svc.Create(f.ctx, Actor{UserID: other.ID}, EnrollmentInput{CourseID: f.course.ID})
	requireKind(t, err, apperr.KindConflict, apperr.MsgCourseFull)

	// Rejected enrollments free their seat.
	_, err = svc.ChangeStatus(f.ctx, f.admin.ID, first.ID, EnrollmentStatusInput{Status: models.EnrollmentRejected})
	require.NoError(t, err)
	_, err = svc.Create(f.ctx, Actor{UserID: other.ID}, EnrollmentInput{CourseID: f.course.ID})
	require.NoError(t, err)
}

func TestEnrollmentCreateChecksReferencesAndOwnership(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)

	_, err := svc.Create(f.ctx, Actor{UserID: f.student.ID}, EnrollmentInput{CourseID: 999})
	requireKind(t, err, apperr.KindNotFound, apperr.MsgCourseNotFound)

	_, err = svc.Create(f.ctx, Actor{UserID: 999}, EnrollmentInput{CourseID: f.course.ID})
	requireKind(t, err, apperr.KindNotFound, apperr.MsgUserNotFound)

	_, err = svc.Create(f.ctx, Actor{UserID: f.teacher.ID}, EnrollmentInput{CourseID: f.course.ID, UserID: f.student.ID})
	requireKind(t, err, apperr.KindForbidden, apperr.MsgAccessDenied)

	e, err := svc.Create(f.ctx, Actor{UserID: f.admin.ID, Manage: true}, EnrollmentInput{CourseID: f.course.ID, UserID: f.student.ID})
	require.NoError(t, err)
	assert.Equal(t, f.student.ID, e.UserID)
}

func TestEnrollmentUpdateStampsDates(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)
	e := f.enroll(t, f.student)

	got, err := svc.Update(f.ctx, f.teacher.ID, e.ID, EnrollmentUpdate{
		Status:            ptr(models.EnrollmentCompleted),
		Grade:             ptr(87.5),
		CertificateIssued: ptr(true),
	})
	require.NoError(t, err)
	require.NotNil(t, got.CertificateIssueDate)
	assert.Equal(t, clock, *got.CertificateIssueDate)
	require.NotNil(t, got.CompletionDate)
	assert.Equal(t, clock, *got.CompletionDate)
	assert.Equal(t, 87.5, *got.Grade)
	assert.Contains(t, f.rec.Types(), events.EnrollmentStatusChanged)

	// Re-issuing keeps the first stamp.
	f.opts.Now = func() time.Time { return clock.Add(time.Hour) }
	got, err = NewEnrollmentService(f.opts).Update(f.ctx, f.teacher.ID, e.ID, EnrollmentUpdate{CertificateIssued: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, clock, *got.CertificateIssueDate)

	_, err = svc.Update(f.ctx, f.teacher.ID, e.ID, EnrollmentUpdate{Grade: ptr(120.0)})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgInvalidData)
}

func TestEnrollmentDeleteBlockedByAttendance(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)
	withRecord := f.enroll(t, f.student)
	other := f.user(t, "Other", "other@example.com", rbac.RoleStudent)
	empty := f.enroll(t, other)
	s := f.session(t, clock.Add(24*time.Hour))

	_, err := NewAttendanceService(f.opts).Record(f.ctx, f.teacher.ID, AttendanceInput{
		SessionID:       s.ID,
		AttendanceEntry: AttendanceEntry{EnrollmentID: withRecord.ID, Present: ptr(false)},
	})
	require.NoError(t, err)

	requireKind(t, svc.Delete(f.ctx, withRecord.ID), apperr.KindConflict, apperr.MsgEnrollmentHasAttendance)
	require.NoError(t, svc.Delete(f.ctx, empty.ID))
}

func TestEnrollmentDetailAndStats(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentService(f.opts)
	e := f.enroll(t, f.student)
	s := f.session(t, clock.Add(24*time.Hour))
	_, err := NewAttendanceService(f.opts).Record(f.ctx, f.teacher.ID, AttendanceInput{
		SessionID:       s.ID,
		AttendanceEntry: AttendanceEntry{EnrollmentID: e.ID, Present: ptr(true), LateMinutes: 5},
	})
	require.NoError(t, err)
	_, err = NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{CourseID: f.course.ID, Amount: 100, PaymentMethod: "card"})
	require.NoError(t, err)

	d, err := svc.Get(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Attendance.Present)
	assert.Equal(t, 1, d.Attendance.Late)
	assert.Equal(t, 100.0, d.Attendance.Rate)
	require.Len(t, d.Payments, 1)
	assert.Equal(t, 109.0, d.Payments[0].Total)

	st, err := svc.Stats(f.ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Total)
	assert.Equal(t, int64(1), st.Active)
	assert.Equal(t, int64(1), st.ByStatus[models.EnrollmentPending])
}
