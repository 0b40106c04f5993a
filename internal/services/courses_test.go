package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/apperr"
	"classhub/internal/models"
	"classhub/internal/store"
)

func TestCourseTeacherMustHoldTeacherRole(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.opts)

	_, err := svc.Create(f.ctx, f.admin.ID, CourseInput{Title: "Algorithms", TeacherID: f.student.ID})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgNotTeacher)

	_, err = svc.Create(f.ctx, f.admin.ID, CourseInput{Title: "Algorithms", TeacherID: 999})
	requireKind(t, err, apperr.KindNotFound, apperr.MsgTeacherNotFound)

	c, err := svc.Create(f.ctx, f.admin.ID, CourseInput{Title: "Algorithms", TeacherID: f.teacher.ID, MaxStudents: ptr(20)})
	require.NoError(t, err)

	_, err = svc.Update(f.ctx, c.ID, CourseUpdate{TeacherID: ptr(f.admin.ID)})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgNotTeacher)

	got, err := svc.Update(f.ctx, c.ID, CourseUpdate{Title: ptr("Algorithms II")})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms II", got.Title)
	assert.Equal(t, 20, *got.MaxStudents)
}

func TestCourseDetailCountsAndDeleteGuard(t *testing.T) {
	f := newFixture(t)
	svc := NewCourseService(f.opts)
	f.enroll(t, f.student)
	f.session(t, clock.Add(24*time.Hour))

	d, err := svc.Get(f.ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.teacher.Email, d.Teacher.Email)
	assert.Equal(t, int64(1), d.SessionCount)
	assert.Equal(t, int64(1), d.EnrollmentCount)
	assert.Equal(t, int64(1), d.ActiveEnrollments)

	requireKind(t, svc.Delete(f.ctx, f.course.ID), apperr.KindConflict, apperr.MsgCourseHasDependencies)

	empty, err := svc.Create(f.ctx, f.admin.ID, CourseInput{Title: "Empty course", TeacherID: f.teacher.ID})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(f.ctx, empty.ID))
	_, err = svc.Get(f.ctx, empty.ID)
	requireKind(t, err, apperr.KindNotFound, apperr.MsgCourseNotFound)
}

// brokenUsers fails user lookups while the rest of the store answers.
type brokenUsers struct {
	store.Store
	err error
}

func (b brokenUsers) GetUser(context.Context, uint) (models.User, error) {
	return models.User{}, b.err
}

func TestUserLookupOutageIsReported(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, f.student)
	opts := f.opts
	opts.Store = brokenUsers{Store: f.store, err: errors.New("connection reset")}

	_, err := NewCourseService(opts).Get(f.ctx, f.course.ID)
	requireKind(t, err, apperr.KindServer, "")
	_, err = NewReportService(opts).Course(f.ctx, f.course.ID)
	requireKind(t, err, apperr.KindServer, "")

	opts.Store = brokenUsers{Store: f.store, err: store.ErrNotFound}
	d, err := NewCourseService(opts).Get(f.ctx, f.course.ID)
	require.NoError(t, err)
	assert.Zero(t, d.Teacher.ID)
	rep, err := NewReportService(opts).Course(f.ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, rep.Students, 1)
	assert.Empty(t, rep.Students[0].Name)
}

func TestUserDeleteGuardAndRoleCheck(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.opts)

	_, err := svc.Create(f.ctx, CreateUserInput{Name: "Ghost", Email: "ghost@example.com", Password: "secret123", RoleID: 999})
	requireKind(t, err, apperr.KindNotFound, apperr.MsgRoleMissing)

	_, err = svc.Create(f.ctx, CreateUserInput{Name: "Dup", Email: "STUDENT@example.com", Password: "secret123", RoleID: f.student.RoleID})
	requireKind(t, err, apperr.KindConflict, apperr.MsgUserExists)

	requireKind(t, svc.Delete(f.ctx, f.teacher.ID), apperr.KindConflict, apperr.MsgUserHasDependencies)

	u, err := svc.Create(f.ctx, CreateUserInput{Name: "Temp", Email: "temp@example.com", Password: "secret123", RoleID: f.student.RoleID})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(f.ctx, u.ID))

	users, total, err := svc.List(f.ctx, store.UserFilter{Search: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 3)
}
