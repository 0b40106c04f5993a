package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"classhub/internal/apperr"
	"classhub/internal/auth"
	"classhub/internal/events"
	"classhub/internal/logger"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store/memstore"
)

func TestMain(m *testing.M) {
	auth.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	store   *memstore.Store
	rec     *events.Recorder
	opts    Options
	teacher models.User
	student models.User
	admin   models.User
	course  models.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, rbac.Seed(ctx, st))
	rec := &events.Recorder{}
	f := &fixture{
		ctx:   ctx,
		store: st,
		rec:   rec,
		opts: Options{
			Store:     st,
			Publisher: rec,
			Logger:    logger.Nop(),
			Now:       func() time.Time { return clock },
			TaxRate:   0.09,
		},
	}
	f.admin = f.user(t, "Admin", "admin@example.com", rbac.RoleAdmin)
	f.teacher = f.user(t, "Teacher", "teacher@example.com", rbac.RoleTeacher)
	f.student = f.user(t, "Student", "student@example.com", rbac.RoleStudent)
	f.course = models.Course{Title: "Go Basics", TeacherID: f.teacher.ID}
	require.NoError(t, st.CreateCourse(ctx, &f.course))
	return f
}

func (f *fixture) user(t *testing.T, name, email, role string) models.User {
	t.Helper()
	r, err := f.store.GetRoleByTitle(f.ctx, role)
	require.NoError(t, err)
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	u := models.User{Name: name, Email: email, PasswordHash: hash, RoleID: r.ID}
	require.NoError(t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) enroll(t *testing.T, u models.User) models.Enrollment {
	t.Helper()
	e, err := NewEnrollmentService(f.opts).Create(f.ctx, Actor{UserID: u.ID}, EnrollmentInput{CourseID: f.course.ID})
	require.NoError(t, err)
	return e
}

func (f *fixture) session(t *testing.T, at time.Time) models.Session {
	t.Helper()
	s, err := NewSessionService(f.opts).Create(f.ctx, f.teacher.ID, SessionInput{
		CourseID: f.course.ID,
		Title:    "Lecture",
		Date:     at,
		Duration: 90,
	})
	require.NoError(t, err)
	return s
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), err.Error())
	if msg != "" {
		require.Equal(t, msg, apperr.From(err).Message)
	}
}

func ptr[T any](v T) *T { return &v }
