package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/models"
	"classhub/internal/store"
)

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateUser(ctx, &models.User{Name: "A", Email: "a@example.com", RoleID: 1}))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Name: "B", Email: "a@example.com", RoleID: 1}), store.ErrDuplicate)

	require.NoError(t, s.CreateEnrollment(ctx, &models.Enrollment{UserID: 1, CourseID: 1}))
	assert.ErrorIs(t, s.CreateEnrollment(ctx, &models.Enrollment{UserID: 1, CourseID: 1}), store.ErrDuplicate)
	require.NoError(t, s.CreateEnrollment(ctx, &models.Enrollment{UserID: 1, CourseID: 2}))

	require.NoError(t, s.CreateAttendance(ctx, &models.Attendance{EnrollmentID: 1, SessionID: 1}))
	assert.ErrorIs(t, s.CreateAttendance(ctx, &models.Attendance{EnrollmentID: 1, SessionID: 1}), store.ErrDuplicate)
}

func TestPaymentReferencesAreUniqueWhenSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx := "TX-1"

	require.NoError(t, s.CreatePayment(ctx, &models.Payment{UserID: 1, CourseID: 1, TransactionID: &tx}))
	assert.ErrorIs(t, s.CreatePayment(ctx, &models.Payment{UserID: 2, CourseID: 1, TransactionID: &tx}), store.ErrDuplicate)

	a := models.Payment{UserID: 1, CourseID: 1}
	b := models.Payment{UserID: 1, CourseID: 1}
	require.NoError(t, s.CreatePayment(ctx, &a))
	require.NoError(t, s.CreatePayment(ctx, &b))

	b.TransactionID = &tx
	assert.ErrorIs(t, s.UpdatePayment(ctx, &b), store.ErrDuplicate)
}

func TestReplaceRolePermissions(t *testing.T) {
	ctx := context.Background()
	s := New()
	role := models.Role{Title: "editor"}
	require.NoError(t, s.CreateRole(ctx, &role))
	var ids []uint
	for _, title := range []string{"a:view", "a:edit", "a:delete"} {
		p := models.Permission{Title: title}
		require.NoError(t, s.CreatePermission(ctx, &p))
		ids = append(ids, p.ID)
	}

	require.NoError(t, s.ReplaceRolePermissions(ctx, role.ID, ids[:2]))
	require.NoError(t, s.ReplaceRolePermissions(ctx, role.ID, ids[1:]))
	got, err := s.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[1], got[0].ID)
	assert.Equal(t, ids[2], got[1].ID)

	// an unknown id leaves the current set untouched
	assert.ErrorIs(t, s.ReplaceRolePermissions(ctx, role.ID, []uint{ids[0], 999}), store.ErrNotFound)
	got, err = s.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.ErrorIs(t, s.ReplaceRolePermissions(ctx, 999, ids), store.ErrNotFound)
}

func TestListPaymentsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		p := models.Payment{UserID: uint(i%2 + 1), CourseID: 1, Status: models.PaymentPending}
		require.NoError(t, s.CreatePayment(ctx, &p))
	}

	rows, total, err := s.ListPayments(ctx, store.PaymentFilter{UserID: 1, Page: store.Page{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 2)
	assert.Greater(t, rows[0].ID, rows[1].ID)

	past := time.Now().Add(-time.Hour)
	_, total, err = s.ListPayments(ctx, store.PaymentFilter{To: &past})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestFailWith(t *testing.T) {
	s := New()
	boom := errors.New("down")
	s.FailWith = boom
	assert.ErrorIs(t, s.Ping(context.Background()), boom)
	_, err := s.GetCourse(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}
