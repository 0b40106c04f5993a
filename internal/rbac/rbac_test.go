package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/logger"
	"classhub/internal/models"
	"classhub/internal/store/memstore"
)

type fixture struct {
	store *memstore.Store
	svc   *Service
	eval  *Evaluator
	rec   *events.Recorder
	role  models.Role
	perms []models.Permission
}

func newFixture(t *testing.T, cached bool) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	role := models.Role{Title: "editor"}
	require.NoError(t, st.CreateRole(ctx, &role))
	var perms []models.Permission
	for _, title := range []string{"course:view", "course:create", "course:delete"} {
		p := models.Permission{Title: title}
		require.NoError(t, st.CreatePermission(ctx, &p))
		perms = append(perms, p)
	}

	var source PermissionSource = NewStoreSource(st)
	var inv Invalidator
	if cached {
		cs := NewCachedSource(source, NewMemoryCache(), time.Hour, logger.Nop())
		source, inv = cs, cs
	}
	rec := &events.Recorder{}
	return &fixture{
		store: st,
		svc:   NewService(st, inv, rec, logger.Nop()),
		eval:  NewEvaluator(source, prometheus.NewRegistry()),
		rec:   rec,
		role:  role,
		perms: perms,
	}
}

func TestAuthorizeAllowsOnlyAssignedPermissions(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[0].ID}})
	require.NoError(t, err)

	d, err := f.eval.Authorize(ctx, f.role.ID, "course:view")
	require.NoError(t, err)
	assert.Equal(t, Allow, d)

	d, err = f.eval.Authorize(ctx, f.role.ID, "course:create")
	require.NoError(t, err)
	assert.Equal(t, Deny, d)
}

func TestAuthorizeDeniesMissingRoleAndEmptySet(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	d, err := f.eval.Authorize(ctx, 0, "course:view")
	require.NoError(t, err)
	assert.Equal(t, Deny, d)

	d, err = f.eval.Authorize(ctx, f.role.ID, "course:view")
	require.NoError(t, err)
	assert.Equal(t, Deny, d)

	d, err = f.eval.Authorize(ctx, 999, "course:view")
	require.NoError(t, err)
	assert.Equal(t, Deny, d)
}

func TestAuthorizeFailsClosedOnStoreError(t *testing.T) {
	f := newFixture(t, false)
	f.store.FailWith = errors.New("db down")

	d, err := f.eval.Authorize(context.Background(), f.role.ID, "course:view")
	require.Error(t, err)
	assert.Equal(t, Deny, d)
}

func TestReassignmentTakesEffectThroughCache(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	_, err := f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[0].ID}})
	require.NoError(t, err)

	d, _ := f.eval.Authorize(ctx, f.role.ID, "course:view")
	require.Equal(t, Allow, d)

	_, err = f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[1].ID}})
	require.NoError(t, err)

	d, _ = f.eval.Authorize(ctx, f.role.ID, "course:view")
	assert.Equal(t, Deny, d)
	d, _ = f.eval.Authorize(ctx, f.role.ID, "course:create")
	assert.Equal(t, Allow, d)
}

func TestAssignPermissionsIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	in := AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[1].ID, f.perms[0].ID, f.perms[0].ID}}
	_, err := f.svc.AssignPermissions(ctx, 1, in)
	require.NoError(t, err)
	_, err = f.svc.AssignPermissions(ctx, 1, in)
	require.NoError(t, err)

	_, perms, err := f.svc.ListRolePermissions(ctx, f.role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, f.perms[0].ID, perms[0].ID)
	assert.Equal(t, f.perms[1].ID, perms[1].ID)
	assert.Equal(t, []string{events.RolePermissionsAssigned, events.RolePermissionsAssigned}, f.rec.Types())
}

func TestAssignPermissionsRejectsUnknownIDs(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[0].ID}})
	require.NoError(t, err)

	_, err = f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: f.role.ID, PermissionIDs: []uint{f.perms[1].ID, 404}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	// the previous set is untouched
	_, perms, err := f.svc.ListRolePermissions(ctx, f.role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "course:view", perms[0].Title)

	_, err = f.svc.AssignPermissions(ctx, 1, AssignInput{RoleID: 404, PermissionIDs: []uint{f.perms[0].ID}})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateRoleAndPermissionConflicts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.CreateRole(ctx, RoleInput{Title: "editor"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.CreatePermission(ctx, PermissionInput{Title: "course:view"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.CreateRole(ctx, RoleInput{Title: "x"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	role, err := f.svc.CreateRole(ctx, RoleInput{Title: "auditor", Description: "read only"})
	require.NoError(t, err)
	assert.NotZero(t, role.ID)
}

func TestListRolePermissionsUnknownRole(t *testing.T) {
	f := newFixture(t, false)
	_, _, err := f.svc.ListRolePermissions(context.Background(), 42)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSeedIsRepeatable(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, st))
	require.NoError(t, Seed(ctx, st))

	roles, err := st.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	perms, err := st.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(seedPermissions))

	eval := NewEvaluator(NewStoreSource(st), nil)
	student, err := st.GetRoleByTitle(ctx, RoleStudent)
	require.NoError(t, err)
	d, _ := eval.Authorize(ctx, student.ID, EnrollmentCreate)
	assert.Equal(t, Allow, d)
	d, _ = eval.Authorize(ctx, student.ID, UserDelete)
	assert.Equal(t, Deny, d)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, 1, NewPermissionSet("a"), time.Minute))

	_, ok, _ := c.Get(ctx, 1)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, 1)
	assert.False(t, ok)
}
