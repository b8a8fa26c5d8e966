package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-campus-auth"
)

// Alice registers herself, waits for approval and then sees her profile.
func TestScenarioSelfRegistrationApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)
	physics := env.department(t, admin, "Physics")

	alice, err := env.accounts.SelfRegister(ctx, auth.RegisterTeacherMessage{
		Name:     "Alice",
		Email:    "Alice@Campus.test ",
		Password: "alice-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, alice.Role)
	assert.Equal(t, "alice@campus.test", alice.Email)
	assert.Zero(t, env.count(t, (*auth.Teacher)(nil)))

	login, err := env.accounts.Login(ctx, "alice@campus.test", "alice-secret")
	require.NoError(t, err)
	assert.Equal(t, "/teacher", login.RedirectURL)

	_, err = env.accounts.GetOwnProfile(ctx, login.Token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrTeacherNotFound))

	listing, err := env.accounts.ListTeachers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.True(t, listing[0].IsPending)
	assert.Nil(t, listing[0].TeacherID)

	res, err := env.accounts.AdminApprove(ctx, admin, auth.ApproveTeacherMessage{
		UserID:       alice.ID.String(),
		DepartmentID: physics.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.TransitionCreateTeacher, res.Transition.Kind)
	require.NotNil(t, res.Teacher.DepartmentID)
	assert.Equal(t, physics.ID, *res.Teacher.DepartmentID)

	profile, err := env.accounts.GetOwnProfile(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "alice@campus.test", profile.Email)
	assert.Equal(t, "Physics", profile.Department)
	assert.NotNil(t, profile.Courses)
	assert.Empty(t, profile.Courses)

	env.course(t, res.Teacher.ID, "Mechanics", "PHY101")
	profile, err = env.accounts.GetOwnProfile(ctx, login.Token)
	require.NoError(t, err)
	require.Len(t, profile.Courses, 1)
	assert.Equal(t, "Mechanics", profile.Courses[0].Name)
	assert.Equal(t, "PHY101", profile.Courses[0].Code)

	listing, err = env.accounts.ListTeachers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.False(t, listing[0].IsPending)
	assert.Equal(t, "Physics", listing[0].DepartmentName)
}

// Bob is created directly by an administrator and can log in right away.
func TestScenarioAdminCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)
	maths := env.department(t, admin, "Mathematics")

	bob, err := env.accounts.AdminCreate(ctx, admin, auth.CreateTeacherMessage{
		Name:         "Bob",
		Email:        "bob@campus.test",
		Password:     "1990-05-17",
		DepartmentID: maths.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, bob.Role)

	login, err := env.accounts.Login(ctx, "BOB@campus.test", "17/05/1990")
	require.Error(t, err, "day first order is a different password")

	login, err = env.accounts.Login(ctx, "BOB@campus.test", "1990/05/17")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, login.Role)
	assert.Equal(t, "Bob", login.Name)
	assert.False(t, login.ExpiresAt.IsZero())

	profile, err := env.accounts.GetOwnProfile(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", profile.Department)
	assert.Equal(t, bob.ID, profile.UserID)
}

func TestScenarioDoubleApprovalKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)
	first := env.department(t, admin, "Biology")
	second := env.department(t, admin, "Chemistry")

	carol, err := env.accounts.SelfRegister(ctx, auth.RegisterTeacherMessage{
		Name:     "Carol",
		Email:    "carol@campus.test",
		Password: "carol-secret",
	})
	require.NoError(t, err)

	res1, err := env.accounts.AdminApprove(ctx, admin, auth.ApproveTeacherMessage{
		UserID:       carol.ID.String(),
		DepartmentID: first.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.TransitionCreateTeacher, res1.Transition.Kind)

	res2, err := env.accounts.AdminApprove(ctx, admin, auth.ApproveTeacherMessage{
		UserID:       carol.ID.String(),
		DepartmentID: second.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.TransitionReassignDepartment, res2.Transition.Kind)
	assert.Equal(t, res1.Teacher.ID, res2.Teacher.ID)

	assert.Equal(t, 1, env.count(t, (*auth.Teacher)(nil)))

	row, err := env.repo.Teachers().GetByUserIDTx(ctx, env.db, carol.ID)
	require.NoError(t, err)
	require.NotNil(t, row.DepartmentID)
	assert.Equal(t, second.ID, *row.DepartmentID)
}

func TestScenarioDeleteCascade(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)
	dep := env.department(t, admin, "History")

	dave, err := env.accounts.AdminCreate(ctx, admin, auth.CreateTeacherMessage{
		Name:         "Dave",
		Email:        "dave@campus.test",
		Password:     "dave-secret",
		DepartmentID: dep.ID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.count(t, (*auth.Teacher)(nil)))

	require.NoError(t, env.accounts.AdminDelete(ctx, admin, dave.ID.String()))

	assert.Zero(t, env.count(t, (*auth.Teacher)(nil)))
	_, err = env.repo.Users().FindByUserIDTx(ctx, env.db, dave.ID)
	assert.True(t, errors.Is(err, auth.ErrUserNotFound))

	err = env.accounts.AdminDelete(ctx, admin, dave.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrUserNotFound))

	_, err = env.accounts.Login(ctx, "dave@campus.test", "dave-secret")
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
}

func TestScenarioDeletePendingTeacher(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)

	erin, err := env.accounts.SelfRegister(ctx, auth.RegisterTeacherMessage{
		Name:     "Erin",
		Email:    "erin@campus.test",
		Password: "erin-secret",
	})
	require.NoError(t, err)

	require.NoError(t, env.accounts.AdminDelete(ctx, admin, erin.ID.String()))

	listing, err := env.accounts.ListTeachers(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, listing)
}

func TestScenarioNonAdminCannotCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.adminToken(t)
	dep := env.department(t, admin, "Art")

	frank, err := env.accounts.AdminCreate(ctx, admin, auth.CreateTeacherMessage{
		Name:         "Frank",
		Email:        "frank@campus.test",
		Password:     "frank-secret",
		DepartmentID: dep.ID.String(),
	})
	require.NoError(t, err)

	usersBefore := env.count(t, (*auth.User)(nil))
	teachersBefore := env.count(t, (*auth.Teacher)(nil))

	for name, token := range map[string]string{
		"teacher token": env.tokenFor(t, frank),
		"student token": env.tokenFor(t, env.student(t, "Sam", "sam@campus.test")),
		"no token":      "",
		"bad token":     "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.accounts.AdminCreate(ctx, token, auth.CreateTeacherMessage{
				Name:         "Mallory",
				Email:        "mallory@campus.test",
				Password:     "mallory-secret",
				DepartmentID: dep.ID.String(),
			})
			require.Error(t, err)
			assert.Same(t, auth.ErrUnauthorized, err)
		})
	}

	// the student fixture adds one user
	assert.Equal(t, usersBefore+1, env.count(t, (*auth.User)(nil)))
	assert.Equal(t, teachersBefore, env.count(t, (*auth.Teacher)(nil)))

	_, err = env.repo.Users().FindByEmailTx(ctx, env.db, "mallory@campus.test")
	assert.True(t, errors.Is(err, auth.ErrUserNotFound))
}
