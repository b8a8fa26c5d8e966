package auth_test

import (
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-campus-auth"
)

func TestNextAccountState(t *testing.T) {
	tests := []struct {
		from  auth.AccountState
		event auth.AccountEvent
		to    auth.AccountState
		err   *errors.Error
	}{
		{auth.AccountUnregistered, auth.EventSelfRegister, auth.AccountPendingApproval, nil},
		{auth.AccountUnregistered, auth.EventAdminCreate, auth.AccountActive, nil},
		{auth.AccountPendingApproval, auth.EventAdminApprove, auth.AccountActive, nil},
		{auth.AccountActive, auth.EventAdminApprove, auth.AccountActive, nil},
		{auth.AccountPendingApproval, auth.EventAdminDelete, auth.AccountRemoved, nil},
		{auth.AccountActive, auth.EventAdminDelete, auth.AccountRemoved, nil},

		{auth.AccountUnregistered, auth.EventAdminApprove, "", auth.ErrInvalidTransition},
		{auth.AccountUnregistered, auth.EventAdminDelete, "", auth.ErrInvalidTransition},
		{auth.AccountPendingApproval, auth.EventSelfRegister, "", auth.ErrInvalidTransition},
		{auth.AccountActive, auth.EventAdminCreate, "", auth.ErrInvalidTransition},
		{auth.AccountActive, auth.AccountEvent("promote"), "", auth.ErrInvalidTransition},
		{auth.AccountRemoved, auth.EventAdminApprove, "", auth.ErrTerminalState},
		{auth.AccountRemoved, auth.EventAdminDelete, "", auth.ErrTerminalState},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			to, err := auth.NextAccountState(tt.from, tt.event)
			if tt.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
				assert.Empty(t, to)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestDeriveAccountState(t *testing.T) {
	teacherUser := &auth.User{ID: uuid.New(), Role: auth.RoleTeacher}
	adminUser := &auth.User{ID: uuid.New(), Role: auth.RoleAdmin}
	row := &auth.Teacher{ID: uuid.New(), UserID: teacherUser.ID}

	assert.Equal(t, auth.AccountUnregistered, auth.DeriveAccountState(nil, nil))
	assert.Equal(t, auth.AccountPendingApproval, auth.DeriveAccountState(teacherUser, nil))
	assert.Equal(t, auth.AccountActive, auth.DeriveAccountState(teacherUser, row))
	assert.Equal(t, auth.AccountActive, auth.DeriveAccountState(adminUser, nil))
}

func TestPlanApproval(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Role: auth.RoleTeacher}

	create, err := auth.PlanApproval(user, nil)
	require.NoError(t, err)
	assert.Equal(t, auth.TransitionCreateTeacher, create.Kind)
	assert.Equal(t, auth.AccountPendingApproval, create.From)
	assert.Equal(t, auth.AccountActive, create.To)

	reassign, err := auth.PlanApproval(user, &auth.Teacher{ID: uuid.New(), UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, auth.TransitionReassignDepartment, reassign.Kind)
	assert.Equal(t, auth.AccountActive, reassign.From)
	assert.Equal(t, auth.AccountActive, reassign.To)
}

func TestPlanApprovalRejectsNonTeachers(t *testing.T) {
	for _, role := range []auth.UserRole{auth.RoleAdmin, auth.RoleStudent} {
		t.Run(role.String(), func(t *testing.T) {
			_, err := auth.PlanApproval(&auth.User{ID: uuid.New(), Role: role}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, auth.ErrInvalidTransition))

			var richErr *errors.Error
			require.True(t, errors.As(err, &richErr))
			assert.Equal(t, role, richErr.Metadata["role"])
		})
	}

	_, err := auth.PlanApproval(nil, nil)
	assert.True(t, errors.Is(err, auth.ErrInvalidTransition))
}

func TestSentinelsAreNotMutated(t *testing.T) {
	_, err := auth.NextAccountState(auth.AccountActive, auth.EventAdminCreate)
	require.Error(t, err)
	assert.Empty(t, auth.ErrInvalidTransition.Metadata)
}
