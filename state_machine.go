package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested account change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move a removed account.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// AccountState is the lifecycle position of a teacher account
type AccountState string

const (
	AccountUnregistered    AccountState = "unregistered"
	AccountPendingApproval AccountState = "pending_approval"
	AccountActive          AccountState = "active"
	AccountRemoved         AccountState = "removed"
)

// AccountEvent triggers a transition
type AccountEvent string

const (
	EventSelfRegister AccountEvent = "self_register"
	EventAdminCreate  AccountEvent = "admin_create"
	EventAdminApprove AccountEvent = "admin_approve"
	EventAdminDelete  AccountEvent = "admin_delete"
)

// TeacherTransitionKind tags what an approval does to the Teacher row
type TeacherTransitionKind string

const (
	TransitionCreateTeacher      TeacherTransitionKind = "create_teacher"
	TransitionReassignDepartment TeacherTransitionKind = "reassign_department"
)

// TeacherTransition is the explicit form of the approval upsert
type TeacherTransition struct {
	Kind TeacherTransitionKind `json:"kind"`
	From AccountState          `json:"from"`
	To   AccountState          `json:"to"`
}

// accountTransitions maps event -> from -> to
var accountTransitions = map[AccountEvent]map[AccountState]AccountState{
	EventSelfRegister: {
		AccountUnregistered: AccountPendingApproval,
	},
	EventAdminCreate: {
		AccountUnregistered: AccountActive,
	},
	EventAdminApprove: {
		AccountPendingApproval: AccountActive,
		AccountActive:          AccountActive,
	},
	EventAdminDelete: {
		AccountPendingApproval: AccountRemoved,
		AccountActive:          AccountRemoved,
	},
}

// DeriveAccountState computes the state from the stored records. A nil user
// is unregistered; a TEACHER user without a Teacher row is pending. Other
// roles have no approval step and are always active.
func DeriveAccountState(user *User, teacher *Teacher) AccountState {
	if user == nil {
		return AccountUnregistered
	}
	if teacher == nil && user.IsTeacher() {
		return AccountPendingApproval
	}
	return AccountActive
}

// NextAccountState validates event against from and returns the target state
func NextAccountState(from AccountState, event AccountEvent) (AccountState, error) {
	if from == AccountRemoved {
		return "", withMetadata(ErrTerminalState, map[string]any{
			"from":  from,
			"event": event,
		})
	}

	allowed, ok := accountTransitions[event]
	if !ok {
		return "", withMetadata(ErrInvalidTransition, map[string]any{
			"from":   from,
			"event":  event,
			"reason": "unknown event",
		})
	}

	to, ok := allowed[from]
	if !ok {
		return "", withMetadata(ErrInvalidTransition, map[string]any{
			"from":  from,
			"event": event,
		})
	}

	return to, nil
}

// PlanApproval tags an approval as a create or a department reassignment
func PlanApproval(user *User, existing *Teacher) (TeacherTransition, error) {
	if user != nil && !user.IsTeacher() {
		return TeacherTransition{}, withMetadata(ErrInvalidTransition, map[string]any{
			"event":  EventAdminApprove,
			"role":   user.Role,
			"reason": "only TEACHER users can be approved",
		})
	}

	from := DeriveAccountState(user, existing)
	to, err := NextAccountState(from, EventAdminApprove)
	if err != nil {
		return TeacherTransition{}, err
	}

	kind := TransitionCreateTeacher
	if existing != nil {
		kind = TransitionReassignDepartment
	}

	return TeacherTransition{
		Kind: kind,
		From: from,
		To:   to,
	}, nil
}
