package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApprovalResult is returned by AdminApprove
type ApprovalResult struct {
	Teacher    *Teacher          `json:"teacher"`
	Transition TeacherTransition `json:"transition"`
}

// CourseSummary is the course shape exposed on a teacher profile
type CourseSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code,omitempty"`
}

// TeacherProfile is the calling teacher's own record
type TeacherProfile struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"userId"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	DepartmentID *uuid.UUID      `json:"departmentId,omitempty"`
	Department   string          `json:"department"`
	Courses      []CourseSummary `json:"courses"`
}

// TeacherListing is one row of the administrator teacher list
type TeacherListing struct {
	UserID         uuid.UUID  `json:"userId"`
	TeacherID      *uuid.UUID `json:"teacherId,omitempty"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	IsPending      bool       `json:"isPending"`
	DepartmentID   *uuid.UUID `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
}

// Stats holds the dashboard counters
type Stats struct {
	Teachers    int `json:"teachers"`
	Students    int `json:"students"`
	Departments int `json:"departments"`
	Programs    int `json:"programs"`
	Courses     int `json:"courses"`
}

// AccountManager implements the account lifecycle and the administrative
// catalog on top of a RepositoryManager. Every privileged call is authorized
// before the store is touched.
type AccountManager struct {
	repo        RepositoryManager
	tokens      TokenService
	guard       *Guard
	hasher      PasswordAuthenticator
	logger      Logger
	now         func() time.Time
	adminIDOpts []hashid.Option
}

var (
	_ AccountService = (*AccountManager)(nil)
	_ CatalogService = (*AccountManager)(nil)
	_ StudentService = (*AccountManager)(nil)
)

// AccountManagerOption configures the manager
type AccountManagerOption func(*AccountManager)

// WithAccountLogger sets the logger
func WithAccountLogger(logger Logger) AccountManagerOption {
	return func(m *AccountManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPasswordAuthenticator replaces the default bcrypt hasher
func WithPasswordAuthenticator(hasher PasswordAuthenticator) AccountManagerOption {
	return func(m *AccountManager) {
		if hasher != nil {
			m.hasher = hasher
		}
	}
}

// WithAccountClock overrides the time source used for graduation checks
func WithAccountClock(now func() time.Time) AccountManagerOption {
	return func(m *AccountManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithAdminIDOptions sets the hashid options used to derive the bootstrap
// admin id from its email.
func WithAdminIDOptions(opts ...hashid.Option) AccountManagerOption {
	return func(m *AccountManager) {
		m.adminIDOpts = opts
	}
}

// NewAccountManager wires the lifecycle manager
func NewAccountManager(repo RepositoryManager, tokens TokenService, opts ...AccountManagerOption) *AccountManager {
	m := &AccountManager{
		repo:   repo,
		tokens: tokens,
		hasher: BcryptHasher{},
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.guard = NewGuard(tokens, m.logger)

	return m
}

// Guard returns the guard used for privileged calls
func (m *AccountManager) Guard() *Guard {
	return m.guard
}

func (m *AccountManager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := m.repo.Users().FindByEmailTx(ctx, m.repo.DB(), email)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			m.logger.Debug("login unknown email: %s", email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := m.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if !goerrors.Is(err, ErrMismatchedHashAndPassword) {
			m.logger.Error("login password compare failed for user %s: %v", user.ID, err)
		}
		return nil, ErrInvalidCredentials
	}

	token, err := m.tokens.Issue(user.ID.String(), user.Role)
	if err != nil {
		return nil, internalError(err, "failed to issue token")
	}

	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, internalError(err, "issued token failed verification")
	}

	return &LoginResult{
		Token:       token,
		Role:        user.Role,
		Name:        user.Name,
		Email:       user.Email,
		RedirectURL: user.Role.HomePath(),
		ExpiresAt:   claims.Expires(),
	}, nil
}

// SelfRegister creates a TEACHER user awaiting approval
func (m *AccountManager) SelfRegister(ctx context.Context, msg RegisterTeacherMessage) (*User, error) {
	msg = msg.Normalized()
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if _, err := NextAccountState(AccountUnregistered, EventSelfRegister); err != nil {
		return nil, err
	}

	hash, err := m.hasher.HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         msg.Name,
		Email:        msg.Email,
		PasswordHash: hash,
		Role:         RoleTeacher,
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = m.repo.Users().RegisterTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, internalError(err, "teacher registration failed")
	}

	m.logger.Info("teacher %s registered, pending approval", user.ID)
	return user, nil
}

// AdminCreate creates an active teacher with a department in one step
func (m *AccountManager) AdminCreate(ctx context.Context, token string, msg CreateTeacherMessage) (*User, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	msg = msg.Normalized()
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	departmentID, err := parseID(msg.DepartmentID, ErrDepartmentNotFound)
	if err != nil {
		return nil, err
	}

	if _, err := NextAccountState(AccountUnregistered, EventAdminCreate); err != nil {
		return nil, err
	}

	hash, err := m.hasher.HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         msg.Name,
		Email:        msg.Email,
		PasswordHash: hash,
		Role:         RoleTeacher,
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.repo.Departments().FindDepartmentTx(ctx, tx, departmentID); err != nil {
			return err
		}

		if user, err = m.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return err
		}

		_, err = m.repo.Teachers().UpsertForUserTx(ctx, tx, user.ID, departmentID)
		return err
	})
	if err != nil {
		return nil, internalError(err, "teacher creation failed")
	}

	m.logger.Info("teacher %s created in department %s", user.ID, departmentID)
	return user, nil
}

// AdminApprove attaches a pending teacher to a department, or moves an
// active teacher to another one.
func (m *AccountManager) AdminApprove(ctx context.Context, token string, msg ApproveTeacherMessage) (*ApprovalResult, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	userID, err := parseID(msg.UserID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	departmentID, err := parseID(msg.DepartmentID, ErrDepartmentNotFound)
	if err != nil {
		return nil, err
	}

	result := &ApprovalResult{}
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.repo.Users().FindByUserIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		if _, err := m.repo.Departments().FindDepartmentTx(ctx, tx, departmentID); err != nil {
			return err
		}

		existing, err := m.findTeacher(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		transition, err := PlanApproval(user, existing)
		if err != nil {
			return err
		}

		teacher, err := m.repo.Teachers().UpsertForUserTx(ctx, tx, user.ID, departmentID)
		if err != nil {
			return err
		}

		result.Teacher = teacher
		result.Transition = transition
		return nil
	})
	if err != nil {
		return nil, internalError(err, "teacher approval failed")
	}

	m.logger.Info("teacher %s approval %s into department %s", userID, result.Transition.Kind, departmentID)
	return result, nil
}

// AdminDelete removes the Teacher or Student row, if any, and then the User row
func (m *AccountManager) AdminDelete(ctx context.Context, token string, userID string) error {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return err
	}

	id, err := parseID(userID, ErrUserNotFound)
	if err != nil {
		return err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.repo.Users().FindByUserIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		existing, err := m.findTeacher(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if _, err := NextAccountState(DeriveAccountState(user, existing), EventAdminDelete); err != nil {
			return err
		}

		if _, err := m.repo.Teachers().DeleteByUserIDTx(ctx, tx, user.ID); err != nil {
			return err
		}

		if user.Role == RoleStudent {
			if err := m.repo.Students().DeleteByUserIDTx(ctx, tx, user.ID); err != nil {
				return err
			}
		}

		return m.repo.Users().RemoveUserTx(ctx, tx, user.ID)
	})
	if err != nil {
		return internalError(err, "account deletion failed")
	}

	m.logger.Info("account %s removed", id)
	return nil
}

// GetOwnProfile returns the calling teacher's profile. A pending teacher gets
// ErrTeacherNotFound.
func (m *AccountManager) GetOwnProfile(ctx context.Context, token string) (*TeacherProfile, error) {
	claims, err := m.guard.Verify(token)
	if err != nil {
		m.logger.Debug("profile rejected token: %v", err)
		return nil, ErrUnauthorized
	}

	if claims.Role() != RoleTeacher {
		return nil, withMetadata(ErrForbidden, map[string]any{
			"role": claims.Role(),
		})
	}

	userID, err := parseID(claims.UserID(), ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}

	db := m.repo.DB()

	teacher, err := m.repo.Teachers().GetByUserIDTx(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	user, err := m.repo.Users().FindByUserIDTx(ctx, db, userID)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, withMetadata(ErrTeacherNotFound, map[string]any{
				"user_id": userID.String(),
			})
		}
		return nil, err
	}

	profile := &TeacherProfile{
		ID:           teacher.ID,
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		DepartmentID: teacher.DepartmentID,
		Courses:      []CourseSummary{},
	}

	if teacher.DepartmentID != nil {
		dep, err := m.repo.Departments().FindDepartmentTx(ctx, db, *teacher.DepartmentID)
		if err != nil && !goerrors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		if dep != nil {
			profile.Department = dep.Name
		}
	}

	courses, err := m.repo.Courses().ListByTeacherTx(ctx, db, teacher.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		profile.Courses = append(profile.Courses, CourseSummary{
			ID:   c.ID,
			Name: c.Name,
			Code: c.Code,
		})
	}

	return profile, nil
}

// ListTeachers lists every TEACHER user, flagging the ones still pending
func (m *AccountManager) ListTeachers(ctx context.Context, token string) ([]TeacherListing, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	db := m.repo.DB()

	users, err := m.repo.Users().ListByRoleTx(ctx, db, RoleTeacher)
	if err != nil {
		return nil, err
	}

	teachers, err := m.repo.Teachers().ListTx(ctx, db)
	if err != nil {
		return nil, err
	}

	departments, err := m.repo.Departments().ListSummariesTx(ctx, db)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*Teacher, len(teachers))
	for _, t := range teachers {
		byUser[t.UserID] = t
	}

	depNames := make(map[uuid.UUID]string, len(departments))
	for _, d := range departments {
		depNames[d.ID] = d.Name
	}

	out := make([]TeacherListing, 0, len(users))
	for _, u := range users {
		item := TeacherListing{
			UserID:    u.ID,
			Name:      u.Name,
			Email:     u.Email,
			IsPending: true,
		}

		if t, ok := byUser[u.ID]; ok {
			teacherID := t.ID
			item.TeacherID = &teacherID
			item.IsPending = false
			item.DepartmentID = t.DepartmentID
			if t.DepartmentID != nil {
				item.DepartmentName = depNames[*t.DepartmentID]
			}
		}

		out = append(out, item)
	}

	return out, nil
}

func (m *AccountManager) ListDepartments(ctx context.Context, token string) ([]DepartmentSummary, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}
	return m.repo.Departments().ListSummariesTx(ctx, m.repo.DB())
}

func (m *AccountManager) CreateDepartment(ctx context.Context, token string, msg CreateDepartmentMessage) (*Department, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var dep *Department
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		dep, err = m.repo.Departments().CreateDepartmentTx(ctx, tx, strings.TrimSpace(msg.Name))
		return err
	})
	if err != nil {
		return nil, internalError(err, "department creation failed")
	}

	return dep, nil
}

// DeleteDepartment removes a department together with its programs. It is
// refused while students are enrolled in one of those programs or teachers
// are still assigned to the department.
func (m *AccountManager) DeleteDepartment(ctx context.Context, token string, id string) error {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return err
	}

	departmentID, err := parseID(id, ErrDepartmentNotFound)
	if err != nil {
		return err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.repo.Departments().FindDepartmentTx(ctx, tx, departmentID); err != nil {
			return err
		}

		programIDs, err := m.repo.Programs().ListIDsByDepartmentTx(ctx, tx, departmentID)
		if err != nil {
			return err
		}

		enrolled, err := m.repo.Students().CountInProgramsTx(ctx, tx, programIDs)
		if err != nil {
			return err
		}
		if enrolled > 0 {
			return withMetadata(ErrDepartmentInUse, map[string]any{
				"id":       departmentID.String(),
				"students": enrolled,
			})
		}

		assigned, err := m.repo.Teachers().CountByDepartmentTx(ctx, tx, departmentID)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return withMetadata(ErrDepartmentInUse, map[string]any{
				"id":       departmentID.String(),
				"teachers": assigned,
			})
		}

		if err := m.repo.Programs().DeleteByDepartmentTx(ctx, tx, departmentID); err != nil {
			return err
		}

		return m.repo.Departments().DeleteDepartmentTx(ctx, tx, departmentID)
	})
	if err != nil {
		return internalError(err, "department deletion failed")
	}

	m.logger.Info("department %s removed", departmentID)
	return nil
}

func (m *AccountManager) ListPrograms(ctx context.Context, token string) ([]*Program, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}
	return m.repo.Programs().ListProgramsTx(ctx, m.repo.DB())
}

func (m *AccountManager) CreateProgram(ctx context.Context, token string, msg CreateProgramMessage) (*Program, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	departmentID, err := parseID(msg.DepartmentID, ErrDepartmentNotFound)
	if err != nil {
		return nil, err
	}

	var program *Program
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.repo.Departments().FindDepartmentTx(ctx, tx, departmentID); err != nil {
			return err
		}
		program, err = m.repo.Programs().CreateProgramTx(ctx, tx, strings.TrimSpace(msg.Name), departmentID)
		return err
	})
	if err != nil {
		return nil, internalError(err, "program creation failed")
	}

	return program, nil
}

func (m *AccountManager) DeleteProgram(ctx context.Context, token string, id string) error {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return err
	}

	programID, err := parseID(id, ErrProgramNotFound)
	if err != nil {
		return err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return m.repo.Programs().DeleteProgramTx(ctx, tx, programID)
	})
	if err != nil {
		return internalError(err, "program deletion failed")
	}
	return nil
}

func (m *AccountManager) Stats(ctx context.Context, token string) (*Stats, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	db := m.repo.DB()
	stats := &Stats{}

	var err error
	if stats.Teachers, err = m.repo.Teachers().CountTx(ctx, db); err != nil {
		return nil, err
	}
	if stats.Students, err = m.repo.Users().CountByRoleTx(ctx, db, RoleStudent); err != nil {
		return nil, err
	}
	if stats.Departments, err = m.repo.Departments().CountDepartmentsTx(ctx, db); err != nil {
		return nil, err
	}
	if stats.Programs, err = m.repo.Programs().CountProgramsTx(ctx, db); err != nil {
		return nil, err
	}
	if stats.Courses, err = m.repo.Courses().CountTx(ctx, db); err != nil {
		return nil, err
	}

	return stats, nil
}

// EnsureAdmin creates the bootstrap ADMIN account when its email is unused.
// The user id is derived from the email so repeated runs agree on it.
func (m *AccountManager) EnsureAdmin(ctx context.Context, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, goerrors.New("admin email is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := m.hasher.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := hashid.NewUUID(email, m.adminIDOpts...)
	if err != nil {
		return nil, internalError(err, "failed to derive admin id")
	}

	record := &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}

	var admin *User
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		admin, err = m.repo.Users().GetOrRegisterTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, internalError(err, "admin bootstrap failed")
	}

	if admin.Role != RoleAdmin {
		m.logger.Warn("bootstrap admin email %s belongs to a %s account", email, admin.Role)
	}

	return admin, nil
}

func (m *AccountManager) findTeacher(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Teacher, error) {
	teacher, err := m.repo.Teachers().GetByUserIDTx(ctx, tx, userID)
	if err != nil {
		if goerrors.Is(err, ErrTeacherNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return teacher, nil
}
