package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-campus-auth"
)

const testSigningKey = "campus-test-signing-key-0123456789"

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockTrainingService implements auth.TrainingService for testing
type MockTrainingService struct {
	mock.Mock
}

func (m *MockTrainingService) Trigger(ctx context.Context, requestedBy string) (*auth.TrainingJob, error) {
	args := m.Called(ctx, requestedBy)
	job, _ := args.Get(0).(*auth.TrainingJob)
	return job, args.Error(1)
}

func (m *MockTrainingService) Status(ctx context.Context, jobID string) (*auth.TrainingJob, error) {
	args := m.Called(ctx, jobID)
	job, _ := args.Get(0).(*auth.TrainingJob)
	return job, args.Error(1)
}

type testEnv struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenServiceImpl
	accounts *auth.AccountManager
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenService([]byte(testSigningKey), 24, "campus-test", nil,
		auth.WithTokenLogger(auth.NopLogger{}),
	)

	accounts := auth.NewAccountManager(repo, tokens,
		auth.WithAccountLogger(auth.NopLogger{}),
		auth.WithPasswordAuthenticator(auth.NewBcryptHasher(4)),
	)

	return &testEnv{
		db:       db,
		repo:     repo,
		tokens:   tokens,
		accounts: accounts,
	}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	admin, err := e.accounts.EnsureAdmin(context.Background(), "Root", "root@campus.test", "root-password")
	require.NoError(t, err)

	token, err := e.tokens.Issue(admin.ID.String(), auth.RoleAdmin)
	require.NoError(t, err)
	return token
}

func (e *testEnv) tokenFor(t *testing.T, user *auth.User) string {
	t.Helper()

	token, err := e.tokens.Issue(user.ID.String(), user.Role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) department(t *testing.T, adminToken, name string) *auth.Department {
	t.Helper()

	dep, err := e.accounts.CreateDepartment(context.Background(), adminToken, auth.CreateDepartmentMessage{Name: name})
	require.NoError(t, err)
	return dep
}

func (e *testEnv) student(t *testing.T, name, email string) *auth.User {
	t.Helper()

	user, err := e.repo.Users().Register(context.Background(), &auth.User{
		Name:         name,
		Email:        email,
		PasswordHash: "not-a-login",
		Role:         auth.RoleStudent,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) course(t *testing.T, teacherID uuid.UUID, name, code string) *auth.Course {
	t.Helper()

	now := time.Now().UTC()
	course := &auth.Course{
		ID:        uuid.New(),
		Name:      name,
		Code:      code,
		TeacherID: &teacherID,
		CreatedAt: &now,
	}
	_, err := e.db.NewInsert().Model(course).Exec(context.Background())
	require.NoError(t, err)
	return course
}

func (e *testEnv) count(t *testing.T, model any) int {
	t.Helper()

	n, err := e.db.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func (e *testEnv) program(t *testing.T, adminToken string, dep *auth.Department, name string) *auth.Program {
	t.Helper()

	program, err := e.accounts.CreateProgram(context.Background(), adminToken, auth.CreateProgramMessage{
		Name:         name,
		DepartmentID: dep.ID.String(),
	})
	require.NoError(t, err)
	return program
}

func (e *testEnv) enroll(t *testing.T, user *auth.User, program *auth.Program) *auth.Student {
	t.Helper()

	var programID *uuid.UUID
	if program != nil {
		programID = &program.ID
	}

	student, err := e.repo.Students().CreateForUserTx(context.Background(), e.db, user.ID, programID)
	require.NoError(t, err)
	return student
}
