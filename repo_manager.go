package auth

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	DB() bun.IDB
	Users() Users
	Teachers() Teachers
	Departments() Departments
	Programs() Programs
	Students() Students
	Courses() Courses
}

type mngr struct {
	db          *bun.DB
	users       Users
	teachers    Teachers
	departments Departments
	programs    Programs
	students    Students
	courses     Courses
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		teachers:    NewTeachersRepository(db),
		departments: NewDepartmentsRepository(db),
		programs:    NewProgramsRepository(db),
		students:    NewStudentsRepository(db),
		courses:     NewCoursesRepository(),
	}
}

// Validate checks every repository is wired and that the generic ones
// carry a complete handler configuration.
func (m mngr) Validate() error {
	var fieldErrors goerrors.ValidationErrors

	required := map[string]any{
		"db":          m.db,
		"users":       m.users,
		"teachers":    m.teachers,
		"departments": m.departments,
		"programs":    m.programs,
		"students":    m.students,
		"courses":     m.courses,
	}

	for _, name := range []string{"db", "users", "teachers", "departments", "programs", "students", "courses"} {
		if isNilDependency(required[name]) {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   name,
				Message: "should be initialized",
			})
			continue
		}

		v, ok := required[name].(configValidator)
		if !ok {
			continue
		}
		if err := v.Validate(); err != nil {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   name,
				Message: err.Error(),
			})
		}
	}

	if len(fieldErrors) > 0 {
		return goerrors.NewValidation("repository manager is not configured", fieldErrors...)
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}

type configValidator interface {
	Validate() error
}

// validateGeneric runs the handler checks of a go-repository-bun repository
func validateGeneric(repo any) error {
	if v, ok := repo.(configValidator); ok {
		return v.Validate()
	}
	return nil
}

func isNilDependency(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case *bun.DB:
		return d == nil
	default:
		return false
	}
}

// repositoryError maps a generic repository failure onto a package error.
// Missing rows become notFound with metadata attached.
func repositoryError(err error, notFound *goerrors.Error, metadata map[string]any, message string) error {
	if err == nil {
		return nil
	}

	if repository.IsRecordNotFound(err) || repository.IsSQLExpectedCountViolation(err) {
		return withMetadata(notFound, metadata)
	}

	return internalError(err, message)
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) DB() bun.IDB {
	return m.db
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Teachers() Teachers {
	return m.teachers
}

func (m mngr) Departments() Departments {
	return m.departments
}

func (m mngr) Programs() Programs {
	return m.programs
}

func (m mngr) Students() Students {
	return m.students
}

func (m mngr) Courses() Courses {
	return m.courses
}
