package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DepartmentSummary is a department with its usage counts
type DepartmentSummary struct {
	ID           uuid.UUID `bun:"id" json:"id"`
	Name         string    `bun:"name" json:"name"`
	TeacherCount int       `bun:"teacher_count" json:"teacherCount"`
	ProgramCount int       `bun:"program_count" json:"programCount"`
}

type Departments interface {
	repository.Repository[*Department]

	FindDepartmentTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Department, error)
	CreateDepartmentTx(ctx context.Context, tx bun.IDB, name string) (*Department, error)
	DeleteDepartmentTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	ListSummariesTx(ctx context.Context, tx bun.IDB) ([]DepartmentSummary, error)
	CountDepartmentsTx(ctx context.Context, tx bun.IDB) (int, error)
}

type departments struct {
	repository.Repository[*Department]
	now func() time.Time
}

var _ Departments = (*departments)(nil)

func NewDepartmentsRepository(db *bun.DB) Departments {
	repo := repository.NewRepository[*Department](db, repository.ModelHandlers[*Department]{
		NewRecord: func() *Department { return &Department{} },
		GetID: func(d *Department) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *Department, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
		GetIdentifierValue: func(d *Department) string {
			if d == nil {
				return ""
			}
			return d.Name
		},
	})

	return &departments{
		Repository: repo,
		now:        time.Now,
	}
}

func (r *departments) Validate() error {
	return validateGeneric(r.Repository)
}

func (r *departments) FindDepartmentTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Department, error) {
	record, err := r.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, repositoryError(err, ErrDepartmentNotFound, map[string]any{
			"id": id.String(),
		}, "failed to load department")
	}
	return record, nil
}

func (r *departments) CreateDepartmentTx(ctx context.Context, tx bun.IDB, name string) (*Department, error) {
	now := r.now().UTC()
	record, err := r.CreateTx(ctx, tx, &Department{
		Name:      name,
		CreatedAt: &now,
	})
	if err != nil {
		return nil, internalError(err, "failed to create department")
	}
	return record, nil
}

// DeleteDepartmentTx removes the department row only. Callers clear or
// reject dependent teachers, programs and students first.
func (r *departments) DeleteDepartmentTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Department)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to delete department")
	}

	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return repositoryError(err, ErrDepartmentNotFound, map[string]any{
			"id": id.String(),
		}, "failed to count deleted departments")
	}
	return nil
}

// ListSummariesTx returns every department ordered by name with the number
// of teachers and programs attached to it.
func (r *departments) ListSummariesTx(ctx context.Context, tx bun.IDB) ([]DepartmentSummary, error) {
	out := []DepartmentSummary{}
	err := tx.NewSelect().
		Model((*Department)(nil)).
		ColumnExpr("dpt.id, dpt.name").
		ColumnExpr("(SELECT COUNT(*) FROM teachers AS tch WHERE tch.department_id = dpt.id) AS teacher_count").
		ColumnExpr("(SELECT COUNT(*) FROM programs AS prg WHERE prg.department_id = dpt.id) AS program_count").
		OrderExpr("dpt.name ASC").
		Scan(ctx, &out)
	if err != nil {
		return nil, internalError(err, "failed to list departments")
	}
	return out, nil
}

func (r *departments) CountDepartmentsTx(ctx context.Context, tx bun.IDB) (int, error) {
	n, err := r.CountTx(ctx, tx)
	if err != nil {
		return 0, internalError(err, "failed to count departments")
	}
	return n, nil
}

type Programs interface {
	repository.Repository[*Program]

	FindProgramTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Program, error)
	CreateProgramTx(ctx context.Context, tx bun.IDB, name string, departmentID uuid.UUID) (*Program, error)
	ListProgramsTx(ctx context.Context, tx bun.IDB) ([]*Program, error)
	ListIDsByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) ([]uuid.UUID, error)
	DeleteProgramTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) error
	CountProgramsTx(ctx context.Context, tx bun.IDB) (int, error)
}

type programs struct {
	repository.Repository[*Program]
	now func() time.Time
}

var _ Programs = (*programs)(nil)

func NewProgramsRepository(db *bun.DB) Programs {
	repo := repository.NewRepository[*Program](db, repository.ModelHandlers[*Program]{
		NewRecord: func() *Program { return &Program{} },
		GetID: func(p *Program) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Program, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
		GetIdentifierValue: func(p *Program) string {
			if p == nil {
				return ""
			}
			return p.Name
		},
	})

	return &programs{
		Repository: repo,
		now:        time.Now,
	}
}

func (r *programs) Validate() error {
	return validateGeneric(r.Repository)
}

func (r *programs) FindProgramTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Program, error) {
	record, err := r.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, repositoryError(err, ErrProgramNotFound, map[string]any{
			"id": id.String(),
		}, "failed to load program")
	}
	return record, nil
}

func (r *programs) CreateProgramTx(ctx context.Context, tx bun.IDB, name string, departmentID uuid.UUID) (*Program, error) {
	now := r.now().UTC()
	record, err := r.CreateTx(ctx, tx, &Program{
		Name:         name,
		DepartmentID: departmentID,
		CreatedAt:    &now,
	})
	if err != nil {
		return nil, internalError(err, "failed to create program")
	}
	return record, nil
}

func (r *programs) ListProgramsTx(ctx context.Context, tx bun.IDB) ([]*Program, error) {
	records := []*Program{}
	err := tx.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list programs")
	}
	return records, nil
}

func (r *programs) ListIDsByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := tx.NewSelect().
		Model((*Program)(nil)).
		Column("id").
		Where("?TableAlias.department_id = ?", departmentID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, internalError(err, "failed to list department programs")
	}
	return ids, nil
}

func (r *programs) DeleteProgramTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Program)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to delete program")
	}

	if err := repository.SQLExpectedCount(res, 1); err != nil {
		return repositoryError(err, ErrProgramNotFound, map[string]any{
			"id": id.String(),
		}, "failed to count deleted programs")
	}
	return nil
}

func (r *programs) DeleteByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) error {
	err := r.DeleteWhereTx(ctx, tx, repository.DeleteBy("department_id", "=", departmentID.String()))
	if err != nil {
		return internalError(err, "failed to delete department programs")
	}
	return nil
}

func (r *programs) CountProgramsTx(ctx context.Context, tx bun.IDB) (int, error) {
	n, err := r.CountTx(ctx, tx)
	if err != nil {
		return 0, internalError(err, "failed to count programs")
	}
	return n, nil
}

// Courses is read only from this package
type Courses interface {
	ListByTeacherTx(ctx context.Context, tx bun.IDB, teacherID uuid.UUID) ([]*Course, error)
	CountTx(ctx context.Context, tx bun.IDB) (int, error)
}

type courses struct{}

var _ Courses = courses{}

func NewCoursesRepository() Courses {
	return courses{}
}

func (courses) ListByTeacherTx(ctx context.Context, tx bun.IDB, teacherID uuid.UUID) ([]*Course, error) {
	records := []*Course{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.teacher_id = ?", teacherID).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return records, nil
}

func (courses) CountTx(ctx context.Context, tx bun.IDB) (int, error) {
	n, err := tx.NewSelect().Model((*Course)(nil)).Count(ctx)
	if err != nil {
		return 0, internalError(err, "failed to count courses")
	}
	return n, nil
}
