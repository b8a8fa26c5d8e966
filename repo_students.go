package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Students stores the profile rows of STUDENT users
type Students interface {
	repository.Repository[*Student]

	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Student, error)
	CreateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, programID *uuid.UUID) (*Student, error)
	SetProgramTx(ctx context.Context, tx bun.IDB, student *Student, programID *uuid.UUID) (*Student, error)
	MarkGraduatedTx(ctx context.Context, tx bun.IDB, student *Student) (*Student, error)
	DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	ListAllTx(ctx context.Context, tx bun.IDB) ([]*Student, error)
	CountInProgramsTx(ctx context.Context, tx bun.IDB, programIDs []uuid.UUID) (int, error)
}

type students struct {
	repository.Repository[*Student]
	now func() time.Time
}

var _ Students = (*students)(nil)

func NewStudentsRepository(db *bun.DB) Students {
	repo := repository.NewRepository[*Student](db, repository.ModelHandlers[*Student]{
		NewRecord: func() *Student { return &Student{} },
		GetID: func(s *Student) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Student, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
		GetIdentifierValue: func(s *Student) string {
			if s == nil || s.UserID == uuid.Nil {
				return ""
			}
			return s.UserID.String()
		},
	})

	return &students{
		Repository: repo,
		now:        time.Now,
	}
}

func (r *students) Validate() error {
	return validateGeneric(r.Repository)
}

func (r *students) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Student, error) {
	record, err := r.GetByIdentifierTx(ctx, tx, userID.String())
	if err != nil {
		return nil, repositoryError(err, ErrStudentNotFound, map[string]any{
			"user_id": userID.String(),
		}, "failed to load student")
	}
	return record, nil
}

func (r *students) CreateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, programID *uuid.UUID) (*Student, error) {
	now := r.now().UTC()
	record, err := r.CreateTx(ctx, tx, &Student{
		UserID:    userID,
		ProgramID: programID,
		Status:    StudentActive,
		JoinedAt:  &now,
		CreatedAt: &now,
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, internalError(err, "failed to create student")
	}
	return record, nil
}

func (r *students) SetProgramTx(ctx context.Context, tx bun.IDB, student *Student, programID *uuid.UUID) (*Student, error) {
	now := r.now().UTC()
	student.ProgramID = programID
	student.UpdatedAt = &now

	updated, err := r.UpdateTx(ctx, tx, student,
		repository.UpdateColumns("program_id", "updated_at"),
	)
	if err != nil {
		return nil, repositoryError(err, ErrStudentNotFound, map[string]any{
			"id": student.ID.String(),
		}, "failed to update student program")
	}
	return updated, nil
}

func (r *students) MarkGraduatedTx(ctx context.Context, tx bun.IDB, student *Student) (*Student, error) {
	now := r.now().UTC()
	student.Status = StudentGraduated
	student.UpdatedAt = &now

	updated, err := r.UpdateTx(ctx, tx, student,
		repository.UpdateColumns("status", "updated_at"),
	)
	if err != nil {
		return nil, repositoryError(err, ErrStudentNotFound, map[string]any{
			"id": student.ID.String(),
		}, "failed to graduate student")
	}
	return updated, nil
}

// DeleteByUserIDTx is a no-op for users that never got a student row
func (r *students) DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	if err := r.DeleteWhereTx(ctx, tx, repository.DeleteBy("user_id", "=", userID.String())); err != nil {
		return internalError(err, "failed to delete student")
	}
	return nil
}

func (r *students) ListAllTx(ctx context.Context, tx bun.IDB) ([]*Student, error) {
	records := []*Student{}
	if err := tx.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, internalError(err, "failed to list students")
	}
	return records, nil
}

func (r *students) CountInProgramsTx(ctx context.Context, tx bun.IDB, programIDs []uuid.UUID) (int, error) {
	if len(programIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(programIDs))
	for _, id := range programIDs {
		ids = append(ids, id.String())
	}

	n, err := r.CountTx(ctx, tx, repository.SelectColumnIn("program_id", ids))
	if err != nil {
		return 0, internalError(err, "failed to count program students")
	}
	return n, nil
}
