package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Teachers stores the profile rows of approved TEACHER users
type Teachers interface {
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Teacher, error)
	UpsertForUserTx(ctx context.Context, tx bun.IDB, userID, departmentID uuid.UUID) (*Teacher, error)
	DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
	ListTx(ctx context.Context, tx bun.IDB) ([]*Teacher, error)
	CountTx(ctx context.Context, tx bun.IDB) (int, error)
	CountByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) (int, error)
}

type teachers struct {
	db  *bun.DB
	now func() time.Time
}

var _ Teachers = (*teachers)(nil)

func NewTeachersRepository(db *bun.DB) Teachers {
	return &teachers{
		db:  db,
		now: time.Now,
	}
}

func (r *teachers) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Teacher, error) {
	record := &Teacher{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, withMetadata(ErrTeacherNotFound, map[string]any{
				"user_id": userID.String(),
			})
		}
		return nil, internalError(err, "failed to load teacher")
	}

	return record, nil
}

// UpsertForUserTx links userID to departmentID in a single statement. A second
// call for the same user rewrites the department and keeps the one row.
func (r *teachers) UpsertForUserTx(ctx context.Context, tx bun.IDB, userID, departmentID uuid.UUID) (*Teacher, error) {
	now := r.now().UTC()
	dep := departmentID
	record := &Teacher{
		ID:           uuid.New(),
		UserID:       userID,
		DepartmentID: &dep,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("department_id = EXCLUDED.department_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, internalError(err, "failed to upsert teacher")
	}

	return r.GetByUserIDTx(ctx, tx, userID)
}

func (r *teachers) DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Teacher)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, internalError(err, "failed to delete teacher")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, internalError(err, "failed to count deleted teachers")
	}
	return n, nil
}

func (r *teachers) ListTx(ctx context.Context, tx bun.IDB) ([]*Teacher, error) {
	records := []*Teacher{}
	if err := tx.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, internalError(err, "failed to list teachers")
	}
	return records, nil
}

func (r *teachers) CountTx(ctx context.Context, tx bun.IDB) (int, error) {
	n, err := tx.NewSelect().Model((*Teacher)(nil)).Count(ctx)
	if err != nil {
		return 0, internalError(err, "failed to count teachers")
	}
	return n, nil
}

func (r *teachers) CountByDepartmentTx(ctx context.Context, tx bun.IDB, departmentID uuid.UUID) (int, error) {
	n, err := tx.NewSelect().
		Model((*Teacher)(nil)).
		Where("?TableAlias.department_id = ?", departmentID).
		Count(ctx)
	if err != nil {
		return 0, internalError(err, "failed to count department teachers")
	}
	return n, nil
}
