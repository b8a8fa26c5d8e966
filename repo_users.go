package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]

	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	FindByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetOrRegisterTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	RemoveUserTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	ListByRoleTx(ctx context.Context, tx bun.IDB, role UserRole) ([]*User, error)
	CountByRoleTx(ctx context.Context, tx bun.IDB, role UserRole) (int, error)
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

type UsersOption func(*users)

// WithUsersClock overrides the timestamp source
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
		GetIdentifierValue: func(u *User) string {
			if u == nil {
				return ""
			}
			return NormalizeEmail(u.Email)
		},
		ResolveIdentifier: resolveUserIdentifier,
	})

	repoUsers := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) Validate() error {
	return validateGeneric(a.Repository)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)
	user, err := a.GetTx(ctx, tx, repository.SelectBy("email", "=", email))
	if err != nil {
		return nil, repositoryError(err, ErrUserNotFound, map[string]any{
			"email": email,
		}, "failed to load user")
	}
	return user, nil
}

func (a *users) FindByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	user, err := a.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		return nil, repositoryError(err, ErrUserNotFound, map[string]any{
			"id": id.String(),
		}, "failed to load user")
	}
	return user, nil
}

// FindByIdentifierTx accepts either a user id or an email address
func (a *users) FindByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	user, err := a.GetByIdentifierTx(ctx, tx, identifier)
	if err != nil {
		return nil, repositoryError(err, ErrUserNotFound, map[string]any{
			"identifier": identifier,
		}, "failed to load user")
	}
	return user, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. The email is normalized and must be unused.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, internalError(goerrors.New("nil user", goerrors.CategoryInternal), "failed to register user")
	}

	if !user.Role.IsValid() {
		return nil, withMetadata(ErrInvalidRole, map[string]any{
			"role": string(user.Role),
		})
	}

	a.prepareUserDefaults(user)

	if _, err := a.FindByEmailTx(ctx, tx, user.Email); err == nil {
		return nil, withMetadata(ErrDuplicateEmail, map[string]any{
			"email": user.Email,
		})
	} else if !goerrors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	created, err := a.CreateTx(ctx, tx, user)
	if err != nil {
		if repository.IsDuplicatedKey(err) || IsUniqueViolation(err) {
			return nil, withMetadata(ErrDuplicateEmail, map[string]any{
				"email": user.Email,
			})
		}
		return nil, internalError(err, "failed to insert user")
	}

	return created, nil
}

// GetOrRegisterTx returns the user matching the record email, creating it when missing
func (a *users) GetOrRegisterTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	user, err := a.FindByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return user, nil
	}

	if !goerrors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	return a.RegisterTx(ctx, tx, record)
}

// UpdateProfileTx rewrites the name and email of an existing user
func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, ErrUserNotFound
	}

	user.Email = NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)
	now := a.now().UTC()
	user.UpdatedAt = &now

	existing, err := a.FindByEmailTx(ctx, tx, user.Email)
	if err == nil && existing.ID != user.ID {
		return nil, withMetadata(ErrDuplicateEmail, map[string]any{
			"email": user.Email,
		})
	} else if err != nil && !goerrors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	updated, err := a.UpdateTx(ctx, tx, user,
		repository.UpdateColumns("name", "email", "updated_at"),
	)
	if err != nil {
		if repository.IsDuplicatedKey(err) || IsUniqueViolation(err) {
			return nil, withMetadata(ErrDuplicateEmail, map[string]any{
				"email": user.Email,
			})
		}
		return nil, repositoryError(err, ErrUserNotFound, map[string]any{
			"id": user.ID.String(),
		}, "failed to update user")
	}

	return updated, nil
}

func (a *users) RemoveUserTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to delete user")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return internalError(err, "failed to count deleted users")
	}
	if n == 0 {
		return withMetadata(ErrUserNotFound, map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (a *users) ListByRoleTx(ctx context.Context, tx bun.IDB, role UserRole) ([]*User, error) {
	records := []*User{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.role = ?", role).
		OrderExpr("?TableAlias.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list users")
	}
	return records, nil
}

func (a *users) CountByRoleTx(ctx context.Context, tx bun.IDB, role UserRole) (int, error) {
	n, err := a.CountTx(ctx, tx, repository.SelectBy("role", "=", string(role)))
	if err != nil {
		return 0, internalError(err, "failed to count users")
	}
	return n, nil
}

func (a *users) prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	user.Email = NormalizeEmail(user.Email)
	user.Name = strings.TrimSpace(user.Name)

	now := a.now().UTC()
	if user.CreatedAt == nil {
		user.CreatedAt = &now
	}
	if user.UpdatedAt == nil {
		user.UpdatedAt = &now
	}
}

// resolveUserIdentifier tries the primary key for uuids and the email
// column for anything shaped like an address.
func resolveUserIdentifier(identifier string) []repository.IdentifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]repository.IdentifierOption, 0, 2)

	if isUUID(trimmed) {
		options = append(options, repository.IdentifierOption{
			Column: "id",
			Value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, repository.IdentifierOption{
			Column: "email",
			Value:  NormalizeEmail(trimmed),
		})
	}

	return options
}

func isEmail(email string) bool {
	return email != "" && is.EmailFormat.Validate(email) == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// IsUniqueViolation reports whether err comes from a unique constraint,
// either from postgres (23505) or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
