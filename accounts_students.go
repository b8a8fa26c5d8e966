package auth

import (
	"context"
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProgramRef names a program and the department that owns it
type ProgramRef struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	DepartmentID   *uuid.UUID `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
}

// StudentListing is one row of the administrator student list
type StudentListing struct {
	UserID    uuid.UUID     `json:"userId"`
	StudentID *uuid.UUID    `json:"studentId,omitempty"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Status    StudentStatus `json:"status,omitempty"`
	JoinedAt  *time.Time    `json:"joinedAt,omitempty"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	Program   *ProgramRef   `json:"program,omitempty"`
}

// StudentRoster is the student list plus the programs an admin can assign
type StudentRoster struct {
	Students []StudentListing `json:"students"`
	Programs []*Program       `json:"programs"`
}

// StudentProfile is the calling student's own record
type StudentProfile struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"userId"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      UserRole      `json:"role"`
	Status    StudentStatus `json:"status"`
	JoinedAt  *time.Time    `json:"joinedAt,omitempty"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	Program   *ProgramRef   `json:"program,omitempty"`
}

// ListStudents lists every STUDENT user, newest first. Students that have
// been enrolled for the full duration of their program are marked graduated
// on the way out.
func (m *AccountManager) ListStudents(ctx context.Context, token string) (*StudentRoster, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	db := m.repo.DB()

	users, err := m.repo.Users().ListByRoleTx(ctx, db, RoleStudent)
	if err != nil {
		return nil, err
	}

	rows, err := m.repo.Students().ListAllTx(ctx, db)
	if err != nil {
		return nil, err
	}

	programs, err := m.repo.Programs().ListProgramsTx(ctx, db)
	if err != nil {
		return nil, err
	}

	refs, err := m.programRefs(ctx, db, programs)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*Student, len(rows))
	for _, st := range rows {
		byUser[st.UserID] = st
	}

	now := m.now().UTC()
	out := make([]StudentListing, 0, len(users))
	for _, u := range users {
		item := StudentListing{
			UserID:    u.ID,
			Name:      u.Name,
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		}

		if st, ok := byUser[u.ID]; ok {
			var ref *ProgramRef
			if st.ProgramID != nil {
				ref = refs[*st.ProgramID]
			}

			programName := ""
			if ref != nil {
				programName = ref.Name
			}

			if st.GraduationDue(programName, now) {
				if st, err = m.repo.Students().MarkGraduatedTx(ctx, db, st); err != nil {
					return nil, err
				}
				m.logger.Info("student %s graduated", u.ID)
			}

			studentID := st.ID
			item.StudentID = &studentID
			item.Status = st.Status
			item.JoinedAt = st.JoinedAt
			item.Program = ref
		}

		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return timeValue(out[i].CreatedAt).After(timeValue(out[j].CreatedAt))
	})

	return &StudentRoster{
		Students: out,
		Programs: programs,
	}, nil
}

// UpdateStudent edits a student's name, email and program. id may be the
// user id or the current email. Empty fields keep their stored value.
func (m *AccountManager) UpdateStudent(ctx context.Context, token string, id string, msg UpdateStudentMessage) (*StudentListing, error) {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return nil, err
	}

	msg = msg.Normalized()
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var programID *uuid.UUID
	if msg.ProgramID != "" {
		pid, err := parseID(msg.ProgramID, ErrProgramNotFound)
		if err != nil {
			return nil, err
		}
		programID = &pid
	}

	var out *StudentListing
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.findStudentUser(ctx, tx, id)
		if err != nil {
			return err
		}

		if msg.Name != "" {
			user.Name = msg.Name
		}
		if msg.Email != "" {
			user.Email = msg.Email
		}

		if user, err = m.repo.Users().UpdateProfileTx(ctx, tx, user); err != nil {
			return err
		}

		student, err := m.repo.Students().GetByUserIDTx(ctx, tx, user.ID)
		if err != nil && !goerrors.Is(err, ErrStudentNotFound) {
			return err
		}

		if programID != nil {
			program, err := m.repo.Programs().FindProgramTx(ctx, tx, *programID)
			if err != nil {
				return err
			}

			if student == nil {
				student, err = m.repo.Students().CreateForUserTx(ctx, tx, user.ID, &program.ID)
			} else {
				student, err = m.repo.Students().SetProgramTx(ctx, tx, student, &program.ID)
			}
			if err != nil {
				return err
			}
		}

		out, err = m.studentListing(ctx, tx, user, student)
		return err
	})
	if err != nil {
		return nil, internalError(err, "student update failed")
	}

	m.logger.Info("student %s updated", out.UserID)
	return out, nil
}

// DeleteStudent removes the Student row, if any, and then the User row
func (m *AccountManager) DeleteStudent(ctx context.Context, token string, id string) error {
	if _, err := m.guard.Require(token, RoleAdmin); err != nil {
		return err
	}

	var userID uuid.UUID
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.findStudentUser(ctx, tx, id)
		if err != nil {
			return err
		}
		userID = user.ID

		if err := m.repo.Students().DeleteByUserIDTx(ctx, tx, user.ID); err != nil {
			return err
		}

		return m.repo.Users().RemoveUserTx(ctx, tx, user.ID)
	})
	if err != nil {
		return internalError(err, "student deletion failed")
	}

	m.logger.Info("student %s removed", userID)
	return nil
}

// GetOwnStudentProfile returns the calling student's record with its program
func (m *AccountManager) GetOwnStudentProfile(ctx context.Context, token string) (*StudentProfile, error) {
	claims, err := m.guard.Verify(token)
	if err != nil {
		m.logger.Debug("student profile rejected token: %v", err)
		return nil, ErrUnauthorized
	}

	if claims.Role() != RoleStudent {
		return nil, withMetadata(ErrForbidden, map[string]any{
			"role": claims.Role(),
		})
	}

	userID, err := parseID(claims.UserID(), ErrStudentNotFound)
	if err != nil {
		return nil, err
	}

	db := m.repo.DB()

	user, err := m.repo.Users().FindByUserIDTx(ctx, db, userID)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, withMetadata(ErrStudentNotFound, map[string]any{
				"user_id": userID.String(),
			})
		}
		return nil, err
	}

	student, err := m.repo.Students().GetByUserIDTx(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	listing, err := m.studentListing(ctx, db, user, student)
	if err != nil {
		return nil, err
	}

	return &StudentProfile{
		ID:        student.ID,
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    student.Status,
		JoinedAt:  student.JoinedAt,
		CreatedAt: user.CreatedAt,
		Program:   listing.Program,
	}, nil
}

// findStudentUser resolves id as a user id or email and rejects non students
func (m *AccountManager) findStudentUser(ctx context.Context, tx bun.IDB, id string) (*User, error) {
	user, err := m.repo.Users().FindByIdentifierTx(ctx, tx, id)
	if err != nil {
		if goerrors.Is(err, ErrUserNotFound) {
			return nil, withMetadata(ErrStudentNotFound, map[string]any{
				"id": id,
			})
		}
		return nil, err
	}

	if user.Role != RoleStudent {
		return nil, withMetadata(ErrStudentNotFound, map[string]any{
			"id":   id,
			"role": string(user.Role),
		})
	}

	return user, nil
}

func (m *AccountManager) studentListing(ctx context.Context, tx bun.IDB, user *User, student *Student) (*StudentListing, error) {
	item := &StudentListing{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}

	if student == nil {
		return item, nil
	}

	studentID := student.ID
	item.StudentID = &studentID
	item.Status = student.Status
	item.JoinedAt = student.JoinedAt

	if student.ProgramID == nil {
		return item, nil
	}

	program, err := m.repo.Programs().FindProgramTx(ctx, tx, *student.ProgramID)
	if err != nil {
		if goerrors.Is(err, ErrProgramNotFound) {
			return item, nil
		}
		return nil, err
	}

	refs, err := m.programRefs(ctx, tx, []*Program{program})
	if err != nil {
		return nil, err
	}
	item.Program = refs[program.ID]

	return item, nil
}

func (m *AccountManager) programRefs(ctx context.Context, tx bun.IDB, programs []*Program) (map[uuid.UUID]*ProgramRef, error) {
	refs := make(map[uuid.UUID]*ProgramRef, len(programs))
	if len(programs) == 0 {
		return refs, nil
	}

	departments, err := m.repo.Departments().ListSummariesTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	depNames := make(map[uuid.UUID]string, len(departments))
	for _, d := range departments {
		depNames[d.ID] = d.Name
	}

	for _, p := range programs {
		depID := p.DepartmentID
		refs[p.ID] = &ProgramRef{
			ID:             p.ID,
			Name:           p.Name,
			DepartmentID:   &depID,
			DepartmentName: depNames[depID],
		}
	}

	return refs, nil
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
