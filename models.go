package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsTeacher reports whether the user carries the TEACHER role
func (u *User) IsTeacher() bool {
	return u != nil && u.Role == RoleTeacher
}

// Teacher is the profile attached to a TEACHER user once approved
type Teacher struct {
	bun.BaseModel `bun:"table:teachers,alias:tch"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"userId,omitempty"`
	DepartmentID  *uuid.UUID `bun:"department_id,type:uuid" json:"departmentId,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Department groups teachers and programs
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:dpt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// Program belongs to a department
type Program struct {
	bun.BaseModel `bun:"table:programs,alias:prg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	DepartmentID  uuid.UUID  `bun:"department_id,notnull,type:uuid" json:"departmentId,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// StudentStatus tracks where a student is in their program
type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentGraduated StudentStatus = "graduated"
)

// Student is the profile attached to a STUDENT user
type Student struct {
	bun.BaseModel `bun:"table:students,alias:stu"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID     `bun:"user_id,notnull,unique,type:uuid" json:"userId,omitempty"`
	ProgramID     *uuid.UUID    `bun:"program_id,type:uuid" json:"programId,omitempty"`
	Status        StudentStatus `bun:"status,notnull" json:"status,omitempty"`
	JoinedAt      *time.Time    `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joinedAt,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// ProgramDuration is the number of years a program runs, guessed from its
// name: bachelor programs take three, integrated ones five, the rest four.
func ProgramDuration(programName string) int {
	name := strings.ToLower(programName)
	switch {
	case strings.Contains(name, "integrated"):
		return 5
	case strings.Contains(name, "bachelor"):
		return 3
	default:
		return 4
	}
}

// GraduationDue reports whether an active student has spent at least the
// program duration enrolled.
func (s *Student) GraduationDue(programName string, now time.Time) bool {
	if s == nil || s.JoinedAt == nil || s.Status == StudentGraduated {
		return false
	}
	years := now.Sub(*s.JoinedAt).Hours() / (24 * 365)
	return years >= float64(ProgramDuration(programName))
}

// Course is owned by a teacher, read only from this package
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:crs"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Code          string     `bun:"code" json:"code,omitempty"`
	TeacherID     *uuid.UUID `bun:"teacher_id,type:uuid" json:"teacherId,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// Models lists every table owned by this package, in creation order
func Models() []any {
	return []any{
		(*Department)(nil),
		(*User)(nil),
		(*Teacher)(nil),
		(*Program)(nil),
		(*Student)(nil),
		(*Course)(nil),
	}
}

// NormalizeEmail trims and lower cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
