package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const TextCodeValidation = "VALIDATION_ERROR"

// RegisterTeacherMessage is the self registration request
type RegisterTeacherMessage struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (m RegisterTeacherMessage) Type() string { return "teacher.register" }

// Normalized returns a copy with a canonical email and trimmed name
func (m RegisterTeacherMessage) Normalized() RegisterTeacherMessage {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = NormalizeEmail(m.Email)
	return m
}

// Validate will run validation rules against the normalized payload
func (m RegisterTeacherMessage) Validate() error {
	m = m.Normalized()
	return validateMessage("invalid registration payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
			validation.Field(&m.Password, validation.Required, validation.Length(1, 200)),
		)
	})
}

// CreateTeacherMessage is the administrator create request
type CreateTeacherMessage struct {
	Name         string `json:"name" form:"name"`
	Email        string `json:"email" form:"email"`
	Password     string `json:"password" form:"password"`
	DepartmentID string `json:"departmentId" form:"departmentId"`
}

func (m CreateTeacherMessage) Type() string { return "teacher.create" }

// Normalized returns a copy with a canonical email and trimmed name
func (m CreateTeacherMessage) Normalized() CreateTeacherMessage {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = NormalizeEmail(m.Email)
	m.DepartmentID = strings.TrimSpace(m.DepartmentID)
	return m
}

// Validate checks the department first so a missing one is reported as such
func (m CreateTeacherMessage) Validate() error {
	m = m.Normalized()
	if m.DepartmentID == "" {
		return ErrMissingDepartment
	}

	return validateMessage("invalid create teacher payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&m.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
			validation.Field(&m.Password, validation.Required, validation.Length(1, 200)),
		)
	})
}

// ApproveTeacherMessage links a TEACHER user to a department
type ApproveTeacherMessage struct {
	UserID       string `json:"userId" form:"userId"`
	DepartmentID string `json:"departmentId" form:"departmentId"`
}

func (m ApproveTeacherMessage) Type() string { return "teacher.approve" }

// Validate will run validation rules
func (m ApproveTeacherMessage) Validate() error {
	if strings.TrimSpace(m.DepartmentID) == "" {
		return ErrMissingDepartment
	}

	return validateMessage("invalid approve teacher payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.UserID, validation.Required),
		)
	})
}

// CreateDepartmentMessage creates a department
type CreateDepartmentMessage struct {
	Name string `json:"name" form:"name"`
}

func (m CreateDepartmentMessage) Type() string { return "department.create" }

// Validate will run validation rules
func (m CreateDepartmentMessage) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	return validateMessage("invalid department payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		)
	})
}

// CreateProgramMessage creates a program inside a department
type CreateProgramMessage struct {
	Name         string `json:"name" form:"name"`
	DepartmentID string `json:"departmentId" form:"departmentId"`
}

func (m CreateProgramMessage) Type() string { return "program.create" }

// Validate will run validation rules
func (m CreateProgramMessage) Validate() error {
	if strings.TrimSpace(m.DepartmentID) == "" {
		return ErrMissingDepartment
	}

	m.Name = strings.TrimSpace(m.Name)
	return validateMessage("invalid program payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		)
	})
}

// UpdateStudentMessage edits a student. Empty fields are left untouched.
type UpdateStudentMessage struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	ProgramID string `json:"programId" form:"programId"`
}

func (m UpdateStudentMessage) Type() string { return "student.update" }

// Normalized returns a copy with a canonical email and trimmed fields
func (m UpdateStudentMessage) Normalized() UpdateStudentMessage {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = NormalizeEmail(m.Email)
	m.ProgramID = strings.TrimSpace(m.ProgramID)
	return m
}

// Validate will run validation rules
func (m UpdateStudentMessage) Validate() error {
	m = m.Normalized()
	return validateMessage("invalid update student payload", func() error {
		return validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Length(1, 200)),
			validation.Field(&m.Email, validation.Length(3, 254), is.EmailFormat),
		)
	})
}

func validateMessage(message string, fn func() error) error {
	if err := goerrors.ValidateWithOzzo(fn, message); err != nil {
		return err.
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// parseID turns a path or body identifier into a uuid, reporting notFound
// for anything that could never match a stored record.
func parseID(raw string, notFound *goerrors.Error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, withMetadata(notFound, map[string]any{
			"id": raw,
		})
	}
	return id, nil
}
