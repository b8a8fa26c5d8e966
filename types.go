package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetAuthScheme() string
	GetTokenLookup() string
	GetContextKey() string
	GetPasswordCost() int
}

// TokenService issues and validates identity tokens
type TokenService interface {
	TokenValidator
	Issue(userID string, role UserRole) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// AccountService is the set of operations exposed to transports
type AccountService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	SelfRegister(ctx context.Context, msg RegisterTeacherMessage) (*User, error)
	AdminCreate(ctx context.Context, token string, msg CreateTeacherMessage) (*User, error)
	AdminApprove(ctx context.Context, token string, msg ApproveTeacherMessage) (*ApprovalResult, error)
	AdminDelete(ctx context.Context, token string, userID string) error
	GetOwnProfile(ctx context.Context, token string) (*TeacherProfile, error)
	ListTeachers(ctx context.Context, token string) ([]TeacherListing, error)
}

// CatalogService exposes the administrative department and program records
type CatalogService interface {
	ListDepartments(ctx context.Context, token string) ([]DepartmentSummary, error)
	CreateDepartment(ctx context.Context, token string, msg CreateDepartmentMessage) (*Department, error)
	DeleteDepartment(ctx context.Context, token string, id string) error
	ListPrograms(ctx context.Context, token string) ([]*Program, error)
	CreateProgram(ctx context.Context, token string, msg CreateProgramMessage) (*Program, error)
	DeleteProgram(ctx context.Context, token string, id string) error
	Stats(ctx context.Context, token string) (*Stats, error)
}

// StudentService exposes the administrative student records and the
// student's own profile
type StudentService interface {
	ListStudents(ctx context.Context, token string) (*StudentRoster, error)
	UpdateStudent(ctx context.Context, token string, id string, msg UpdateStudentMessage) (*StudentListing, error)
	DeleteStudent(ctx context.Context, token string, id string) error
	GetOwnStudentProfile(ctx context.Context, token string) (*StudentProfile, error)
}

// LoginResult is what a successful login hands back to the client
type LoginResult struct {
	Token       string    `json:"token"`
	Role        UserRole  `json:"role"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	RedirectURL string    `json:"redirectUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TrainingStatus is the state of a training job
type TrainingStatus string

const (
	TrainingPending   TrainingStatus = "pending"
	TrainingRunning   TrainingStatus = "running"
	TrainingSucceeded TrainingStatus = "succeeded"
	TrainingFailed    TrainingStatus = "failed"
)

// TrainingJob is one run of the model training command
type TrainingJob struct {
	ID          string         `json:"id"`
	Status      TrainingStatus `json:"status"`
	RequestedBy string         `json:"requestedBy"`
	Output      string         `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
}

// TrainingService runs training jobs outside the request path
type TrainingService interface {
	Trigger(ctx context.Context, requestedBy string) (*TrainingJob, error)
	Status(ctx context.Context, jobID string) (*TrainingJob, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// NopLogger discards everything, handy in tests
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
