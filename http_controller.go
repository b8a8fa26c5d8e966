package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// RegisterAPIRoutes mounts the JSON API on app
func RegisterAPIRoutes(app fiber.Router, opts ...APIControllerOption) *APIController {
	controller := NewAPIController(opts...)
	routes := controller.Routes

	app.Post(routes.Login, controller.LoginPost).Name("auth.login")
	app.Post(routes.RegisterTeacher, controller.RegisterTeacherPost).Name("auth.register-teacher")

	admin := app.Group(routes.AdminPrefix, controller.Auther.ProtectedRoute(RoleAdmin))
	admin.Post("/create-teacher", controller.CreateTeacherPost).Name("admin.create-teacher")
	admin.Post("/approve-teacher", controller.ApproveTeacherPost).Name("admin.approve-teacher")
	admin.Get("/teachers", controller.TeachersList).Name("admin.teachers.list")
	admin.Delete("/teachers", controller.TeacherDelete).Name("admin.teachers.delete-body")
	admin.Delete("/teachers/:id", controller.TeacherDelete).Name("admin.teachers.delete")
	admin.Get("/departments", controller.DepartmentsList).Name("admin.departments.list")
	admin.Post("/departments", controller.DepartmentCreate).Name("admin.departments.create")
	admin.Delete("/departments/:id", controller.DepartmentDelete).Name("admin.departments.delete")
	admin.Get("/programs", controller.ProgramsList).Name("admin.programs.list")
	admin.Post("/programs", controller.ProgramCreate).Name("admin.programs.create")
	admin.Delete("/programs/:id", controller.ProgramDelete).Name("admin.programs.delete")
	admin.Get("/stats", controller.StatsShow).Name("admin.stats")

	app.Get(routes.TeacherProfile, controller.Auther.ProtectedRoute(), controller.TeacherProfileShow).
		Name("teacher.me")

	if controller.Students != nil {
		admin.Get("/students", controller.StudentsList).Name("admin.students.list")
		admin.Patch("/students/:id", controller.StudentUpdate).Name("admin.students.update")
		admin.Delete("/students/:id", controller.StudentDelete).Name("admin.students.delete")

		app.Get(routes.StudentProfile, controller.Auther.ProtectedRoute(), controller.StudentProfileShow).
			Name("student.me")
	}

	if controller.Training != nil {
		train := app.Group(routes.Training, controller.Auther.ProtectedRoute(RoleAdmin))
		train.Post("/", controller.TrainingTrigger).Name("train.trigger")
		train.Get("/:id", controller.TrainingStatus).Name("train.status")
	}

	return controller
}

type APIControllerRoutes struct {
	Login           string
	RegisterTeacher string
	AdminPrefix     string
	TeacherProfile  string
	StudentProfile  string
	Training        string
}

type APIController struct {
	Debug    bool
	Logger   Logger
	Accounts AccountService
	Catalog  CatalogService
	Students StudentService
	Training TrainingService
	Auther   *RouteAuthenticator
	Routes   *APIControllerRoutes
}

type APIControllerOption func(*APIController) *APIController

func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

// WithAccountManager sets the account, catalog and student services
func WithAccountManager(m *AccountManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Accounts = m
		c.Catalog = m
		c.Students = m
		return c
	}
}

func WithAccountService(s AccountService) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Accounts = s
		return c
	}
}

func WithCatalogService(s CatalogService) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Catalog = s
		return c
	}
}

func WithStudentService(s StudentService) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Students = s
		return c
	}
}

func WithTrainingService(s TrainingService) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Training = s
		return c
	}
}

func WithRouteAuthenticator(a *RouteAuthenticator) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Auther = a
		return c
	}
}

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Routes: &APIControllerRoutes{
			Login:           "/api/auth/login",
			RegisterTeacher: "/api/auth/register-teacher",
			AdminPrefix:     "/api/admin",
			TeacherProfile:  "/api/teacher/me",
			StudentProfile:  "/api/student/me",
			Training:        "/api/train",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing AccountService in api controller...")
	}

	if c.Catalog == nil {
		panic("Missing CatalogService in api controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in api controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (a *APIController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	if a.Debug {
		// never dump the password
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(LoginRequest{Email: payload.Email}))
		fmt.Println("=========================")
	}

	res, err := a.Accounts.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(res)
}

func (a *APIController) RegisterTeacherPost(c *fiber.Ctx) error {
	payload := new(RegisterTeacherMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	user, err := a.Accounts.SelfRegister(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration received, waiting for approval",
		"user":    user,
	})
}

func (a *APIController) CreateTeacherPost(c *fiber.Ctx) error {
	payload := new(CreateTeacherMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	user, err := a.Accounts.AdminCreate(c.UserContext(), a.Auther.Token(c), *payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher created",
		"user":    user,
	})
}

func (a *APIController) ApproveTeacherPost(c *fiber.Ctx) error {
	payload := new(ApproveTeacherMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	res, err := a.Accounts.AdminApprove(c.UserContext(), a.Auther.Token(c), *payload)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":    "Teacher approved",
		"teacher":    res.Teacher,
		"transition": res.Transition,
	})
}

func (a *APIController) TeachersList(c *fiber.Ctx) error {
	out, err := a.Accounts.ListTeachers(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

type deleteTeacherPayload struct {
	ID     string `json:"id" form:"id"`
	UserID string `json:"userId" form:"userId"`
}

func (a *APIController) TeacherDelete(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		payload := new(deleteTeacherPayload)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(payload); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
			}
		}
		id = payload.ID
		if id == "" {
			id = payload.UserID
		}
	}

	if err := a.Accounts.AdminDelete(c.UserContext(), a.Auther.Token(c), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Teacher deleted",
	})
}

func (a *APIController) TeacherProfileShow(c *fiber.Ctx) error {
	profile, err := a.Accounts.GetOwnProfile(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (a *APIController) DepartmentsList(c *fiber.Ctx) error {
	out, err := a.Catalog.ListDepartments(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (a *APIController) DepartmentCreate(c *fiber.Ctx) error {
	payload := new(CreateDepartmentMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	dep, err := a.Catalog.CreateDepartment(c.UserContext(), a.Auther.Token(c), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dep)
}

func (a *APIController) DepartmentDelete(c *fiber.Ctx) error {
	if err := a.Catalog.DeleteDepartment(c.UserContext(), a.Auther.Token(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Department deleted",
	})
}

func (a *APIController) ProgramsList(c *fiber.Ctx) error {
	out, err := a.Catalog.ListPrograms(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (a *APIController) ProgramCreate(c *fiber.Ctx) error {
	payload := new(CreateProgramMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	program, err := a.Catalog.CreateProgram(c.UserContext(), a.Auther.Token(c), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(program)
}

func (a *APIController) ProgramDelete(c *fiber.Ctx) error {
	if err := a.Catalog.DeleteProgram(c.UserContext(), a.Auther.Token(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Program deleted",
	})
}

func (a *APIController) StudentsList(c *fiber.Ctx) error {
	roster, err := a.Students.ListStudents(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(roster)
}

func (a *APIController) StudentUpdate(c *fiber.Ctx) error {
	payload := new(UpdateStudentMessage)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse body")
	}

	student, err := a.Students.UpdateStudent(c.UserContext(), a.Auther.Token(c), c.Params("id"), *payload)
	if err != nil {
		return err
	}
	return c.JSON(student)
}

func (a *APIController) StudentDelete(c *fiber.Ctx) error {
	if err := a.Students.DeleteStudent(c.UserContext(), a.Auther.Token(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (a *APIController) StudentProfileShow(c *fiber.Ctx) error {
	profile, err := a.Students.GetOwnStudentProfile(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (a *APIController) StatsShow(c *fiber.Ctx) error {
	stats, err := a.Catalog.Stats(c.UserContext(), a.Auther.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (a *APIController) TrainingTrigger(c *fiber.Ctx) error {
	requestedBy := ""
	if claims, ok := GetFiberClaims(c, a.Auther.contextKey); ok {
		requestedBy = claims.UserID()
	}

	job, err := a.Training.Trigger(c.UserContext(), requestedBy)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(job)
}

func (a *APIController) TrainingStatus(c *fiber.Ctx) error {
	job, err := a.Training.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(job)
}
