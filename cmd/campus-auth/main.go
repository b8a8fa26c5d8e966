package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/goliatone/go-campus-auth/config"
	"github.com/goliatone/go-campus-auth/persistence"
	"github.com/goliatone/go-campus-auth/training"
)

type App struct {
	config   *config.Config
	db       *bun.DB
	logger   *glog.BaseLogger
	accounts *auth.AccountManager
	training *training.Service
	srv      *fiber.App
}

func (a *App) GetLogger(name string) auth.Logger {
	return printfLogger{logger: a.logger.GetLogger(name)}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	app := &App{logger: lgr}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		app.GetLogger("config").Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	app.config = cfg

	if cfg.Debug {
		fmt.Println(print.MaybePrettyJSON(cfg))
	}

	if err := WithPersistence(ctx, app); err != nil {
		app.GetLogger("persistence").Error("failed to set up persistence: %v", err)
		os.Exit(1)
	}
	defer app.db.Close()

	if err := WithAccounts(ctx, app); err != nil {
		app.GetLogger("accounts").Error("failed to set up accounts: %v", err)
		os.Exit(1)
	}

	if err := WithTraining(ctx, app); err != nil {
		app.GetLogger("training").Error("failed to start training worker: %v", err)
		os.Exit(1)
	}

	WithHTTPServer(app)

	go func() {
		app.GetLogger("server").Info("listening on %s", cfg.Server.Address)
		if err := app.srv.Listen(cfg.Server.Address); err != nil {
			app.GetLogger("server").Error("server stopped: %v", err)
			cancel()
		}
	}()

	select {
	case sig := <-WaitExitSignal():
		app.GetLogger("app").Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	if err := app.srv.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		app.GetLogger("server").Error("shutdown: %v", err)
	}

	if app.training != nil {
		if err := app.training.Close(); err != nil {
			app.GetLogger("training").Error("close: %v", err)
		}
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := persistence.Open(ctx, app.config.Persistence)
	if err != nil {
		return err
	}
	app.db = db
	return nil
}

func WithAccounts(ctx context.Context, app *App) error {
	repo := auth.NewRepositoryManager(app.db)
	if err := repo.Validate(); err != nil {
		return err
	}

	tokens := auth.NewTokenServiceFromConfig(
		app.config.Auth,
		auth.WithTokenLogger(app.GetLogger("auth:tokens")),
	)

	app.accounts = auth.NewAccountManager(repo, tokens,
		auth.WithAccountLogger(app.GetLogger("auth:accounts")),
		auth.WithPasswordAuthenticator(auth.NewBcryptHasher(app.config.Auth.PasswordCost)),
	)

	if admin := app.config.Admin; admin.Enabled() {
		user, err := app.accounts.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password)
		if err != nil {
			return err
		}
		app.GetLogger("auth:accounts").Info("admin account ready: %s", user.Email)
	}

	return nil
}

func WithTraining(ctx context.Context, app *App) error {
	if app.config.Training.Command == "" {
		app.GetLogger("training").Info("no training command configured, /api/train disabled")
		return nil
	}

	svc := training.NewService(
		training.NewCommandRunner(app.config.Training.Command, app.config.Training.Timeout),
		training.WithLogger(app.GetLogger("training")),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	app.training = svc
	return nil
}

func WithHTTPServer(app *App) {
	srv := fiber.New(fiber.Config{
		AppName:               "campus-auth",
		DisableStartupMessage: !app.config.Debug,
		ErrorHandler:          auth.HTTPErrorHandler(app.GetLogger("http")),
	})

	routes := auth.NewRouteAuthenticator(
		app.accounts.Guard(),
		app.config.Auth,
		app.GetLogger("auth:http"),
	)

	opts := []auth.APIControllerOption{
		auth.WithAccountManager(app.accounts),
		auth.WithRouteAuthenticator(routes),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(app.config.Debug),
	}
	if app.training != nil {
		opts = append(opts, auth.WithTrainingService(app.training))
	}

	auth.RegisterAPIRoutes(srv, opts...)

	app.srv = srv
}

func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}

// printfLogger bridges the printf style auth.Logger onto glog
type printfLogger struct {
	logger glog.Logger
}

func (l printfLogger) Debug(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l printfLogger) Info(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l printfLogger) Warn(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l printfLogger) Error(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
