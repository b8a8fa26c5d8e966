package persistence

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/goliatone/go-campus-auth/config"
)

var ErrUnsupportedDriver = goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
	WithTextCode("UNSUPPORTED_DRIVER").
	WithCode(goerrors.CodeBadRequest)

type Option func(*options)

type options struct {
	pingTimeout time.Duration
	migrate     bool
}

// WithPingTimeout bounds the connectivity check done by Open
func WithPingTimeout(d time.Duration) Option {
	return func(o *options) {
		o.pingTimeout = d
	}
}

// WithoutSchema skips table creation
func WithoutSchema() Option {
	return func(o *options) {
		o.migrate = false
	}
}

// Open connects to the configured database and makes sure the schema exists
func Open(ctx context.Context, cfg config.Persistence, opts ...Option) (*bun.DB, error) {
	o := &options{
		pingTimeout: 5 * time.Second,
		migrate:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "database is not reachable").
			WithMetadata(map[string]any{
				"driver": cfg.Driver,
			})
	}

	if o.migrate {
		if err := auth.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create schema")
		}
	}

	return db, nil
}

func open(cfg config.Persistence) (*bun.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// sqlite serializes writers, a single connection keeps transactions from
		// tripping over "database is locked"
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case config.DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open postgres database")
		}
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(25)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, withDriver(ErrUnsupportedDriver, cfg.Driver)
	}
}

func withDriver(base *goerrors.Error, driver string) error {
	err := base.Clone()
	err.Source = base
	return err.WithMetadata(map[string]any{
		"driver": driver,
	})
}
