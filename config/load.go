package config

import (
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-campus-auth"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// EnvPrefix prefixes every environment override, CAMPUS_AUTH__SIGNING_KEY
	// maps to auth.signing_key.
	EnvPrefix = "CAMPUS_"
)

// Defaults returns the base layer
func Defaults() map[string]any {
	return map[string]any{
		"debug":                   false,
		"server.address":          ":8080",
		"server.shutdown_timeout": "10s",
		"auth.token_expiration":   auth.DefaultTokenExpiration,
		"auth.issuer":             "campus-auth",
		"auth.auth_scheme":        "Bearer",
		"auth.token_lookup":       auth.DefaultTokenLookup,
		"auth.context_key":        auth.DefaultContextKey,
		"auth.password_cost":      10,
		"persistence.driver":      DriverSQLite,
		"persistence.dsn":         "file:campus.db?cache=shared",
		"persistence.debug":       false,
		"admin.name":              "Administrator",
		"training.timeout":        "10m",
	}
}

// Loader layers defaults, an optional file, .env, environment and flags
type Loader struct {
	envFile string
	environ func() []string
}

type LoaderOption func(*Loader)

// WithEnvFile sets the dotenv file, missing files are ignored
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) {
		l.envFile = path
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		envFile: ".env",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Flags returns the command line flag set understood by Load
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a JSON or YAML config file")
	fs.Bool("debug", false, "enable debug output")
	fs.String("server.address", ":8080", "HTTP listen address")
	fs.String("persistence.driver", DriverSQLite, "database driver: sqlite or postgres")
	fs.String("persistence.dsn", "", "database DSN")
	fs.Bool("persistence.debug", false, "log SQL queries")
	fs.String("training.command", "", "training command line")
	return fs
}

// Load parses args and returns a validated Config
func (l *Loader) Load(args []string) (*Config, error) {
	fs := Flags("campus-auth")
	if err := fs.Parse(args); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid command line flags")
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load defaults")
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !os.IsNotExist(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read env file")
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load environment")
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load flags")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration").
			WithCode(goerrors.CodeBadRequest)
	}

	return cfg, nil
}

// Load uses a default Loader
func Load(args []string) (*Config, error) {
	return NewLoader().Load(args)
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return goerrors.New("unsupported config file extension", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{
				"path": path,
			})
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
			WithMetadata(map[string]any{
				"path": path,
			})
	}
	return nil
}

// envKey turns CAMPUS_AUTH__SIGNING_KEY into auth.signing_key
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
