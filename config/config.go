package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	auth "github.com/goliatone/go-campus-auth"
)

// Config is the application configuration
type Config struct {
	Debug       bool        `koanf:"debug" json:"debug"`
	Server      Server      `koanf:"server" json:"server"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Admin       Admin       `koanf:"admin" json:"admin"`
	Training    Training    `koanf:"training" json:"training"`
}

type Server struct {
	Address         string        `koanf:"address" json:"address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type Auth struct {
	SigningKey      string   `koanf:"signing_key" json:"-"`
	TokenExpiration int      `koanf:"token_expiration" json:"token_expiration"`
	Issuer          string   `koanf:"issuer" json:"issuer"`
	Audience        []string `koanf:"audience" json:"audience"`
	AuthScheme      string   `koanf:"auth_scheme" json:"auth_scheme"`
	TokenLookup     string   `koanf:"token_lookup" json:"token_lookup"`
	ContextKey      string   `koanf:"context_key" json:"context_key"`
	PasswordCost    int      `koanf:"password_cost" json:"password_cost"`
}

var _ auth.Config = Auth{}

func (a Auth) GetSigningKey() string   { return a.SigningKey }
func (a Auth) GetTokenExpiration() int { return a.TokenExpiration }
func (a Auth) GetIssuer() string       { return a.Issuer }
func (a Auth) GetAudience() []string   { return a.Audience }
func (a Auth) GetAuthScheme() string   { return a.AuthScheme }
func (a Auth) GetTokenLookup() string  { return a.TokenLookup }
func (a Auth) GetContextKey() string   { return a.ContextKey }
func (a Auth) GetPasswordCost() int    { return a.PasswordCost }

type Persistence struct {
	Driver string `koanf:"driver" json:"driver"`
	DSN    string `koanf:"dsn" json:"-"`
	Debug  bool   `koanf:"debug" json:"debug"`
}

type Admin struct {
	Name     string `koanf:"name" json:"name"`
	Email    string `koanf:"email" json:"email"`
	Password string `koanf:"password" json:"-"`
}

// Enabled reports whether a bootstrap admin is configured
func (a Admin) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

type Training struct {
	Command string        `koanf:"command" json:"command"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Auth),
		validation.Field(&c.Persistence),
		validation.Field(&c.Admin),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&a.PasswordCost, validation.Min(4), validation.Max(31)),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&p.DSN, validation.Required),
	)
}

func (a Admin) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Email, is.EmailFormat),
		validation.Field(&a.Password, validation.When(strings.TrimSpace(a.Email) != "", validation.Required)),
	)
}
