// Package config loads medsysd settings from defaults, an optional YAML
// file, command-line flags and a couple of secret-bearing environment
// variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"medsys.org/internal/auth"
	"medsys.org/internal/httpapi"
)

// Environment variables that override file and flag values.
const (
	EnvSigningKey = "MEDSYS_JWT_SIGNING_KEY"
	EnvPGDSN      = "MEDSYS_PG_DSN"
)

type Config struct {
	Service  ServiceConfig    `koanf:"service"`
	Log      LogConfig        `koanf:"log"`
	HTTP     HTTPConfig       `koanf:"http"`
	GRPC     GRPCConfig       `koanf:"grpc"`
	Postgres PostgresConfig   `koanf:"postgres"`
	JWT      auth.TokenConfig `koanf:"jwt"`
	Auth     AuthConfig       `koanf:"auth"`
}

type ServiceConfig struct {
	Name string `koanf:"name"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	LoginRate         float64       `koanf:"login_rate"`
	LoginBurst        int           `koanf:"login_burst"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For
	// header is believed when keying the login rate limit.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type GRPCConfig struct {
	Addr     string         `koanf:"addr"`
	Policies []MethodPolicy `koanf:"policies"`
}

// MethodPolicy requires Roles, a comma-separated AND list, on a full method
// ("/pkg.Service/Method") or a whole service ("/pkg.Service/").
type MethodPolicy struct {
	Method string `koanf:"method"`
	Roles  string `koanf:"roles"`
}

type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

type AuthConfig struct {
	// Hasher names the algorithm for new passwords: bcrypt or argon2id.
	Hasher         string `koanf:"hasher"`
	CheckIssuer    bool   `koanf:"check_issuer"`
	CheckAudience  bool   `koanf:"check_audience"`
	SeedAdminEmail string `koanf:"seed_admin_email"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "medsysd"},
		Log:     LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
			LoginRate:         5,
			LoginBurst:        10,
		},
		JWT: auth.TokenConfig{
			Issuer:                     "medsys",
			Audience:                   "medsys-clients",
			TokenValidityInMinutes:     "60",
			RefreshTokenValidityInDays: "7",
		},
		Auth: AuthConfig{Hasher: "bcrypt"},
	}
}

// RegisterFlags declares the flags Load understands. Flag names mirror the
// YAML keys.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log.format", d.Log.Format, "log format (json or text)")
	fs.String("http.addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("grpc.addr", d.GRPC.Addr, "gRPC listen address; empty disables gRPC")
	fs.String("postgres.dsn", "", "PostgreSQL DSN (env "+EnvPGDSN+")")
	fs.String("jwt.issuer", d.JWT.Issuer, "token issuer")
	fs.String("jwt.audience", d.JWT.Audience, "token audience")
	fs.String("jwt.token_validity_in_minutes", d.JWT.TokenValidityInMinutes, "token lifetime in minutes")
	fs.String("auth.hasher", d.Auth.Hasher, "password hasher for new accounts (bcrypt or argon2id)")
}

// Load resolves the configuration. fs may be nil; path may be empty.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrapf(err, "load config file")
		}
	}
	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrapf(err, "decode config")
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvSigningKey); ok && v != "" {
		cfg.JWT.SigningKey = v
	}
	if v, ok := os.LookupEnv(EnvPGDSN); ok && v != "" {
		cfg.Postgres.DSN = v
	}
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.SigningKey) == "" {
		errs = append(errs, auth.ErrMissingSecret)
	}
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres dsn is required"))
	}
	if _, err := auth.HasherFor(c.Auth.Hasher); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if _, err := httpapi.ParseTrustedProxies(c.HTTP.TrustedProxies); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.GRPC.Policies {
		if !strings.HasPrefix(p.Method, "/") || strings.Count(p.Method, "/") != 2 {
			errs = append(errs, fmt.Errorf("grpc policy method %q must look like /pkg.Service/ or /pkg.Service/Method", p.Method))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

// GRPCPolicies merges the configured method policies over defaults.
func (c Config) GRPCPolicies(defaults map[string]auth.Policy) map[string]auth.Policy {
	out := make(map[string]auth.Policy, len(defaults)+len(c.GRPC.Policies))
	for method, p := range defaults {
		out[method] = p
	}
	for _, p := range c.GRPC.Policies {
		out[p.Method] = auth.ParsePolicy(p.Roles)
	}
	return out
}

// ValidatorOptions translates the issuer/audience switches.
func (c Config) ValidatorOptions() []auth.ValidatorOption {
	var opts []auth.ValidatorOption
	if c.Auth.CheckIssuer {
		opts = append(opts, auth.WithIssuerCheck())
	}
	if c.Auth.CheckAudience {
		opts = append(opts, auth.WithAudienceCheck())
	}
	return opts
}
