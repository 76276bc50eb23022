// Package config loads the service configuration from defaults, an optional YAML
// file and MOVIES_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables read by Load. MOVIES_AUTH_SECRET maps to auth.secret.
const EnvPrefix = "MOVIES_"

// DevSecret is the fallback signing secret. It is only fit for local development.
const DevSecret = "dev-only-movie-catalog-secret-change-me-please"

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	Auth     AuthConfig     `koanf:"auth"`
	Admin    AdminConfig    `koanf:"admin"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Postgres PostgresConfig `koanf:"postgres"`
	Log      LogConfig      `koanf:"log"`
}

type HTTPConfig struct {
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type GRPCConfig struct {
	Enabled bool   `koanf:"enabled"`
	Port    string `koanf:"port"`
}

type AuthConfig struct {
	Secret        string        `koanf:"secret"`
	Algorithm     string        `koanf:"algorithm"`
	TokenDuration time.Duration `koanf:"tokenduration"`
	Issuer        string        `koanf:"issuer"`
	// GuardWrites extends the bearer guard from GET /movies to create, update and delete.
	GuardWrites bool `koanf:"guardwrites"`
}

// AdminConfig is the single identity allowed to log in and list the catalog.
type AdminConfig struct {
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
}

type CatalogConfig struct {
	Backend  string `koanf:"backend"`
	Path     string `koanf:"path"`
	Document string `koanf:"document"`
}

type PostgresConfig struct {
	URL          string `koanf:"url"`
	CreateSchema bool   `koanf:"createschema"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"port":         "8000",
			"readtimeout":  5 * time.Second,
			"writetimeout": 10 * time.Second,
			"idletimeout":  120 * time.Second,
		},
		"grpc": map[string]any{
			"enabled": true,
			"port":    "9000",
		},
		"auth": map[string]any{
			"secret":        DevSecret,
			"algorithm":     "HS256",
			"tokenduration": 24 * time.Hour,
			"issuer":        "movie-catalog",
			"guardwrites":   false,
		},
		"admin": map[string]any{
			"email":    "admin@gmail.com",
			"password": "admin",
		},
		"catalog": map[string]any{
			"backend":  BackendFile,
			"path":     "movies.json",
			"document": "movies",
		},
		"postgres": map[string]any{
			"url":          "",
			"createschema": true,
		},
		"log": map[string]any{
			"level": "info",
		},
	}
}

// mapProvider feeds an in-memory nested map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// Load builds a Config. path may be empty, in which case only defaults and environment apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("auth.algorithm %q is not one of HS256, HS384, HS512", c.Auth.Algorithm))
	}
	if c.Auth.TokenDuration <= 0 {
		errs = append(errs, errors.New("auth.tokenduration must be positive"))
	}
	if c.Admin.Email == "" || c.Admin.Password == "" {
		errs = append(errs, errors.New("admin.email and admin.password are required"))
	}
	switch c.Catalog.Backend {
	case BackendFile:
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for the file backend"))
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres backend"))
		}
		if c.Catalog.Document == "" {
			errs = append(errs, errors.New("catalog.document is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("catalog.backend %q is not one of file, postgres, memory", c.Catalog.Backend))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http.port is required"))
	}
	if c.GRPC.Enabled && c.GRPC.Port == "" {
		errs = append(errs, errors.New("grpc.port is required when grpc is enabled"))
	}
	return errors.Join(errs...)
}

// UsesDevSecret reports whether the signing secret is still the built-in development value.
func (c *Config) UsesDevSecret() bool {
	return c.Auth.Secret == DevSecret
}
