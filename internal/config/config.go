// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. REPORTS_SERVER_PORT.
const Prefix = "REPORTS"

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Storage   StorageConfig   `envconfig:"STORAGE"`
	Scheduler SchedulerConfig `envconfig:"SCHEDULER"`
	Log       LogConfig       `envconfig:"LOG"`
	Public    PublicConfig    `envconfig:"PUBLIC"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD" default:"postgres"`
	Name     string `envconfig:"NAME" default:"postgres"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
}

// DSN renders a pgx connection URL.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	Release   bool   `envconfig:"RELEASE" default:"false"`
}

const devSecret = "default_super_secret_key"

// Secret returns the signing key, falling back to a development key outside release mode.
func (a AuthConfig) Secret() []byte {
	if a.JWTSecret == "" {
		return []byte(devSecret)
	}
	return []byte(a.JWTSecret)
}

type StorageConfig struct {
	Dir string `envconfig:"DIR" default:"/tmp/reports"`
}

type SchedulerConfig struct {
	Enabled           bool          `envconfig:"ENABLED" default:"true"`
	Interval          time.Duration `envconfig:"INTERVAL" default:"1m"`
	Workers           int           `envconfig:"WORKERS" default:"4"`
	NextRunOffset     time.Duration `envconfig:"NEXT_RUN_OFFSET" default:"24h"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"5m"`
	StaleAfter        time.Duration `envconfig:"STALE_AFTER" default:"30m"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type PublicConfig struct {
	Rate  float64 `envconfig:"RATE" default:"5"`
	Burst int     `envconfig:"BURST" default:"10"`
}

// Load reads configs/.env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Auth.Release && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("REPORTS_AUTH_JWT_SECRET is required in release mode"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler interval must be positive"))
	}
	if c.Scheduler.Workers < 1 {
		errs = append(errs, errors.New("scheduler workers must be at least 1"))
	}
	if c.Scheduler.NextRunOffset <= 0 {
		errs = append(errs, errors.New("scheduler next run offset must be positive"))
	}
	if c.Scheduler.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("generation timeout must be positive"))
	}
	if c.Scheduler.StaleAfter <= c.Scheduler.GenerationTimeout {
		errs = append(errs, errors.New("stale threshold must exceed the generation timeout"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage dir is required"))
	}
	if c.Public.Rate <= 0 || c.Public.Burst < 1 {
		errs = append(errs, errors.New("public rate limit must be positive"))
	}
	return errors.Join(errs...)
}
