// Package config provides application configuration loaded from environment
// variables and an optional config.toml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds the connection settings. Driver is "postgres" or
// "sqlite"; for sqlite only Path is used.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string
	Dev        bool
	Migrations bool
	Seed       bool

	// AdminEmail and AdminPassword seed the first platform admin.
	AdminEmail    string
	AdminPassword string

	// OverviewConcurrency bounds the per-partner fan-out of the admin overview.
	OverviewConcurrency int
	// Location names the time zone month boundaries are computed in.
	Location string
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// RedisConfig is optional. With an empty Addr logout revocation is disabled
// and public rate limiting falls back to an in-process counter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// PublicRateLimit is the number of public requests allowed per IP per minute.
	PublicRateLimit int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type LogConfig struct {
	Level string
}

// DSN returns the PostgreSQL connection string in key=value format, or the
// file path for sqlite.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("server_read_timeout", 15)
	v.SetDefault("server_write_timeout", 15)
	v.SetDefault("server_idle_timeout", 60)

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "partners")
	v.SetDefault("db_password", "partners123")
	v.SetDefault("db_name", "partners")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "partners.db")

	v.SetDefault("app_env", "development")
	v.SetDefault("dev", true)
	v.SetDefault("migrations", false)
	v.SetDefault("db_seed", false)
	v.SetDefault("admin_email", "admin@example.com")
	v.SetDefault("admin_password", "")
	v.SetDefault("overview_concurrency", 8)
	v.SetDefault("timezone", "UTC")

	v.SetDefault("jwt_secret", "dev-secret-change-me")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("jwt_issuer", "go-partners")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("public_rate_limit", 60)

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "proposals")
	v.SetDefault("minio_use_ssl", false)

	v.SetDefault("log_level", "info")
}

// Load reads configuration. Environment variables win over config.toml, which
// wins over the built-in defaults suited to local development.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("port"),
			ReadTimeout:  v.GetInt("server_read_timeout"),
			WriteTimeout: v.GetInt("server_write_timeout"),
			IdleTimeout:  v.GetInt("server_idle_timeout"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("db_driver")),
			Host:     v.GetString("db_host"),
			Port:     v.GetInt("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
			Path:     v.GetString("db_path"),
		},
		App: AppConfig{
			Env:                 v.GetString("app_env"),
			Dev:                 v.GetBool("dev"),
			Migrations:          v.GetBool("migrations"),
			Seed:                v.GetBool("db_seed"),
			AdminEmail:          v.GetString("admin_email"),
			AdminPassword:       v.GetString("admin_password"),
			OverviewConcurrency: v.GetInt("overview_concurrency"),
			Location:            v.GetString("timezone"),
		},
		Auth: AuthConfig{
			Secret:   v.GetString("jwt_secret"),
			TokenTTL: v.GetDuration("jwt_ttl"),
			Issuer:   v.GetString("jwt_issuer"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),

			PublicRateLimit: v.GetInt("public_rate_limit"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("minio_endpoint"),
			AccessKey: v.GetString("minio_access_key"),
			SecretKey: v.GetString("minio_secret_key"),
			Bucket:    v.GetString("minio_bucket"),
			UseSSL:    v.GetBool("minio_use_ssl"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if !c.App.Dev && c.Auth.Secret == "dev-secret-change-me" {
		return errors.New("JWT_SECRET must be set outside development")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid JWT_TTL %s", c.Auth.TokenTTL)
	}
	if _, err := time.LoadLocation(c.App.Location); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return nil
}

// LoadLocation returns the configured time zone.
func (a AppConfig) LoadLocation() *time.Location {
	loc, err := time.LoadLocation(a.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
