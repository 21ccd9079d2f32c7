// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config loads application configuration from an optional config
// file, a .env file and BLOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	Env     string        `mapstructure:"env"` // "development", "production", "testing"
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Valkey  ValkeyConfig  `mapstructure:"valkey"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Uploads UploadsConfig `mapstructure:"uploads"`
	Search  SearchConfig  `mapstructure:"search"`
	CORS    CORSConfig    `mapstructure:"cors"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only enable it behind a reverse proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// DBConfig holds the PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ValkeyConfig holds the Valkey (Redis-compatible) connection settings.
type ValkeyConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AuthConfig holds API token and second-factor settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Require2FA bool          `mapstructure:"require_2fa"`
}

// UploadsConfig controls where media files go.
type UploadsConfig struct {
	Dir       string   `mapstructure:"dir"`
	URLPrefix string   `mapstructure:"url_prefix"`
	MaxBytes  int64    `mapstructure:"max_bytes"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config configures the optional object storage backend.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	PublicURL string `mapstructure:"public_url"`
}

// SearchConfig locates the full-text index. An empty path keeps the index
// in memory.
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

// CORSConfig lists the origins allowed to call the JSON API.
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"` // comma separated
}

const (
	defaultDBPassword = "changeme"
	defaultJWTSecret  = "dev-secret-change-me"
)

// Load reads configuration, applying development defaults. A .env file in
// the working directory is loaded first when present. Returns an error if
// critical values are left at their defaults in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/studentblog/")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DB.Password == defaultDBPassword {
			return nil, fmt.Errorf("BLOG_DB_PASSWORD must be set in production")
		}
		if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("BLOG_AUTH_JWT_SECRET must be set in production")
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "studentblog")
	v.SetDefault("db.password", defaultDBPassword)
	v.SetDefault("db.name", "studentblog")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("valkey.host", "localhost")
	v.SetDefault("valkey.port", "6379")
	v.SetDefault("valkey.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "studentblog")
	v.SetDefault("auth.require_2fa", false)

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/uploads")
	v.SetDefault("uploads.max_bytes", 10<<20)
	v.SetDefault("uploads.s3.endpoint", "")
	v.SetDefault("uploads.s3.region", "us-east-1")
	v.SetDefault("uploads.s3.access_key", "")
	v.SetDefault("uploads.s3.secret_key", "")
	v.SetDefault("uploads.s3.bucket", "studentblog-media")
	v.SetDefault("uploads.s3.public_url", "")

	v.SetDefault("search.index_path", "data/search.bleve")

	v.SetDefault("cors.allowed_origins", "*")
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// ValkeyAddr returns the Valkey address (host:port).
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.Valkey.Host, c.Valkey.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// S3Enabled reports whether media should go to object storage instead of disk.
func (c *Config) S3Enabled() bool {
	s3 := c.Uploads.S3
	return s3.Endpoint != "" && s3.AccessKey != "" && s3.SecretKey != ""
}

// AllowedOrigins splits the CORS origin list. An empty list allows all.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORS.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
