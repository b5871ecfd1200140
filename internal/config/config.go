// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first if it exists; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	minJWTSecretLen = 16
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Twilio   TwilioConfig
	Email    EmailConfig
	Notify   NotifyConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            int
	PublicBaseURL   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// StorageConfig selects where uploaded images go. Dir is used by the local
// driver, the S3 fields by the s3 driver.
type StorageConfig struct {
	Driver         string
	Dir            string
	MaxUploadBytes int64

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

type TwilioConfig struct {
	SID          string
	Token        string
	WhatsAppFrom string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type NotifyConfig struct {
	Workers   int
	QueueSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	port := getIntEnv("PORT", 8080)

	return &Config{
		Server: ServerConfig{
			Port:            port,
			PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "data/articles.db"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getDurationEnv("JWT_TTL", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
			Dir:            getEnv("STORAGE_DIR", "data/storage"),
			MaxUploadBytes: getInt64Env("UPLOAD_MAX_BYTES", 5<<20),
			S3Bucket:       os.Getenv("S3_BUCKET"),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:     os.Getenv("S3_ENDPOINT"),
			S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
			S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),
		},
		Twilio: TwilioConfig{
			SID:          os.Getenv("TWILIO_SID"),
			Token:        os.Getenv("TWILIO_TOKEN"),
			WhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),
		},
		Email: EmailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			FromEmail:    os.Getenv("EMAIL_FROM"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Article API"),
		},
		Notify: NotifyConfig{
			Workers:   getIntEnv("NOTIFY_WORKERS", 2),
			QueueSize: getIntEnv("NOTIFY_QUEUE", 64),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// Validate reports the first setting that would stop the server from
// working. Missing Twilio or SMTP credentials are not errors; those
// channels fall back to logging.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen)
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Server.Port)
	}

	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return errors.New("STORAGE_DIR is required for the local driver")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %q or %q)", c.Storage.Driver, StorageLocal, StorageS3)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}

	if c.Notify.Workers < 1 {
		return errors.New("NOTIFY_WORKERS must be at least 1")
	}
	if c.Notify.QueueSize < 0 {
		return errors.New("NOTIFY_QUEUE must not be negative")
	}
	return nil
}

// TwilioConfigured reports whether WhatsApp messages can actually be sent.
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.SID != "" && c.Twilio.Token != "" && c.Twilio.WhatsAppFrom != ""
}

// EmailConfigured reports whether welcome emails can actually be sent.
func (c *Config) EmailConfigured() bool {
	return c.Email.SMTPHost != "" && c.Email.FromEmail != ""
}

// Helper functions for environment variable parsing. A value that fails to
// parse falls back to the default.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parts []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
