// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-this-in-production"

type Config struct {
	Port    string `mapstructure:"PORT"`
	Env     string `mapstructure:"APP_ENV"`
	GinMode string `mapstructure:"GIN_MODE"`

	MongoURI string `mapstructure:"MONGODB_URI"`
	MongoDB  string `mapstructure:"MONGODB_DATABASE"`
	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
	ResetTTL     time.Duration `mapstructure:"RESET_TTL"`
	ResetURLBase string        `mapstructure:"RESET_URL_BASE"`

	CloudinaryURL          string `mapstructure:"CLOUDINARY_URL"`
	CloudinaryFolder       string `mapstructure:"CLOUDINARY_FOLDER"`
	CloudinaryUploadPreset string `mapstructure:"CLOUDINARY_UPLOAD_PRESET"`

	VAPIDPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `mapstructure:"VAPID_EMAIL"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	AllowedOrigins     string `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

var keys = []string{
	"PORT", "APP_ENV", "GIN_MODE",
	"MONGODB_URI", "MONGODB_DATABASE", "REDIS_URL",
	"JWT_SECRET", "TOKEN_TTL", "RESET_TTL", "RESET_URL_BASE",
	"CLOUDINARY_URL", "CLOUDINARY_FOLDER", "CLOUDINARY_UPLOAD_PRESET",
	"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_EMAIL",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
	"ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("📄 Loaded .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	// AutomaticEnv only answers Get calls; Unmarshal needs every key bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("MONGODB_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGODB_DATABASE", "scribe")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("RESET_TTL", time.Hour)
	v.SetDefault("RESET_URL_BASE", "http://localhost:5173/reset-password")
	v.SetDefault("CLOUDINARY_FOLDER", "scribe/blogs")
	v.SetDefault("VAPID_EMAIL", "admin@scribe.local")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/google/callback")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@scribe.local")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate ensures required values are present, with stricter checks in production.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.ResetTTL <= 0 {
		return errors.New("RESET_TTL must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("⚠️  ALLOWED_ORIGINS is set to '*' in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("⚠️  JWT_SECRET is shorter than 32 characters, use a stronger secret in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
