// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
//
// VARIABLES (default in parentheses):
//
//	PORT                  listen port (8080)
//	DB_DRIVER             sqlite | postgres (sqlite)
//	DB_PATH               SQLite file, or ":memory:" (data/travelboard.db)
//	DATABASE_URL          Postgres DSN, required for postgres
//	SESSION_SECRET        cookie signing key, 16+ chars (random per process)
//	SESSION_TTL           default session lifetime (168h)
//	REMEMBER_TTL          remember-me lifetime (720h)
//	BCRYPT_COST           bcrypt work factor (12)
//	COOKIE_SECURE         mark cookies Secure, for HTTPS (false)
//	CORS_ORIGINS          comma-separated allowed origins (http://localhost:8080)
//	MAX_BODY_BYTES        request body limit (1048576)
//	LOG_LEVEL             debug | info | warn | error (info)
//	LOG_FORMAT            text | json (text)
//	GITHUB_CLIENT_ID      enables GitHub sign-in together with the secret
//	GITHUB_CLIENT_SECRET
//	GITHUB_CALLBACK_URL   (http://localhost:8080/api/auth/github/callback)
//	RABBITMQ_URL          publish activity to RabbitMQ; empty logs instead
//	ACTIVITY_QUEUE        queue name (travelboard.activity)
//
// PRECEDENCE:
// A variable set in the environment wins over the same key in .env. That
// lets a deployment override one setting without editing the file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 16

// Config holds every setting. Zero values are never used directly: Load
// fills defaults.
type Config struct {
	Port string

	// DBDriver is "sqlite" (default) or "postgres".
	DBDriver    string
	DBPath      string
	DatabaseURL string

	// SessionSecret signs the session cookie. When SESSION_SECRET is unset a
	// random per-process secret is generated and SessionSecretGenerated is
	// set; sessions then do not survive a restart.
	SessionSecret          string
	SessionSecretGenerated bool
	SessionTTL             time.Duration
	RememberTTL            time.Duration
	BcryptCost             int
	CookieSecure           bool

	CORSOrigins  []string
	MaxBodyBytes int64

	LogLevel  string
	LogFormat string

	GitHub GitHubConfig

	// RabbitMQURL enables publishing activity events; empty means log only.
	RabbitMQURL   string
	ActivityQueue string
}

// GitHubConfig holds the OAuth App credentials. Register the app at
// https://github.com/settings/developers; its callback URL must equal
// CallbackURL exactly.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// DSN is the data source for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Load reads envFile (or ./.env when envFile is empty and the file exists)
// into the process environment without overriding variables already set,
// then builds the Config. All problems are reported together.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	var problems []string
	p := parser{problems: &problems}

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:        getEnv("DB_PATH", "data/travelboard.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    p.duration("SESSION_TTL", 7*24*time.Hour),
		RememberTTL:   p.duration("REMEMBER_TTL", 30*24*time.Hour),
		BcryptCost:    p.integer("BCRYPT_COST", 12),
		CookieSecure:  p.boolean("COOKIE_SECURE", false),
		CORSOrigins:   splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8080")),
		MaxBodyBytes:  int64(p.integer("MAX_BODY_BYTES", 1<<20)),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
		GitHub: GitHubConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", "http://localhost:8080/api/auth/github/callback"),
		},
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		ActivityQueue: getEnv("ACTIVITY_QUEUE", "travelboard.activity"),
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver))
	}

	switch {
	case cfg.SessionSecret == "":
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionSecret = secret
		cfg.SessionSecretGenerated = true
	case len(cfg.SessionSecret) < minSecretLength:
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d characters", minSecretLength))
	}

	if _, ok := levels[cfg.LogLevel]; !ok {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat))
	}
	if cfg.MaxBodyBytes <= 0 {
		problems = append(problems, "MAX_BODY_BYTES must be positive")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel onto slog; unknown values read as info.
func (c Config) SlogLevel() slog.Level {
	if l, ok := levels[c.LogLevel]; ok {
		return l
	}
	return slog.LevelInfo
}

// parser accumulates conversion problems instead of failing on the first.
type parser struct {
	problems *[]string
}

// duration parses Go duration syntax ("30m", "168h"). Zero and negative
// values are rejected.
func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*p.problems = append(*p.problems, fmt.Sprintf("%s must be a positive duration like 168h, got %q", key, v))
		return fallback
	}
	return d
}

func (p parser) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.problems = append(*p.problems, fmt.Sprintf("%s must be an integer, got %q", key, v))
		return fallback
	}
	return n
}

func (p parser) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.problems = append(*p.problems, fmt.Sprintf("%s must be true or false, got %q", key, v))
		return fallback
	}
	return b
}

// getEnv returns the value of key, or fallback if unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// randomSecret returns 32 random bytes, hex encoded.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
