package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/spf13/viper"
)

// Settings is the process configuration, read from the environment.
type Settings struct {
	Port    string `validate:"required"`
	GinMode string `validate:"oneof=debug release test"`

	DBDriver    string `validate:"oneof=postgres sqlite"`
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DBTimezone  string
	DBPath      string `validate:"required_if=DBDriver sqlite"`

	JWTSecret     string        `validate:"required,min=16"`
	TokenTTL      time.Duration `validate:"gt=0"`
	SessionSecret string        `validate:"required,min=16"`
	SecureCookies bool

	CacheSize int           `validate:"gt=0"`
	CacheTTL  time.Duration `validate:"gt=0"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	RedisTTL      time.Duration `validate:"gte=0"`

	StopRadiusMeters float64 `validate:"gt=0"`
	CORSOrigins      []string

	LogFile   string
	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogStdout bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "campus_bus")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_PATH", "campus_bus.db")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("CACHE_SIZE", 1024)
	v.SetDefault("CACHE_TTL", 30*time.Second)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TTL", 24*time.Hour)
	v.SetDefault("STOP_RADIUS_METERS", 150.0)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_FILE", "./logs/app.log")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_STDOUT", true)
}

// Load reads .env (if present) and the environment into Settings.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on env vars")
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.AutomaticEnv()

	s := &Settings{
		Port:             v.GetString("PORT"),
		GinMode:          v.GetString("GIN_MODE"),
		DBDriver:         strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		DBHost:           v.GetString("DB_HOST"),
		DBPort:           v.GetString("DB_PORT"),
		DBUser:           v.GetString("DB_USER"),
		DBPassword:       v.GetString("DB_PASSWORD"),
		DBName:           v.GetString("DB_NAME"),
		DBSSLMode:        v.GetString("DB_SSLMODE"),
		DBTimezone:       v.GetString("DB_TIMEZONE"),
		DBPath:           v.GetString("DB_PATH"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		SessionSecret:    v.GetString("SESSION_SECRET"),
		SecureCookies:    v.GetBool("SECURE_COOKIES"),
		CacheSize:        v.GetInt("CACHE_SIZE"),
		CacheTTL:         v.GetDuration("CACHE_TTL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		RedisTTL:         v.GetDuration("REDIS_TTL"),
		StopRadiusMeters: v.GetFloat64("STOP_RADIUS_METERS"),
		CORSOrigins:      splitList(v.GetString("CORS_ORIGINS")),
		LogFile:          v.GetString("LOG_FILE"),
		LogLevel:         strings.ToLower(v.GetString("LOG_LEVEL")),
		LogStdout:        v.GetBool("LOG_STDOUT"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// placeholderSecrets are the sample values shipped in .env.example.
var placeholderSecrets = map[string]bool{
	"change-me-jwt-secret-key": true,
	"change-me-session-secret": true,
}

// Validate checks the struct tags on Settings. JWT_SECRET and SESSION_SECRET
// have no defaults, and release mode refuses the sample values.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.GinMode == "release" {
		if placeholderSecrets[s.JWTSecret] {
			return fmt.Errorf("invalid settings: JWT_SECRET still holds the sample value")
		}
		if placeholderSecrets[s.SessionSecret] {
			return fmt.Errorf("invalid settings: SESSION_SECRET still holds the sample value")
		}
	}
	return nil
}

// DSN builds the postgres connection string. DATABASE_URL wins over the
// discrete DB_* variables.
func (s *Settings) DSN() (string, error) {
	if s.DatabaseURL != "" {
		dsn, err := pq.ParseURL(s.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("parse DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode, s.DBTimezone,
	), nil
}

// TestSettings returns a valid in-memory configuration.
func TestSettings() *Settings {
	return &Settings{
		Port:             "0",
		GinMode:          "test",
		DBDriver:         "sqlite",
		DBPath:           ":memory:",
		JWTSecret:        "test-jwt-secret-0123456789",
		TokenTTL:         time.Hour,
		SessionSecret:    "test-session-secret-0123456789",
		CacheSize:        64,
		CacheTTL:         time.Minute,
		StopRadiusMeters: 150,
		CORSOrigins:      []string{"*"},
		LogLevel:         "error",
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
