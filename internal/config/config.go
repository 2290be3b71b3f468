package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AttendanceConfig holds the tunables of the attendance core: the status
// thresholds, the mandatory per-call store timeout and the stale-session
// sweeper settings.
type AttendanceConfig struct {
	PresentThreshold   time.Duration
	HalfDayThreshold   time.Duration
	StoreTimeout       time.Duration
	StaleSessionMaxAge time.Duration
	SweepInterval      time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine in deployed environments; real env vars win.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clockwise-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Attendance configuration
	attendance := AttendanceConfig{}
	for _, item := range []struct {
		dst      *time.Duration
		key      string
		fallback string
	}{
		{&attendance.PresentThreshold, "ATTENDANCE_PRESENT_THRESHOLD", "9h"},
		{&attendance.HalfDayThreshold, "ATTENDANCE_HALFDAY_THRESHOLD", "4h"},
		{&attendance.StoreTimeout, "ATTENDANCE_STORE_TIMEOUT", "20s"},
		{&attendance.StaleSessionMaxAge, "ATTENDANCE_STALE_SESSION_MAX_AGE", "16h"},
		{&attendance.SweepInterval, "ATTENDANCE_SWEEP_INTERVAL", "30m"},
	} {
		d, err := time.ParseDuration(getEnv(item.key, item.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", item.key, err)
		}
		*item.dst = d
	}
	config.Attendance = attendance

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.HalfDayThreshold > c.Attendance.PresentThreshold {
		return fmt.Errorf("ATTENDANCE_HALFDAY_THRESHOLD must not exceed ATTENDANCE_PRESENT_THRESHOLD")
	}
	if c.Attendance.StoreTimeout <= 0 {
		return fmt.Errorf("ATTENDANCE_STORE_TIMEOUT must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
