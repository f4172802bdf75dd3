// Package config reads process configuration from PLANNER_* environment
// variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/warp/task-planner/planning"
)

// Config covers process level configuration.
type Config struct {
	Environment string
	LogLevel    string
	HTTPBind    string
	HTTPPort    int
	DBPath      string // ":memory:" for a throwaway database

	Timezone    string
	HorizonDays int

	// Background replanning; zero disables it.
	ReplanInterval time.Duration

	AllowedOrigins []string

	// Google Calendar
	CalendarEnabled bool
	CalendarID      string
	CredentialsFile string
	TokenFile       string
	AuthPort        string
}

// Load reads environment variables, applies defaults and validates.
func Load() (*Config, error) {
	configDir := defaultConfigDir()

	cfg := &Config{
		Environment:     getEnv("PLANNER_ENV", "development"),
		LogLevel:        getEnv("PLANNER_LOG_LEVEL", ""),
		HTTPBind:        getEnv("PLANNER_HTTP_BIND", "0.0.0.0"),
		HTTPPort:        getEnvInt("PLANNER_HTTP_PORT", 8080),
		DBPath:          getEnv("PLANNER_DB_PATH", "planner.db"),
		Timezone:        getEnv("PLANNER_TIMEZONE", "Europe/Paris"),
		HorizonDays:     getEnvInt("PLANNER_HORIZON_DAYS", planning.DefaultHorizonDays),
		ReplanInterval:  getEnvDuration("PLANNER_REPLAN_INTERVAL", 0),
		AllowedOrigins:  getEnvList("PLANNER_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		CalendarEnabled: getEnvBool("PLANNER_CALENDAR_ENABLED", false),
		CalendarID:      getEnv("PLANNER_CALENDAR_ID", "primary"),
		CredentialsFile: getEnv("PLANNER_GOOGLE_CREDENTIALS", filepath.Join(configDir, "credentials.json")),
		TokenFile:       getEnv("PLANNER_GOOGLE_TOKEN", filepath.Join(configDir, "token.json")),
		AuthPort:        getEnv("PLANNER_AUTH_PORT", "6789"),
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("PLANNER_TIMEZONE: %w", err)
	}
	if cfg.HorizonDays < 0 {
		return nil, fmt.Errorf("PLANNER_HORIZON_DAYS must be >= 0, got %d", cfg.HorizonDays)
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("PLANNER_HTTP_PORT out of range: %d", cfg.HTTPPort)
	}
	return cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "planner")
	}
	return "."
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
