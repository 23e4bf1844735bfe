// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ScheduleOff disables the periodic sweep.
const ScheduleOff = "off"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken    string
	Repos          []string
	PolicyDir      string
	Schedule       string
	ListenAddr     string
	DBPath         string
	DryRun         bool
	MaxParallel    int
	AuditRetention time.Duration
	LogLevel       string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// HasClassifier returns true when an OpenAI API key is configured. Without
// one the engine relies on path and keyword rules alone.
func (c *Config) HasClassifier() bool {
	return c.OpenAIAPIKey != ""
}

// ScheduleEnabled reports whether periodic sweeps are configured.
func (c *Config) ScheduleEnabled() bool {
	return c.Schedule != "" && !strings.EqualFold(c.Schedule, ScheduleOff)
}

// Load reads configuration from environment variables and returns a validated Config.
//
// Variables are first read from the file named by TRIAGEBOT_ENV_FILE, or from
// ./.env when that variable is unset. Variables already present in the
// process environment take precedence over the file.
//
// TRIAGEBOT_GITHUB_TOKEN is required. Optional variables with defaults:
// TRIAGEBOT_REPOS (none), TRIAGEBOT_POLICY_DIR (policies),
// TRIAGEBOT_SCHEDULE (*/15 * * * *), TRIAGEBOT_LISTEN_ADDR (127.0.0.1:8080),
// TRIAGEBOT_DB_PATH (triagebot.db), TRIAGEBOT_DRY_RUN (false),
// TRIAGEBOT_MAX_PARALLEL (4), TRIAGEBOT_AUDIT_RETENTION (720h, 0 keeps forever),
// TRIAGEBOT_LOG_LEVEL (info), TRIAGEBOT_OPENAI_API_KEY (none),
// TRIAGEBOT_OPENAI_MODEL (gpt-4o-mini), TRIAGEBOT_OPENAI_BASE_URL (none).
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(os.Getenv("TRIAGEBOT_GITHUB_TOKEN"))
	if token == "" {
		return nil, errors.New("TRIAGEBOT_GITHUB_TOKEN is required")
	}

	repos, err := parseRepos(os.Getenv("TRIAGEBOT_REPOS"))
	if err != nil {
		return nil, err
	}

	dryRun := false
	if v, ok := os.LookupEnv("TRIAGEBOT_DRY_RUN"); ok && v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("TRIAGEBOT_DRY_RUN has invalid boolean %q: %w", v, err)
		}
	}

	maxParallel := 4
	if v, ok := os.LookupEnv("TRIAGEBOT_MAX_PARALLEL"); ok && v != "" {
		maxParallel, err = strconv.Atoi(v)
		if err != nil || maxParallel < 1 {
			return nil, fmt.Errorf("TRIAGEBOT_MAX_PARALLEL must be a positive integer, got %q", v)
		}
	}

	retention := 30 * 24 * time.Hour
	if v, ok := os.LookupEnv("TRIAGEBOT_AUDIT_RETENTION"); ok && v != "" {
		retention, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TRIAGEBOT_AUDIT_RETENTION has invalid duration %q: %w", v, err)
		}
		if retention < 0 {
			return nil, fmt.Errorf("TRIAGEBOT_AUDIT_RETENTION must not be negative, got %q", v)
		}
	}

	return &Config{
		GitHubToken:    token,
		Repos:          repos,
		PolicyDir:      envDefault("TRIAGEBOT_POLICY_DIR", "policies"),
		Schedule:       envDefault("TRIAGEBOT_SCHEDULE", "*/15 * * * *"),
		ListenAddr:     envDefault("TRIAGEBOT_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envDefault("TRIAGEBOT_DB_PATH", "triagebot.db"),
		DryRun:         dryRun,
		MaxParallel:    maxParallel,
		AuditRetention: retention,
		LogLevel:       envDefault("TRIAGEBOT_LOG_LEVEL", "info"),
		OpenAIAPIKey:   os.Getenv("TRIAGEBOT_OPENAI_API_KEY"),
		OpenAIModel:    envDefault("TRIAGEBOT_OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  os.Getenv("TRIAGEBOT_OPENAI_BASE_URL"),
	}, nil
}

// loadEnvFile loads the explicitly named env file, failing if it is absent,
// or the default .env file when it exists.
func loadEnvFile() error {
	if path := os.Getenv("TRIAGEBOT_ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// parseRepos splits a comma-separated owner/name list, dropping blanks and duplicates.
func parseRepos(v string) ([]string, error) {
	repos := []string{}
	seen := make(map[string]bool)

	for _, r := range strings.Split(v, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		owner, name, ok := strings.Cut(r, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("TRIAGEBOT_REPOS entry %q is not in owner/name format", r)
		}
		key := strings.ToLower(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		repos = append(repos, r)
	}

	return repos, nil
}

func envDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
