package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every TRIAGEBOT_ env var that Load() reads.
var allConfigKeys = []string{
	"TRIAGEBOT_GITHUB_TOKEN",
	"TRIAGEBOT_REPOS",
	"TRIAGEBOT_POLICY_DIR",
	"TRIAGEBOT_SCHEDULE",
	"TRIAGEBOT_LISTEN_ADDR",
	"TRIAGEBOT_DB_PATH",
	"TRIAGEBOT_DRY_RUN",
	"TRIAGEBOT_MAX_PARALLEL",
	"TRIAGEBOT_AUDIT_RETENTION",
	"TRIAGEBOT_LOG_LEVEL",
	"TRIAGEBOT_OPENAI_API_KEY",
	"TRIAGEBOT_OPENAI_MODEL",
	"TRIAGEBOT_OPENAI_BASE_URL",
	"TRIAGEBOT_ENV_FILE",
}

// isolateConfigEnv saves and unsets all TRIAGEBOT_ env vars so tests don't
// inherit values from the host environment, and points TRIAGEBOT_ENV_FILE at
// an empty file so no stray .env is picked up. t.Cleanup restores original values.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}

	empty := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	os.Setenv("TRIAGEBOT_ENV_FILE", empty)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("TRIAGEBOT_REPOS", "octo/widgets, octo/gadgets")
	t.Setenv("TRIAGEBOT_POLICY_DIR", "/etc/triagebot")
	t.Setenv("TRIAGEBOT_SCHEDULE", "@every 5m")
	t.Setenv("TRIAGEBOT_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("TRIAGEBOT_DB_PATH", "/tmp/test.db")
	t.Setenv("TRIAGEBOT_DRY_RUN", "true")
	t.Setenv("TRIAGEBOT_MAX_PARALLEL", "8")
	t.Setenv("TRIAGEBOT_AUDIT_RETENTION", "48h")
	t.Setenv("TRIAGEBOT_LOG_LEVEL", "debug")
	t.Setenv("TRIAGEBOT_OPENAI_API_KEY", "sk-test")
	t.Setenv("TRIAGEBOT_OPENAI_MODEL", "gpt-4o")
	t.Setenv("TRIAGEBOT_OPENAI_BASE_URL", "http://localhost:11434/v1")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, []string{"octo/widgets", "octo/gadgets"}, cfg.Repos)
	assert.Equal(t, "/etc/triagebot", cfg.PolicyDir)
	assert.Equal(t, "@every 5m", cfg.Schedule)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 8, cfg.MaxParallel)
	assert.Equal(t, 48*time.Hour, cfg.AuditRetention)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.HasClassifier())
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{}, cfg.Repos)
	assert.Equal(t, "policies", cfg.PolicyDir)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule)
	assert.True(t, cfg.ScheduleEnabled())
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "triagebot.db", cfg.DBPath)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 4, cfg.MaxParallel)
	assert.Equal(t, 720*time.Hour, cfg.AuditRetention)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.HasClassifier())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "TRIAGEBOT_GITHUB_TOKEN")
}

func TestLoad_WhitespaceToken(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "   ")

	_, err := Load()

	require.Error(t, err)
}

func TestLoad_ScheduleOff(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("TRIAGEBOT_SCHEDULE", "OFF")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.ScheduleEnabled())
}

func TestLoad_Repos(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr bool
	}{
		{name: "blanks dropped", value: "octo/widgets,, ,octo/gadgets,", want: []string{"octo/widgets", "octo/gadgets"}},
		{name: "duplicates dropped", value: "octo/widgets,Octo/Widgets", want: []string{"octo/widgets"}},
		{name: "missing slash", value: "widgets", wantErr: true},
		{name: "empty owner", value: "/widgets", wantErr: true},
		{name: "too many segments", value: "octo/widgets/extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")
			t.Setenv("TRIAGEBOT_REPOS", tt.value)

			cfg, err := Load()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "TRIAGEBOT_REPOS")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Repos)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "TRIAGEBOT_DRY_RUN", value: "sometimes"},
		{key: "TRIAGEBOT_MAX_PARALLEL", value: "0"},
		{key: "TRIAGEBOT_MAX_PARALLEL", value: "many"},
		{key: "TRIAGEBOT_AUDIT_RETENTION", value: "a week"},
		{key: "TRIAGEBOT_AUDIT_RETENTION", value: "-1h"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_AuditRetentionZeroKeepsForever(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("TRIAGEBOT_AUDIT_RETENTION", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.AuditRetention)
}

func TestLoad_EnvFile(t *testing.T) {
	isolateConfigEnv(t)

	path := filepath.Join(t.TempDir(), "triagebot.env")
	content := "TRIAGEBOT_GITHUB_TOKEN=ghp_fromfile\nTRIAGEBOT_REPOS=octo/widgets\nTRIAGEBOT_LISTEN_ADDR=127.0.0.1:7000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	os.Setenv("TRIAGEBOT_ENV_FILE", path)
	t.Setenv("TRIAGEBOT_LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_fromfile", cfg.GitHubToken)
	assert.Equal(t, []string{"octo/widgets"}, cfg.Repos)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr, "process environment wins over the file")
}

func TestLoad_EnvFileMissing(t *testing.T) {
	isolateConfigEnv(t)
	os.Setenv("TRIAGEBOT_ENV_FILE", filepath.Join(t.TempDir(), "nope.env"))
	t.Setenv("TRIAGEBOT_GITHUB_TOKEN", "ghp_test123")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.env")
}
