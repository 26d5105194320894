package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(envMap(nil))

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "bishop.db"), cfg.DBPath)
	assert.Equal(t, DefaultTemplatePath, cfg.TemplatePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, filepath.Join("data", "audio", "soundboard"), cfg.SoundboardDir())
	assert.Equal(t, filepath.Join("data", "voice", "sessions"), cfg.SessionsDir())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"DISCORD_TOKEN":   " token ",
		"OPENAI_API_KEY":  "sk-test",
		"BISHOP_DATA_DIR": "/srv/bishop",
		"LOG_LEVEL":       "DEBUG",
		"LOG_FILE":        "/var/log/bishop.log",
	}))

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, filepath.Join("/srv/bishop", "bishop.db"), cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/log/bishop.log", cfg.LogFile)
	assert.Equal(t, filepath.Join("/srv/bishop", "backups"), cfg.BackupsDir())
}

func TestFromEnvExplicitDBPath(t *testing.T) {
	cfg := FromEnv(envMap(map[string]string{
		"BISHOP_DATA_DIR": "/srv/bishop",
		"BISHOP_DB_PATH":  "/tmp/other.db",
	}))
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BISHOP_TEMPLATE_PATH=/tmp/tpl.yaml\n"), 0o644))
	t.Setenv("BISHOP_TEMPLATE_PATH", "")
	os.Unsetenv("BISHOP_TEMPLATE_PATH")

	cfg, loaded := Load(envFile)
	assert.True(t, loaded)
	assert.Equal(t, "/tmp/tpl.yaml", cfg.TemplatePath)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, loaded := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.False(t, loaded)
}
