// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultDataDir      = "data"
	DefaultDBFile       = "bishop.db"
	DefaultTemplatePath = "config/templates/dnd5e_character.yaml"
	DefaultLogLevel     = "info"
)

// Config holds everything the bot and bishopctl read from the environment.
type Config struct {
	DiscordToken  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	DataDir      string
	DBPath       string
	TemplatePath string

	LogLevel string
	LogFile  string
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (*Config, bool) {
	loaded := godotenv.Load(envFiles...) == nil
	return FromEnv(os.Getenv), loaded
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) *Config {
	cfg := &Config{
		DiscordToken:  strings.TrimSpace(getenv("DISCORD_TOKEN")),
		OpenAIAPIKey:  strings.TrimSpace(getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimSpace(getenv("OPENAI_BASE_URL")),
		DataDir:       valueOr(getenv("BISHOP_DATA_DIR"), DefaultDataDir),
		TemplatePath:  valueOr(getenv("BISHOP_TEMPLATE_PATH"), DefaultTemplatePath),
		LogLevel:      strings.ToLower(valueOr(getenv("LOG_LEVEL"), DefaultLogLevel)),
		LogFile:       strings.TrimSpace(getenv("LOG_FILE")),
	}
	cfg.DBPath = valueOr(getenv("BISHOP_DB_PATH"), filepath.Join(cfg.DataDir, DefaultDBFile))
	return cfg
}

// SoundboardDir is where soundboard categories live.
func (c *Config) SoundboardDir() string {
	return filepath.Join(c.DataDir, "audio", "soundboard")
}

// SessionsDir is the root for voice recording sessions.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "voice", "sessions")
}

// ExportsDir is where character exports are written.
func (c *Config) ExportsDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// BackupsDir is where /backup writes database copies.
func (c *Config) BackupsDir() string {
	return filepath.Join(c.DataDir, "backups")
}

func valueOr(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
