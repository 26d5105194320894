package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bishop-bot/internal/config"
	"bishop-bot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.FromEnv(func(key string) string {
		switch key {
		case "BISHOP_DATA_DIR":
			return dir
		case "BISHOP_TEMPLATE_PATH":
			return filepath.Join(dir, "template.yaml")
		}
		return ""
	})
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(cfg)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGetSet(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, cfg, "get", "greeting")
	assert.ErrorContains(t, err, `key "greeting" is not set`)

	out, err := run(t, cfg, "set", "greeting", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "greeting = hello there\n", out)

	out, err = run(t, cfg, "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello there\n", out)
}

func TestDBFlag(t *testing.T) {
	cfg := testConfig(t)
	other := filepath.Join(t.TempDir(), "other.db")

	_, err := run(t, cfg, "--db", other, "set", "k", "v")
	require.NoError(t, err)
	assert.FileExists(t, other)
	assert.NoFileExists(t, cfg.DBPath)
}

func TestGuildSetAndShow(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "guild", "show", "42")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)

	_, err = run(t, cfg, "guild", "set", "42", "default_volume", "0.8")
	require.NoError(t, err)
	_, err = run(t, cfg, "guild", "set", "42", "prefix", "!")
	require.NoError(t, err)

	out, err = run(t, cfg, "guild", "show", "42")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{"default_volume": 0.8, "prefix": "!"}, got)

	_, err = run(t, cfg, "guild", "show", "forty-two")
	assert.ErrorContains(t, err, "invalid id")
}

func TestTranscripts(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, cfg, "transcripts", "7")
	require.NoError(t, err)
	assert.Equal(t, "no transcripts\n", out)

	store, err := database.Open(cfg.DBPath)
	require.NoError(t, err)
	require.True(t, store.SaveTranscriptMetadata(7, "session_a", "/tmp/a_transcript.txt", nil))
	require.True(t, store.SaveTranscriptMetadata(7, "session_b", "/tmp/b_transcript.txt", nil))
	require.NoError(t, store.Close())

	out, err = run(t, cfg, "transcripts", "7")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "session_b")
	assert.Contains(t, lines[2], "session_a")
}

func TestBackup(t *testing.T) {
	cfg := testConfig(t)
	dest := filepath.Join(t.TempDir(), "copy.sqlite")

	out, err := run(t, cfg, "backup", dest)
	require.NoError(t, err)
	assert.Contains(t, out, dest)
	assert.FileExists(t, dest)

	_, err = run(t, cfg, "backup", dest)
	assert.ErrorContains(t, err, "already exists")
}

func TestCharacterExportImport(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "hero.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"name": "Vex", "level": 2, "character_class": "Bard"}`), 0o644))

	out, err := run(t, cfg, "character", "import", "p1", "g1", src)
	require.NoError(t, err)
	assert.Equal(t, "imported Vex as character 1\n", out)

	out, err = run(t, cfg, "character", "export", "1")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(cfg.ExportsDir(), "character_Vex_1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"character_class": "Bard"`)

	_, err = run(t, cfg, "character", "export", "99")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCharacterSet(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "hero.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"name": "Vex"}`), 0o644))
	_, err := run(t, cfg, "character", "import", "p1", "g1", src)
	require.NoError(t, err)

	out, err := run(t, cfg, "character", "set", "1", "wisdom", "14")
	require.NoError(t, err)
	assert.Equal(t, "character 1 (Vex): wisdom = 14\n", out)

	_, err = run(t, cfg, "character", "set", "1", "race", "Tiefling")
	require.NoError(t, err)

	store, err := database.Open(cfg.DBPath)
	require.NoError(t, err)
	c, err := store.GetCharacter(1)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.Equal(t, "Tiefling", c.Race)
	assert.Equal(t, 14, c.Attributes.Data()["wisdom"])

	_, err = run(t, cfg, "character", "set", "1", "speed", "30")
	assert.ErrorContains(t, err, "unknown character field")
}

func TestSoundAddAndList(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "clash.MP3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))

	out, err := run(t, cfg, "sound", "add", "swords", src, "--category", "Combat")
	require.NoError(t, err)
	dest := filepath.Join(cfg.SoundboardDir(), "Combat", "swords.mp3")
	assert.Equal(t, "added Combat/swords at "+dest+"\n", out)
	assert.FileExists(t, dest)
	assert.NoFileExists(t, cfg.DBPath, "sound commands do not open the database")

	out, err = run(t, cfg, "sound", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Combat", "swords", "swords.mp3"}, strings.Fields(lines[1]))

	_, err = run(t, cfg, "sound", "add", "notes", filepath.Join(t.TempDir(), "notes.txt"))
	assert.ErrorContains(t, err, "unsupported audio format")
}
