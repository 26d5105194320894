package bot

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"bishop-bot/internal/audio"
	"bishop-bot/internal/characters"
	"bishop-bot/internal/database"
	"bishop-bot/internal/dice"
	"bishop-bot/internal/voice"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuild int64 = 123456789012345678

func newTestHandler(t *testing.T) *BotHandler {
	t.Helper()
	dir := t.TempDir()
	store, err := database.Open(filepath.Join(dir, "bishop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sounds := audio.NewLibrary(filepath.Join(dir, "soundboard"))
	require.NoError(t, sounds.Scan())

	h := NewBotHandler(
		store,
		characters.NewManager(store, characters.DefaultTemplate()),
		dice.NewRoller(rand.NewPCG(1, 2)),
		sounds,
		voice.NewManager(filepath.Join(dir, "sessions"), nil, store),
		filepath.Join(dir, "backups"),
	)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestSetupWritesDefaults(t *testing.T) {
	h := newTestHandler(t)

	r := h.setup(testGuild)
	assert.Contains(t, r.content, "set up")
	assert.Equal(t, DefaultGuildSettings(), h.store.GetGuildSettings(testGuild))
}

func TestSetupKeepsExistingValues(t *testing.T) {
	h := newTestHandler(t)
	require.True(t, h.store.SaveGuildSettings(testGuild, map[string]any{"prefix": "!", "custom": "x"}))

	h.setup(testGuild)

	got := h.store.GetGuildSettings(testGuild)
	assert.Equal(t, "!", got["prefix"])
	assert.Equal(t, "x", got["custom"])
	assert.Equal(t, 0.5, got["default_volume"])
	assert.Contains(t, got, "welcome_channel")
}

func TestSettingsRequireSetup(t *testing.T) {
	h := newTestHandler(t)

	assert.Equal(t, "Please run `/setup` first.", h.settings(testGuild).content)
	assert.Equal(t, "Please run `/setup` first.", h.setSetting(testGuild, "prefix", "!").content)

	h.setup(testGuild)
	r := h.settings(testGuild)
	require.NotNil(t, r.embed)
	assert.Equal(t, "Server Settings", r.embed.Title)
	// five settings plus the help field
	require.Len(t, r.embed.Fields, 6)
	assert.Equal(t, "admin_role", r.embed.Fields[0].Name)
	assert.Equal(t, "not set", r.embed.Fields[0].Value)
}

func TestSetSettingParsesScalars(t *testing.T) {
	h := newTestHandler(t)
	h.setup(testGuild)

	r := h.setSetting(testGuild, "default_volume", "0.7")
	assert.Equal(t, "Setting updated: default_volume = 0.7", r.content)
	h.setSetting(testGuild, "voice_recognition_enabled", "false")
	h.setSetting(testGuild, "welcome_channel", "general")

	got := h.store.GetGuildSettings(testGuild)
	assert.Equal(t, 0.7, got["default_volume"])
	assert.Equal(t, false, got["voice_recognition_enabled"])
	assert.Equal(t, "general", got["welcome_channel"])
	assert.Equal(t, 0.7, guildVolume(got))

	assert.True(t, strings.HasPrefix(h.setSetting(testGuild, " ", "x").content, "❌"))
}

func TestParseSettingValue(t *testing.T) {
	cases := map[string]any{
		"true":       true,
		"0.7":        0.7,
		"42":         float64(42),
		"null":       nil,
		`"quoted"`:   "quoted",
		"plain text": "plain text",
		"[1,2]":      "[1,2]",
		`{"a":1}`:    `{"a":1}`,
		"":           "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseSettingValue(raw), "input %q", raw)
	}
}

func TestGuildVolumeFallback(t *testing.T) {
	assert.Equal(t, 0.5, guildVolume(map[string]any{}))
	assert.Equal(t, 0.5, guildVolume(map[string]any{"default_volume": "loud"}))
}

func TestBackup(t *testing.T) {
	h := newTestHandler(t)

	r := h.backup()
	want := filepath.Join(h.backupsDir, "bishop_db_20250601_120000.sqlite")
	assert.Contains(t, r.content, want)
	assert.FileExists(t, want)

	// same timestamp again refuses to overwrite
	assert.True(t, strings.HasPrefix(h.backup().content, "❌"))
}

func TestTranscriptsListing(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, "No transcripts found for this server.", h.transcripts(testGuild).content)

	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		path := filepath.Join(dir, "recording_"+string(rune('a'+i))+"_transcript.txt")
		require.True(t, h.store.SaveTranscriptMetadata(testGuild, "s", path, map[string]any{"duration": 90.4}))
	}

	r := h.transcripts(testGuild)
	require.NotNil(t, r.embed)
	assert.Equal(t, "Found 12 transcript(s) for this server.", r.embed.Description)
	require.Len(t, r.embed.Fields, maxListedTranscripts)
	assert.Equal(t, "1. recording_l_transcript.txt", r.embed.Fields[0].Name)
	assert.Contains(t, r.embed.Fields[0].Value, "Duration: 1m30s")
}

func TestReadTranscript(t *testing.T) {
	h := newTestHandler(t)
	dir := t.TempDir()

	short := filepath.Join(dir, "short_transcript.txt")
	require.NoError(t, os.WriteFile(short, []byte("We enter the crypt.\n"), 0o644))
	long := filepath.Join(dir, "long_transcript.txt")
	require.NoError(t, os.WriteFile(long, []byte(strings.Repeat("word ", 500)), 0o644))

	require.True(t, h.store.SaveTranscriptMetadata(testGuild, "s1", short, nil))
	require.True(t, h.store.SaveTranscriptMetadata(testGuild, "s2", long, nil))

	// newest first: #1 is the long one
	r := h.readTranscript(testGuild, 1)
	assert.Equal(t, "Transcript #1 - long_transcript.txt", r.content)
	require.Len(t, r.files, 1)
	assert.Equal(t, "Transcript_1.txt", r.files[0].Name)

	r = h.readTranscript(testGuild, 2)
	assert.Equal(t, "**Transcript #2 - short_transcript.txt**\n```\nWe enter the crypt.\n```", r.content)

	assert.Contains(t, h.readTranscript(testGuild, 3).content, "Choose between 1 and 2")
	assert.Contains(t, h.readTranscript(testGuild, 0).content, "Choose between 1 and 2")
}

func TestRoll(t *testing.T) {
	h := newTestHandler(t)
	user := &discordgo.User{ID: "1", Username: "ada"}

	r := h.roll(user, "2d6+3")
	assert.True(t, strings.HasPrefix(r.content, "🎲 **ada** rolled `2d6+3`: "), r.content)

	r = h.roll(user, "900d6")
	assert.True(t, r.ephemeral)
	assert.Contains(t, r.content, "Invalid dice expression")

	r = h.roll(user, "fireball")
	assert.Contains(t, r.content, "Invalid dice expression")

	r = h.roll(user, "attack 1d20+5 then 2d6+3 damage")
	lines := strings.Split(r.content, "\n")
	require.Len(t, lines, 3, r.content)
	assert.Equal(t, "🎲 **ada** rolled:", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "`1d20+5`: ") || strings.HasPrefix(lines[2], "`1d20+5`: "), r.content)
	assert.False(t, r.ephemeral)
}

func TestCharacterFlow(t *testing.T) {
	h := newTestHandler(t)
	owner := &discordgo.User{ID: "p1", Username: "ada"}
	other := &discordgo.User{ID: "p2", Username: "bob"}

	r := h.createCharacter(owner.ID, "g1", "Mira", characters.Options{CharacterClass: "Ranger", Race: "Elf", Level: 3})
	assert.Equal(t, "Character **Mira** created with ID 1.", r.content)
	require.NotNil(t, r.embed)
	assert.Equal(t, "Elf Ranger (Level 3)", r.embed.Description)

	assert.Equal(t, "Mira", h.showCharacter(owner.ID, 1).embed.Title)
	assert.Contains(t, h.showCharacter(other.ID, 1).content, "not found")
	assert.Contains(t, h.showCharacter(owner.ID, 99).content, "not found")

	list := h.listCharacters(owner, "g1")
	require.NotNil(t, list.embed)
	assert.Equal(t, "Mira (ID: 1)", list.embed.Fields[0].Name)
	assert.Contains(t, h.listCharacters(other, "g1").content, "don't have any characters")

	check := h.check(owner, "g1", "dexterity check", 0)
	assert.Contains(t, check.content, "**Mira** (ada) rolled DEXTERITY check (1d20+0)")
	assert.Contains(t, h.check(other, "g1", "dexterity check", 0).content, "don't have a character")
	assert.Contains(t, h.check(other, "g1", "dexterity check", 1).content, "Character 1 not found")

	assert.Contains(t, h.deleteCharacter(other.ID, 1).content, "not found")
	assert.Equal(t, "Character **Mira** deleted.", h.deleteCharacter(owner.ID, 1).content)
	assert.Contains(t, h.showCharacter(owner.ID, 1).content, "not found")
}

func TestCharacterSubcommandDispatch(t *testing.T) {
	h := newTestHandler(t)
	user := &discordgo.User{ID: "p1", Username: "ada"}

	opts := []*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "create",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "Tor"},
			{Name: "level", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(4)},
		},
	}}
	r := h.character(user, "g1", opts)
	require.NotNil(t, r.embed)
	assert.Equal(t, "Tor", r.embed.Title)
	assert.Equal(t, "(Level 4)", r.embed.Description)

	assert.Contains(t, h.character(user, "g1", nil).content, "Choose a subcommand")

	set := func(u *discordgo.User, field, value string) reply {
		return h.character(u, "g1", []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "set",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "id", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(1)},
				{Name: "field", Type: discordgo.ApplicationCommandOptionString, Value: field},
				{Name: "value", Type: discordgo.ApplicationCommandOptionString, Value: value},
			},
		}})
	}
	r = set(user, "level", "6")
	assert.Equal(t, "Updated **Tor**: level = 6", r.content)
	require.NotNil(t, r.embed)
	assert.Equal(t, "(Level 6)", r.embed.Description)

	assert.Contains(t, set(user, "hit_points", "9").content, "Unknown field `hit_points`")
	assert.Contains(t, set(user, "strength", "99").content, "Couldn't update strength")
	assert.Contains(t, set(&discordgo.User{ID: "p2"}, "level", "2").content, "Character 1 not found")
}

func TestSoundboardAndPlay(t *testing.T) {
	h := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.sounds.Root(), "Combat", "clash.mp3"), []byte("x"), 0o644))
	require.NoError(t, h.sounds.Scan())

	embed := h.soundboard("").embed
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "No sounds available", embed.Fields[0].Value)
	assert.Equal(t, "clash", embed.Fields[1].Value)

	only := h.soundboard("Combat").embed
	require.Len(t, only.Fields, 1)

	assert.Contains(t, h.play(testGuild, "123456789012345678", "missing", "").content, "not found in Default")
	assert.Contains(t, h.play(testGuild, "123456789012345678", "CLASH", "Combat").content, "/join")
	assert.Equal(t, "Nothing is playing.", h.stop("123456789012345678").content)
}

func TestVoiceCommandsWithoutConnection(t *testing.T) {
	h := newTestHandler(t)

	assert.Contains(t, h.leave("1").content, "not in a voice channel")
	assert.Contains(t, h.startRecording("1").content, "/join")
	assert.Contains(t, h.stopRecording("1").content, "Not recording")
}

func TestParseGuildID(t *testing.T) {
	id, err := parseGuildID("123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, testGuild, id)

	_, err = parseGuildID("abc")
	assert.Error(t, err)
}

func TestCommandsDefinitions(t *testing.T) {
	names := map[string]*discordgo.ApplicationCommand{}
	for _, c := range commands() {
		names[c.Name] = c
	}
	for _, want := range []string{"join", "leave", "record", "stoprecord", "transcripts", "readtranscript",
		"roll", "check", "character", "setup", "settings", "setsetting", "backup", "play", "stop", "soundboard"} {
		assert.Contains(t, names, want)
	}
	for _, admin := range []string{"setup", "settings", "setsetting", "backup"} {
		require.NotNil(t, names[admin].DefaultMemberPermissions, admin)
		assert.Equal(t, int64(discordgo.PermissionAdministrator), *names[admin].DefaultMemberPermissions)
	}
	assert.Nil(t, names["roll"].DefaultMemberPermissions)
}

func TestInteractionUser(t *testing.T) {
	member := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "m"}},
	}}
	direct := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "u"}}}

	assert.Equal(t, "m", interactionUser(member).ID)
	assert.Equal(t, "u", interactionUser(direct).ID)
	assert.Equal(t, "Gwen", displayName(&discordgo.User{Username: "gwen", GlobalName: "Gwen"}))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijkl", 10))

	long := strings.Repeat("é", 600)
	got := truncate(long, maxFieldValue)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxFieldValue)
	assert.True(t, strings.HasSuffix(got, "é..."))
}
