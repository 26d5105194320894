package bot

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const colorBlue = 0x3498db

// DefaultGuildSettings are written by /setup for keys the guild lacks.
func DefaultGuildSettings() map[string]any {
	return map[string]any{
		"prefix":                    "/",
		"welcome_channel":           nil,
		"admin_role":                nil,
		"voice_recognition_enabled": true,
		"default_volume":            0.5,
	}
}

func (h *BotHandler) setup(guildID int64) reply {
	settings := h.store.GetGuildSettings(guildID)
	added := 0
	for k, v := range DefaultGuildSettings() {
		if _, ok := settings[k]; !ok {
			settings[k] = v
			added++
		}
	}
	if added > 0 && !h.store.SaveGuildSettings(guildID, settings) {
		return errorReply("Could not save settings, try again later.")
	}
	return reply{content: "Bishop Bot set up for this server. Use `/settings` to view settings.", ephemeral: true}
}

func (h *BotHandler) settings(guildID int64) reply {
	settings := h.store.GetGuildSettings(guildID)
	if len(settings) == 0 {
		return reply{content: "Please run `/setup` first.", ephemeral: true}
	}
	return reply{embed: settingsEmbed(settings), ephemeral: true}
}

func settingsEmbed(settings map[string]any) *discordgo.MessageEmbed {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	embed := &discordgo.MessageEmbed{
		Title:       "Server Settings",
		Description: "Current settings for this server",
		Color:       colorBlue,
	}
	for _, k := range keys {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: k, Value: formatSetting(settings[k]), Inline: true})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "How to Change Settings",
		Value: "Use `/setsetting key value` to change a setting",
	})
	return embed
}

func formatSetting(v any) string {
	switch v := v.(type) {
	case nil:
		return "not set"
	case string:
		if v == "" {
			return `""`
		}
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func (h *BotHandler) setSetting(guildID int64, key, raw string) reply {
	key = strings.TrimSpace(key)
	if key == "" {
		return errorReply("Setting key cannot be empty.")
	}
	settings := h.store.GetGuildSettings(guildID)
	if len(settings) == 0 {
		return reply{content: "Please run `/setup` first.", ephemeral: true}
	}

	value := ParseSettingValue(raw)
	settings[key] = value
	if !h.store.SaveGuildSettings(guildID, settings) {
		return errorReply("Could not save the setting, try again later.")
	}
	return reply{content: fmt.Sprintf("Setting updated: %s = %s", key, formatSetting(value)), ephemeral: true}
}

// ParseSettingValue keeps JSON scalars (true, 0.7, null, "quoted") typed
// and stores anything else as the raw string.
func ParseSettingValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case nil, bool, float64, string:
		return v
	default:
		return raw
	}
}

func (h *BotHandler) backup() reply {
	dest := filepath.Join(h.backupsDir, fmt.Sprintf("bishop_db_%s.sqlite", h.now().Format("20060102_150405")))
	if err := h.store.Backup(dest); err != nil {
		h.log.WithError(err).Error("database backup")
		return errorReply("An error occurred while creating a backup.")
	}
	h.log.WithField("path", dest).Info("database backed up")
	return reply{content: fmt.Sprintf("Database backed up to `%s`", dest), ephemeral: true}
}

// guildVolume reads default_volume, falling back to 0.5.
func guildVolume(settings map[string]any) float64 {
	if v, ok := settings["default_volume"].(float64); ok {
		return v
	}
	return 0.5
}
