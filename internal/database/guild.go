package database

import (
	"encoding/json"
	"errors"

	"bishop-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetGuildSettings returns the guild's settings mapping. The result is an
// empty, non-nil map when nothing is stored or the row cannot be read.
func (s *Store) GetGuildSettings(guildID int64) map[string]any {
	entry := s.log.WithField("guild_id", guildID)

	var row models.GuildSettings
	err := s.db.Where("guild_id = ?", guildID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}
	}
	if err != nil {
		entry.WithError(err).Error("get guild settings failed")
		return map[string]any{}
	}

	settings := map[string]any{}
	if err := json.Unmarshal([]byte(row.Settings), &settings); err != nil {
		entry.WithError(err).Error("decode guild settings failed")
		return map[string]any{}
	}
	if settings == nil {
		return map[string]any{}
	}
	return settings
}

// SaveGuildSettings replaces the guild's settings wholesale.
func (s *Store) SaveGuildSettings(guildID int64, settings map[string]any) bool {
	entry := s.log.WithField("guild_id", guildID)

	if settings == nil {
		settings = map[string]any{}
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		entry.WithError(err).Error("encode guild settings failed")
		return false
	}

	row := models.GuildSettings{
		GuildID:   guildID,
		Settings:  string(encoded),
		UpdatedAt: s.now().UTC(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		entry.WithError(err).Error("save guild settings failed")
		return false
	}
	return true
}
