// internal/models/models.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

type BotData struct {
	Key   string `gorm:"column:key;type:text;primaryKey"`
	Value string `gorm:"column:value;type:text"`
}

func (BotData) TableName() string { return "bot_data" }

type GuildSettings struct {
	GuildID   int64     `gorm:"column:guild_id;primaryKey;autoIncrement:false"`
	Settings  string    `gorm:"column:settings;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (GuildSettings) TableName() string { return "guild_settings" }

type Transcript struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	GuildID   int64     `gorm:"column:guild_id;index"`
	SessionID string    `gorm:"column:session_id;type:text"`
	FilePath  string    `gorm:"column:file_path;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp"`
	Metadata  string    `gorm:"column:metadata;type:text"`
}

func (Transcript) TableName() string { return "transcripts" }

// Skill is one entry of a character's skill list.
type Skill struct {
	Ability    string `json:"ability" yaml:"ability"`
	Proficient bool   `json:"proficient" yaml:"proficient"`
	Expertise  bool   `json:"expertise,omitempty" yaml:"expertise,omitempty"`
}

type Character struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID       string `gorm:"not null;index:idx_characters_player_guild" json:"player_id"`
	GuildID        string `gorm:"not null;index:idx_characters_player_guild" json:"guild_id"`
	Name           string `gorm:"not null" json:"name"`
	CharacterClass string `json:"character_class"`
	Level          int    `gorm:"not null;default:1" json:"level"`
	Race           string `json:"race"`
	Background     string `json:"background"`
	Alignment      string `json:"alignment"`
	Experience     int    `gorm:"not null;default:0" json:"experience"`

	Attributes datatypes.JSONType[map[string]int]   `gorm:"type:text" json:"attributes"`
	Skills     datatypes.JSONType[map[string]Skill] `gorm:"type:text" json:"skills"`
	Inventory  datatypes.JSONType[map[string]any]   `gorm:"type:text" json:"inventory"`
	Spells     datatypes.JSONType[map[string]any]   `gorm:"type:text" json:"spells"`
	Features   datatypes.JSONType[map[string]any]   `gorm:"type:text" json:"features"`

	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
