package database

import (
	"encoding/json"
	"time"

	"bishop-bot/internal/models"
)

// TranscriptRecord is one entry of a guild's transcript ledger.
//
// RawMetadata always holds the stored JSON text. Metadata is its decoded
// form, or nil when the stored text does not decode to an object.
type TranscriptRecord struct {
	ID          int64
	GuildID     int64
	SessionID   string
	FilePath    string
	CreatedAt   time.Time
	Metadata    map[string]any
	RawMetadata string
}

// SaveTranscriptMetadata appends a ledger row stamped with the current time.
func (s *Store) SaveTranscriptMetadata(guildID int64, sessionID, filePath string, metadata map[string]any) bool {
	entry := s.log.WithField("guild_id", guildID).WithField("session_id", sessionID)

	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		entry.WithError(err).Error("encode transcript metadata failed")
		return false
	}

	row := models.Transcript{
		GuildID:   guildID,
		SessionID: sessionID,
		FilePath:  filePath,
		CreatedAt: s.now().UTC(),
		Metadata:  string(encoded),
	}
	if err := s.db.Create(&row).Error; err != nil {
		entry.WithError(err).Error("save transcript metadata failed")
		return false
	}
	return true
}

// GetTranscripts lists the guild's ledger, most recent first.
func (s *Store) GetTranscripts(guildID int64) []TranscriptRecord {
	entry := s.log.WithField("guild_id", guildID)

	var rows []models.Transcript
	err := s.db.Where("guild_id = ?", guildID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		entry.WithError(err).Error("get transcripts failed")
		return []TranscriptRecord{}
	}

	records := make([]TranscriptRecord, 0, len(rows))
	for _, row := range rows {
		rec := TranscriptRecord{
			ID:          row.ID,
			GuildID:     row.GuildID,
			SessionID:   row.SessionID,
			FilePath:    row.FilePath,
			CreatedAt:   row.CreatedAt,
			RawMetadata: row.Metadata,
		}
		if row.Metadata != "" {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(row.Metadata), &decoded); err != nil {
				entry.WithError(err).WithField("id", row.ID).Warn("transcript metadata is not valid JSON")
			} else {
				rec.Metadata = decoded
			}
		}
		records = append(records, rec)
	}
	return records
}
