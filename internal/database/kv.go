package database

import (
	"errors"

	"bishop-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetValue returns the stored value for key. ok is false when the key has
// never been written or the read failed.
func (s *Store) GetValue(key string) (value string, ok bool) {
	var row models.BotData
	err := s.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("get value failed")
		return "", false
	}
	return row.Value, true
}

// SetValue inserts or replaces key.
func (s *Store) SetValue(key, value string) bool {
	row := models.BotData{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("set value failed")
		return false
	}
	return true
}
