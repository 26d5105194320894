package database

import (
	"errors"
	"fmt"

	"bishop-bot/internal/models"

	"gorm.io/gorm"
)

// CreateCharacter inserts c and fills in its ID.
func (s *Store) CreateCharacter(c *models.Character) error {
	c.ID = 0
	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("create character %q: %w", c.Name, err)
	}
	return nil
}

func (s *Store) GetCharacter(id int64) (*models.Character, error) {
	var c models.Character
	err := s.db.First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get character %d: %w", id, err)
	}
	return &c, nil
}

// ListCharacters returns a player's characters ordered by id. An empty
// guildID lists across all guilds.
func (s *Store) ListCharacters(playerID, guildID string) ([]models.Character, error) {
	query := s.db.Where("player_id = ?", playerID)
	if guildID != "" {
		query = query.Where("guild_id = ?", guildID)
	}

	var characters []models.Character
	if err := query.Order("id ASC").Find(&characters).Error; err != nil {
		return nil, fmt.Errorf("list characters for %s: %w", playerID, err)
	}
	return characters, nil
}

// UpdateCharacter writes every field of c back to its row.
func (s *Store) UpdateCharacter(c *models.Character) error {
	if c.ID == 0 {
		return fmt.Errorf("update character %q: missing id", c.Name)
	}
	res := s.db.Model(c).Select("*").Omit("id", "created_at").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("update character %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCharacter(id int64) error {
	res := s.db.Delete(&models.Character{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete character %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
