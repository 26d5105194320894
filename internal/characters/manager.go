package characters

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"bishop-bot/internal/logging"
	"bishop-bot/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Store is the persistence the manager needs; *database.Store satisfies it.
type Store interface {
	CreateCharacter(c *models.Character) error
	GetCharacter(id int64) (*models.Character, error)
	ListCharacters(playerID, guildID string) ([]models.Character, error)
	UpdateCharacter(c *models.Character) error
	DeleteCharacter(id int64) error
}

// Options are the optional fields of a new character.
type Options struct {
	CharacterClass string
	Race           string
	Background     string
	Alignment      string
	Level          int
	Experience     int
	Attributes     map[string]int
	Skills         map[string]models.Skill
	Inventory      map[string]any
	Spells         map[string]any
	Features       map[string]any
	Notes          string
}

type Manager struct {
	store    Store
	template Template
	log      *log.Entry
}

func NewManager(store Store, tpl Template) *Manager {
	return &Manager{
		store:    store,
		template: tpl,
		log:      logging.Component("characters"),
	}
}

// Create stores a new character, filling attributes and skills from the
// template when opts leaves them empty.
func (m *Manager) Create(playerID, guildID, name string, opts Options) (*models.Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unnamed Character"
	}
	level := opts.Level
	if level < 1 {
		level = 1
	}

	attributes := opts.Attributes
	if len(attributes) == 0 {
		attributes = copyMap(m.template.Attributes)
	}
	skills := opts.Skills
	if len(skills) == 0 {
		skills = copyMap(m.template.Skills)
	}

	c := &models.Character{
		PlayerID:       playerID,
		GuildID:        guildID,
		Name:           name,
		CharacterClass: opts.CharacterClass,
		Race:           opts.Race,
		Background:     opts.Background,
		Alignment:      opts.Alignment,
		Level:          level,
		Experience:     opts.Experience,
		Attributes:     datatypes.NewJSONType(attributes),
		Skills:         datatypes.NewJSONType(skills),
		Inventory:      datatypes.NewJSONType(orEmpty(opts.Inventory)),
		Spells:         datatypes.NewJSONType(orEmpty(opts.Spells)),
		Features:       datatypes.NewJSONType(orEmpty(opts.Features)),
		Notes:          opts.Notes,
	}
	if err := m.store.CreateCharacter(c); err != nil {
		return nil, err
	}

	m.log.WithFields(log.Fields{"player_id": playerID, "character_id": c.ID}).Infof("created character %q", name)
	return c, nil
}

func (m *Manager) Get(id int64) (*models.Character, error) {
	return m.store.GetCharacter(id)
}

// ListForPlayer lists a player's characters; empty guildID means every guild.
func (m *Manager) ListForPlayer(playerID, guildID string) ([]models.Character, error) {
	return m.store.ListCharacters(playerID, guildID)
}

func (m *Manager) Update(c *models.Character) error {
	if err := m.store.UpdateCharacter(c); err != nil {
		return err
	}
	m.log.WithField("character_id", c.ID).Infof("updated character %q", c.Name)
	return nil
}

// ErrUnknownField is returned by SetField for a field it cannot edit.
var ErrUnknownField = errors.New("unknown character field")

// SetField changes one field of a stored character. Besides the plain
// text fields and level/experience, field may name an ability score.
func (m *Manager) SetField(id int64, field, value string) (*models.Character, error) {
	c, err := m.store.GetCharacter(id)
	if err != nil {
		return nil, err
	}
	if err := applyField(c, strings.ToLower(strings.TrimSpace(field)), strings.TrimSpace(value)); err != nil {
		return nil, err
	}
	if err := m.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

func applyField(c *models.Character, field, value string) error {
	switch field {
	case "name":
		if value == "" {
			return fmt.Errorf("name cannot be empty")
		}
		c.Name = value
	case "class", "character_class":
		c.CharacterClass = value
	case "race":
		c.Race = value
	case "background":
		c.Background = value
	case "alignment":
		c.Alignment = value
	case "notes":
		c.Notes = value
	case "level":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 20 {
			return fmt.Errorf("level must be a number from 1 to 20")
		}
		c.Level = n
	case "experience", "xp":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("experience must be a non-negative number")
		}
		c.Experience = n
	default:
		attrs := copyMap(c.Attributes.Data())
		if _, ok := attrs[field]; !ok {
			return fmt.Errorf("%w %q", ErrUnknownField, field)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 30 {
			return fmt.Errorf("%s must be a score from 1 to 30", field)
		}
		attrs[field] = n
		c.Attributes = datatypes.NewJSONType(attrs)
	}
	return nil
}

func (m *Manager) Delete(id int64) error {
	if err := m.store.DeleteCharacter(id); err != nil {
		return err
	}
	m.log.WithField("character_id", id).Info("deleted character")
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Export writes the character as indented JSON into dir and returns the path.
func (m *Manager) Export(id int64, dir string) (string, error) {
	c, err := m.store.GetCharacter(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode character %d: %w", id, err)
	}

	safeName := strings.Trim(unsafeFileChars.ReplaceAllString(c.Name, "_"), "_")
	path := filepath.Join(dir, fmt.Sprintf("character_%s_%d.json", safeName, c.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}

// Import creates a new character for playerID in guildID from an exported
// JSON file. The file's id, owner and guild are ignored.
func (m *Manager) Import(playerID, guildID, path string) (*models.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import %s: %w", path, err)
	}

	var c models.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse import %s: %w", path, err)
	}

	name := c.Name
	if strings.TrimSpace(name) == "" {
		name = "Imported Character"
	}
	return m.Create(playerID, guildID, name, Options{
		CharacterClass: c.CharacterClass,
		Race:           c.Race,
		Background:     c.Background,
		Alignment:      c.Alignment,
		Level:          c.Level,
		Experience:     c.Experience,
		Attributes:     c.Attributes.Data(),
		Skills:         c.Skills.Data(),
		Inventory:      c.Inventory.Data(),
		Spells:         c.Spells.Data(),
		Features:       c.Features.Data(),
		Notes:          c.Notes,
	})
}

func copyMap[V any](src map[string]V) map[string]V {
	out := make(map[string]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
