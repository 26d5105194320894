// internal/characters/sheet.go
package characters

import (
	"fmt"
	"sort"
	"strings"

	"bishop-bot/internal/models"
)

// Sheet adds rules math on top of a stored character.
type Sheet struct {
	*models.Character
}

func NewSheet(c *models.Character) Sheet {
	return Sheet{Character: c}
}

// AbilityModifier is floor((score - 10) / 2); unknown abilities give 0.
func (s Sheet) AbilityModifier(ability string) int {
	score, ok := s.Attributes.Data()[strings.ToLower(ability)]
	if !ok {
		return 0
	}
	return floorDiv(score-10, 2)
}

// ProficiencyBonus follows the 5e table: +2 at level 1, +1 every four levels.
func (s Sheet) ProficiencyBonus() int {
	level := s.Level
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// SkillBonus adds proficiency (doubled for expertise) to the skill's
// ability modifier. Unknown skills give 0.
func (s Sheet) SkillBonus(skill string) int {
	info, ok := s.Skills.Data()[strings.ToLower(skill)]
	if !ok {
		return 0
	}
	ability := info.Ability
	if ability == "" {
		ability = "dexterity"
	}
	modifier := s.AbilityModifier(ability)
	switch {
	case info.Expertise:
		return modifier + 2*s.ProficiencyBonus()
	case info.Proficient:
		return modifier + s.ProficiencyBonus()
	default:
		return modifier
	}
}

// Summary is the one-line race/class/level description.
func (s Sheet) Summary() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s (Level %d)", s.Race, s.CharacterClass, s.Level))
}

// AttributeLines renders "STR: 16 (+3)" style lines in a stable order.
func (s Sheet) AttributeLines() []string {
	attrs := s.Attributes.Data()
	lines := make([]string, 0, len(attrs))
	for _, name := range sortedKeys(attrs) {
		lines = append(lines, fmt.Sprintf("**%s:** %d (%s)", strings.ToUpper(name), attrs[name], signed(s.AbilityModifier(name))))
	}
	return lines
}

// ProficientSkillLines lists only proficient skills with their bonus.
func (s Sheet) ProficientSkillLines() []string {
	skills := s.Skills.Data()
	var lines []string
	for _, name := range sortedKeys(skills) {
		if !skills[name].Proficient && !skills[name].Expertise {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", titleCase(name), signed(s.SkillBonus(name))))
	}
	return lines
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func signed(v int) string {
	if v >= 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
