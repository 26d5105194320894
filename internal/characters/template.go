package characters

import (
	"fmt"
	"os"
	"path/filepath"

	"bishop-bot/internal/models"

	"gopkg.in/yaml.v3"
)

// Template holds the defaults applied to new characters.
type Template struct {
	Attributes map[string]int          `yaml:"attributes"`
	Skills     map[string]models.Skill `yaml:"skills"`
}

// DefaultTemplate is the D&D 5e baseline: every ability at 10 and the
// eighteen standard skills, none proficient.
func DefaultTemplate() Template {
	skill := func(ability string) models.Skill { return models.Skill{Ability: ability} }
	return Template{
		Attributes: map[string]int{
			"strength":     10,
			"dexterity":    10,
			"constitution": 10,
			"intelligence": 10,
			"wisdom":       10,
			"charisma":     10,
		},
		Skills: map[string]models.Skill{
			"acrobatics":      skill("dexterity"),
			"animal handling": skill("wisdom"),
			"arcana":          skill("intelligence"),
			"athletics":       skill("strength"),
			"deception":       skill("charisma"),
			"history":         skill("intelligence"),
			"insight":         skill("wisdom"),
			"intimidation":    skill("charisma"),
			"investigation":   skill("intelligence"),
			"medicine":        skill("wisdom"),
			"nature":          skill("intelligence"),
			"perception":      skill("wisdom"),
			"performance":     skill("charisma"),
			"persuasion":      skill("charisma"),
			"religion":        skill("intelligence"),
			"sleight of hand": skill("dexterity"),
			"stealth":         skill("dexterity"),
			"survival":        skill("wisdom"),
		},
	}
}

// LoadTemplate reads the YAML template at path, writing the default
// template there first when the file does not exist.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		tpl := DefaultTemplate()
		if err := writeTemplate(path, tpl); err != nil {
			return Template{}, err
		}
		return tpl, nil
	}
	if err != nil {
		return Template{}, fmt.Errorf("read template %s: %w", path, err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	return tpl, nil
}

func writeTemplate(path string, tpl Template) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	data, err := yaml.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write template %s: %w", path, err)
	}
	return nil
}
