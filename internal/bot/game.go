package bot

import (
	"errors"
	"fmt"
	"strings"

	"bishop-bot/internal/characters"
	"bishop-bot/internal/database"
	"bishop-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

const colorGreen = 0x2ecc71

func (h *BotHandler) roll(user *discordgo.User, expr string) reply {
	res, err := h.roller.RollWithContext(expr, nil)
	if err == nil {
		return reply{content: fmt.Sprintf("🎲 **%s** rolled `%s`: %s = **%d**", displayName(user), res.Expression, res.Breakdown, res.Total)}
	}

	// "attack 1d20+5 then 2d6+3" rolls each expression it mentions
	results := h.roller.RollText(expr)
	if len(results) == 0 {
		return errorReply("Invalid dice expression `%s`. Try something like `2d6+3` or `d20a`.", expr)
	}
	lines := []string{fmt.Sprintf("🎲 **%s** rolled:", displayName(user))}
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("`%s`: %s = **%d**", r.Expression, r.Breakdown, r.Total))
	}
	return reply{content: strings.Join(lines, "\n")}
}

func (h *BotHandler) check(user *discordgo.User, guildID, what string, characterID int64) reply {
	c, problem := h.pickCharacter(user.ID, guildID, characterID)
	if c == nil {
		return errorReply("%s", problem)
	}

	res, err := h.roller.RollWithContext(what, characters.NewSheet(c))
	if err != nil {
		return errorReply("Couldn't roll `%s`. Try `dexterity check` or `stealth skill`.", what)
	}
	return reply{content: fmt.Sprintf("🎲 **%s** (%s) rolled %s: %s = **%d**", c.Name, displayName(user), res.Expression, res.Breakdown, res.Total)}
}

// pickCharacter returns the requested character if the user owns it, or
// the user's first character in the guild. On failure the character is nil
// and the string says why.
func (h *BotHandler) pickCharacter(userID, guildID string, id int64) (*models.Character, string) {
	if id != 0 {
		c, err := h.characters.Get(id)
		if err != nil || c.PlayerID != userID {
			return nil, fmt.Sprintf("Character %d not found.", id)
		}
		return c, ""
	}
	list, err := h.characters.ListForPlayer(userID, guildID)
	if err != nil {
		h.log.WithError(err).Error("listing characters")
		return nil, "Could not load your characters."
	}
	if len(list) == 0 {
		return nil, "You don't have a character yet. Use `/character create`."
	}
	return &list[0], ""
}

func (h *BotHandler) character(user *discordgo.User, guildID string, opts []*discordgo.ApplicationCommandInteractionDataOption) reply {
	if len(opts) == 0 {
		return errorReply("Choose a subcommand.")
	}
	sub := opts[0]
	switch sub.Name {
	case "create":
		return h.createCharacter(user.ID, guildID,
			stringOption(sub.Options, "name", ""),
			characters.Options{
				CharacterClass: stringOption(sub.Options, "class", ""),
				Race:           stringOption(sub.Options, "race", ""),
				Level:          int(intOption(sub.Options, "level", 1)),
			})
	case "show":
		return h.showCharacter(user.ID, intOption(sub.Options, "id", 0))
	case "list":
		return h.listCharacters(user, guildID)
	case "delete":
		return h.deleteCharacter(user.ID, intOption(sub.Options, "id", 0))
	case "set":
		return h.setCharacterField(user.ID, intOption(sub.Options, "id", 0),
			stringOption(sub.Options, "field", ""), stringOption(sub.Options, "value", ""))
	}
	return errorReply("Unknown subcommand %q.", sub.Name)
}

func (h *BotHandler) createCharacter(userID, guildID, name string, opts characters.Options) reply {
	c, err := h.characters.Create(userID, guildID, name, opts)
	if err != nil {
		h.log.WithError(err).Error("creating character")
		return errorReply("Failed to create character.")
	}
	return reply{
		content: fmt.Sprintf("Character **%s** created with ID %d.", c.Name, c.ID),
		embed:   characterEmbed(c),
	}
}

func (h *BotHandler) showCharacter(userID string, id int64) reply {
	c, err := h.characters.Get(id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && c.PlayerID != userID) {
		return errorReply("Character %d not found.", id)
	}
	if err != nil {
		h.log.WithError(err).Error("loading character")
		return errorReply("Could not load that character.")
	}
	return reply{embed: characterEmbed(c)}
}

func (h *BotHandler) listCharacters(user *discordgo.User, guildID string) reply {
	list, err := h.characters.ListForPlayer(user.ID, guildID)
	if err != nil {
		h.log.WithError(err).Error("listing characters")
		return errorReply("Could not load your characters.")
	}
	if len(list) == 0 {
		return reply{content: "You don't have any characters yet. Use `/character create`.", ephemeral: true}
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s's Characters", displayName(user)),
		Color: colorBlue,
	}
	for i := range list {
		sheet := characters.NewSheet(&list[i])
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (ID: %d)", list[i].Name, list[i].ID),
			Value: valueOr(sheet.Summary(), "-"),
		})
	}
	return reply{embed: embed, ephemeral: true}
}

func (h *BotHandler) deleteCharacter(userID string, id int64) reply {
	c, err := h.characters.Get(id)
	if err != nil || c.PlayerID != userID {
		return errorReply("Character %d not found.", id)
	}
	if err := h.characters.Delete(id); err != nil {
		h.log.WithError(err).Error("deleting character")
		return errorReply("Failed to delete character.")
	}
	return reply{content: fmt.Sprintf("Character **%s** deleted.", c.Name), ephemeral: true}
}

func (h *BotHandler) setCharacterField(userID string, id int64, field, value string) reply {
	c, err := h.characters.Get(id)
	if err != nil || c.PlayerID != userID {
		return errorReply("Character %d not found.", id)
	}
	c, err = h.characters.SetField(id, field, value)
	if errors.Is(err, characters.ErrUnknownField) {
		return errorReply("Unknown field `%s`. Use name, class, race, background, alignment, level, experience, notes or an ability score.", field)
	}
	if err != nil {
		return errorReply("Couldn't update %s: %v", field, err)
	}
	return reply{content: fmt.Sprintf("Updated **%s**: %s = %s", c.Name, field, value), embed: characterEmbed(c), ephemeral: true}
}

func characterEmbed(c *models.Character) *discordgo.MessageEmbed {
	sheet := characters.NewSheet(c)
	embed := &discordgo.MessageEmbed{
		Title:       c.Name,
		Description: sheet.Summary(),
		Color:       colorGreen,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Character ID: %d", c.ID)},
	}
	if attrs := sheet.AttributeLines(); len(attrs) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Attributes", Value: strings.Join(attrs, "\n"), Inline: true})
	}
	if skills := sheet.ProficientSkillLines(); len(skills) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Proficient Skills", Value: strings.Join(skills, "\n"), Inline: true})
	}
	if c.Background != "" || c.Alignment != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Background",
			Value: strings.TrimSpace(fmt.Sprintf("%s %s", c.Background, c.Alignment)),
		})
	}
	if c.Notes != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Notes", Value: truncate(c.Notes, maxFieldValue)})
	}
	return embed
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
