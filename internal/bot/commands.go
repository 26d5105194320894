package bot

import (
	"bishop-bot/internal/audio"

	"github.com/bwmarrin/discordgo"
)

var adminPermission int64 = discordgo.PermissionAdministrator

func categoryChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(audio.DefaultCategories))
	for _, c := range audio.DefaultCategories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c, Value: c})
	}
	return choices
}

func commands() []*discordgo.ApplicationCommand {
	minOne := float64(1)
	return []*discordgo.ApplicationCommand{
		{Name: "join", Description: "Join your current voice channel"},
		{Name: "leave", Description: "Leave the current voice channel"},
		{Name: "record", Description: "Start recording the voice channel for transcription"},
		{Name: "stoprecord", Description: "Stop recording and transcribe the session"},
		{Name: "transcripts", Description: "List this server's session transcripts"},
		{
			Name:        "readtranscript",
			Description: "Read a transcript by number",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "number",
				Description: "The transcript number from /transcripts",
				Required:    true,
				MinValue:    &minOne,
			}},
		},
		{
			Name:        "roll",
			Description: "Roll dice (e.g. 2d6+3, d20a+5, 4d6k3)",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "dice",
				Description: "Dice expression",
				Required:    true,
			}},
		},
		{
			Name:        "check",
			Description: "Roll a check with your character's modifiers",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "what",
					Description: `e.g. "dexterity check" or "stealth skill"`,
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "character_id",
					Description: "Character to use (defaults to your first)",
				},
			},
		},
		{
			Name:        "character",
			Description: "Manage your characters",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create a new character",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Character name", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "class", Description: "Character class"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "race", Description: "Character race"},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "level", Description: "Starting level", MinValue: &minOne},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show a character sheet",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Character ID from /character list", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List your characters",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete one of your characters",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Character ID", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change one field of your character",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Character ID", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "field", Description: "e.g. level, race, notes or strength", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "value", Description: "New value", Required: true},
					},
				},
			},
		},
		{Name: "setup", Description: "Set up the bot for this server", DefaultMemberPermissions: &adminPermission},
		{Name: "settings", Description: "Show this server's bot settings", DefaultMemberPermissions: &adminPermission},
		{
			Name:                     "setsetting",
			Description:              "Change a bot setting",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Setting key", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "value", Description: "Setting value", Required: true},
			},
		},
		{Name: "backup", Description: "Back up the bot database", DefaultMemberPermissions: &adminPermission},
		{
			Name:        "play",
			Description: "Play a sound from the soundboard",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "sound", Description: "Sound name", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Sound category", Choices: categoryChoices()},
			},
		},
		{Name: "stop", Description: "Stop audio playback"},
		{
			Name:        "soundboard",
			Description: "Show available sounds",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "category", Description: "Sound category", Choices: categoryChoices()},
			},
		},
	}
}
