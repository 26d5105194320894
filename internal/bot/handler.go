// internal/bot/handler.go
package bot

import (
	"fmt"
	"strconv"
	"time"

	"bishop-bot/internal/audio"
	"bishop-bot/internal/characters"
	"bishop-bot/internal/database"
	"bishop-bot/internal/dice"
	"bishop-bot/internal/logging"
	"bishop-bot/internal/voice"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

type BotHandler struct {
	store      *database.Store
	characters *characters.Manager
	roller     *dice.Roller
	sounds     *audio.Library
	voice      *voice.Manager
	backupsDir string

	session *discordgo.Session
	now     func() time.Time
	log     *log.Entry
}

func NewBotHandler(store *database.Store, chars *characters.Manager, roller *dice.Roller, sounds *audio.Library, vm *voice.Manager, backupsDir string) *BotHandler {
	return &BotHandler{
		store:      store,
		characters: chars,
		roller:     roller,
		sounds:     sounds,
		voice:      vm,
		backupsDir: backupsDir,
		now:        time.Now,
		log:        logging.Component("bot"),
	}
}

func (h *BotHandler) SetSession(s *discordgo.Session) {
	h.session = s
	s.AddHandler(h.handleInteraction)
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		h.log.Infof("logged in as %s#%s in %d guilds", r.User.Username, r.User.Discriminator, len(r.Guilds))
	})
}

// RegisterCommands registers the global slash commands.
func (h *BotHandler) RegisterCommands() error {
	for _, cmd := range commands() {
		if _, err := h.session.ApplicationCommandCreate(h.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("error creating '%s' command: %w", cmd.Name, err)
		}
	}
	h.log.Info("slash commands registered")
	return nil
}

func (h *BotHandler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" {
		h.respond(s, i, reply{content: "Commands only work inside a server.", ephemeral: true})
		return
	}
	guildID, err := parseGuildID(i.GuildID)
	if err != nil {
		h.log.WithError(err).Warn("interaction with bad guild id")
		return
	}
	user := interactionUser(i)
	data := i.ApplicationCommandData()
	h.log.WithFields(log.Fields{"command": data.Name, "guild_id": i.GuildID, "user_id": user.ID}).Debug("interaction")

	switch data.Name {
	case "join":
		h.deferred(s, i, false, func() reply { return h.join(s, i.GuildID, user.ID) })
	case "leave":
		h.respond(s, i, h.leave(i.GuildID))
	case "record":
		h.respond(s, i, h.startRecording(i.GuildID))
	case "stoprecord":
		h.deferred(s, i, false, func() reply { return h.stopRecording(i.GuildID) })
	case "transcripts":
		h.respond(s, i, h.transcripts(guildID))
	case "readtranscript":
		h.respond(s, i, h.readTranscript(guildID, int(intOption(data.Options, "number", 0))))
	case "roll":
		h.respond(s, i, h.roll(user, stringOption(data.Options, "dice", "")))
	case "check":
		h.respond(s, i, h.check(user, i.GuildID, stringOption(data.Options, "what", ""), intOption(data.Options, "character_id", 0)))
	case "character":
		h.respond(s, i, h.character(user, i.GuildID, data.Options))
	case "setup":
		h.deferred(s, i, true, func() reply { return h.setup(guildID) })
	case "settings":
		h.respond(s, i, h.settings(guildID))
	case "setsetting":
		h.respond(s, i, h.setSetting(guildID, stringOption(data.Options, "key", ""), stringOption(data.Options, "value", "")))
	case "backup":
		h.deferred(s, i, true, h.backup)
	case "play":
		h.respond(s, i, h.play(guildID, i.GuildID, stringOption(data.Options, "sound", ""), stringOption(data.Options, "category", "Default")))
	case "stop":
		h.respond(s, i, h.stop(i.GuildID))
	case "soundboard":
		h.respond(s, i, h.soundboard(stringOption(data.Options, "category", "")))
	default:
		h.respond(s, i, reply{content: "Unknown command.", ephemeral: true})
	}
}

type reply struct {
	content   string
	embed     *discordgo.MessageEmbed
	files     []*discordgo.File
	ephemeral bool
}

func errorReply(format string, args ...any) reply {
	return reply{content: "❌ " + fmt.Sprintf(format, args...), ephemeral: true}
}

func (h *BotHandler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, r reply) {
	data := &discordgo.InteractionResponseData{Content: r.content, Files: r.files}
	if r.embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{r.embed}
	}
	if r.ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.log.WithError(err).Error("responding to interaction")
	}
}

// deferred acknowledges the interaction first, for commands that can take
// longer than Discord's three second window.
func (h *BotHandler) deferred(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool, work func() reply) {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		h.log.WithError(err).Error("responding to interaction")
		return
	}

	r := work()
	edit := &discordgo.WebhookEdit{Content: &r.content, Files: r.files}
	if r.embed != nil {
		edit.Embeds = &[]*discordgo.MessageEmbed{r.embed}
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, edit); err != nil {
		h.log.WithError(err).Error("editing interaction response")
	}
}

func parseGuildID(id string) (int64, error) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("guild id %q: %w", id, err)
	}
	return v, nil
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	if i.User != nil {
		return i.User
	}
	return &discordgo.User{}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func stringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name, fallback string) string {
	if o := findOption(opts, name); o != nil {
		return o.StringValue()
	}
	return fallback
}

func intOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int64) int64 {
	if o := findOption(opts, name); o != nil {
		return o.IntValue()
	}
	return fallback
}
