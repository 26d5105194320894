package bot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"bishop-bot/internal/audio"
	"bishop-bot/internal/database"
	"bishop-bot/internal/voice"

	"github.com/bwmarrin/discordgo"
)

const (
	maxListedTranscripts = 10
	maxInlineTranscript  = 1900
	maxFieldValue        = 1024
)

func (h *BotHandler) join(s *discordgo.Session, guildID, userID string) reply {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return errorReply("Could not find this server.")
	}

	var channelID string
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			channelID = vs.ChannelID
			break
		}
	}
	if channelID == "" {
		return errorReply("You need to be in a voice channel first!")
	}

	if err := h.voice.Join(s, guildID, channelID); err != nil {
		h.log.WithError(err).Error("joining voice channel")
		return errorReply("Error joining voice channel: %v", err)
	}
	return reply{content: fmt.Sprintf("🎤 Joined <#%s>. Use `/record` to start transcribing.", channelID)}
}

func (h *BotHandler) leave(guildID string) reply {
	if err := h.voice.Leave(guildID); err != nil {
		return errorReply("I'm not in a voice channel.")
	}
	return reply{content: "👋 Left voice channel!"}
}

func (h *BotHandler) startRecording(guildID string) reply {
	sessionID, err := h.voice.StartRecording(guildID)
	switch {
	case errors.Is(err, voice.ErrNotConnected):
		return errorReply("I need to be in a voice channel first. Use `/join`.")
	case errors.Is(err, voice.ErrAlreadyRecording):
		return errorReply("Already recording in this server.")
	case err != nil:
		h.log.WithError(err).Error("starting recording")
		return errorReply("Could not start recording.")
	}
	return reply{content: fmt.Sprintf("🔴 Recording started (session `%s`). Use `/stoprecord` when done.", sessionID)}
}

func (h *BotHandler) stopRecording(guildID string) reply {
	rec, err := h.voice.StopRecording(guildID)
	if err != nil {
		if errors.Is(err, voice.ErrNotRecording) || errors.Is(err, voice.ErrNotConnected) {
			return errorReply("Not recording in this server.")
		}
		h.log.WithError(err).Error("stopping recording")
		return errorReply("Could not stop recording.")
	}
	return reply{content: fmt.Sprintf("⏹️ Recording stopped after %s. The transcript will show up in `/transcripts` once processed.",
		rec.Duration.Round(time.Second))}
}

func (h *BotHandler) transcripts(guildID int64) reply {
	records := h.store.GetTranscripts(guildID)
	if len(records) == 0 {
		return reply{content: "No transcripts found for this server.", ephemeral: true}
	}
	return reply{embed: transcriptsEmbed(records)}
}

func transcriptsEmbed(records []database.TranscriptRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Available Transcripts",
		Description: fmt.Sprintf("Found %d transcript(s) for this server.", len(records)),
		Color:       colorBlue,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use /readtranscript <number> to read a transcript"},
	}
	for n, rec := range records {
		if n == maxListedTranscripts {
			break
		}
		value := fmt.Sprintf("Date: %s\nSession: %s", rec.CreatedAt.Format(time.DateTime), rec.SessionID)
		if secs, ok := rec.Metadata["duration"].(float64); ok {
			value += fmt.Sprintf("\nDuration: %s", time.Duration(secs*float64(time.Second)).Round(time.Second))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%d. %s", n+1, filepath.Base(rec.FilePath)),
			Value: value,
		})
	}
	return embed
}

func (h *BotHandler) readTranscript(guildID int64, number int) reply {
	records := h.store.GetTranscripts(guildID)
	if len(records) == 0 {
		return reply{content: "No transcripts found for this server.", ephemeral: true}
	}
	if number < 1 || number > len(records) {
		return errorReply("Invalid transcript number. Choose between 1 and %d.", len(records))
	}

	rec := records[number-1]
	content, err := os.ReadFile(rec.FilePath)
	if err != nil {
		h.log.WithError(err).WithField("path", rec.FilePath).Warn("reading transcript")
		return errorReply("Failed to read transcript.")
	}

	title := fmt.Sprintf("Transcript #%d - %s", number, filepath.Base(rec.FilePath))
	if len(content) > maxInlineTranscript {
		return reply{
			content: title,
			files: []*discordgo.File{{
				Name:        fmt.Sprintf("Transcript_%d.txt", number),
				ContentType: "text/plain",
				Reader:      bytes.NewReader(content),
			}},
		}
	}
	return reply{content: fmt.Sprintf("**%s**\n```\n%s\n```", title, strings.TrimSpace(string(content)))}
}

func (h *BotHandler) play(guildID int64, discordGuildID, name, category string) reply {
	if category == "" {
		category = "Default"
	}
	track, err := h.sounds.Find(category, name)
	if err != nil {
		return errorReply("Sound `%s` not found in %s.", name, category)
	}
	volume := guildVolume(h.store.GetGuildSettings(guildID))
	if err := h.voice.Play(discordGuildID, track.Path, volume); err != nil {
		if errors.Is(err, voice.ErrNotConnected) {
			return errorReply("I need to be in a voice channel first. Use `/join`.")
		}
		h.log.WithError(err).Error("playing sound")
		return errorReply("Could not play that sound.")
	}
	return reply{content: fmt.Sprintf("🔊 Playing **%s** (%s)", track.Name, track.Category)}
}

func (h *BotHandler) stop(guildID string) reply {
	if !h.voice.StopPlayback(guildID) {
		return reply{content: "Nothing is playing.", ephemeral: true}
	}
	return reply{content: "⏹️ Stopped playback."}
}

// soundboard rescans first so sounds added with bishopctl show up.
func (h *BotHandler) soundboard(category string) reply {
	if err := h.sounds.Scan(); err != nil {
		h.log.WithError(err).Warn("soundboard rescan")
	}
	return reply{embed: soundboardEmbed(h.sounds, category), ephemeral: true}
}

func soundboardEmbed(lib *audio.Library, only string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "Soundboard",
		Color:  colorBlue,
		Footer: &discordgo.MessageEmbedFooter{Text: "Use /play <sound> [category] to play a sound"},
	}
	for _, c := range lib.Categories() {
		if only != "" && c != only {
			continue
		}
		tracks := lib.Tracks(c)
		value := "No sounds available"
		if len(tracks) > 0 {
			names := make([]string, len(tracks))
			for i, t := range tracks {
				names[i] = t.Name
			}
			value = truncate(strings.Join(names, ", "), maxFieldValue)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: c, Value: value})
	}
	return embed
}

// truncate cuts s to at most limit bytes on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
