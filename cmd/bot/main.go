// cmd/bot/main.go
package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"bishop-bot/internal/ai"
	"bishop-bot/internal/audio"
	"bishop-bot/internal/bot"
	"bishop-bot/internal/characters"
	"bishop-bot/internal/config"
	"bishop-bot/internal/database"
	"bishop-bot/internal/dice"
	"bishop-bot/internal/logging"
	"bishop-bot/internal/voice"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, loaded := config.Load()

	logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()
	if !loaded {
		log.Info("No .env file found, using environment")
	}
	if cfg.DiscordToken == "" {
		log.Fatal("DISCORD_TOKEN is not set")
	}

	// Initialize database
	store, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	tpl, err := characters.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		log.Fatalf("Failed to load character template: %v", err)
	}

	sounds := audio.NewLibrary(cfg.SoundboardDir())
	if err := sounds.Scan(); err != nil {
		log.WithError(err).Warn("Soundboard scan failed")
	} else {
		log.WithFields(log.Fields{"root": sounds.Root(), "categories": len(sounds.Categories())}).Info("Soundboard loaded")
	}

	var transcriber voice.Transcriber
	if cfg.OpenAIAPIKey != "" {
		transcriber = ai.NewService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	} else {
		log.Warn("OPENAI_API_KEY is not set, recordings will not be transcribed")
	}
	voiceManager := voice.NewManager(cfg.SessionsDir(), transcriber, store)

	botHandler := bot.NewBotHandler(
		store,
		characters.NewManager(store, tpl),
		dice.NewRoller(nil),
		sounds,
		voiceManager,
		cfg.BackupsDir(),
	)

	// Create Discord session
	discord, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}
	botHandler.SetSession(discord)

	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	if err := discord.Open(); err != nil {
		log.Fatalf("Error opening Discord connection: %v", err)
	}

	if err := botHandler.RegisterCommands(); err != nil {
		log.Fatalf("Error registering commands: %v", err)
	}

	log.WithField("db", store.Path()).Info("Bishop bot is running, press Ctrl-C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down Bishop bot...")
	shutdown(voiceManager, discord)
}

// shutdown leaves every voice channel while the gateway is still open,
// then closes the session.
func shutdown(voiceManager interface{ Shutdown() }, discord io.Closer) {
	voiceManager.Shutdown()
	if err := discord.Close(); err != nil {
		log.WithError(err).Warn("Error closing Discord session")
	}
}
