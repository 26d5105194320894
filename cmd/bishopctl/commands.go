package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"bishop-bot/internal/audio"
	"bishop-bot/internal/bot"
	"bishop-bot/internal/characters"
	"bishop-bot/internal/config"
	"bishop-bot/internal/database"

	"github.com/spf13/cobra"
)

// app carries the store opened for the running command.
type app struct {
	cfg    *config.Config
	dbPath string
	store  *database.Store
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:           "bishopctl",
		Short:         "Inspect and edit the Bishop bot database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, err := database.Open(a.dbPath)
			if err != nil {
				return err
			}
			a.store = store
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", cfg.DBPath, "path to the SQLite database")

	guild := &cobra.Command{Use: "guild", Short: "Per-guild settings"}
	guild.AddCommand(a.guildShowCmd(), a.guildSetCmd())

	character := &cobra.Command{Use: "character", Short: "Character import and export"}
	character.AddCommand(a.characterExportCmd(), a.characterImportCmd(), a.characterSetCmd())

	noStore := func(*cobra.Command, []string) error { return nil }
	sound := &cobra.Command{
		Use:                "sound",
		Short:              "Soundboard files",
		PersistentPreRunE:  noStore,
		PersistentPostRunE: noStore,
	}
	sound.AddCommand(a.soundAddCmd(), a.soundListCmd())

	root.AddCommand(a.getCmd(), a.setCmd(), guild, a.transcriptsCmd(), a.backupCmd(), character, sound)
	return root
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a bot setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok := a.store.GetValue(args[0])
			if !ok {
				return fmt.Errorf("key %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a bot setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.store.SetValue(args[0], args[1]) {
				return fmt.Errorf("could not store %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) guildShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id>",
		Short: "Print a guild's settings as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.store.GetGuildSettings(id))
		},
	}
}

func (a *app) guildSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <guild-id> <key> <value>",
		Short: "Change one guild setting",
		Long: `Change one guild setting. Values that parse as JSON scalars
(true, 0.7, null) are stored typed; anything else is stored as a string.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			settings := a.store.GetGuildSettings(id)
			settings[args[1]] = bot.ParseSettingValue(args[2])
			if !a.store.SaveGuildSettings(id, settings) {
				return fmt.Errorf("could not save settings for guild %d", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "guild %d: %s updated\n", id, args[1])
			return nil
		},
	}
}

func (a *app) transcriptsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcripts <guild-id>",
		Short: "List a guild's transcripts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			records := a.store.GetTranscripts(id)
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no transcripts")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSESSION\tFILE")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format(time.DateTime), r.SessionID, r.FilePath)
			}
			return w.Flush()
		},
	}
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [dest]",
		Short: "Write a consistent copy of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := filepath.Join(a.cfg.BackupsDir(), fmt.Sprintf("bishop_db_%s.sqlite", time.Now().Format("20060102_150405")))
			if len(args) == 1 {
				dest = args[0]
			}
			if err := a.store.Backup(dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backed up to %s\n", dest)
			return nil
		},
	}
}

func (a *app) characterExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <character-id>",
		Short: "Export a character sheet to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			path, err := a.manager().Export(id, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", a.cfg.ExportsDir(), "export directory")
	return cmd
}

func (a *app) characterImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <player-id> <guild-id> <file>",
		Short: "Import a character sheet for a player",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.manager().Import(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s as character %d\n", c.Name, c.ID)
			return nil
		},
	}
}

func (a *app) characterSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <character-id> <field> <value>",
		Short: "Change one field of a character",
		Long: `Change one field of a character: name, class, race, background,
alignment, level, experience, notes, or an ability score such as strength.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.manager().SetField(id, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "character %d (%s): %s = %s\n", c.ID, c.Name, args[1], args[2])
			return nil
		},
	}
}

func (a *app) soundAddCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add <name> <file>",
		Short: "Copy an audio file into the soundboard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := a.library().AddCustomSound(args[0], args[1], category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s/%s at %s\n", track.Category, track.Name, track.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "Default", "soundboard category")
	return cmd
}

func (a *app) soundListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List soundboard tracks by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := a.library()
			if err := lib.Scan(); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tNAME\tFILE")
			for _, c := range lib.Categories() {
				for _, t := range lib.Tracks(c) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c, t.Name, filepath.Base(t.Path))
				}
			}
			return w.Flush()
		},
	}
}

func (a *app) library() *audio.Library {
	return audio.NewLibrary(a.cfg.SoundboardDir())
}

// manager loads the template only for commands that create characters.
func (a *app) manager() *characters.Manager {
	tpl, err := characters.LoadTemplate(a.cfg.TemplatePath)
	if err != nil {
		tpl = characters.DefaultTemplate()
	}
	return characters.NewManager(a.store, tpl)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
