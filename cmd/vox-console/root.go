package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	vox "github.com/vango-go/vox-console/sdk"

	"github.com/vango-go/vox-console/internal/config"
	"github.com/vango-go/vox-console/internal/settings"
)

var (
	verbose bool

	cfg    config.Config
	client *vox.Client
	store  *settings.Store
)

var rootCmd = &cobra.Command{
	Use:   "vox-console",
	Short: "Talk to a voice agent from your terminal",
	Long: `vox-console is a terminal front-end for a voice agent backend.

It starts live voice calls over a realtime media room, streams your
microphone to the agent and plays the agent's replies, then retrieves the
call transcript and lets you rate the conversation.

Quick start:
  vox-console call              # Start a voice call with the saved settings
  vox-console history           # Browse previously used prompts
  vox-console settings show     # Inspect the saved agent configuration

Configuration is read from VOX_* environment variables (a .env file in the
working directory is honored).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; explicit env always wins.
		_ = godotenv.Load()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return err
		}

		path := cfg.SettingsPath
		if path == "" {
			path, err = defaultSettingsPath()
			if err != nil {
				return err
			}
		}
		store, err = settings.Open(path)
		if err != nil {
			return err
		}
		if err := store.SeedHistoryLimit(cfg.HistoryLimit); err != nil {
			return err
		}

		client = vox.NewClient(cfg.APIBaseURL, vox.WithLogger(slog.Default()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func defaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "vox-console", "settings.db"), nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
