package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-go/vox-console/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change the saved agent configuration",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved prompt, instructions, and history limit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("Agent settings"))
		fmt.Println(senderStyle.Render("Prompt:"))
		fmt.Println(saved.Prompt)
		fmt.Println(senderStyle.Render("Instructions:"))
		fmt.Println(saved.Instructions)
		fmt.Println(senderStyle.Render("History limit: ") + strconv.Itoa(saved.HistoryLimit))
		return nil
	},
}

var (
	setPrompt       string
	setInstructions string
	setHistoryLimit int
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update one or more settings",
	Long: `Updates the saved agent configuration. Only the flags you pass
change; everything else keeps its current value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("prompt") && !cmd.Flags().Changed("instructions") && !cmd.Flags().Changed("history-limit") {
			return fmt.Errorf("nothing to set: pass --prompt, --instructions, or --history-limit")
		}
		saved, err := store.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("prompt") {
			saved.Prompt = setPrompt
		}
		if cmd.Flags().Changed("instructions") {
			saved.Instructions = setInstructions
		}
		if cmd.Flags().Changed("history-limit") {
			if setHistoryLimit <= 0 {
				return fmt.Errorf("history limit must be > 0")
			}
			saved.HistoryLimit = setHistoryLimit
		}
		if err := store.Save(saved); err != nil {
			return err
		}
		fmt.Println(statusStyle.Render("Settings saved."))
		return nil
	},
}

var resetYes bool

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default prompt and instructions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes && !confirm("Reset to default settings?") {
			fmt.Println(mutedStyle.Render("Aborted."))
			return nil
		}
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println(statusStyle.Render("Settings reset to defaults."))
		return nil
	},
}

var settingsUseCmd = &cobra.Command{
	Use:   "use <number>",
	Short: "Copy a history entry into the saved settings",
	Long: `Copies the prompt and instructions of a history entry (as numbered
by "vox-console history") into the saved settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil || index <= 0 {
			return fmt.Errorf("argument must be a positive entry number")
		}

		saved, err := store.Load()
		if err != nil {
			return err
		}
		entries := client.History.Fetch(cmd.Context(), max(index, saved.HistoryLimit))
		if index > len(entries) {
			return fmt.Errorf("history entry %d not found (%d available)", index, len(entries))
		}

		entry := entries[index-1]
		saved.Prompt = entry.Prompt
		saved.Instructions = entry.Instructions
		if err := store.Save(saved); err != nil {
			return err
		}
		fmt.Println(statusStyle.Render("Settings updated from history entry " + args[0] + "."))
		fmt.Println(truncate(entry.Prompt, 60))
		return nil
	},
}

func confirm(question string) bool {
	fmt.Print(question + " [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	settingsSetCmd.Flags().StringVar(&setPrompt, "prompt", settings.DefaultPrompt, "Agent prompt")
	settingsSetCmd.Flags().StringVar(&setInstructions, "instructions", settings.DefaultInstructions, "Opening instructions")
	settingsSetCmd.Flags().IntVar(&setHistoryLimit, "history-limit", settings.DefaultHistoryLimit, "History entries to fetch")
	settingsResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd, settingsUseCmd)
	rootCmd.AddCommand(settingsCmd)
}
