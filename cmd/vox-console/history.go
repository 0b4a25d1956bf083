package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse previously used prompts and instructions",
	Long: `Lists the prompt/instruction pairs used on recent calls, newest first.

Use "vox-console settings use <number>" to copy an entry back into the
saved settings.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum entries to fetch (default from the saved settings)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit := historyLimit
	if limit <= 0 {
		// The persisted page-size preference wins; the env value only
		// seeds a fresh installation.
		saved, err := store.Load()
		if err != nil {
			return err
		}
		limit = saved.HistoryLimit
	}
	if limit <= 0 {
		limit = cfg.HistoryLimit
	}

	entries := client.History.Fetch(cmd.Context(), limit)
	if len(entries) == 0 {
		fmt.Println(mutedStyle.Render("No prompt history available."))
		return nil
	}

	fmt.Println(headerStyle.Render("Prompt history"))
	for i, entry := range entries {
		fmt.Printf("%s %s\n", senderStyle.Render(fmt.Sprintf("%d.", i+1)), dateStyle.Render(entry.CreatedAt.Format()))
		fmt.Println("   " + truncate(entry.Prompt, 60))
		fmt.Println("   " + mutedStyle.Render(truncate(entry.Instructions, 80)))
		if entry.ID != "" {
			fmt.Println("   " + idStyle.Render(entry.ID))
		}
	}
	return nil
}

func truncate(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
