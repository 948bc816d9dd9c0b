package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
)

var searchLimit int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a building management question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.Assistant.Answer(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the raw chunks matching a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		results := a.Retriever.Search(cmd.Context(), strings.Join(args, " "), searchLimit)
		if len(results) == 0 {
			fmt.Println("No matching chunks.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s  [%s]  distance=%.4f\n", i+1, r.ID, assistant.SourceLabel(r), r.Distance)
			fmt.Println(preview(r.Content, 200))
			fmt.Println()
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Pipeline.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(assistant.FormatStats(stats))
		return nil
	},
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "Maximum number of chunks to show")

	rootCmd.AddCommand(askCmd, searchCmd, statsCmd)
}
