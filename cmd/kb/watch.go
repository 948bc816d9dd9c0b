package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var watchDirs []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Train automatically when documents change",
	Long: `Watches WATCH_DIRS (or --dir) recursively and ingests supported documents
when they are created or modified. Repeated writes to the same file are
debounced. Every attempt is recorded in the training journal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if len(watchDirs) > 0 {
			a.Config.WatchDirs = watchDirs
		}

		j, err := a.OpenJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		return a.Watcher(j).Run(cmd.Context())
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent auto-training attempts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		j, err := a.OpenJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No training sessions recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tFILE\tTYPE\tRESULT\tCHUNKS")
		for _, e := range entries {
			result := "ok"
			if !e.Success {
				result = "failed: " + e.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
				e.Timestamp.Local().Format(time.DateTime), e.FileName, e.DocumentType, result, e.Chunks)
		}
		return tw.Flush()
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDirs, "dir", nil, "Directory to watch (repeatable); overrides WATCH_DIRS")

	rootCmd.AddCommand(watchCmd, journalCmd)
}
