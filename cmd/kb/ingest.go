package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
)

var (
	ingestType string
	dirPattern string
	githubRef  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path-or-url>...",
	Short: "Add local documents or web pages",
	Long: `Adds each argument to the knowledge base. Arguments starting with http:// or
https:// are fetched (respecting robots.txt); anything else is read from disk.

Supported files: PDF, DOCX, TXT, MD, XLSX, CSV, JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		failed := 0
		for _, source := range args {
			out := a.Pipeline.Ingest(cmd.Context(), source, ingestType)
			fmt.Println(out.Message)
			if !out.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sources failed", failed, len(args))
		}
		return nil
	},
}

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir <dir>",
	Short: "Add every supported document in a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Pipeline.IngestDirectory(cmd.Context(), args[0], dirPattern)
		if err != nil {
			return err
		}
		printIndexResult(result)
		return nil
	},
}

var ingestGitHubCmd = &cobra.Command{
	Use:   "ingest-github <owner/repo[/path]>",
	Short: "Add every supported document from a GitHub repository path",
	Long: `Lists and fetches documents from GitHub. Set GITHUB_TOKEN for higher rate
limits; rate limit waits are handled automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.GitHubSource(args[0], githubRef)
		if err != nil {
			return err
		}
		result, err := a.Pipeline.IngestGitHub(cmd.Context(), src)
		if err != nil {
			return err
		}
		printIndexResult(result)
		return nil
	},
}

func printIndexResult(result *indexer.IndexResult) {
	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.CommitSHA != "" {
		fmt.Printf("  Commit: %s\n", result.CommitSHA)
	}

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Source, failed.Reason)
		}
	}
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "Document type for files (default general) or category for URLs (default web_content)")
	ingestDirCmd.Flags().StringVarP(&dirPattern, "pattern", "p", "**", "Doublestar pattern matched against paths relative to the directory")
	ingestGitHubCmd.Flags().StringVar(&githubRef, "ref", "", "Branch, tag or commit (default branch when empty)")

	rootCmd.AddCommand(ingestCmd, ingestDirCmd, ingestGitHubCmd)
}
