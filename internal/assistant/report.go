package assistant

import (
	"fmt"
	"strings"

	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
)

// FormatStats renders knowledge base statistics.
func FormatStats(s *indexer.Stats) string {
	var b strings.Builder
	b.WriteString("**Knowledge Base Statistics:**\n\n")
	fmt.Fprintf(&b, "Total chunks: %d\n", s.TotalChunks)
	fmt.Fprintf(&b, "Web content chunks: %d\n", s.WebChunks)
	fmt.Fprintf(&b, "Local file chunks: %d\n", s.LocalChunks)
	fmt.Fprintf(&b, "Training data chunks: %d\n", s.TrainingChunks)
	fmt.Fprintf(&b, "Unique sources: %d\n", s.UniqueSources)
	if s.Tier != "" {
		fmt.Fprintf(&b, "Storage tier: %s (%s)\n", s.Tier.Letter(), s.Tier)
	}
	return b.String()
}

// FormatTrainResult summarises a web training run.
func FormatTrainResult(r *indexer.TrainResult) string {
	var b strings.Builder
	b.WriteString("**Web Training Results:**\n")
	fmt.Fprintf(&b, "Successful URLs: %d\n", len(r.SuccessfulURLs))
	fmt.Fprintf(&b, "Failed URLs: %d\n", len(r.FailedURLs))
	fmt.Fprintf(&b, "Total chunks in KB: %d\n", r.TotalChunks)

	writeList(&b, "Successfully added", r.SuccessfulURLs)
	writeList(&b, "Failed to add", r.FailedURLs)
	writeList(&b, "Errors", r.Errors)
	return b.String()
}

// FormatSuggestions lists recommended training URLs by category.
func FormatSuggestions(groups []indexer.URLGroup) string {
	var b strings.Builder
	b.WriteString("**Recommended URLs for Web Training:**\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "**%s:**\n", g.Category)
		for _, u := range g.URLs {
			fmt.Fprintf(&b, "• %s\n", u)
		}
		b.WriteString("\n")
	}
	b.WriteString("**To add these URLs, use commands like:**\n")
	b.WriteString("• `kb ingest https://example.com --type building_management`\n")
	b.WriteString("• `kb train-web` (to add multiple URLs at once)\n")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "• %s\n", item)
	}
}
