package indexer

import (
	"context"
	"fmt"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// Stats describes the contents of the knowledge base.
type Stats struct {
	TotalChunks    int
	WebChunks      int
	LocalChunks    int
	TrainingChunks int
	UniqueSources  int
	Tier           storage.Tier
}

// Stats counts chunks by origin. Web chunks are identified by domain, training
// chunks by section and everything else by file name.
func (p *Pipeline) Stats(ctx context.Context) (*Stats, error) {
	records, err := p.collection.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	stats := &Stats{
		TotalChunks: len(records),
		Tier:        p.collection.Capabilities().Tier,
	}
	sources := make(map[string]struct{})

	for _, r := range records {
		switch r.Metadata.String("source_type") {
		case SourceWeb:
			stats.WebChunks++
			sources[valueOr(r.Metadata.String("domain"), "Unknown domain")] = struct{}{}
		case SourceTraining:
			stats.TrainingChunks++
			sources["Training: "+valueOr(r.Metadata.String("section"), "Unknown section")] = struct{}{}
		default:
			stats.LocalChunks++
			sources[valueOr(r.Metadata.String("filename"), "Unknown file")] = struct{}{}
		}
	}
	stats.UniqueSources = len(sources)
	return stats, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
