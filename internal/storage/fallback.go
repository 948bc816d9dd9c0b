package storage

import "context"

// FallbackCollection is tier D, the last resort. It stores records in an
// insertion-ordered map and cannot rank: Query ignores the embedding and returns
// the first n records with PlaceholderDistance.
type FallbackCollection struct {
	store *orderedRecords
}

func NewFallbackCollection() *FallbackCollection {
	return &FallbackCollection{store: newOrderedRecords()}
}

// Add stores records without validating embeddings.
func (f *FallbackCollection) Add(ctx context.Context, records []Record) error {
	f.store.put(records)
	return nil
}

func (f *FallbackCollection) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if n <= 0 {
		return nil, nil
	}
	all := f.store.all()
	if len(all) > n {
		all = all[:n]
	}
	matches := make([]Match, len(all))
	for i, r := range all {
		matches[i] = Match{
			ID:       r.ID,
			Document: r.Document,
			Metadata: r.Metadata,
			Distance: PlaceholderDistance,
		}
	}
	return matches, nil
}

func (f *FallbackCollection) GetAll(ctx context.Context) ([]Record, error) {
	return f.store.all(), nil
}

func (f *FallbackCollection) Count(ctx context.Context) (int, error) {
	return f.store.size(), nil
}

func (f *FallbackCollection) Capabilities() Capabilities {
	return Capabilities{Tier: TierFallback}
}

func (f *FallbackCollection) Clear(ctx context.Context) error {
	f.store.reset()
	return nil
}

func (f *FallbackCollection) Close() error { return nil }
