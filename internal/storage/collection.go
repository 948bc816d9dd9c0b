// Package storage persists chunks with their pseudo-embeddings and answers
// nearest-neighbour queries through one of four fallback tiers.
package storage

import "context"

// Collection is the contract shared by every tier. Re-adding an existing id
// overwrites that record.
type Collection interface {
	Add(ctx context.Context, records []Record) error
	Query(ctx context.Context, embedding []float32, n int) ([]Match, error)
	GetAll(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Capabilities() Capabilities
	Close() error
}

// Clearer is implemented by collections that can drop every stored record.
type Clearer interface {
	Clear(ctx context.Context) error
}
