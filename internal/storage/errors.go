package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrTierNotConfigured = errors.New("storage tier not configured")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLengthMismatch    = errors.New("documents, metadatas, ids and embeddings differ in length")
	ErrNoTierAvailable   = errors.New("no storage tier could be initialised")
)
