package indexer

import "errors"

var (
	// ErrNotFound is returned when a local source path does not exist.
	ErrNotFound = errors.New("source not found")

	// ErrNoChunks is returned when a source produced no text to store.
	ErrNoChunks = errors.New("no chunks produced")
)
