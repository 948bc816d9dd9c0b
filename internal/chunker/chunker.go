// Package chunker splits extracted document text into fixed-size overlapping windows.
package chunker

import (
	"errors"
	"fmt"
)

const (
	// DefaultSize is the nominal chunk length in runes.
	DefaultSize = 1000

	// DefaultOverlap is how many runes each chunk shares with the previous one.
	DefaultOverlap = 200
)

// ErrInvalidWindow is returned when size and overlap cannot make progress.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits text into windows that advance by Size-Overlap runes.
// It does not look for sentence, paragraph or word boundaries.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a chunker with the given window, validating it up front.
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// Split chunks text with the chunker's window.
func (c *Chunker) Split(text string) []string {
	// window was validated in NewChunker
	chunks, _ := Chunk(text, c.Size, c.Overlap)
	return chunks
}

// Chunk splits text into windows of size runes, each starting size-overlap runes
// after the previous one. Chunk i starts at i*(size-overlap); the last chunk may be
// shorter than size. Empty text yields no chunks.
func Chunk(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidWindow, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidWindow, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidWindow, overlap, size)
	}
	return nil
}
