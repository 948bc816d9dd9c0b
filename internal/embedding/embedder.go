// Package embedding produces the knowledge base's pseudo-embeddings.
//
// The vectors are word-hash histograms, not semantic embeddings: two texts are
// close when they share vocabulary (modulo bucket collisions), not when they
// mean the same thing.
package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	// Dimension is the fixed vector length. It matches storage.VectorDimension.
	Dimension = 100

	// MaxTokens caps how many leading tokens contribute to a vector.
	MaxTokens = 100

	// DefaultBatchSize bounds how many texts are embedded between context checks.
	DefaultBatchSize = 500
)

// Embed converts text to a Dimension-length vector: lower-case, drop characters
// other than ASCII letters, digits and Unicode whitespace, split on whitespace, count the first MaxTokens tokens
// into bucket fnv1a(token) mod Dimension, then L1-normalise. Text without tokens
// yields the zero vector.
//
// FNV-1a is used because it is stable across processes; the bucket layout is part
// of the persisted data.
func Embed(text string) []float32 {
	vector := make([]float32, Dimension)

	tokens := strings.Fields(strings.Map(keepRune, strings.ToLower(text)))
	if len(tokens) > MaxTokens {
		tokens = tokens[:MaxTokens]
	}
	if len(tokens) == 0 {
		return vector
	}

	for _, token := range tokens {
		vector[bucket(token)]++
	}

	total := float32(len(tokens))
	for i := range vector {
		vector[i] /= total
	}
	return vector
}

// keepRune drops everything but ASCII alphanumerics and whitespace. Non-breaking
// and other Unicode spaces stay so that they still separate words.
func keepRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case unicode.IsSpace(r):
		return r
	}
	return -1
}

func bucket(token string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % Dimension)
}

// Embedder generates pseudo-embeddings in batches, checking for cancellation
// between batches.
type Embedder struct {
	batchSize int
}

// NewEmbedder creates a new Embedder with an optional batch size.
// If batchSize is 0, DefaultBatchSize (500) is used.
func NewEmbedder(batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{batchSize: batchSize}
}

// GenerateEmbeddings embeds every text, preserving order.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+e.batchSize, len(texts))
		for _, text := range texts[i:end] {
			embeddings = append(embeddings, Embed(text))
		}
	}

	return embeddings, nil
}
