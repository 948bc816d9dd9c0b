package storage

import "fmt"

// DefaultCollectionName is the collection every tier opens unless configured otherwise.
const DefaultCollectionName = "smart_building_docs"

// VectorDimension is the pseudo-embedding size. It matches embedding.Dimension.
const VectorDimension = 100

// PlaceholderDistance is reported for every match from a tier without ranking.
const PlaceholderDistance = 0.5

// Tier identifies a storage backend in fallback order.
type Tier string

const (
	TierQdrant   Tier = "qdrant"   // A: external persistent vector engine
	TierSQLite   Tier = "sqlite"   // B: on-disk collection
	TierMemory   Tier = "memory"   // C: in-memory ranked collection
	TierFallback Tier = "fallback" // D: insertion-ordered map, no ranking
)

// Letter returns the tier's position in the fallback chain (A-D).
func (t Tier) Letter() string {
	switch t {
	case TierQdrant:
		return "A"
	case TierSQLite:
		return "B"
	case TierMemory:
		return "C"
	case TierFallback:
		return "D"
	}
	return "?"
}

// Capabilities describes what a collection's query results mean.
type Capabilities struct {
	Tier Tier
	// Ranked is false when Query ignores the embedding and distances are placeholders.
	Ranked bool
	// Persistent is true when records survive a process restart.
	Persistent bool
}

// Metadata is the flat key/value map stored with each chunk.
type Metadata map[string]any

// String returns the value for key formatted as a string, or "" when absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value for key as an int. Backends decode numbers differently
// (int, int64 or float64), so all three are accepted.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Bool returns the value for key as a bool.
func (m Metadata) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is one stored chunk.
type Record struct {
	ID        string
	Document  string
	Metadata  Metadata
	Embedding []float32
}

// Match is a query hit. Distance is smaller for closer chunks on ranked tiers and
// PlaceholderDistance on unranked ones.
type Match struct {
	ID       string
	Document string
	Metadata Metadata
	Distance float64
}

// NewRecords zips the parallel slices accepted by the collection contract.
func NewRecords(documents []string, metadatas []Metadata, ids []string, embeddings [][]float32) ([]Record, error) {
	n := len(documents)
	if len(metadatas) != n || len(ids) != n || len(embeddings) != n {
		return nil, fmt.Errorf("%w: %d/%d/%d/%d", ErrLengthMismatch, n, len(metadatas), len(ids), len(embeddings))
	}
	records := make([]Record, n)
	for i := range documents {
		records[i] = Record{
			ID:        ids[i],
			Document:  documents[i],
			Metadata:  metadatas[i],
			Embedding: embeddings[i],
		}
	}
	return records, nil
}

func validateRecords(records []Record) error {
	for i, r := range records {
		if len(r.Embedding) != VectorDimension {
			return fmt.Errorf("%w: record %d (%s) has %d dimensions, expected %d",
				ErrDimensionMismatch, i, r.ID, len(r.Embedding), VectorDimension)
		}
	}
	return nil
}

func validateQuery(embedding []float32) error {
	if len(embedding) != VectorDimension {
		return fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}
	return nil
}
