package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onehot(i int) []float32 {
	v := make([]float32, VectorDimension)
	v[i] = 1
	return v
}

// rankedCollections returns a fresh instance of every ranked tier that runs
// without external services.
func rankedCollections(t *testing.T) map[string]Collection {
	t.Helper()
	sqlite, err := NewSQLiteCollection(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Collection{
		"memory": NewMemoryCollection(),
		"sqlite": sqlite,
	}
}

func TestRankedQueryOrdersByDistance(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			near := onehot(3)
			mid := onehot(3)
			mid[4] = 1
			far := onehot(50)

			require.NoError(t, c.Add(ctx, []Record{
				{ID: "far", Document: "far", Metadata: Metadata{}, Embedding: far},
				{ID: "mid", Document: "mid", Metadata: Metadata{}, Embedding: mid},
				{ID: "near", Document: "near", Metadata: Metadata{"k": "v"}, Embedding: near},
			}))

			matches, err := c.Query(ctx, onehot(3), 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "near", matches[0].ID)
			assert.Equal(t, "mid", matches[1].ID)
			assert.InDelta(t, 0.0, matches[0].Distance, 1e-9)
			assert.InDelta(t, 1.0, matches[1].Distance, 1e-9)
			assert.Equal(t, "v", matches[0].Metadata.String("k"))
			assert.True(t, matches[0].Distance <= matches[1].Distance)
		})
	}
}

func TestQueryLimitLargerThanCollection(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Add(ctx, []Record{{ID: "only", Document: "x", Metadata: Metadata{}, Embedding: onehot(0)}}))

			matches, err := c.Query(ctx, onehot(0), 20)
			require.NoError(t, err)
			assert.Len(t, matches, 1)
		})
	}
}

func TestEmptyCollection(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			matches, err := c.Query(ctx, onehot(0), 5)
			require.NoError(t, err)
			assert.Empty(t, matches)

			n, err := c.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestAddOverwritesExistingID(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, c.Add(ctx, []Record{
				{ID: "a", Document: "first", Metadata: Metadata{}, Embedding: onehot(0)},
				{ID: "b", Document: "second", Metadata: Metadata{}, Embedding: onehot(1)},
			}))
			require.NoError(t, c.Add(ctx, []Record{
				{ID: "a", Document: "replaced", Metadata: Metadata{"v": 2}, Embedding: onehot(2)},
			}))

			n, err := c.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			all, err := c.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "a", all[0].ID, "overwrite keeps original position")
			assert.Equal(t, "replaced", all[0].Document)

			matches, err := c.Query(ctx, onehot(2), 1)
			require.NoError(t, err)
			assert.Equal(t, "a", matches[0].ID)
		})
	}
}

func TestDimensionValidation(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := c.Add(ctx, []Record{{ID: "bad", Embedding: make([]float32, 10)}})
			assert.ErrorIs(t, err, ErrDimensionMismatch)

			_, err = c.Query(ctx, make([]float32, 3), 1)
			assert.ErrorIs(t, err, ErrDimensionMismatch)
		})
	}
}

func TestConcurrentAdds(t *testing.T) {
	for name, c := range rankedCollections(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 10; i++ {
						id := fmt.Sprintf("w%d_%d", w, i)
						assert.NoError(t, c.Add(ctx, []Record{{ID: id, Document: id, Metadata: Metadata{}, Embedding: onehot(i)}}))
					}
				}(w)
			}
			wg.Wait()

			n, err := c.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 40, n)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewSQLiteCollection(ctx, dir, "kb")
	require.NoError(t, err)
	require.NoError(t, c.Add(ctx, []Record{
		{ID: "doc_0", Document: "persisted", Metadata: Metadata{"chunk_index": 0, "auto_trained": true}, Embedding: onehot(7)},
	}))
	require.NoError(t, c.Close())

	reopened, err := NewSQLiteCollection(ctx, dir, "kb")
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Query(ctx, onehot(7), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted", matches[0].Document)

	idx, ok := matches[0].Metadata.Int("chunk_index")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.True(t, matches[0].Metadata.Bool("auto_trained"))
	assert.Equal(t, TierSQLite, reopened.Capabilities().Tier)
	assert.True(t, reopened.Capabilities().Persistent)
}

func TestSQLiteCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := NewSQLiteCollection(ctx, dir, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteCollection(ctx, dir, "b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Add(ctx, []Record{{ID: "x", Document: "x", Metadata: Metadata{}, Embedding: onehot(0)}}))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 1e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestNewRecordsLengthMismatch(t *testing.T) {
	_, err := NewRecords([]string{"a", "b"}, []Metadata{{}}, []string{"a", "b"}, [][]float32{onehot(0), onehot(1)})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	records, err := NewRecords([]string{"a"}, []Metadata{{"k": 1}}, []string{"id"}, [][]float32{onehot(0)})
	require.NoError(t, err)
	assert.Equal(t, "id", records[0].ID)
	assert.Equal(t, "a", records[0].Document)
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{"s": "text", "i": int64(4), "f": float64(2), "b": true, "n": 3}

	assert.Equal(t, "text", m.String("s"))
	assert.Equal(t, "3", m.String("n"))
	assert.Equal(t, "", m.String("missing"))

	for _, key := range []string{"i", "f", "n"} {
		_, ok := m.Int(key)
		assert.True(t, ok, key)
	}
	_, ok := m.Int("s")
	assert.False(t, ok)
	assert.True(t, m.Bool("b"))
	assert.False(t, m.Bool("s"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	other, err := NewSQLiteCollection(ctx, dir, "other")
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.Add(ctx, []Record{{ID: "keep", Document: "keep", Metadata: Metadata{}, Embedding: onehot(1)}}))

	sqlite, err := NewSQLiteCollection(ctx, dir, "kb")
	require.NoError(t, err)
	defer sqlite.Close()

	for name, c := range map[string]Collection{
		"memory":   NewMemoryCollection(),
		"fallback": NewFallbackCollection(),
		"sqlite":   sqlite,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Add(ctx, []Record{
				{ID: "a", Document: "a", Metadata: Metadata{}, Embedding: onehot(0)},
				{ID: "b", Document: "b", Metadata: Metadata{}, Embedding: onehot(1)},
			}))

			clearer, ok := c.(Clearer)
			require.True(t, ok)
			require.NoError(t, clearer.Clear(ctx))

			n, err := c.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, c.Add(ctx, []Record{{ID: "c", Document: "c", Metadata: Metadata{}, Embedding: onehot(2)}}))
			all, err := c.GetAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "c", all[0].ID)
		})
	}

	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
