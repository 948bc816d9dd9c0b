package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace derives stable Qdrant point ids from chunk ids.
var pointNamespace = uuid.MustParse("6f1c7a52-3b0e-4d8a-9c61-2a6f0e5d4b17")

const qdrantBatchSize = 100

// QdrantConfig configures tier A.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	// MaxElapsed bounds the startup health check retries. Zero means 30s.
	MaxElapsed time.Duration
}

// QdrantCollection stores chunks in an external Qdrant server over gRPC.
type QdrantCollection struct {
	client     *qdrant.Client
	collection string
	maxElapsed time.Duration
}

// NewQdrantCollection connects to Qdrant, waits for it to become healthy and
// ensures the collection exists. It fails fast when no host is configured.
func NewQdrantCollection(ctx context.Context, cfg QdrantConfig) (*QdrantCollection, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant: %w", ErrTierNotConfigured)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollectionName
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 30 * time.Second
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	c := &QdrantCollection{
		client:     client,
		collection: cfg.Collection,
		maxElapsed: cfg.MaxElapsed,
	}

	if err := c.retry(ctx, func() error { return c.Health(ctx) }); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	if err := c.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return c, nil
}

// retry runs op with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed from config.
func (c *QdrantCollection) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = c.maxElapsed

	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (c *QdrantCollection) Health(ctx context.Context) error {
	result, err := c.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

func (c *QdrantCollection) ensureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Keyword indexes for the fields stats and filters read.
	for _, field := range []string{"chunk_id", "metadata.source_type", "metadata.filename", "metadata.domain"} {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Add upserts records in batches of 100. Point ids are derived from the chunk id,
// so re-adding an id overwrites the point.
func (c *QdrantCollection) Add(ctx context.Context, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}

	for i := 0; i < len(records); i += qdrantBatchSize {
		end := min(i+qdrantBatchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			payload, err := qdrant.TryValueMap(map[string]any{
				"chunk_id": r.ID,
				"document": r.Document,
				"metadata": map[string]any(r.Metadata),
			})
			if err != nil {
				return fmt.Errorf("invalid metadata for %s: %w", r.ID, err)
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(r.ID)),
				Vectors: qdrant.NewVectors(r.Embedding...),
				Payload: payload,
			})
		}

		err := c.retry(ctx, func() error {
			_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: c.collection,
				Points:         points,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Query returns the n nearest chunks. Qdrant reports Euclidean distance; it is
// squared here so every ranked tier uses the same scale.
func (c *QdrantCollection) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if err := validateQuery(embedding); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(n)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		id, doc, meta := decodePayload(result.Payload)
		d := float64(result.Score)
		matches = append(matches, Match{
			ID:       id,
			Document: doc,
			Metadata: meta,
			Distance: d * d,
		})
	}
	return matches, nil
}

// GetAll scrolls through every point in the collection. Scroll offsets are
// inclusive, so each page starts from the next-page id Qdrant reports.
func (c *QdrantCollection) GetAll(ctx context.Context) ([]Record, error) {
	var records []Record
	var offset *qdrant.PointId

	for {
		results, next, err := c.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: c.collection,
			Limit:          qdrant.PtrOf(uint32(qdrantBatchSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll collection: %w", err)
		}

		for _, result := range results {
			id, doc, meta := decodePayload(result.Payload)
			records = append(records, Record{ID: id, Document: doc, Metadata: meta})
		}

		if next == nil {
			break
		}
		offset = next
	}
	return records, nil
}

// Count returns the exact number of stored points.
func (c *QdrantCollection) Count(ctx context.Context) (int, error) {
	n, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

func (c *QdrantCollection) Capabilities() Capabilities {
	return Capabilities{Tier: TierQdrant, Ranked: true, Persistent: true}
}

// Clear drops and recreates the collection.
func (c *QdrantCollection) Clear(ctx context.Context) error {
	if err := c.client.DeleteCollection(ctx, c.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return c.ensureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (c *QdrantCollection) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func decodePayload(payload map[string]*qdrant.Value) (string, string, Metadata) {
	meta := Metadata{}
	if fields := payload["metadata"].GetStructValue().GetFields(); fields != nil {
		for k, v := range fields {
			meta[k] = fromValue(v)
		}
	}
	return payload["chunk_id"].GetStringValue(), payload["document"].GetStringValue(), meta
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = fromValue(item)
		}
		return out
	case *qdrant.Value_StructValue:
		out := map[string]any{}
		for k, item := range kind.StructValue.GetFields() {
			out[k] = fromValue(item)
		}
		return out
	}
	return nil
}
