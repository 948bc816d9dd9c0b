package storage

import (
	"context"
	"sync"
)

// orderedRecords is an id-keyed record set that remembers first-insertion order.
type orderedRecords struct {
	mu      sync.RWMutex
	order   []string
	records map[string]Record
}

func newOrderedRecords() *orderedRecords {
	return &orderedRecords{records: make(map[string]Record)}
}

func (o *orderedRecords) put(records []Record) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, r := range records {
		if _, ok := o.records[r.ID]; !ok {
			o.order = append(o.order, r.ID)
		}
		r.Metadata = r.Metadata.Clone()
		r.Embedding = append([]float32(nil), r.Embedding...)
		o.records[r.ID] = r
	}
}

func (o *orderedRecords) all() []Record {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Record, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.records[id])
	}
	return out
}

func (o *orderedRecords) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = nil
	o.records = make(map[string]Record)
}

func (o *orderedRecords) size() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// MemoryCollection is tier C: ranked queries over records held for the
// lifetime of the process.
type MemoryCollection struct {
	store *orderedRecords
}

func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{store: newOrderedRecords()}
}

func (m *MemoryCollection) Add(ctx context.Context, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	m.store.put(records)
	return nil
}

func (m *MemoryCollection) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if err := validateQuery(embedding); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	return rankRecords(m.store.all(), embedding, n), nil
}

func (m *MemoryCollection) GetAll(ctx context.Context) ([]Record, error) {
	return m.store.all(), nil
}

func (m *MemoryCollection) Count(ctx context.Context) (int, error) {
	return m.store.size(), nil
}

func (m *MemoryCollection) Capabilities() Capabilities {
	return Capabilities{Tier: TierMemory, Ranked: true}
}

func (m *MemoryCollection) Clear(ctx context.Context) error {
	m.store.reset()
	return nil
}

func (m *MemoryCollection) Close() error { return nil }
