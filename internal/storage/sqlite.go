package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteFileName is the database file created inside the knowledge base directory.
const SQLiteFileName = "collection.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	document   TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	UNIQUE (collection, id)
)`

// SQLiteCollection is tier B: a persistent collection in a single SQLite file.
// Queries rank every stored embedding by squared L2 distance.
type SQLiteCollection struct {
	db         *sql.DB
	collection string
}

// NewSQLiteCollection opens (or creates) <dir>/collection.db.
func NewSQLiteCollection(ctx context.Context, dir, collection string) (*SQLiteCollection, error) {
	if collection == "" {
		collection = DefaultCollectionName
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating knowledge base directory: %w", err)
	}

	path := filepath.Join(dir, SQLiteFileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One writer at a time; concurrent ingestion queues on the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteCollection{db: db, collection: collection}, nil
}

func (s *SQLiteCollection) Add(ctx context.Context, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, document, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			document = excluded.document,
			metadata = excluded.metadata,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = Metadata{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, r.ID, r.Document, string(metaJSON), encodeVector(r.Embedding)); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *SQLiteCollection) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if err := validateQuery(embedding); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	records, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	return rankRecords(records, embedding, n), nil
}

func (s *SQLiteCollection) GetAll(ctx context.Context) ([]Record, error) {
	return s.load(ctx, false)
}

func (s *SQLiteCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteCollection) Capabilities() Capabilities {
	return Capabilities{Tier: TierSQLite, Ranked: true, Persistent: true}
}

// Clear deletes every chunk in the collection. Other collections sharing the
// file are untouched.
func (s *SQLiteCollection) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", s.collection); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	return nil
}

func (s *SQLiteCollection) Close() error {
	return s.db.Close()
}

func (s *SQLiteCollection) load(ctx context.Context, withEmbeddings bool) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, document, metadata, embedding FROM chunks WHERE collection = ? ORDER BY seq",
		s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r        Record
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&r.ID, &r.Document, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", r.ID, err)
		}
		if withEmbeddings {
			r.Embedding = decodeVector(blob)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return records, nil
}

// encodeVector stores a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
