// Package journal records auto-training attempts in a bbolt file, keeping the
// most recent entries.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// MaxEntries is how many entries are kept; older ones are dropped on append.
const MaxEntries = 100

// MethodAutoTraining marks entries written by the file watcher.
const MethodAutoTraining = "auto_training"

var bucketSessions = []byte("training_sessions")

// Entry is one training attempt.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	FilePath       string    `json:"file_path"`
	FileName       string    `json:"file_name"`
	DocumentType   string    `json:"document_type"`
	Success        bool      `json:"success"`
	TrainingMethod string    `json:"training_method"`
	Chunks         int       `json:"chunks,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db  *bbolt.DB
	max int
}

// Open opens or creates the journal file.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal bucket: %w", err)
	}

	return &Journal{db: db, max: MaxEntries}, nil
}

// Append stores e and trims the journal to the newest MaxEntries entries.
func (j *Journal) Append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(key(seq), data); err != nil {
			return err
		}

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys[:max(len(keys)-j.max, 0)] {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the entries oldest first.
func (j *Journal) List() ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func key(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
