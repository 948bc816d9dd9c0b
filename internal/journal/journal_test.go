package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training_log.db")
	j, err := Open(path)
	require.NoError(t, err)

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.Append(Entry{
		Timestamp:      ts,
		FilePath:       "docs/hvac_manual.pdf",
		FileName:       "hvac_manual.pdf",
		DocumentType:   "hvac_manual",
		Success:        true,
		TrainingMethod: MethodAutoTraining,
		Chunks:         12,
	}))
	require.NoError(t, j.Append(Entry{FileName: "broken.docx", Error: "unreadable"}))

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hvac_manual.pdf", entries[0].FileName)
	assert.True(t, entries[0].Timestamp.Equal(ts))
	assert.Equal(t, 12, entries[0].Chunks)
	assert.Equal(t, "broken.docx", entries[1].FileName)
	assert.False(t, entries[1].Success)

	// entries survive reopening
	require.NoError(t, j.Close())
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err = j.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestKeepsNewestEntries(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "training_log.db"))
	require.NoError(t, err)
	defer j.Close()

	for i := range MaxEntries + 25 {
		require.NoError(t, j.Append(Entry{FileName: fmt.Sprintf("doc_%03d.txt", i)}))
	}

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "doc_025.txt", entries[0].FileName)
	assert.Equal(t, fmt.Sprintf("doc_%03d.txt", MaxEntries+24), entries[MaxEntries-1].FileName)
}

func TestListEmpty(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "training_log.db"))
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
