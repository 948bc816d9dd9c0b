package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

func TestRunClosesKnowledgeBaseOnServerError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	busy, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	kbDir := filepath.Join(dir, "kb")
	t.Setenv("KB_CONFIG", "")
	t.Setenv("QDRANT_HOST", "")
	t.Setenv("KB_DISABLE_DISK", "false")
	t.Setenv("KB_DIR", kbDir)
	t.Setenv("SERVER_MODE", "true")
	t.Setenv("PORT", strconv.Itoa(port))

	err = run(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server error")

	// The database was opened in WAL mode; the log is removed once the last
	// connection closes.
	assert.FileExists(t, filepath.Join(kbDir, storage.SQLiteFileName))
	_, err = os.Stat(filepath.Join(kbDir, storage.SQLiteFileName+"-wal"))
	assert.True(t, os.IsNotExist(err), "expected WAL file to be removed on close")
}
