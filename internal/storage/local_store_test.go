package storage_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/storage"
)

func newStore(t *testing.T) (*storage.LocalStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	store, err := storage.NewLocalStore(tmpDir, logger)
	require.NoError(t, err)
	return store, tmpDir
}

func TestWriteAndRead(t *testing.T) {
	store, tmpDir := newStore(t)

	require.NoError(t, store.Write("gen/CAVS.elm", []byte("module CAVS"), 0644))

	data, err := store.Read("gen/CAVS.elm")
	require.NoError(t, err)
	assert.Equal(t, "module CAVS", string(data))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Join(tmpDir, "gen"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	exists, err := store.Exists("gen/CAVS.elm")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteOverwrites(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Write("out.json", []byte("first"), 0644))
	require.NoError(t, store.Write("out.json", []byte("second"), 0644))

	data, err := store.Read("out.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestConcurrentWrites(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			path := fmt.Sprintf("concurrent-%d.txt", n)
			if err := store.Write(path, []byte(fmt.Sprintf("content-%d", n)), 0644); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Write error: %v", err)
	}

	for i := 0; i < 10; i++ {
		data, err := store.Read(fmt.Sprintf("concurrent-%d.txt", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("content-%d", i), string(data))
	}
}

func TestReadMissing(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Read("SHA1ShortMsg.rsp")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	exists, err := store.Exists("SHA1ShortMsg.rsp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSizeLimit(t *testing.T) {
	store, tmpDir := newStore(t)
	store.SetMaxFileSize(1024)

	err := store.Write("large.txt", []byte(strings.Repeat("b", 2048)), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "big.rsp"), []byte(strings.Repeat("a", 2048)), 0644))
	_, err = store.Read("big.rsp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestPathSanitization(t *testing.T) {
	store, _ := newStore(t)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "normal path", path: "vectors/SHA1ShortMsg.rsp", wantErr: false},
		{name: "path with dots", path: "vectors/./a.rsp", wantErr: false},
		{name: "parent directory traversal", path: "../etc/passwd", wantErr: true},
		{name: "embedded parent traversal", path: "vectors/../../etc/passwd", wantErr: true},
		{name: "absolute path", path: "/etc/passwd.rsp", wantErr: false},
		{name: "null bytes", path: "test\x00.rsp", wantErr: true},
		{name: "double dots in name", path: "SHA1..rsp", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Write(tt.path, []byte("x"), 0644)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSymlinkRejected(t *testing.T) {
	store, tmpDir := newStore(t)

	target := filepath.Join(tmpDir, "real.rsp")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	if err := os.Symlink(target, filepath.Join(tmpDir, "link.rsp")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := store.Read("link.rsp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symlinks not allowed")
}

func TestHashAndDelete(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Write("a.rsp", []byte("Len = 0"), 0644))

	hash, err := store.Hash("a.rsp")
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	assert.Equal(t, storage.Fingerprint([]byte("Len = 0")), hash)
	assert.NotEqual(t, storage.Fingerprint([]byte("Len = 8")), hash)

	require.NoError(t, store.Delete("a.rsp"))
	require.NoError(t, store.Delete("a.rsp"))

	exists, err := store.Exists("a.rsp")
	require.NoError(t, err)
	assert.False(t, exists)
}
