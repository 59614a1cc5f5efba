package state_test

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
	"github.com/TheMichaelB/cavsgen/internal/state"
)

func newJSONStore(t *testing.T, dir string) *state.JSONStore {
	t.Helper()
	var buf bytes.Buffer
	store, err := state.NewJSONStore(dir, events.NewTestLogger(events.DebugLevel, "json", &buf))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newSQLiteStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	var buf bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := state.NewSQLiteStore(dbPath, events.NewTestLogger(events.DebugLevel, "json", &buf))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleState(output string) *models.GenerationState {
	st := models.NewGenerationState(output)
	st.RecordInput("SHA1LongMsg.rsp", "fp-long", 64)
	st.RecordInput("SHA1ShortMsg.rsp", "fp-short", 65)
	st.MarkCompleted("elm", "settings-fp", "out-hash")
	return st
}

func TestJSONStore(t *testing.T) {
	testStoreOperations(t, newJSONStore(t, t.TempDir()))
}

func TestSQLiteStore(t *testing.T) {
	testStoreOperations(t, newSQLiteStore(t))
}

func TestMemoryStore(t *testing.T) {
	testStoreOperations(t, state.NewMemoryStore())
}

func testStoreOperations(t *testing.T, store state.Store) {
	output := "gen/CAVS.elm"

	t.Run("load non-existent", func(t *testing.T) {
		_, err := store.Load(output)
		assert.ErrorIs(t, err, state.ErrStateNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		saved := sampleState(output)
		require.NoError(t, store.Save(output, saved))

		loaded, err := store.Load(output)
		require.NoError(t, err)

		assert.Equal(t, output, loaded.Output)
		assert.Equal(t, "elm", loaded.Format)
		assert.Equal(t, "out-hash", loaded.OutputHash)
		assert.Equal(t, "settings-fp", loaded.Settings)
		assert.Equal(t, saved.Inputs, loaded.Inputs)
		assert.Equal(t, saved.VectorCounts, loaded.VectorCounts)
		assert.Equal(t, 129, loaded.TotalVectors())
		assert.WithinDuration(t, saved.LastRunTime, loaded.LastRunTime, time.Millisecond)
		assert.True(t, loaded.Matches("elm", "settings-fp", map[string]string{
			"SHA1LongMsg.rsp":  "fp-long",
			"SHA1ShortMsg.rsp": "fp-short",
		}))
	})

	t.Run("overwrite replaces inputs", func(t *testing.T) {
		st := models.NewGenerationState(output)
		st.RecordInput("SHA1ShortMsg.rsp", "fp-short-2", 3)
		st.SetError(errors.New("boom"))
		require.NoError(t, store.Save(output, st))

		loaded, err := store.Load(output)
		require.NoError(t, err)
		assert.Len(t, loaded.Inputs, 1)
		assert.Equal(t, "fp-short-2", loaded.GetFingerprint("SHA1ShortMsg.rsp"))
		assert.Empty(t, loaded.GetFingerprint("SHA1LongMsg.rsp"))
		assert.Equal(t, "boom", loaded.LastError)
	})

	t.Run("loaded state is a copy", func(t *testing.T) {
		loaded, err := store.Load(output)
		require.NoError(t, err)
		loaded.RecordInput("other.rsp", "x", 1)

		again, err := store.Load(output)
		require.NoError(t, err)
		assert.Empty(t, again.GetFingerprint("other.rsp"))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.Save("a.json", sampleState("a.json")))

		outputs, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"a.json", output}, outputs)
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, store.Reset(output))

		_, err := store.Load(output)
		assert.ErrorIs(t, err, state.ErrStateNotFound)

		// Resetting twice is fine.
		assert.NoError(t, store.Reset(output))

		outputs, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"a.json"}, outputs)
	})
}

func TestSQLiteStoreUpgradesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	// A database written before settings were recorded.
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE generation_states (
            output TEXT PRIMARY KEY,
            format TEXT NOT NULL DEFAULT '',
            output_hash TEXT NOT NULL DEFAULT '',
            last_run_time TEXT,
            last_error TEXT,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        INSERT INTO generation_states (output, format, output_hash) VALUES ('CAVS.elm', 'elm', 'old-hash');
    `)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var buf bytes.Buffer
	store, err := state.NewSQLiteStore(dbPath, events.NewTestLogger(events.DebugLevel, "json", &buf))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	old, err := store.Load("CAVS.elm")
	require.NoError(t, err)
	assert.Equal(t, "old-hash", old.OutputHash)
	assert.Empty(t, old.Settings)
	assert.False(t, old.Matches("elm", "settings-fp", map[string]string{}))

	require.NoError(t, store.Save("CAVS.elm", sampleState("CAVS.elm")))
	loaded, err := store.Load("CAVS.elm")
	require.NoError(t, err)
	assert.Equal(t, "settings-fp", loaded.Settings)
}

func TestJSONStoreCorruption(t *testing.T) {
	dir := t.TempDir()
	store := newJSONStore(t, dir)
	output := "CAVS.elm"

	t.Run("garbage without backup", func(t *testing.T) {
		path := filepath.Join(dir, output+".json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := store.Load(output)
		assert.ErrorIs(t, err, state.ErrStateCorrupt)
	})

	t.Run("checksum mismatch falls back to backup", func(t *testing.T) {
		require.NoError(t, store.Reset(output))

		first := sampleState(output)
		require.NoError(t, store.Save(output, first))

		second := sampleState(output)
		second.OutputHash = "second-hash"
		require.NoError(t, store.Save(output, second))

		// Tamper with the primary file.
		path := filepath.Join(dir, output+".json")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		tampered := bytes.Replace(data, []byte("second-hash"), []byte("evil-hash!!"), 1)
		require.NoError(t, os.WriteFile(path, tampered, 0600))

		loaded, err := store.Load(output)
		require.NoError(t, err)
		assert.Equal(t, "out-hash", loaded.OutputHash)
	})
}

func TestJSONStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	store := newJSONStore(t, dir)

	require.NoError(t, store.Save("out/dir/CAVS.elm", sampleState("out/dir/CAVS.elm")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())

	outputs, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"out/dir/CAVS.elm"}, outputs)
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name   string
		source func(t *testing.T) state.Store
		target func(t *testing.T) state.Store
	}{
		{
			name:   "json to sqlite",
			source: func(t *testing.T) state.Store { return newJSONStore(t, t.TempDir()) },
			target: func(t *testing.T) state.Store { return newSQLiteStore(t) },
		},
		{
			name:   "sqlite to json",
			source: func(t *testing.T) state.Store { return newSQLiteStore(t) },
			target: func(t *testing.T) state.Store { return newJSONStore(t, t.TempDir()) },
		},
		{
			name:   "memory to json",
			source: func(t *testing.T) state.Store { return state.NewMemoryStore() },
			target: func(t *testing.T) state.Store { return newJSONStore(t, t.TempDir()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.source(t)
			dst := tt.target(t)

			for _, output := range []string{"CAVS.elm", "vectors.json"} {
				require.NoError(t, src.Save(output, sampleState(output)))
			}

			require.NoError(t, src.Migrate(dst))

			outputs, err := dst.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"CAVS.elm", "vectors.json"}, outputs)

			loaded, err := dst.Load("vectors.json")
			require.NoError(t, err)
			assert.Equal(t, "fp-long", loaded.GetFingerprint("SHA1LongMsg.rsp"))
			assert.Equal(t, 64, loaded.VectorCounts["SHA1LongMsg.rsp"])
		})
	}
}
