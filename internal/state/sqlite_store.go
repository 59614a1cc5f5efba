package state

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
)

// SQLiteStore implements SQLite-based state storage.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
	mu     sync.RWMutex
}

// NewSQLiteStore creates a SQLite state store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_state_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS generation_states (
        output TEXT PRIMARY KEY,
        format TEXT NOT NULL DEFAULT '',
        settings TEXT NOT NULL DEFAULT '',
        output_hash TEXT NOT NULL DEFAULT '',
        last_run_time TEXT,
        last_error TEXT,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS generation_inputs (
        output TEXT NOT NULL,
        path TEXT NOT NULL,
        fingerprint TEXT NOT NULL,
        vectors INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (output, path),
        FOREIGN KEY (output) REFERENCES generation_states(output) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_generation_inputs_output ON generation_inputs(output);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := s.addColumn("generation_states", "settings", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_info (version) VALUES (?)", CurrentSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return nil
}

// addColumn adds a column to tables created by an earlier schema version.
func (s *SQLiteStore) addColumn(table, column, decl string) error {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan %s column: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	rows.Close()

	if _, err := s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + decl); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

// Load retrieves state from database.
func (s *SQLiteStore) Load(output string) (*models.GenerationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := models.NewGenerationState(output)

	var lastRun, lastError sql.NullString
	err := s.db.QueryRow(`
        SELECT format, settings, output_hash, last_run_time, last_error
        FROM generation_states
        WHERE output = ?
    `, output).Scan(&state.Format, &state.Settings, &state.OutputHash, &lastRun, &lastError)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}

	if lastRun.Valid && lastRun.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("%w: last_run_time: %v", ErrStateCorrupt, err)
		}
		state.LastRunTime = t
	}
	if lastError.Valid {
		state.LastError = lastError.String
	}

	rows, err := s.db.Query(`
        SELECT path, fingerprint, vectors
        FROM generation_inputs
        WHERE output = ?
    `, output)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, fingerprint string
		var vectors int
		if err := rows.Scan(&path, &fingerprint, &vectors); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		state.RecordInput(path, fingerprint, vectors)
	}

	return state, rows.Err()
}

// Save persists state to database in a single transaction.
func (s *SQLiteStore) Save(output string, state *models.GenerationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastRun, lastError interface{}
	if !state.LastRunTime.IsZero() {
		lastRun = state.LastRunTime.UTC().Format(time.RFC3339Nano)
	}
	if state.LastError != "" {
		lastError = state.LastError
	}

	_, err = tx.Exec(`
        INSERT INTO generation_states (output, format, settings, output_hash, last_run_time, last_error, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(output) DO UPDATE SET
            format = excluded.format,
            settings = excluded.settings,
            output_hash = excluded.output_hash,
            last_run_time = excluded.last_run_time,
            last_error = excluded.last_error,
            updated_at = CURRENT_TIMESTAMP
    `, output, state.Format, state.Settings, state.OutputHash, lastRun, lastError)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	// Replace the input set wholesale.
	if _, err := tx.Exec("DELETE FROM generation_inputs WHERE output = ?", output); err != nil {
		return fmt.Errorf("clear inputs: %w", err)
	}

	if len(state.Inputs) > 0 {
		stmt, err := tx.Prepare(`
            INSERT INTO generation_inputs (output, path, fingerprint, vectors)
            VALUES (?, ?, ?, ?)
        `)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for path, fingerprint := range state.Inputs {
			if _, err := stmt.Exec(output, path, fingerprint, state.VectorCounts[path]); err != nil {
				return fmt.Errorf("insert input %s: %w", path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"output": output,
		"inputs": len(state.Inputs),
	}).Debug("Saved state to database")

	return nil
}

// Reset removes state for an output.
func (s *SQLiteStore) Reset(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM generation_states WHERE output = ?", output); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}

	s.logger.WithField("output", output).Info("Reset state")
	return nil
}

// List returns all outputs with state.
func (s *SQLiteStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT output FROM generation_states ORDER BY output")
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	var outputs []string
	for rows.Next() {
		var output string
		if err := rows.Scan(&output); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outputs = append(outputs, output)
	}

	return outputs, rows.Err()
}

// Migrate transfers all states to another store.
func (s *SQLiteStore) Migrate(target Store) error {
	n, err := migrate(s, target)
	s.logger.WithField("count", n).Info("Migrated states")
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
