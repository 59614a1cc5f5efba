package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/cavsgen/internal/events"
	"github.com/TheMichaelB/cavsgen/internal/models"
)

const (
	stateExt  = ".json"
	backupExt = ".backup"
)

// JSONStore implements file-based state storage, one checksummed file per output.
type JSONStore struct {
	baseDir string
	logger  *events.Logger
	mu      sync.RWMutex
}

// NewJSONStore creates a JSON-based state store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_state_store"),
	}, nil
}

// Load reads state from JSON file, falling back to the backup when the
// primary file is unreadable or fails its checksum.
func (s *JSONStore) Load(output string) (*models.GenerationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.statePath(output)

	s.logger.WithFields(map[string]interface{}{
		"output": output,
		"path":   path,
	}).Debug("Loading state")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	st, err := decodeState(data)
	if err != nil {
		s.logger.WithError(err).WithField("output", output).Warn("State file unusable, trying backup")
		if backup, berr := s.loadBackup(output); berr == nil {
			return backup, nil
		}
		return nil, ErrStateCorrupt
	}

	return st, nil
}

// Save writes state to JSON file.
func (s *JSONStore) Save(output string, state *models.GenerationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.statePath(output)

	s.logger.WithFields(map[string]interface{}{
		"output": output,
		"inputs": len(state.Inputs),
	}).Debug("Saving state")

	wrapper := GenerationState{
		GenerationState: state,
		SchemaVersion:   CurrentSchemaVersion,
		CreatedAt:       time.Now().UTC(),
	}

	checksum, err := stateChecksum(wrapper)
	if err != nil {
		return err
	}
	wrapper.Checksum = checksum

	jsonData, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state with checksum: %w", err)
	}

	// Create backup of existing file
	if _, err := os.Stat(path); err == nil {
		if err := s.copyFile(path, path+backupExt); err != nil {
			s.logger.WithError(err).Warn("Failed to create backup")
		}
	}

	// Write atomically
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// Reset removes state for an output.
func (s *JSONStore) Reset(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithField("output", output).Info("Resetting state")

	path := s.statePath(output)
	for _, p := range []string{path, path + backupExt} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}

	return nil
}

// List returns all outputs with state, sorted.
func (s *JSONStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read state directory: %w", err)
	}

	var outputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, stateExt) {
			continue
		}

		output, err := url.PathUnescape(strings.TrimSuffix(name, stateExt))
		if err != nil {
			s.logger.WithField("file", name).Warn("Skipping unrecognized state file")
			continue
		}
		outputs = append(outputs, output)
	}

	sort.Strings(outputs)
	return outputs, nil
}

// Migrate transfers all states to another store.
func (s *JSONStore) Migrate(target Store) error {
	n, err := migrate(s, target)
	s.logger.WithField("count", n).Info("Migrated states")
	return err
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// Helper methods

func (s *JSONStore) statePath(output string) string {
	return filepath.Join(s.baseDir, url.PathEscape(output)+stateExt)
}

func (s *JSONStore) loadBackup(output string) (*models.GenerationState, error) {
	data, err := os.ReadFile(s.statePath(output) + backupExt)
	if err != nil {
		return nil, err
	}
	return decodeState(data)
}

func (s *JSONStore) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func decodeState(data []byte) (*models.GenerationState, error) {
	var wrapper GenerationState
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}
	if wrapper.GenerationState == nil {
		return nil, fmt.Errorf("%w: empty state", ErrStateCorrupt)
	}

	if wrapper.Checksum != "" {
		calculated, err := stateChecksum(wrapper)
		if err != nil {
			return nil, err
		}
		if calculated != wrapper.Checksum {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrStateCorrupt)
		}
	}

	return wrapper.GenerationState, nil
}

// stateChecksum hashes the wrapper with its checksum field cleared.
func stateChecksum(wrapper GenerationState) (string, error) {
	wrapper.Checksum = ""
	data, err := json.Marshal(wrapper)
	if err != nil {
		return "", fmt.Errorf("marshal state for checksum: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
