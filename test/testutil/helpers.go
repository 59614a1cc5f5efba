package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/cavsgen/internal/config"
	"github.com/TheMichaelB/cavsgen/internal/events"
)

// NewTestLogger creates a logger that discards its output.
func NewTestLogger() *events.Logger {
	return events.NewNopLogger()
}

// NewCapturingLogger creates a debug JSON logger writing into out.
func NewCapturingLogger(out *LogOutput) *events.Logger {
	return events.NewTestLogger(events.DebugLevel, "json", out)
}

// TestHelpers provides common test helper functions.
type TestHelpers struct {
	t       *testing.T
	tempDir string
}

// NewTestHelpers creates test helpers.
func NewTestHelpers(t *testing.T) *TestHelpers {
	return &TestHelpers{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// TempDir returns the temporary directory for this test.
func (h *TestHelpers) TempDir() string {
	return h.tempDir
}

// CreateTempFile creates a file with content under the temp directory.
func (h *TestHelpers) CreateTempFile(name, content string) string {
	path := filepath.Join(h.tempDir, name)

	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(h.t, err)

	err = os.WriteFile(path, []byte(content), 0644)
	require.NoError(h.t, err)

	return path
}

// ReadFile returns the content of a file under the temp directory.
func (h *TestHelpers) ReadFile(name string) string {
	content, err := os.ReadFile(filepath.Join(h.tempDir, name))
	require.NoError(h.t, err)
	return string(content)
}

// AssertFileExists checks that a file exists.
func (h *TestHelpers) AssertFileExists(name string) {
	_, err := os.Stat(filepath.Join(h.tempDir, name))
	assert.NoError(h.t, err, "File should exist: %s", name)
}

// AssertFileNotExists checks that a file does not exist.
func (h *TestHelpers) AssertFileNotExists(name string) {
	_, err := os.Stat(filepath.Join(h.tempDir, name))
	assert.True(h.t, os.IsNotExist(err), "File should not exist: %s", name)
}

// TestTimeout provides timeout context for tests.
func TestTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// TestContext creates a test context with a generous timeout for end-to-end runs.
func TestContext() (context.Context, context.CancelFunc) {
	return TestTimeout(30 * time.Second)
}

// TestConfigWithDir creates a configuration rooted at dataDir: inputs and
// output live in dataDir, state under dataDir/state.
func TestConfigWithDir(dataDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.InputDir = dataDir
	cfg.Storage.OutputDir = dataDir
	cfg.Storage.StateDir = filepath.Join(dataDir, "state")
	cfg.Fetch.Timeout = 5 * time.Second
	cfg.Fetch.RetryDelay = 10 * time.Millisecond
	cfg.Log = config.LogConfig{
		Level:  "debug",
		Format: "json",
		Color:  false,
	}
	return cfg
}

// LogEntry is one decoded JSON log line.
type LogEntry struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"msg"`
	Fields  map[string]interface{} `json:"-"`
}

// LogOutput captures JSON log output for testing.
type LogOutput struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewLogOutput creates a new log output capturer.
func NewLogOutput() *LogOutput {
	return &LogOutput{}
}

// Write implements io.Writer to capture log output.
func (lo *LogOutput) Write(p []byte) (n int, err error) {
	var entry LogEntry
	if err := json.Unmarshal(p, &entry); err == nil {
		_ = json.Unmarshal(p, &entry.Fields)
		lo.mu.Lock()
		lo.entries = append(lo.entries, entry)
		lo.mu.Unlock()
	}
	return len(p), nil
}

// Entries returns captured log entries.
func (lo *LogOutput) Entries() []LogEntry {
	lo.mu.RLock()
	defer lo.mu.RUnlock()

	entries := make([]LogEntry, len(lo.entries))
	copy(entries, lo.entries)
	return entries
}

// HasLevel checks if any log entry has the specified level.
func (lo *LogOutput) HasLevel(level string) bool {
	lo.mu.RLock()
	defer lo.mu.RUnlock()

	for _, entry := range lo.entries {
		if entry.Level == level {
			return true
		}
	}
	return false
}

// HasMessage checks if any log entry contains the message.
func (lo *LogOutput) HasMessage(message string) bool {
	lo.mu.RLock()
	defer lo.mu.RUnlock()

	for _, entry := range lo.entries {
		if strings.Contains(entry.Message, message) {
			return true
		}
	}
	return false
}

// Clear clears all captured entries.
func (lo *LogOutput) Clear() {
	lo.mu.Lock()
	defer lo.mu.Unlock()
	lo.entries = nil
}

// SkipIfShort skips test if testing.Short() is true.
func SkipIfShort(t *testing.T, reason string) {
	if testing.Short() {
		t.Skipf("Skipping test in short mode: %s", reason)
	}
}
