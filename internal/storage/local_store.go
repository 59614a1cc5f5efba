package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/TheMichaelB/cavsgen/internal/events"
)

// LocalStore reads and writes files under a base directory.
type LocalStore struct {
	baseDir string
	logger  *events.Logger

	// Security settings
	allowSymlinks bool
	maxPathLength int
	maxFileSize   int64
}

// NewLocalStore creates a local file store.
func NewLocalStore(baseDir string, logger *events.Logger) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStore{
		baseDir:       absPath,
		logger:        logger.WithField("component", "local_store"),
		allowSymlinks: false,
		maxPathLength: 4096,
		maxFileSize:   64 * 1024 * 1024, // 64MB default
	}, nil
}

// SetMaxFileSize sets the maximum file size limit for reads and writes.
func (s *LocalStore) SetMaxFileSize(size int64) {
	s.maxFileSize = size
}

// BaseDir returns the absolute base directory.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// Write saves data to a file atomically.
func (s *LocalStore) Write(path string, data []byte, mode os.FileMode) error {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return fmt.Errorf("sanitize path: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Writing file")

	if int64(len(data)) > s.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d)", len(data), s.maxFileSize)
	}

	if err := os.MkdirAll(filepath.Dir(safePath), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	// Write atomically using temp file
	tempPath := fmt.Sprintf("%s.tmp.%d", safePath, time.Now().UnixNano())

	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, safePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Read retrieves file contents. A missing file yields an error wrapping
// os.ErrNotExist.
func (s *LocalStore) Read(path string) ([]byte, error) {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return nil, fmt.Errorf("sanitize path: %w", err)
	}

	stat, err := os.Lstat(safePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if !s.allowSymlinks && stat.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlinks not allowed: %s", path)
	}

	if stat.IsDir() {
		return nil, fmt.Errorf("not a file: %s", path)
	}

	if stat.Size() > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d)", stat.Size(), s.maxFileSize)
	}

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Read file")

	return data, nil
}

// Exists checks if a file exists.
func (s *LocalStore) Exists(path string) (bool, error) {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return false, fmt.Errorf("sanitize path: %w", err)
	}

	_, err = os.Stat(safePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Hash returns the fingerprint of a stored file.
func (s *LocalStore) Hash(path string) (string, error) {
	data, err := s.Read(path)
	if err != nil {
		return "", err
	}
	return Fingerprint(data), nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (s *LocalStore) Delete(path string) error {
	safePath, err := s.sanitizePath(path)
	if err != nil {
		return fmt.Errorf("sanitize path: %w", err)
	}

	s.logger.WithField("path", path).Debug("Deleting file")

	if err := os.Remove(safePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Fingerprint is the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sanitizePath validates and normalizes a file path.
func (s *LocalStore) sanitizePath(path string) (string, error) {
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("path contains null bytes")
	}

	normalized := filepath.FromSlash(path)
	cleaned := filepath.Clean(normalized)

	// Check for directory traversal
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: contains '..'")
	}

	cleaned = strings.TrimPrefix(cleaned, string(filepath.Separator))

	fullPath := filepath.Join(s.baseDir, cleaned)

	// Verify it's under base directory
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) && fullPath != s.baseDir {
		return "", fmt.Errorf("path escapes base directory")
	}

	if len(fullPath) > s.maxPathLength {
		return "", fmt.Errorf("path too long: %d characters (max: %d)", len(fullPath), s.maxPathLength)
	}

	if err := s.validatePlatformPath(cleaned); err != nil {
		return "", err
	}

	return fullPath, nil
}

// validatePlatformPath checks platform-specific path restrictions.
func (s *LocalStore) validatePlatformPath(path string) error {
	if runtime.GOOS != "windows" {
		return nil
	}

	reserved := []string{"CON", "PRN", "AUX", "NUL", "COM1", "COM2", "COM3", "COM4",
		"COM5", "COM6", "COM7", "COM8", "COM9", "LPT1", "LPT2", "LPT3",
		"LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9"}

	for _, part := range strings.Split(path, string(filepath.Separator)) {
		upperName := strings.ToUpper(strings.TrimSuffix(part, filepath.Ext(part)))
		for _, r := range reserved {
			if upperName == r {
				return fmt.Errorf("invalid path: contains reserved name '%s'", part)
			}
		}

		for _, char := range `<>:"|?*` {
			if strings.ContainsRune(part, char) {
				return fmt.Errorf("invalid path: contains character '%c'", char)
			}
		}
	}

	return nil
}
