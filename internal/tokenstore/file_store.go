package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"zohomcp/pkg/logging"
)

// DefaultTokenStorageDir is the default directory for the token file,
// relative to the user's home directory. This follows XDG conventions.
const DefaultTokenStorageDir = ".config/zohomcp/tokens"

// DefaultTokenFileName is the default token file name.
const DefaultTokenFileName = "zoho.json"

// FileStore persists the token record as a single JSON file.
//
// SECURITY: This store handles OAuth credentials. The token file is created
// with 0600 permissions, its directory with 0700, and token values are never
// logged.
//
// Writes are atomic (write-to-temp-then-rename), so a concurrent reader never
// observes a partial record. The store keeps an in-memory copy guarded by a
// mutex; Watch invalidates it when another process (the `zohomcp auth login`
// CLI) rewrites the file.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	cached  *Record
	loaded  bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// DefaultTokenPath returns the default token file path under the user's
// home directory.
func DefaultTokenPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultTokenStorageDir, DefaultTokenFileName), nil
}

// NewFileStore creates a file-backed store at the given path, creating the
// parent directory if needed. An empty path uses the default location.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		defaultPath, err := DefaultTokenPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create token storage directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// Path returns the token file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted record, or (nil, nil) if no file exists or the
// file is malformed. A corrupt token file must not crash the process; the
// caller simply re-authenticates.
func (s *FileStore) Load() (*Record, error) {
	s.mu.RLock()
	if s.loaded {
		record := s.cached
		s.mu.RUnlock()
		return record, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.cached, nil
	}

	record, err := s.readFile()
	if err != nil {
		return nil, err
	}
	s.cached = record
	s.loaded = true
	return record, nil
}

func (s *FileStore) readFile() (*Record, error) {
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		logging.Warn("TokenStore", "Token file %s is malformed, treating as absent", s.path)
		return nil, nil
	}
	if record.AccessToken == "" && record.RefreshToken == "" {
		logging.Warn("TokenStore", "Token file %s has no credentials, treating as absent", s.path)
		return nil, nil
	}

	return &record, nil
}

// Save overwrites the persisted state atomically. The record is written to a
// temp file in the same directory and renamed into place, so a reader never
// sees a partial write. Last write wins under concurrent refreshes.
func (s *FileStore) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".zoho-token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	s.cached = record
	s.loaded = true

	logging.Info("TokenStore", "Token record saved (expires %s, refresh token: %t)",
		record.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"), record.RefreshToken != "")
	return nil
}

// Clear removes the persisted state. Clearing an absent file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	logging.Info("TokenStore", "Token record cleared")
	return nil
}

// Watch begins watching the token file's directory for external writes and
// invalidates the in-memory copy when the file changes. This lets a running
// server pick up a token written by the CLI without restarting.
// Call Close to stop watching.
func (s *FileStore) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create token file watcher: %w", err)
	}

	// Watch the directory: the atomic rename replaces the file inode, so
	// watching the file itself would stop working after the first save.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch token directory: %w", err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go s.watchLoop(watcher, s.done)
	return nil
}

func (s *FileStore) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.mu.Lock()
			s.loaded = false
			s.cached = nil
			s.mu.Unlock()
			logging.Debug("TokenStore", "Token file changed on disk, cache invalidated")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("TokenStore", "Token file watcher error: %v", err)
		case <-done:
			return
		}
	}
}

// Close stops the file watcher, if running.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	s.done = nil
	return err
}
