package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
)

// FileStore manages reading and writing the sessions.json file.
// It provides atomic writes (write-tmp-then-rename), automatic backups,
// and file locking (flock for cross-process, mutex for in-process).
// Reads parse the file fresh on every call; the file is small and each
// CLI invocation is a separate process anyway.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a FileStore for the given file path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Save writes a record, replacing any record with the same ID.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Re-read the current file (another process may have written it)
//  4. Replace or append the record
//  5. Copy current file to path+".bak" (skipped if no current file)
//  6. Write to path+".tmp" with 0600 permissions, fsync, rename over path
func (s *FileStore) Save(ctx context.Context, rec *session.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("session record needs an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range file.Sessions {
		if existing.ID == rec.ID {
			file.Sessions[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		file.Sessions = append(file.Sessions, rec)
	}

	if err := s.persist(file); err != nil {
		return err
	}
	s.logger.Debug("session record saved",
		"id", rec.ID, "account", rec.Account, "replaced", replaced)
	return nil
}

// Get retrieves a record by ID.
func (s *FileStore) Get(ctx context.Context, id string) (*session.Record, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range file.Sessions {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, session.ErrRecordNotFound
}

// Newest returns the most recently used record for a chain.
func (s *FileStore) Newest(ctx context.Context, chainID string) (*session.Record, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	var newest *session.Record
	for _, rec := range file.Sessions {
		if rec.ChainID != chainID {
			continue
		}
		if newest == nil || rec.LastUsed.After(newest.LastUsed) {
			newest = rec
		}
	}
	if newest == nil {
		return nil, session.ErrRecordNotFound
	}
	return newest, nil
}

// List returns all records, newest first.
func (s *FileStore) List(ctx context.Context) ([]*session.Record, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	recs := file.Sessions
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastUsed.After(recs[j].LastUsed)
	})
	return recs, nil
}

// Delete removes a record. Deleting an absent record is not an error,
// and does not rewrite the file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return err
	}
	defer unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	kept := file.Sessions[:0]
	for _, rec := range file.Sessions {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(file.Sessions) {
		return nil
	}
	file.Sessions = kept

	if err := s.persist(file); err != nil {
		return err
	}
	s.logger.Debug("session record deleted", "id", id)
	return nil
}

// load reads and parses sessions.json. A missing file yields an empty
// store. Warns if the existing file has permissions more open than 0600.
func (s *FileStore) load() (*sessionsFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyFile(), nil
		}
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	// Skip the permission check on Windows where Unix permission bits
	// are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 { // group or other has access
				s.logger.Warn("sessions file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var file sessionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sessions file: %w", err)
	}
	if file.Sessions == nil {
		file.Sessions = []*session.Record{}
	}
	return &file, nil
}

// lockFile acquires the cross-process flock and returns its release func.
// The sessions directory is created here, the first write-path touch, so
// a first login does not need wallet-init to have run before it.
func (s *FileStore) lockFile() (func(), error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create sessions directory: %w", err)
		}
	}
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flockLock(lockFile.Fd()); err != nil {
		_ = lockFile.Close()
		return nil, fmt.Errorf("acquire file lock: %w", err)
	}
	return func() {
		_ = flockUnlock(lockFile.Fd())
		_ = lockFile.Close()
	}, nil
}

// persist backs up the current file and writes the new contents
// atomically. Callers hold the mutex and the flock.
func (s *FileStore) persist(file *sessionsFile) error {
	file.Version = fileVersion
	file.UpdatedAt = time.Now().UTC()

	// Back up the current file (ignored if there is none yet).
	if currentData, readErr := os.ReadFile(s.path); readErr == nil {
		if writeErr := os.WriteFile(s.path+".bak", currentData, 0600); writeErr != nil {
			s.logger.Warn("failed to create backup", "error", writeErr)
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	// Records name accounts and wallets; keep the file private even if
	// umask widened the rename target.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on sessions file", "error", err)
	}
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to sessions file: %w", err)
	}
	return nil
}

var _ session.Store = (*FileStore)(nil)
