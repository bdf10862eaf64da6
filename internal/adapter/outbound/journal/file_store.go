// Package journal provides file-based journal persistence in JSON Lines
// format, with daily rotation, size caps, retention cleanup, and an
// in-memory cache serving recent-entry reads.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// journalFilePattern matches journal filenames:
// journal-YYYY-MM-DD.log or journal-YYYY-MM-DD-N.log
var journalFilePattern = regexp.MustCompile(`^journal-(\d{4}-\d{2}-\d{2})(?:-(\d+))?\.log$`)

// journalFileInfo holds parsed information about a journal file.
type journalFileInfo struct {
	name   string
	date   string
	suffix int
}

// parseJournalFilename parses a journal filename into its components.
func parseJournalFilename(name string) (journalFileInfo, bool) {
	matches := journalFilePattern.FindStringSubmatch(name)
	if matches == nil {
		return journalFileInfo{}, false
	}

	info := journalFileInfo{
		name: name,
		date: matches[1],
	}

	if matches[2] != "" {
		n, err := strconv.Atoi(matches[2])
		if err != nil {
			return journalFileInfo{}, false
		}
		info.suffix = n
	}

	return info, true
}

// sortJournalFiles sorts by date then suffix (chronological order).
func sortJournalFiles(files []journalFileInfo) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].date != files[j].date {
			return files[i].date < files[j].date
		}
		return files[i].suffix < files[j].suffix
	})
}

// FileConfig holds configuration for the file-based journal store.
type FileConfig struct {
	// Dir is the directory where journal files are stored.
	Dir string
	// RetentionDays is how long to keep journal files (default 90).
	// Transaction history is worth keeping far longer than debug logs.
	RetentionDays int
	// MaxFileSizeMB is the size cap before rotation (default 50).
	MaxFileSizeMB int
	// CacheSize is the number of recent entries kept in memory (default 500).
	CacheSize int
}

// FileStore implements journal.Store and journal.Reader with file
// rotation, retention, and a recent-entry cache.
type FileStore struct {
	dir           string
	maxFileSize   int64
	retentionDays int
	currentFile   *os.File
	currentDate   string
	currentSize   int64
	currentSuffix int
	cache         *entryCache
	mu            sync.Mutex
	logger        *slog.Logger
	cancel        context.CancelFunc
	closed        bool
}

// NewFileStore creates a file-based journal store. It creates the
// directory if missing, opens today's file, runs retention cleanup,
// warms the cache from the most recent file, and starts the hourly
// cleanup goroutine.
func NewFileStore(cfg FileConfig, logger *slog.Logger) (*FileStore, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 50
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 500
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &FileStore{
		dir:           cfg.Dir,
		maxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		retentionDays: cfg.RetentionDays,
		cache:         newEntryCache(cfg.CacheSize),
		logger:        logger,
		cancel:        cancel,
	}

	today := time.Now().UTC().Format("2006-01-02")
	if err := s.openCurrentFile(today); err != nil {
		cancel()
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	s.runCleanup()
	s.warmCache()

	go s.cleanupLoop(ctx)

	return s, nil
}

// Append stores entries as JSON Lines in the current journal file,
// rotating by date and size as needed.
func (s *FileStore) Append(ctx context.Context, entries ...journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		dateStr := entry.Timestamp.UTC().Format("2006-01-02")

		if dateStr != s.currentDate {
			if err := s.rotateDateLocked(dateStr); err != nil {
				return fmt.Errorf("date rotation: %w", err)
			}
		}

		if s.currentSize >= s.maxFileSize {
			if err := s.rotateSizeLocked(); err != nil {
				return fmt.Errorf("size rotation: %w", err)
			}
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}

		line := append(data, '\n')
		n, err := s.currentFile.Write(line)
		if err != nil {
			return fmt.Errorf("write journal entry: %w", err)
		}
		s.currentSize += int64(n)

		s.cache.Add(entry)
	}

	return nil
}

// Flush forces pending entries to disk by syncing the current file.
func (s *FileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentFile != nil {
		return s.currentFile.Sync()
	}
	return nil
}

// Close stops the cleanup goroutine and closes the current file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.cancel()

	if s.currentFile != nil {
		_ = s.currentFile.Sync()
		err := s.currentFile.Close()
		s.currentFile = nil
		return err
	}

	return nil
}

// Recent returns up to limit entries from the cache, newest first.
func (s *FileStore) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	return s.cache.Recent(limit), nil
}

// openCurrentFile opens or creates the journal file for the given date,
// resuming the highest suffix already on disk.
func (s *FileStore) openCurrentFile(dateStr string) error {
	suffix := s.findHighestSuffix(dateStr)

	f, size, err := s.openFile(dateStr, suffix)
	if err != nil {
		return err
	}

	s.currentFile = f
	s.currentDate = dateStr
	s.currentSize = size
	s.currentSuffix = suffix

	return nil
}

// findHighestSuffix returns the highest existing suffix for a date, or 0.
func (s *FileStore) findHighestSuffix(dateStr string) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	highest := 0
	for _, e := range entries {
		info, ok := parseJournalFilename(e.Name())
		if !ok || info.date != dateStr {
			continue
		}
		if info.suffix > highest {
			highest = info.suffix
		}
	}

	return highest
}

// openFile opens a journal file for appending and reports its size.
func (s *FileStore) openFile(dateStr string, suffix int) (*os.File, int64, error) {
	filename := s.buildFilename(dateStr, suffix)
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, 0, fmt.Errorf("open file %s: %w", filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat file %s: %w", filename, err)
	}

	return f, info.Size(), nil
}

func (s *FileStore) buildFilename(dateStr string, suffix int) string {
	if suffix == 0 {
		return fmt.Sprintf("journal-%s.log", dateStr)
	}
	return fmt.Sprintf("journal-%s-%d.log", dateStr, suffix)
}

// rotateDateLocked closes the current file and opens one for the new
// date. Must be called with s.mu held.
func (s *FileStore) rotateDateLocked(dateStr string) error {
	if s.currentFile != nil {
		_ = s.currentFile.Sync()
		_ = s.currentFile.Close()
		s.currentFile = nil
	}

	s.currentSuffix = 0
	s.currentSize = 0
	s.currentDate = dateStr

	f, size, err := s.openFile(dateStr, 0)
	if err != nil {
		return err
	}

	s.currentFile = f
	s.currentSize = size

	return nil
}

// rotateSizeLocked opens a new file with an incremented suffix.
// Must be called with s.mu held.
func (s *FileStore) rotateSizeLocked() error {
	if s.currentFile != nil {
		_ = s.currentFile.Sync()
		_ = s.currentFile.Close()
		s.currentFile = nil
	}

	s.currentSuffix++
	s.currentSize = 0

	f, size, err := s.openFile(s.currentDate, s.currentSuffix)
	if err != nil {
		return err
	}

	s.currentFile = f
	s.currentSize = size

	return nil
}

// runCleanup deletes journal files older than the retention period.
func (s *FileStore) runCleanup() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("journal cleanup: failed to read directory", "dir", s.dir, "error", err)
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted := 0

	for _, e := range entries {
		info, ok := parseJournalFilename(e.Name())
		if !ok {
			continue
		}

		fileDate, err := time.Parse("2006-01-02", info.date)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			path := filepath.Join(s.dir, e.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Error("journal cleanup: failed to delete file",
					"file", e.Name(), "error", err)
			} else {
				deleted++
			}
		}
	}

	if deleted > 0 {
		s.logger.Info("journal cleanup completed", "deleted", deleted)
	}
}

// cleanupLoop runs retention cleanup hourly until ctx is cancelled.
func (s *FileStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// warmCache reads the most recent journal file into the cache so Recent
// works across restarts.
func (s *FileStore) warmCache() {
	mostRecent := s.findMostRecentFile()
	if mostRecent == "" {
		return
	}

	path := filepath.Join(s.dir, mostRecent)
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("journal cache: failed to open file", "file", mostRecent, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	var entries []journal.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry journal.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			s.logger.Warn("journal cache: skipping malformed line",
				"file", mostRecent, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("journal cache: error reading file", "file", mostRecent, "error", err)
	}

	start := 0
	if len(entries) > s.cache.size {
		start = len(entries) - s.cache.size
	}

	// Chronological order so the newest ends up most recent in the cache.
	for _, entry := range entries[start:] {
		s.cache.Add(entry)
	}
}

// findMostRecentFile returns the most recent non-empty journal file, or "".
func (s *FileStore) findMostRecentFile() string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return ""
	}

	var files []journalFileInfo
	for _, e := range entries {
		info, ok := parseJournalFilename(e.Name())
		if !ok {
			continue
		}
		finfo, err := e.Info()
		if err != nil || finfo.Size() == 0 {
			continue
		}
		files = append(files, info)
	}

	if len(files) == 0 {
		return ""
	}

	sortJournalFiles(files)

	return files[len(files)-1].name
}

// Compile-time interface verification.
var (
	_ journal.Store  = (*FileStore)(nil)
	_ journal.Reader = (*FileStore)(nil)
)

// entryCache is a ring buffer of recent entries for fast reads.
type entryCache struct {
	entries []journal.Entry
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

func newEntryCache(size int) *entryCache {
	if size <= 0 {
		size = 500
	}
	return &entryCache{
		entries: make([]journal.Entry, size),
		size:    size,
	}
}

// Add appends an entry, overwriting the oldest when full.
func (c *entryCache) Add(entry journal.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.head] = entry
	c.head = (c.head + 1) % c.size
	if c.count < c.size {
		c.count++
	}
}

// Recent returns the last n entries, newest first.
func (c *entryCache) Recent(n int) []journal.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n <= 0 || c.count == 0 {
		return nil
	}

	if n > c.count {
		n = c.count
	}

	result := make([]journal.Entry, n)
	for i := 0; i < n; i++ {
		// head points at the next write slot, so head-1 is most recent
		idx := (c.head - 1 - i + c.size) % c.size
		result[i] = c.entries[idx]
	}

	return result
}
