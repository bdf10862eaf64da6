package journal

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

const defaultRecentCap = 500

// WriterStore implements journal.Store writing JSON lines to an
// arbitrary writer, stdout by default. Keeps a bounded buffer of recent
// entries so journal.Reader works without a file on disk.
type WriterStore struct {
	encoder *json.Encoder
	writer  io.Writer
	mu      sync.Mutex
	recent  []journal.Entry
	cap     int
}

// NewWriterStore creates a journal store writing to w; os.Stdout when
// w is nil. An optional capacity sets the recent buffer size.
func NewWriterStore(w io.Writer, capacity ...int) *WriterStore {
	if w == nil {
		w = os.Stdout
	}
	c := defaultRecentCap
	if len(capacity) > 0 && capacity[0] > 0 {
		c = capacity[0]
	}
	return &WriterStore{
		encoder: json.NewEncoder(w),
		writer:  w,
		recent:  make([]journal.Entry, 0, c),
		cap:     c,
	}
}

// Append writes entries as JSON lines and records them in the recent
// buffer.
func (s *WriterStore) Append(ctx context.Context, entries ...journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if err := s.encoder.Encode(e); err != nil {
			return err
		}
		if len(s.recent) >= s.cap {
			// Shift left, drop oldest.
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = e
		} else {
			s.recent = append(s.recent, e)
		}
	}
	return nil
}

// Flush is a no-op; the writer is unbuffered at this layer.
func (s *WriterStore) Flush(ctx context.Context) error {
	return nil
}

// Close closes the underlying writer when it is a regular file.
func (s *WriterStore) Close() error {
	if f, ok := s.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *WriterStore) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.recent)
	if limit > total {
		limit = total
	}
	if limit <= 0 {
		return nil, nil
	}
	result := make([]journal.Entry, limit)
	for i := 0; i < limit; i++ {
		result[i] = s.recent[total-1-i]
	}
	return result, nil
}

// Compile-time interface verification.
var (
	_ journal.Store  = (*WriterStore)(nil)
	_ journal.Reader = (*WriterStore)(nil)
)
