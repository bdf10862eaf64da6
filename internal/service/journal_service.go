package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// JournalService provides async journaling with a buffered channel and background worker.
// Wallet and gate activity is recorded without blocking interactive commands.
type JournalService struct {
	store         journal.Store
	entryChan     chan journal.Entry
	done          chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	channelSize int           // Track capacity for monitoring
	sendTimeout time.Duration // 0 = drop immediately, >0 = block up to this duration
	dropCount   atomic.Int64  // Lock-free drop counter

	warningThreshold int          // Percentage (0-100), e.g., 80
	lastWarning      atomic.Int64 // Rate-limit warning logs (Unix nanos)

	adaptiveFlushThreshold int // Depth % that triggers faster flushing (default 80)
}

// JournalOption configures JournalService.
type JournalOption func(*JournalService)

// WithBatchSize sets the number of entries to batch before writing.
func WithBatchSize(size int) JournalOption {
	return func(s *JournalService) {
		s.batchSize = size
	}
}

// WithFlushInterval sets the interval to flush pending entries.
func WithFlushInterval(interval time.Duration) JournalOption {
	return func(s *JournalService) {
		s.flushInterval = interval
	}
}

// WithChannelSize sets the size of the journal channel buffer.
func WithChannelSize(size int) JournalOption {
	return func(s *JournalService) {
		s.entryChan = make(chan journal.Entry, size)
		s.channelSize = size // Track capacity for monitoring
	}
}

// WithSendTimeout sets the backpressure timeout.
// 0 = drop immediately (no blocking), >0 = block up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) JournalOption {
	return func(s *JournalService) {
		s.sendTimeout = timeout
	}
}

// WithWarningThreshold sets the channel depth warning percentage (0-100).
// A warning is logged when channel depth exceeds this percentage of capacity.
func WithWarningThreshold(percent int) JournalOption {
	return func(s *JournalService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.warningThreshold = percent
	}
}

// WithAdaptiveFlushThreshold sets the channel depth % that triggers faster flushing.
// When channel depth exceeds this %, flush interval is reduced to 1/4 normal.
// Default is 80%. Set to 0 to disable adaptive flushing.
func WithAdaptiveFlushThreshold(percent int) JournalOption {
	return func(s *JournalService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.adaptiveFlushThreshold = percent
	}
}

// NewJournalService creates a new JournalService with the given store and options.
func NewJournalService(store journal.Store, logger *slog.Logger, opts ...JournalOption) *JournalService {
	defaultChannelSize := 1000
	s := &JournalService{
		store:                  store,
		entryChan:              make(chan journal.Entry, defaultChannelSize),
		done:                   make(chan struct{}),
		logger:                 logger,
		batchSize:              100,
		flushInterval:          time.Second,
		channelSize:            defaultChannelSize,     // Track capacity for monitoring
		sendTimeout:            100 * time.Millisecond, // Default 100ms backpressure
		warningThreshold:       80,                     // Warn at 80% full
		adaptiveFlushThreshold: 80,                     // Speed up flush at 80% full
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the background worker that batches and writes journal entries.
func (s *JournalService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record sends a journal entry to the background worker.
// Applies backpressure: attempts fast non-blocking send, then blocks up to sendTimeout.
// If the timeout expires, the entry is dropped and counted.
func (s *JournalService) Record(entry journal.Entry) {
	// Check channel depth for early warning (rate-limited)
	if s.warningThreshold > 0 {
		depth := len(s.entryChan)
		threshold := s.channelSize * s.warningThreshold / 100
		if depth >= threshold {
			s.warnChannelDepth(depth)
		}
	}

	// Fast path: non-blocking send
	select {
	case s.entryChan <- entry:
		return // Sent successfully
	default:
		// Channel full - apply backpressure
	}

	// If no timeout configured, drop immediately
	if s.sendTimeout <= 0 {
		s.recordDrop(entry)
		return
	}

	// Slow path: block with timeout
	select {
	case s.entryChan <- entry:
		return // Sent after waiting
	case <-time.After(s.sendTimeout):
		s.recordDrop(entry)
	}
}

// recordDrop increments the counter and logs the drop
func (s *JournalService) recordDrop(entry journal.Entry) {
	drops := s.dropCount.Add(1)
	s.logger.Warn("journal entry dropped",
		"event", entry.Event,
		"account", entry.Account,
		"total_drops", drops,
	)
}

// warnChannelDepth logs a warning about channel capacity (rate-limited to once per second).
func (s *JournalService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()

	// Only warn once per second
	if now-last < int64(time.Second) {
		return
	}

	// Try to claim this warning slot (CAS for thread safety)
	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("journal channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedEntries returns total dropped entries (for metrics/alerting).
func (s *JournalService) DroppedEntries() int64 {
	return s.dropCount.Load()
}

// ChannelDepth returns current channel usage (for monitoring).
func (s *JournalService) ChannelDepth() int {
	return len(s.entryChan)
}

// ChannelCapacity returns the channel buffer size (for percentage calculation).
func (s *JournalService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop and waits for it to finish.
// Pending entries are flushed before returning.
func (s *JournalService) Stop() {
	close(s.entryChan)
	s.wg.Wait()
}

// worker is the background goroutine that collects and flushes journal entries.
func (s *JournalService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]journal.Entry, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	// Track whether we're in fast-flush mode
	fastMode := false

	for {
		select {
		case entry, ok := <-s.entryChan:
			if !ok {
				// Channel closed - final flush with bounded deadline
				if len(batch) > 0 {
					flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
					s.flush(flushCtx, batch)
					flushCancel()
				}
				return
			}
			batch = append(batch, entry)

			// Check if we should flush (batch full or adaptive trigger)
			shouldFlush := len(batch) >= s.batchSize

			// Adaptive: check channel depth and flush early under pressure
			if !shouldFlush && s.adaptiveFlushThreshold > 0 && len(batch) > 0 {
				depth := len(s.entryChan)
				depthPercent := depth * 100 / s.channelSize
				if depthPercent >= s.adaptiveFlushThreshold {
					shouldFlush = true
				}
			}

			if shouldFlush {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

			// Adaptive interval: adjust ticker based on channel pressure
			if s.adaptiveFlushThreshold > 0 {
				depth := len(s.entryChan)
				depthPercent := depth * 100 / s.channelSize

				if depthPercent >= s.adaptiveFlushThreshold && !fastMode {
					// Enter fast mode: 4x faster flush
					ticker.Reset(s.flushInterval / 4)
					fastMode = true
					s.logger.Debug("journal adaptive flush: entering fast mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval/4,
					)
				} else if depthPercent < s.adaptiveFlushThreshold && fastMode {
					// Return to normal mode
					ticker.Reset(s.flushInterval)
					fastMode = false
					s.logger.Debug("journal adaptive flush: returning to normal mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval,
					)
				}
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			// Context cancelled - drain channel and flush with bounded deadline
			for entry := range s.entryChan {
				batch = append(batch, entry)
			}
			if len(batch) > 0 {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.flush(flushCtx, batch)
				flushCancel()
			}
			return
		}
	}
}

// flush writes a batch of entries to the store.
// Errors are logged but not propagated - journaling must not fail wallet operations.
func (s *JournalService) flush(ctx context.Context, batch []journal.Entry) {
	if err := s.flushStore(ctx, batch); err != nil {
		s.logger.Error("failed to write journal batch",
			"error", err,
			"count", len(batch),
		)
	}
}

func (s *JournalService) flushStore(ctx context.Context, batch []journal.Entry) error {
	if err := s.store.Append(ctx, batch...); err != nil {
		return err
	}
	return s.store.Flush(ctx)
}
