package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// mockFastJournalStore is a no-op store for benchmarking.
// Simulates the fastest possible backend to measure channel/service overhead.
type mockFastJournalStore struct{}

func (m *mockFastJournalStore) Append(ctx context.Context, entries ...journal.Entry) error {
	return nil
}

func (m *mockFastJournalStore) Flush(ctx context.Context) error { return nil }
func (m *mockFastJournalStore) Close() error                    { return nil }

// BenchmarkJournalRecord measures entry submission (fast path).
func BenchmarkJournalRecord(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mockFastJournalStore{}

	svc := NewJournalService(store, logger,
		WithChannelSize(10000), // Large buffer to avoid blocking
		WithBatchSize(100),
		WithFlushInterval(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	entry := journal.Entry{
		Event:     journal.EventRespawn,
		Account:   "player",
		Timestamp: time.Now(),
	}

	b.ResetTimer()
	for b.Loop() {
		svc.Record(entry)
	}

	b.StopTimer()
	cancel()
	svc.Stop()
}

// BenchmarkJournalRecordParallel measures concurrent entry submission.
// Tests channel send performance under multi-goroutine contention.
func BenchmarkJournalRecordParallel(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mockFastJournalStore{}

	svc := NewJournalService(store, logger,
		WithChannelSize(100000), // Very large buffer for parallel
		WithBatchSize(100),
		WithFlushInterval(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		entry := journal.Entry{
			Event:     journal.EventRespawn,
			Account:   "player",
			Timestamp: time.Now(),
		}
		for pb.Next() {
			svc.Record(entry)
		}
	})

	b.StopTimer()
	cancel()
	svc.Stop()
}

// BenchmarkJournalRecordWithBackpressure measures behavior under pressure.
// Uses a slow store and small buffer to trigger backpressure handling.
func BenchmarkJournalRecordWithBackpressure(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Slow store simulates real I/O latency
	store := &mockSlowJournalStore{delay: time.Microsecond}

	svc := NewJournalService(store, logger,
		WithChannelSize(100), // Smaller buffer to create pressure
		WithBatchSize(10),
		WithFlushInterval(10*time.Millisecond),
		WithSendTimeout(time.Millisecond), // Quick timeout for benchmark
		WithAdaptiveFlushThreshold(50),    // Lower threshold for testing
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	entry := journal.Entry{
		Event:     journal.EventPay,
		Account:   "player",
		Timestamp: time.Now(),
	}

	b.ResetTimer()
	for b.Loop() {
		svc.Record(entry)
	}

	b.StopTimer()
	b.ReportMetric(float64(svc.DroppedEntries()), "drops")
	cancel()
	svc.Stop()
}

// BenchmarkJournalFlush measures batch flush performance.
// Tests the store.Append() call path without channel overhead.
func BenchmarkJournalFlush(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &mockFastJournalStore{}

	svc := NewJournalService(store, logger,
		WithChannelSize(10000),
		WithBatchSize(100),
		WithFlushInterval(time.Hour), // Disable timed flush
	)

	// Pre-fill batch data
	entries := make([]journal.Entry, 100)
	for i := range entries {
		entries[i] = journal.Entry{
			Event:     journal.EventRespawn,
			Account:   "player",
			Timestamp: time.Now(),
		}
	}

	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		svc.flush(ctx, entries)
	}
}
