package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// mockSlowJournalStore simulates a slow backend for testing backpressure
type mockSlowJournalStore struct {
	delay time.Duration
}

func (m *mockSlowJournalStore) Append(ctx context.Context, entries ...journal.Entry) error {
	time.Sleep(m.delay)
	return nil
}

func (m *mockSlowJournalStore) Flush(ctx context.Context) error { return nil }
func (m *mockSlowJournalStore) Close() error                    { return nil }

// mockTrackingStore records every appended entry for flush verification
type mockTrackingStore struct {
	mu      sync.Mutex
	entries []journal.Entry
	appends int
}

func (m *mockTrackingStore) Append(ctx context.Context, entries ...journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	m.appends++
	return nil
}

func (m *mockTrackingStore) Flush(ctx context.Context) error { return nil }
func (m *mockTrackingStore) Close() error                    { return nil }

func (m *mockTrackingStore) appendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends
}

func (m *mockTrackingStore) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestJournalService_OverflowWithTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Slow store to cause backpressure
	slowStore := &mockSlowJournalStore{delay: 50 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewJournalService(slowStore, logger,
		WithChannelSize(2),                   // Very small buffer
		WithSendTimeout(10*time.Millisecond), // Short timeout
		WithBatchSize(1),                     // Flush each entry
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	// Send more entries than the buffer can hold
	for i := 0; i < 10; i++ {
		svc.Record(journal.Entry{
			Event:     journal.EventRespawn,
			Account:   "player",
			Timestamp: time.Now(),
		})
	}

	// Allow time for timeout processing
	time.Sleep(150 * time.Millisecond)

	// Verify drops occurred
	drops := svc.DroppedEntries()
	if drops == 0 {
		t.Error("expected some entries to be dropped due to timeout")
	}
	t.Logf("Dropped %d entries as expected (buffer=2, sent=10)", drops)

	if capacity := svc.ChannelCapacity(); capacity != 2 {
		t.Errorf("expected capacity=2, got %d", capacity)
	}

	cancel()
	svc.Stop()
}

func TestJournalService_ChannelDepthWarning(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Capture log output
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	slowStore := &mockSlowJournalStore{delay: 100 * time.Millisecond}

	svc := NewJournalService(slowStore, logger,
		WithChannelSize(10),
		WithWarningThreshold(80), // Warn at 80% = 8 entries
		WithSendTimeout(0),       // Drop immediately (no blocking) for predictable fill
	)

	// Don't start the worker - let the channel fill up
	// Fill channel to 90% (9 out of 10)
	for i := 0; i < 9; i++ {
		select {
		case svc.entryChan <- journal.Entry{Event: journal.EventLogin}:
		default:
			t.Fatalf("channel unexpectedly full at %d", i)
		}
	}

	// Next Record() should trigger a warning (channel at 90%, threshold 80%)
	svc.Record(journal.Entry{Event: journal.EventLogin})

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "approaching capacity") {
		t.Errorf("expected warning log about channel capacity, got: %s", logOutput)
	}

	// Drain channel to avoid leak
	close(svc.entryChan)
	for range svc.entryChan {
	}
}

func TestJournalService_DropCounterAccuracy(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowJournalStore{delay: time.Second} // Very slow - won't process

	svc := NewJournalService(slowStore, logger,
		WithChannelSize(5), // Small buffer
		WithSendTimeout(0), // Drop immediately (no blocking)
		WithBatchSize(1),
	)

	if drops := svc.DroppedEntries(); drops != 0 {
		t.Errorf("expected 0 initial drops, got %d", drops)
	}

	// Don't start the worker - channel will fill and stay full
	for i := 0; i < 5; i++ {
		select {
		case svc.entryChan <- journal.Entry{Event: journal.EventPay}:
		default:
			t.Fatalf("channel full at index %d, expected to fill 5", i)
		}
	}

	if svc.ChannelDepth() != 5 {
		t.Fatalf("expected channel depth 5, got %d", svc.ChannelDepth())
	}

	// Now send exactly 10 entries that should all be dropped
	const expectedDrops = 10
	for i := 0; i < expectedDrops; i++ {
		svc.Record(journal.Entry{Event: journal.EventPay})
	}

	drops := svc.DroppedEntries()
	if drops != expectedDrops {
		t.Errorf("expected exactly %d drops, got %d", expectedDrops, drops)
	}

	// Cleanup
	close(svc.entryChan)
	for range svc.entryChan {
	}
}

func TestJournalService_DropCounterConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowJournalStore{delay: time.Second}

	svc := NewJournalService(slowStore, logger,
		WithChannelSize(1), // Tiny buffer
		WithSendTimeout(0), // Drop immediately
		WithBatchSize(1),
	)

	// Fill the single slot
	select {
	case svc.entryChan <- journal.Entry{Event: journal.EventLogout}:
	default:
		t.Fatal("failed to fill channel")
	}

	// Concurrent drops from multiple goroutines
	const goroutines = 10
	const dropsPerGoroutine = 100
	expectedTotal := goroutines * dropsPerGoroutine

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < dropsPerGoroutine; j++ {
				svc.Record(journal.Entry{Event: journal.EventLogout})
			}
		}(i)
	}
	wg.Wait()

	drops := svc.DroppedEntries()
	if drops != int64(expectedTotal) {
		t.Errorf("expected %d concurrent drops, got %d", expectedTotal, drops)
	}

	// Cleanup
	close(svc.entryChan)
	for range svc.entryChan {
	}
}

func TestJournalService_NoDropWithSufficientBuffer(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slowStore := &mockSlowJournalStore{delay: 10 * time.Millisecond}

	svc := NewJournalService(slowStore, logger,
		WithChannelSize(100), // Large buffer
		WithSendTimeout(100*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	// Send entries that fit in the buffer
	for i := 0; i < 50; i++ {
		svc.Record(journal.Entry{
			Event:     journal.EventRestore,
			Account:   "player",
			Timestamp: time.Now(),
		})
	}

	// Allow processing
	time.Sleep(200 * time.Millisecond)

	if drops := svc.DroppedEntries(); drops != 0 {
		t.Errorf("expected 0 drops with large buffer, got %d", drops)
	}

	cancel()
	svc.Stop()
}

func TestJournalService_StopFlushesPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockTrackingStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Batch larger than what we send and a ticker that never fires, so only
	// Stop can flush.
	svc := NewJournalService(store, logger,
		WithChannelSize(100),
		WithBatchSize(50),
		WithFlushInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i := 0; i < 7; i++ {
		svc.Record(journal.Entry{
			Event:   journal.EventRespawn,
			Account: "player",
			TxID:    fmt.Sprintf("tx_%d", i),
		})
	}

	// Stop must drain the channel and write the partial batch
	svc.Stop()

	if got := store.entryCount(); got != 7 {
		t.Errorf("expected 7 entries flushed on Stop, got %d", got)
	}
}

func TestJournalService_AdaptiveFlushUnderPressure(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockTrackingStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewJournalService(store, logger,
		WithChannelSize(10),
		WithBatchSize(5),
		WithFlushInterval(500*time.Millisecond), // Long interval
		WithAdaptiveFlushThreshold(50),          // Trigger at 50% (5 entries)
		WithSendTimeout(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	// Fill channel to trigger adaptive mode (>50%)
	for i := 0; i < 8; i++ {
		svc.Record(journal.Entry{
			Event:     journal.EventRespawn,
			Timestamp: time.Now(),
		})
	}

	// Wait for adaptive flush (should be faster than 500ms)
	time.Sleep(200 * time.Millisecond)

	if store.appendCount() == 0 {
		t.Error("expected at least one flush under pressure (adaptive mode)")
	}

	cancel()
	svc.Stop()
}

func TestJournalService_AdaptiveFlushDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockSlowJournalStore{delay: 10 * time.Millisecond}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Disable adaptive flush by setting the threshold to 0
	svc := NewJournalService(store, logger,
		WithChannelSize(10),
		WithBatchSize(5),
		WithFlushInterval(100*time.Millisecond),
		WithAdaptiveFlushThreshold(0), // Disabled
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	for i := 0; i < 8; i++ {
		svc.Record(journal.Entry{
			Event:     journal.EventPay,
			Timestamp: time.Now(),
		})
	}

	time.Sleep(150 * time.Millisecond)

	cancel()
	svc.Stop()
	// Test passes if no panic
}
