package scraper

import (
	"context"
	"sync"

	"portal_scraper/models"
	"portal_scraper/storage"
)

// seenSet is the shared dedup set of queued listing URLs. One instance per
// run. Add is an atomic check-and-insert so concurrent card extraction never
// double-queues a listing.
type seenSet struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{m: make(map[string]struct{})}
}

// Add returns true when the url was not seen before.
func (s *seenSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[url]; ok {
		return false
	}
	s.m[url] = struct{}{}
	return true
}

func (s *seenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// batcher buffers finalized records and flushes them to the sink when the
// batch size is reached, and once more at shutdown for the remainder.
// Append and flush happen under a single critical section.
type batcher struct {
	mu    sync.Mutex
	buf   []models.ListingRecord
	size  int
	sink  storage.Sink
	total int
}

func newBatcher(sink storage.Sink, size int) *batcher {
	return &batcher{sink: sink, size: size}
}

func (b *batcher) Add(ctx context.Context, rec models.ListingRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, rec)
	if len(b.buf) < b.size {
		return nil
	}
	return b.flushLocked(ctx)
}

// Flush pushes any buffered remainder.
func (b *batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *batcher) flushLocked(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := b.sink.SaveBatch(ctx, b.buf); err != nil {
		return err
	}
	b.total += len(b.buf)
	b.buf = b.buf[:0]
	return nil
}

func (b *batcher) Stored() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// runStats aggregates counters across concurrent page handlers.
type runStats struct {
	mu      sync.Mutex
	pages   int
	failed  int
	errors  int
	lastErr string
}

func (s *runStats) PageDone() {
	s.mu.Lock()
	s.pages++
	s.mu.Unlock()
}

func (s *runStats) RecordFailed() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

func (s *runStats) Error(msg string) {
	s.mu.Lock()
	s.errors++
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *runStats) Snapshot() (pages, failed, errors int, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages, s.failed, s.errors, s.lastErr
}
