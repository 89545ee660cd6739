package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"portal_scraper/models"
	"portal_scraper/storage"
)

func TestDrainEmptiesQueue(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "media_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer srv.Close()

	ctx := context.Background()
	urls := []string{srv.URL + "/photo1.jpg", srv.URL + "/photo2.jpg"}
	if err := store.EnqueueMedia(ctx, "162532097", models.MediaTypeImage, urls); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	worker := NewMediaWorker(store, srv.Client(), nil, "test-agent")
	worker.Drain(ctx, 10)

	pending, err := store.PendingMedia(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("drain should leave an empty queue, %d items left", len(pending))
	}
}

func TestDrainReturnsImmediatelyWhenQueueEmpty(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "media_empty.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	worker := NewMediaWorker(store, http.DefaultClient, nil, "test-agent")

	// A cancelled-free context: Drain must return on its own, not block.
	done := make(chan struct{})
	go func() {
		worker.Drain(context.Background(), 10)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Drain did not return on an empty queue")
	}
}
