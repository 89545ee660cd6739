package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"portal_scraper/models"
	"portal_scraper/storage"
)

// MediaWorker drains the media queue: download, hash, upload, mark. It runs
// alongside the crawl in daemon mode and is entirely skipped when media
// mirroring is off.
type MediaWorker struct {
	store      *storage.SQLiteStore
	httpClient *http.Client
	uploader   storage.Uploader
	limiter    *rate.Limiter
	userAgent  string
}

func NewMediaWorker(store *storage.SQLiteStore, client *http.Client, uploader storage.Uploader, userAgent string) *MediaWorker {
	if uploader == nil {
		uploader = storage.NoOpUploader{}
	}
	return &MediaWorker{
		store:      store,
		httpClient: client,
		uploader:   uploader,
		limiter:    rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
		userAgent:  userAgent,
	}
}

type mediaResult struct {
	s3Key       string
	contentHash string
	size        int64
}

// Run polls the queue until the context is cancelled.
func (w *MediaWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Media worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		}
	}
}

// Drain works the queue back-to-back until it comes up empty or the context
// expires. Used after one-shot crawls.
func (w *MediaWorker) Drain(ctx context.Context, batchSize int) {
	for ctx.Err() == nil {
		if w.processBatch(ctx, batchSize) == 0 {
			return
		}
	}
}

// processBatch returns how many queued items it picked up, zero meaning the
// queue is empty (or unreadable).
func (w *MediaWorker) processBatch(ctx context.Context, batchSize int) int {
	items, err := w.store.PendingMedia(ctx, batchSize)
	if err != nil {
		log.Printf("Media worker: query error: %v", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	var processed, failed int
	for i := range items {
		item := &items[i]

		if err := w.limiter.Wait(ctx); err != nil {
			return len(items)
		}

		result, err := w.process(ctx, item)
		if err != nil {
			failed++
			item.Attempts++
			item.Status = models.MediaStatusPending
			if item.Attempts >= 3 {
				item.Status = models.MediaStatusFailed
			}
			log.Printf("Media worker: failed %s: %v", item.OriginalURL, err)
			w.store.UpdateMedia(ctx, item)
			continue
		}

		item.S3Key = &result.s3Key
		item.ContentHash = result.contentHash
		item.SizeBytes = &result.size
		item.Status = models.MediaStatusUploaded
		if err := w.store.UpdateMedia(ctx, item); err != nil {
			log.Printf("Media worker: update %s: %v", item.ID, err)
			failed++
			continue
		}
		processed++
		if p, ok := w.uploader.(publicURLer); ok {
			log.Printf("Media worker: mirrored %s -> %s", item.OriginalURL, p.PublicURL(result.s3Key))
		}
	}

	if processed > 0 || failed > 0 {
		log.Printf("Media worker: uploaded %d, failed %d", processed, failed)
	}
	return len(items)
}

// publicURLer is satisfied by uploaders whose objects have a stable public
// address, like S3Uploader.
type publicURLer interface {
	PublicURL(key string) string
}

func (w *MediaWorker) process(ctx context.Context, item *models.MediaItem) (mediaResult, error) {
	var result mediaResult

	req, err := http.NewRequestWithContext(ctx, "GET", item.OriginalURL, nil)
	if err != nil {
		return result, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("download status: %d", resp.StatusCode)
	}

	// Floorplans can be PDFs, photos are a few MB; 50MB bounds the worst case.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024))
	if err != nil {
		return result, fmt.Errorf("read body: %w", err)
	}
	result.size = int64(len(data))

	hash := sha256.Sum256(data)
	result.contentHash = hex.EncodeToString(hash[:])

	contentType := resp.Header.Get("Content-Type")
	ext := guessExtension(item.OriginalURL, contentType)
	result.s3Key = storage.MediaKey(item.ListingID, item.MediaType, result.contentHash, ext)

	if contentType == "" {
		contentType = "image/jpeg"
	}
	if err := w.uploader.Upload(ctx, result.s3Key, bytes.NewReader(data), contentType); err != nil {
		return result, fmt.Errorf("upload: %w", err)
	}

	return result, nil
}

func guessExtension(rawURL, contentType string) string {
	base := rawURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	ext := strings.ToLower(path.Ext(base))
	if knownMediaExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}

func knownMediaExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf":
		return true
	}
	return false
}
