package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"portal_scraper/models"
)

// SQLiteStore is the default persistence sink plus the operational tables
// (runs, logs, media queue).
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		listing_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		address TEXT,
		title TEXT,
		price_amount REAL,
		price_currency TEXT,
		price_display TEXT,
		bedrooms INTEGER,
		bathrooms INTEGER,
		property_type TEXT,
		description TEXT,
		key_features JSON,
		details JSON,
		images JSON,
		floorplans JSON,
		agent JSON,
		is_new_home BOOLEAN DEFAULT FALSE,
		extraction_method TEXT,
		scraped_at DATETIME,
		first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		pages_processed INTEGER DEFAULT 0,
		records_stored INTEGER DEFAULT 0,
		unique_urls INTEGER DEFAULT 0,
		failed_records INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS crawl_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS media_queue (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL,
		media_type TEXT,
		original_url TEXT NOT NULL,
		s3_key TEXT,
		content_hash TEXT,
		size_bytes INTEGER,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(listing_id, original_url)
	);

	CREATE INDEX IF NOT EXISTS idx_listings_method ON listings(extraction_method);
	CREATE INDEX IF NOT EXISTS idx_listings_scraped ON listings(scraped_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON crawl_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON crawl_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_media_pending ON media_queue(status, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveBatch upserts finalized records by listing id. A re-crawled listing
// refreshes its row; first_seen_at survives the conflict.
func (s *SQLiteStore) SaveBatch(ctx context.Context, records []models.ListingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (listing_id, url, address, title, price_amount, price_currency, price_display,
			bedrooms, bathrooms, property_type, description, key_features, details, images, floorplans,
			agent, is_new_home, extraction_method, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_id) DO UPDATE SET
			url = excluded.url,
			address = COALESCE(NULLIF(excluded.address, ''), address),
			title = COALESCE(NULLIF(excluded.title, ''), title),
			price_amount = excluded.price_amount,
			price_currency = excluded.price_currency,
			price_display = excluded.price_display,
			bedrooms = COALESCE(excluded.bedrooms, bedrooms),
			bathrooms = COALESCE(excluded.bathrooms, bathrooms),
			property_type = COALESCE(NULLIF(excluded.property_type, ''), property_type),
			description = COALESCE(NULLIF(excluded.description, ''), description),
			key_features = excluded.key_features,
			details = excluded.details,
			images = excluded.images,
			floorplans = excluded.floorplans,
			agent = excluded.agent,
			is_new_home = excluded.is_new_home,
			extraction_method = excluded.extraction_method,
			scraped_at = excluded.scraped_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ListingID, rec.URL, nullStr(rec.Address), nullStr(rec.Title),
			rec.Price.Amount, rec.Price.Currency, nullStr(rec.Price.DisplayText),
			rec.Bedrooms, rec.Bathrooms, nullStr(rec.PropertyType), nullStr(rec.Description),
			asJSON(rec.KeyFeatures), asJSON(rec.Details), asJSON(rec.Images), asJSON(rec.Floorplans),
			asJSON(rec.Agent), rec.IsNewHome, string(rec.ExtractionMethod), rec.ScrapedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) CreateRun(run *models.CrawlRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO crawl_runs (started_at, status) VALUES (?, ?)`,
		run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.CrawlRun) error {
	_, err := s.db.Exec(`
		UPDATE crawl_runs SET finished_at = ?, status = ?, pages_processed = ?,
			records_stored = ?, unique_urls = ?, failed_records = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesProcessed, run.RecordsStored,
		run.UniqueURLs, run.FailedRecords, run.ErrorsCount, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message string) {
	s.db.Exec(`INSERT INTO crawl_logs (run_id, timestamp, level, message) VALUES (?, ?, ?, ?)`,
		runID, time.Now(), level, message)
}

// EnqueueMedia queues a listing's media URLs for the mirror worker. Already
// queued urls are ignored.
func (s *SQLiteStore) EnqueueMedia(ctx context.Context, listingID, mediaType string, urls []string) error {
	for _, u := range urls {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO media_queue (id, listing_id, media_type, original_url)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(listing_id, original_url) DO NOTHING`,
			uuid.NewString(), listingID, mediaType, u)
		if err != nil {
			return err
		}
	}
	return nil
}

// PendingMedia returns up to limit queued media items, oldest first.
func (s *SQLiteStore) PendingMedia(ctx context.Context, limit int) ([]models.MediaItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, listing_id, media_type, original_url, s3_key, content_hash, size_bytes, status, attempts, created_at
		FROM media_queue WHERE status = ? AND attempts < 3
		ORDER BY created_at LIMIT ?`, models.MediaStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		var item models.MediaItem
		var id string
		var hash sql.NullString
		if err := rows.Scan(&id, &item.ListingID, &item.MediaType, &item.OriginalURL,
			&item.S3Key, &hash, &item.SizeBytes, &item.Status, &item.Attempts, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ID, _ = uuid.Parse(id)
		item.ContentHash = hash.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) UpdateMedia(ctx context.Context, item *models.MediaItem) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE media_queue SET s3_key = ?, content_hash = ?, size_bytes = ?, status = ?, attempts = ?
		WHERE id = ?`,
		item.S3Key, nullStr(item.ContentHash), item.SizeBytes, item.Status, item.Attempts, item.ID.String())
	return err
}

// CountByMethod reports extraction-method provenance counts, for the run
// summary log line.
func (s *SQLiteStore) CountByMethod() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT extraction_method, COUNT(*) FROM listings GROUP BY extraction_method`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, err
		}
		out[method] = n
	}
	return out, rows.Err()
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func asJSON(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}
