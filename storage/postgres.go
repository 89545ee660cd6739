package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"portal_scraper/identity"
	"portal_scraper/models"
)

// PostgresStore is the optional second sink. Where SQLite stores flat listing
// rows, Postgres additionally collapses listings onto physical properties via
// the address fingerprint, so relistings of the same home are tracked.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id UUID PRIMARY KEY,
		fingerprint TEXT UNIQUE NOT NULL,
		address_full TEXT,
		property_type TEXT,
		beds INT,
		baths INT,
		is_new_home BOOLEAN DEFAULT FALSE,
		first_seen_at TIMESTAMPTZ DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ DEFAULT NOW(),
		times_listed INT DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS listings (
		listing_id TEXT PRIMARY KEY,
		property_id UUID REFERENCES properties(id),
		url TEXT NOT NULL,
		address TEXT,
		title TEXT,
		price_amount DOUBLE PRECISION,
		price_currency TEXT,
		price_display TEXT,
		bedrooms INT,
		bathrooms INT,
		property_type TEXT,
		description TEXT,
		key_features JSONB,
		details JSONB,
		images JSONB,
		floorplans JSONB,
		agent JSONB,
		is_new_home BOOLEAN DEFAULT FALSE,
		extraction_method TEXT,
		scraped_at TIMESTAMPTZ,
		first_seen_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_pg_listings_property ON listings(property_id);
	CREATE INDEX IF NOT EXISTS idx_pg_listings_scraped ON listings(scraped_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveBatch upserts each record and links it to a fingerprint-deduped
// property row. Failed extractions have no usable address, so they get a
// listing row but no property link.
func (s *PostgresStore) SaveBatch(ctx context.Context, records []models.ListingRecord) error {
	for i := range records {
		rec := &records[i]

		var propertyID *uuid.UUID
		if rec.Address != "" {
			id, err := s.upsertProperty(ctx, rec)
			if err != nil {
				return fmt.Errorf("upsert property %s: %w", rec.ListingID, err)
			}
			propertyID = &id
		}

		if err := s.upsertListing(ctx, rec, propertyID); err != nil {
			return fmt.Errorf("upsert listing %s: %w", rec.ListingID, err)
		}
	}
	return nil
}

func (s *PostgresStore) upsertProperty(ctx context.Context, rec *models.ListingRecord) (uuid.UUID, error) {
	fingerprint := identity.Fingerprint(rec)

	query := `
		INSERT INTO properties (id, fingerprint, address_full, property_type, beds, baths, is_new_home, times_listed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (fingerprint) DO UPDATE SET
			address_full = COALESCE(NULLIF(EXCLUDED.address_full, ''), properties.address_full),
			property_type = COALESCE(NULLIF(EXCLUDED.property_type, ''), properties.property_type),
			beds = COALESCE(EXCLUDED.beds, properties.beds),
			baths = COALESCE(EXCLUDED.baths, properties.baths),
			is_new_home = EXCLUDED.is_new_home,
			last_seen_at = NOW(),
			times_listed = properties.times_listed + 1
		RETURNING id`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query,
		uuid.New(), fingerprint, rec.Address, rec.PropertyType,
		rec.Bedrooms, rec.Bathrooms, rec.IsNewHome,
	).Scan(&id)
	return id, err
}

func (s *PostgresStore) upsertListing(ctx context.Context, rec *models.ListingRecord, propertyID *uuid.UUID) error {
	query := `
		INSERT INTO listings (
			listing_id, property_id, url, address, title, price_amount, price_currency,
			price_display, bedrooms, bathrooms, property_type, description, key_features,
			details, images, floorplans, agent, is_new_home, extraction_method, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (listing_id) DO UPDATE SET
			property_id = COALESCE(EXCLUDED.property_id, listings.property_id),
			url = EXCLUDED.url,
			address = COALESCE(NULLIF(EXCLUDED.address, ''), listings.address),
			title = COALESCE(NULLIF(EXCLUDED.title, ''), listings.title),
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			price_display = EXCLUDED.price_display,
			bedrooms = COALESCE(EXCLUDED.bedrooms, listings.bedrooms),
			bathrooms = COALESCE(EXCLUDED.bathrooms, listings.bathrooms),
			property_type = COALESCE(NULLIF(EXCLUDED.property_type, ''), listings.property_type),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), listings.description),
			key_features = EXCLUDED.key_features,
			details = EXCLUDED.details,
			images = EXCLUDED.images,
			floorplans = EXCLUDED.floorplans,
			agent = EXCLUDED.agent,
			is_new_home = EXCLUDED.is_new_home,
			extraction_method = EXCLUDED.extraction_method,
			scraped_at = EXCLUDED.scraped_at`

	_, err := s.pool.Exec(ctx, query,
		rec.ListingID, propertyID, rec.URL, rec.Address, rec.Title,
		rec.Price.Amount, rec.Price.Currency, rec.Price.DisplayText,
		rec.Bedrooms, rec.Bathrooms, rec.PropertyType, rec.Description,
		jsonb(rec.KeyFeatures), jsonb(rec.Details), jsonb(rec.Images),
		jsonb(rec.Floorplans), jsonb(rec.Agent), rec.IsNewHome,
		string(rec.ExtractionMethod), rec.ScrapedAt,
	)
	return err
}

func jsonb(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
