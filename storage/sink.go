package storage

import (
	"context"

	"portal_scraper/models"
)

// Sink receives batches of finalized listing records. Implementations must
// tolerate the same listing id appearing again on a later run.
type Sink interface {
	SaveBatch(ctx context.Context, records []models.ListingRecord) error
	Close() error
}

// MultiSink fans a batch out to several sinks. The first error wins but the
// remaining sinks still get the batch.
type MultiSink []Sink

func (m MultiSink) SaveBatch(ctx context.Context, records []models.ListingRecord) error {
	var first error
	for _, s := range m {
		if err := s.SaveBatch(ctx, records); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
