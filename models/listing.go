package models

import (
	"time"
)

// ExtractionMethod records which extraction pass (or combination of passes)
// produced a finalized record. Provenance only, never used for business logic.
type ExtractionMethod string

const (
	MethodCardOnly       ExtractionMethod = "card-only"
	MethodJSONLD         ExtractionMethod = "json-ld"
	MethodEmbeddedJSON   ExtractionMethod = "embedded-json"
	MethodHTMLParse      ExtractionMethod = "html-parse"
	MethodJSONLDEmbedded ExtractionMethod = "json-ld+embedded"
	MethodAPIFallback    ExtractionMethod = "api-fallback"
	MethodFailed         ExtractionMethod = "failed"
)

// Price is a parsed asking price. Amount is nil when the source text carried
// no numeric token ("POA" and friends) - a genuine £0 listing keeps a zero
// Amount, the two are never conflated.
type Price struct {
	Amount      *float64 `json:"amount" db:"amount"`
	Currency    string   `json:"currency" db:"currency"`
	DisplayText string   `json:"display_text,omitempty" db:"display_text"`
}

// Agent is the marketing branch/agent attached to a listing. A record carries
// a nil *Agent only when no agent signal was found in any pass.
type Agent struct {
	Name    string `json:"name,omitempty" db:"name"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Address string `json:"address,omitempty" db:"address"`
	Website string `json:"website,omitempty" db:"website"`
}

// PartialListing is one extraction pass's view of a listing. Any subset of
// fields may be populated; the merge engine folds the partials for a listing
// id into a single ListingRecord.
type PartialListing struct {
	ListingID    string
	URL          string
	Address      string
	Title        string
	Description  string
	Price        *Price
	Bedrooms     *int
	Bathrooms    *int
	PropertyType string
	KeyFeatures  []string
	Details      map[string]string
	Images       []string
	Floorplans   []string
	Agent        *Agent
	IsNewHome    *bool

	// Source marks which pass produced this partial.
	Source ExtractionMethod
}

// ListingRecord is the canonical output unit. Immutable once handed to the
// sink.
type ListingRecord struct {
	ListingID        string            `json:"listing_id" db:"listing_id"`
	URL              string            `json:"url" db:"url"`
	Address          string            `json:"address,omitempty" db:"address"`
	Title            string            `json:"title,omitempty" db:"title"`
	Price            Price             `json:"price" db:"price"`
	Bedrooms         *int              `json:"bedrooms" db:"bedrooms"`
	Bathrooms        *int              `json:"bathrooms" db:"bathrooms"`
	PropertyType     string            `json:"property_type,omitempty" db:"property_type"`
	Description      string            `json:"description,omitempty" db:"description"`
	KeyFeatures      []string          `json:"key_features,omitempty" db:"key_features"`
	Details          map[string]string `json:"details,omitempty" db:"details"`
	Images           []string          `json:"images,omitempty" db:"images"`
	Floorplans       []string          `json:"floorplans,omitempty" db:"floorplans"`
	Agent            *Agent            `json:"agent,omitempty" db:"agent"`
	IsNewHome        bool              `json:"is_new_home" db:"is_new_home"`
	ExtractionMethod ExtractionMethod  `json:"extraction_method" db:"extraction_method"`
	ScrapedAt        time.Time         `json:"scraped_at" db:"scraped_at"`
}

// Failed reports whether the merged record came out without either of the
// two fields every real listing has.
func (r *ListingRecord) Failed() bool {
	return r.Address == "" && r.Title == ""
}
