package merge

import (
	"math"
	"net/url"
	"strings"
	"time"

	"portal_scraper/models"
	"portal_scraper/normalize"
)

// Merge folds an ordered sequence of partials for one listing into a single
// record. Ordering matters: callers pass partials in production order - the
// search-card partial first, then detail passes as linked data, embedded
// JSON, HTML fallback, API fallback - so the card's fields take precedence
// and later passes fill gaps.
//
// Scalar fields are first-writer-wins: once set they are never overwritten.
// List fields (images, floorplans, key features) are unioned across all
// partials and deduped, because different passes surface different subsets of
// the same gallery. The details map merges key by key with earlier keys
// taking precedence.
func Merge(partials []models.PartialListing) models.ListingRecord {
	var rec models.ListingRecord
	var isNewHome *bool
	sources := map[models.ExtractionMethod]bool{}

	for _, p := range partials {
		if !empty(p) {
			sources[p.Source] = true
		}

		if rec.ListingID == "" {
			rec.ListingID = p.ListingID
		}
		if rec.URL == "" {
			rec.URL = p.URL
		}
		if rec.Address == "" {
			rec.Address = p.Address
		}
		if rec.Title == "" {
			rec.Title = p.Title
		}
		if rec.Description == "" {
			rec.Description = p.Description
		}
		if rec.PropertyType == "" {
			rec.PropertyType = p.PropertyType
		}
		if rec.Price.Amount == nil && rec.Price.DisplayText == "" && p.Price != nil {
			rec.Price = *p.Price
		}
		if rec.Bedrooms == nil {
			rec.Bedrooms = p.Bedrooms
		}
		if rec.Bathrooms == nil {
			rec.Bathrooms = p.Bathrooms
		}
		if rec.Agent == nil {
			rec.Agent = p.Agent
		}
		if isNewHome == nil {
			isNewHome = p.IsNewHome
		}

		rec.Images = append(rec.Images, p.Images...)
		rec.Floorplans = append(rec.Floorplans, p.Floorplans...)
		rec.KeyFeatures = append(rec.KeyFeatures, p.KeyFeatures...)

		for k, v := range p.Details {
			if rec.Details == nil {
				rec.Details = make(map[string]string)
			}
			if _, ok := rec.Details[k]; !ok {
				rec.Details[k] = v
			}
		}
	}

	if isNewHome != nil {
		rec.IsNewHome = *isNewHome
	}
	rec.ExtractionMethod = method(sources)
	return rec
}

// method derives provenance from the set of passes that produced a non-empty
// partial. Failure overrides everything and is applied in Finalize.
func method(sources map[models.ExtractionMethod]bool) models.ExtractionMethod {
	switch {
	case sources[models.MethodAPIFallback]:
		return models.MethodAPIFallback
	case sources[models.MethodJSONLD] && sources[models.MethodEmbeddedJSON]:
		return models.MethodJSONLDEmbedded
	case sources[models.MethodEmbeddedJSON]:
		return models.MethodEmbeddedJSON
	case sources[models.MethodJSONLD]:
		return models.MethodJSONLD
	case sources[models.MethodHTMLParse]:
		return models.MethodHTMLParse
	case sources[models.MethodCardOnly]:
		return models.MethodCardOnly
	}
	return models.MethodFailed
}

func empty(p models.PartialListing) bool {
	return p.Address == "" && p.Title == "" && p.Description == "" &&
		p.Price == nil && p.Bedrooms == nil && p.Bathrooms == nil &&
		p.PropertyType == "" && len(p.Images) == 0 && len(p.Floorplans) == 0 &&
		len(p.KeyFeatures) == 0 && len(p.Details) == 0 && p.Agent == nil
}

// Normalize applies the post-merge cleanup. Idempotent: running it twice
// yields the same record.
func Normalize(rec *models.ListingRecord) {
	rec.Address = normalize.CleanText(rec.Address)
	rec.Title = normalize.CleanText(rec.Title)
	rec.Description = normalize.CleanText(rec.Description)

	if rec.PropertyType == "" {
		rec.PropertyType = normalize.ClassifyPropertyType(
			strings.Join([]string{rec.Title, rec.Description, rec.Address}, " "))
	}

	base := originOf(rec.URL)
	rec.Images = normalize.AbsoluteURLs(base, rec.Images)
	rec.Floorplans = normalize.AbsoluteURLs(base, rec.Floorplans)
	rec.KeyFeatures = normalize.DedupeOrdered(rec.KeyFeatures)

	if rec.Price.Amount != nil && (math.IsNaN(*rec.Price.Amount) || math.IsInf(*rec.Price.Amount, 0)) {
		rec.Price.Amount = nil
	}
	if rec.Price.Currency == "" {
		rec.Price.Currency = "GBP"
	}
	rec.Price.DisplayText = normalize.CleanText(rec.Price.DisplayText)

	if rec.Agent != nil {
		rec.Agent.Name = normalize.CleanText(rec.Agent.Name)
		rec.Agent.Phone = normalize.CleanText(rec.Agent.Phone)
		rec.Agent.Address = normalize.CleanText(rec.Agent.Address)
	}
}

// Finalize merges, normalizes, tags failures and stamps the record. The
// result is immutable from the caller's point of view: it is handed straight
// to the sink.
func Finalize(partials []models.PartialListing, scrapedAt time.Time) models.ListingRecord {
	rec := Merge(partials)
	Normalize(&rec)
	if rec.Failed() {
		rec.ExtractionMethod = models.MethodFailed
	}
	rec.ScrapedAt = scrapedAt
	return rec
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
