package merge

import (
	"reflect"
	"testing"
	"time"

	"portal_scraper/models"
)

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func TestMergeFirstWinsScalarsUnionLists(t *testing.T) {
	a := models.PartialListing{
		ListingID: "162532097",
		URL:       "https://www.example-homes.co.uk/properties/162532097",
		Price:     &models.Price{Amount: floatPtr(325000), Currency: "GBP"},
		Images:    []string{"https://media.example-homes.co.uk/1.jpg"},
		Source:    models.MethodCardOnly,
	}
	b := models.PartialListing{
		Price:  &models.Price{Amount: floatPtr(999999), Currency: "GBP"},
		Images: []string{"https://media.example-homes.co.uk/2.jpg"},
		Source: models.MethodEmbeddedJSON,
	}

	rec := Merge([]models.PartialListing{a, b})

	if rec.Price.Amount == nil || *rec.Price.Amount != 325000 {
		t.Fatalf("expected first price to win, got %+v", rec.Price)
	}
	want := []string{
		"https://media.example-homes.co.uk/1.jpg",
		"https://media.example-homes.co.uk/2.jpg",
	}
	Normalize(&rec)
	if !reflect.DeepEqual(rec.Images, want) {
		t.Fatalf("expected unioned images %v, got %v", want, rec.Images)
	}
}

func TestMergeDetailsAccumulatorPrecedence(t *testing.T) {
	a := models.PartialListing{
		Details: map[string]string{"Tenure": "Freehold"},
		Source:  models.MethodEmbeddedJSON,
	}
	b := models.PartialListing{
		Details: map[string]string{"Tenure": "Leasehold", "Council Tax": "Band C"},
		Source:  models.MethodHTMLParse,
	}

	rec := Merge([]models.PartialListing{a, b})
	if rec.Details["Tenure"] != "Freehold" {
		t.Fatalf("existing key should win, got %q", rec.Details["Tenure"])
	}
	if rec.Details["Council Tax"] != "Band C" {
		t.Fatalf("missing key should fill, got %v", rec.Details)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rec := Merge([]models.PartialListing{
		{
			ListingID:   "1",
			URL:         "https://www.example-homes.co.uk/properties/1",
			Address:     "  12   Acacia Avenue,  Leeds ",
			Title:       "3 bedroom semi-detached house",
			Images:      []string{"/img/1.jpg", "/img/1.jpg", "/img/2.jpg"},
			KeyFeatures: []string{"Garden", " garden "},
			Source:      models.MethodHTMLParse,
		},
	})

	Normalize(&rec)
	first := cloneRecord(rec)
	Normalize(&rec)

	if !reflect.DeepEqual(first, cloneRecord(rec)) {
		t.Fatalf("Normalize not idempotent:\nfirst  %+v\nsecond %+v", first, rec)
	}
	if rec.Address != "12 Acacia Avenue, Leeds" {
		t.Fatalf("unexpected address %q", rec.Address)
	}
	if len(rec.Images) != 2 {
		t.Fatalf("expected deduped absolutized images, got %v", rec.Images)
	}
	if rec.Images[0] != "https://www.example-homes.co.uk/img/1.jpg" {
		t.Fatalf("unexpected image %s", rec.Images[0])
	}
	if rec.PropertyType != "Semi-Detached" {
		t.Fatalf("post-merge classification missing, got %q", rec.PropertyType)
	}
	if rec.Price.Currency != "GBP" {
		t.Fatalf("currency default missing, got %q", rec.Price.Currency)
	}
}

func TestFinalizeTagsFailure(t *testing.T) {
	partials := []models.PartialListing{
		{
			ListingID: "777",
			URL:       "https://www.example-homes.co.uk/properties/777",
			Bedrooms:  intPtr(2),
			Source:    models.MethodCardOnly,
		},
	}

	rec := Finalize(partials, time.Now())
	if rec.ExtractionMethod != models.MethodFailed {
		t.Fatalf("record without address and title must be tagged failed, got %s", rec.ExtractionMethod)
	}
	if rec.ListingID != "777" {
		t.Fatalf("failed record still carries identity, got %q", rec.ListingID)
	}
}

func TestFinalizeProvenance(t *testing.T) {
	base := models.PartialListing{
		ListingID: "5",
		URL:       "https://www.example-homes.co.uk/properties/5",
		Address:   "1 High Street, York",
	}

	cases := []struct {
		name     string
		sources  []models.ExtractionMethod
		expected models.ExtractionMethod
	}{
		{"card only", []models.ExtractionMethod{models.MethodCardOnly}, models.MethodCardOnly},
		{"json-ld", []models.ExtractionMethod{models.MethodCardOnly, models.MethodJSONLD}, models.MethodJSONLD},
		{"both structured", []models.ExtractionMethod{models.MethodJSONLD, models.MethodEmbeddedJSON}, models.MethodJSONLDEmbedded},
		{"api fallback", []models.ExtractionMethod{models.MethodCardOnly, models.MethodAPIFallback}, models.MethodAPIFallback},
	}

	for _, c := range cases {
		var partials []models.PartialListing
		for _, src := range c.sources {
			p := base
			p.Source = src
			partials = append(partials, p)
		}
		rec := Finalize(partials, time.Now())
		if rec.ExtractionMethod != c.expected {
			t.Fatalf("%s: expected %s, got %s", c.name, c.expected, rec.ExtractionMethod)
		}
	}
}

func TestFinalizeStampsScrapedAtOnce(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rec := Finalize([]models.PartialListing{{ListingID: "9", Title: "x", Source: models.MethodCardOnly}}, now)
	if !rec.ScrapedAt.Equal(now) {
		t.Fatalf("expected scrapedAt %v, got %v", now, rec.ScrapedAt)
	}
}

func cloneRecord(r models.ListingRecord) models.ListingRecord {
	c := r
	c.Images = append([]string(nil), r.Images...)
	c.Floorplans = append([]string(nil), r.Floorplans...)
	c.KeyFeatures = append([]string(nil), r.KeyFeatures...)
	if r.Details != nil {
		c.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			c.Details[k] = v
		}
	}
	return c
}
