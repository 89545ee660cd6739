package payload

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Linked-data types treated as authoritative for a listing page.
var listingLDTypes = map[string]bool{
	"Product":           true,
	"RealEstateListing": true,
	"Apartment":         true,
	"House":             true,
}

// JSONLDBlocks parses every ld+json script in the document and returns the
// entries whose declared @type is one of the listing types. A block that
// fails to parse is skipped; the other blocks are still attempted.
func JSONLDBlocks(doc *goquery.Document) []map[string]interface{} {
	var out []map[string]interface{}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		for _, entry := range decodeLDEntries(raw) {
			if isListingLDType(entry["@type"]) {
				out = append(out, entry)
			}
		}
	})

	return out
}

// decodeLDEntries handles the three shapes ld+json blocks come in: a single
// object, a top-level array, and an object wrapping an @graph array.
func decodeLDEntries(raw string) []map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		if graph, ok := obj["@graph"].([]interface{}); ok {
			return collectObjects(graph)
		}
		return []map[string]interface{}{obj}
	}

	var arr []interface{}
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		return collectObjects(arr)
	}

	return nil
}

func collectObjects(items []interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// isListingLDType accepts both "@type": "House" and "@type": ["Product", ...].
func isListingLDType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return listingLDTypes[t]
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && listingLDTypes[s] {
				return true
			}
		}
	}
	return false
}
