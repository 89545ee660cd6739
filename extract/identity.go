package extract

import "regexp"

// Listing-id URL patterns, tried in priority order. First capture group wins.
var listingIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/properties/(\d+)`),
	regexp.MustCompile(`[?&]propertyId=(\d+)`),
	regexp.MustCompile(`#properties/(\d+)`),
}

// ListingID derives the stable listing identifier from a listing URL.
// Returns "" when no pattern matches.
func ListingID(url string) string {
	for _, re := range listingIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}
