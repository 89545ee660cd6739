package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"portal_scraper/config"
)

// BuildSearchURL constructs the first results-page URL from the configured
// filters. An explicit start URL wins outright. Failing to produce a URL is
// a run-level error: there is nothing to crawl.
func BuildSearchURL(portal config.PortalConfig, search config.SearchConfig) (string, error) {
	if search.StartURL != "" {
		return search.StartURL, nil
	}
	if search.Location == "" {
		return "", fmt.Errorf("search config needs a location or an explicit start_url")
	}

	q := url.Values{}
	q.Set("searchLocation", search.Location)
	q.Set("index", "0")
	q.Set("page", "1")

	if search.RadiusMiles > 0 {
		q.Set("radius", strconv.FormatFloat(search.RadiusMiles, 'f', -1, 64))
	}
	if search.MinPrice > 0 {
		q.Set("minPrice", strconv.Itoa(search.MinPrice))
	}
	if search.MaxPrice > 0 {
		q.Set("maxPrice", strconv.Itoa(search.MaxPrice))
	}
	if search.MinBedrooms > 0 {
		q.Set("minBedrooms", strconv.Itoa(search.MinBedrooms))
	}
	if search.MaxBedrooms > 0 {
		q.Set("maxBedrooms", strconv.Itoa(search.MaxBedrooms))
	}
	if len(search.PropertyTypes) > 0 {
		q.Set("propertyTypes", strings.Join(search.PropertyTypes, ","))
	}

	return strings.TrimRight(portal.BaseURL, "/") + "/property-for-sale/find.html?" + q.Encode(), nil
}
