package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"portal_scraper/models"
)

var (
	// UK street suffixes collapse onto stable short forms so that
	// "12 Acacia Avenue" and "12 Acacia Ave" hash identically.
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"close":     "cl",
		"crescent":  "cres",
		"terrace":   "ter",
		"gardens":   "gdns",
		"grove":     "gr",
		"square":    "sq",
		"mews":      "mews",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"upper":     "up",
		"lower":     "lw",
		"flat":      "flat",
		"apartment": "flat",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint derives a stable identity for the physical property behind a
// finalized record. Two listings of the same home from different crawls (or
// with a relisted listing id) collapse onto the same fingerprint.
func Fingerprint(rec *models.ListingRecord) string {
	beds, baths := 0, 0
	if rec.Bedrooms != nil {
		beds = *rec.Bedrooms
	}
	if rec.Bathrooms != nil {
		baths = *rec.Bathrooms
	}
	input := fmt.Sprintf("%s|%d|%d|%s",
		NormalizeAddress(rec.Address),
		beds,
		baths,
		strings.ToLower(rec.PropertyType),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	addr = multiSpaceRegex.ReplaceAllString(addr, " ")
	words := strings.Fields(addr)
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}
