package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"portal_scraper/models"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// First numeric token with optional k/m/million multiplier suffix.
	priceTokenRe = regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(million|m\b|k\b)?`)
)

// CleanText collapses whitespace runs to a single space and trims. Returns ""
// when nothing printable remains. Idempotent.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ToAbsoluteURL resolves raw against base. Already-absolute URLs pass through
// unchanged, protocol-relative ones get https, everything else resolves
// against the base origin. Returns "" for empty input.
func ToAbsoluteURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// ParsePrice turns a display price ("£1,250,000", "£450k", "£1.2 million")
// into an amount plus currency. Returns nil when the text has no numeric
// token at all (e.g. "POA"), which is distinct from a genuine zero price.
func ParsePrice(text string) *models.Price {
	display := CleanText(text)
	if display == "" {
		return nil
	}

	m := priceTokenRe.FindStringSubmatch(display)
	if m == nil {
		return nil
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(m[2])) {
	case "m", "million":
		amount *= 1_000_000
	case "k":
		amount *= 1_000
	}

	return &models.Price{
		Amount:      &amount,
		Currency:    currencyFromSymbol(display),
		DisplayText: display,
	}
}

func currencyFromSymbol(s string) string {
	switch {
	case strings.Contains(s, "£"):
		return "GBP"
	case strings.Contains(s, "€"):
		return "EUR"
	case strings.Contains(s, "$"):
		return "USD"
	}
	return "GBP"
}

// propertyTypeRules is ordered most specific first so e.g. "Semi-Detached
// House" never falls through to the bare "detached" rule.
var propertyTypeRules = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)semi[\s-]?detached`), "Semi-Detached"},
	{regexp.MustCompile(`(?i)end[\s-]?(?:of[\s-]?)?terrace|terraced?\b`), "Terraced"},
	{regexp.MustCompile(`(?i)maisonette`), "Maisonette"},
	{regexp.MustCompile(`(?i)penthouse`), "Penthouse"},
	{regexp.MustCompile(`(?i)duplex`), "Duplex"},
	{regexp.MustCompile(`(?i)studio`), "Studio"},
	{regexp.MustCompile(`(?i)bungalow`), "Bungalow"},
	{regexp.MustCompile(`(?i)detached`), "Detached"},
	{regexp.MustCompile(`(?i)flat|apartment`), "Flat"},
	{regexp.MustCompile(`(?i)house|cottage|mews`), "House"},
}

// ClassifyPropertyType maps free text onto the closed property-type taxonomy.
// Returns "" when no rule matches.
func ClassifyPropertyType(text string) string {
	if text == "" {
		return ""
	}
	for _, rule := range propertyTypeRules {
		if rule.re.MatchString(text) {
			return rule.label
		}
	}
	return ""
}

// DedupeOrdered drops empty entries and duplicates, keeping first-seen order.
// Equality is on the cleaned, case-folded form; the original spelling of the
// first occurrence is kept.
func DedupeOrdered(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		cleaned := CleanText(item)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// AbsoluteURLs absolutizes every entry against base, then dedupes preserving
// order. Safe to apply to already-absolute lists.
func AbsoluteURLs(base string, raw []string) []string {
	var abs []string
	for _, r := range raw {
		if u := ToAbsoluteURL(base, r); u != "" {
			abs = append(abs, u)
		}
	}
	seen := make(map[string]struct{}, len(abs))
	var out []string
	for _, u := range abs {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
