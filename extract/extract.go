package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"portal_scraper/normalize"
)

var (
	bedroomsRe  = regexp.MustCompile(`(?i)\b(\d+)\s*bed(?:room)?s?\b`)
	bathroomsRe = regexp.MustCompile(`(?i)\b(\d+)\s*bath(?:room)?s?\b`)
	newHomeRe   = regexp.MustCompile(`(?i)\bnew\s+home\b`)
	currencyRe  = regexp.MustCompile(`[£€$]`)
)

// firstMatch runs a rule table against root and returns the first candidate
// that survives cleaning and its plausibility filter. All nodes a selector
// matches are scanned: a broad selector plus a filter is a valid rule, so an
// implausible first node must not mask a plausible later one.
func firstMatch(root *goquery.Selection, rules []Rule) string {
	for _, r := range rules {
		var out string
		root.Find(r.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			var val string
			if r.Attr != "" {
				val, _ = sel.Attr(r.Attr)
			} else {
				val = sel.Text()
			}
			val = normalize.CleanText(val)
			if val == "" {
				return true
			}
			if r.Filter != nil && !r.Filter(val) {
				return true
			}
			out = val
			return false
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// firstContainer returns the nodes under the first selector that matches
// anything, so later (more generic) selectors never dilute a specific hit.
func firstContainer(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if sel := root.Find(s); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// Plausibility filters. These reject the likeliest false positives rather
// than trying to validate the field.

func plausibleAddress(s string) bool {
	return len(s) >= 5 && !currencyRe.MatchString(s)
}

func plausibleAgentName(s string) bool {
	return s != "" && len(s) <= 120
}

func containsCurrency(s string) bool {
	return currencyRe.MatchString(s)
}

// countFromText pulls the first "<N> bed(room)" style count out of visible
// text. Returns nil, not zero, when the pattern is absent.
func countFromText(text string, re *regexp.Regexp) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return &n
}

func isNewHomeText(text string) bool {
	return newHomeRe.MatchString(text)
}

// listItems collects cleaned text of list items under the first matching
// feature container.
func listItems(root *goquery.Selection, selectors []string) []string {
	sel := firstContainer(root, selectors)
	if sel == nil {
		return nil
	}
	var items []string
	sel.Each(func(_ int, li *goquery.Selection) {
		items = append(items, li.Text())
	})
	return normalize.DedupeOrdered(items)
}

// definitionPairs walks dt/dd pairs under the first matching definition list
// into an attribute map. First value wins for a repeated term.
func definitionPairs(root *goquery.Selection, selectors []string) map[string]string {
	dl := firstContainer(root, selectors)
	if dl == nil {
		return nil
	}
	out := make(map[string]string)
	dl.First().Find("dt").Each(func(_ int, dt *goquery.Selection) {
		term := normalize.CleanText(dt.Text())
		def := normalize.CleanText(dt.NextFiltered("dd").Text())
		if term == "" || def == "" {
			return
		}
		if _, ok := out[term]; !ok {
			out[term] = def
		}
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// imageURLs collects src/content attributes under the first matching gallery
// container, absolutized and deduped.
func imageURLs(root *goquery.Selection, selectors []string, baseURL string) []string {
	sel := firstContainer(root, selectors)
	if sel == nil {
		return nil
	}
	var raw []string
	sel.Each(func(_ int, el *goquery.Selection) {
		if src, ok := el.Attr("src"); ok {
			raw = append(raw, src)
			return
		}
		if content, ok := el.Attr("content"); ok {
			raw = append(raw, content)
		}
	})
	return normalize.AbsoluteURLs(baseURL, raw)
}

// telLink finds a tel: anchor near (inside) the given container.
func telLink(sel *goquery.Selection) string {
	href, ok := sel.Find(`a[href^="tel:"]`).First().Attr("href")
	if !ok {
		return ""
	}
	return normalize.CleanText(strings.TrimPrefix(href, "tel:"))
}
