package paginate

import (
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"portal_scraper/models"
	"portal_scraper/normalize"
)

// State of the resolver after looking at a page.
type State int

const (
	HasNext State = iota
	Exhausted
)

// Next-control candidates, most explicit first.
var nextControlSelectors = []string{
	`a[rel="next"]`,
	`a[data-test="pagination-next"]`,
	`a[aria-label*="Next"]`,
	`.pagination-direction--next`,
}

// dataPageSelectors find controls carrying the target page number.
var dataPageSelectors = []string{
	`[data-test="pagination-next"][data-page]`,
	`.pagination [data-page]`,
}

// Result is the resolved next position.
type Result struct {
	Cursor models.SearchCursor
	State  State
}

// Resolve computes the next search-results cursor from the current page's
// DOM and request URL. Three strategies, in order: an explicit next anchor,
// a control with a numeric page attribute, and finally bumping the offset
// query parameter by the page size. The third always succeeds structurally,
// so the resolver never declares natural end-of-results - callers terminate
// on their page/record ceilings or on a page with zero cards.
func Resolve(doc *goquery.Document, cur models.SearchCursor) Result {
	next := models.SearchCursor{PageNumber: cur.PageNumber + 1}

	// 1. Explicit next link.
	for _, sel := range nextControlSelectors {
		anchor := doc.Find(sel).First()
		if anchor.Length() == 0 {
			continue
		}
		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			continue
		}
		next.RequestURL = normalize.ToAbsoluteURL(cur.RequestURL, href)
		if next.RequestURL != "" {
			return Result{Cursor: next, State: HasNext}
		}
	}

	// 2. Numeric page attribute on a pagination control.
	for _, sel := range dataPageSelectors {
		ctrl := doc.Find(sel).First()
		if ctrl.Length() == 0 {
			continue
		}
		attr, ok := ctrl.Attr("data-page")
		if !ok {
			continue
		}
		page, err := strconv.Atoi(attr)
		if err != nil || page < 1 {
			continue
		}
		u, ok := withPage(cur.RequestURL, page)
		if !ok {
			continue
		}
		next.RequestURL = u
		next.PageNumber = page
		return Result{Cursor: next, State: HasNext}
	}

	// 3. Blind offset bump. May point past the last real page; the caller's
	// zero-cards check is the terminal signal.
	u, ok := withPage(cur.RequestURL, cur.PageNumber+1)
	if !ok {
		return Result{State: Exhausted}
	}
	next.RequestURL = u
	return Result{Cursor: next, State: HasNext}
}

// withPage rewrites the request URL's pagination parameters for the target
// 1-based page number: index holds the record offset, page the page number.
// Both are set whether or not the URL carried them, so a hand-written start
// URL paginates the same as a constructed one.
func withPage(requestURL string, page int) (string, bool) {
	u, err := url.Parse(requestURL)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	q := u.Query()
	q.Set("index", strconv.Itoa((page-1)*models.PageSize))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), true
}
