package paginate

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"portal_scraper/models"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const searchURL = "https://www.example-homes.co.uk/property-for-sale/find.html?locationIdentifier=REGION%5E787&index=0&page=1"

func TestResolveNextAnchor(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<a rel="next" href="/property-for-sale/find.html?locationIdentifier=REGION%5E787&index=24&page=2">Next</a>
	</body></html>`)

	cur := models.SearchCursor{RequestURL: searchURL, PageNumber: 1}
	res := Resolve(doc, cur)
	if res.State != HasNext {
		t.Fatalf("expected HasNext")
	}
	if res.Cursor.PageNumber != 2 {
		t.Fatalf("expected page 2, got %d", res.Cursor.PageNumber)
	}
	if !strings.HasPrefix(res.Cursor.RequestURL, "https://www.example-homes.co.uk/") {
		t.Fatalf("expected absolute url, got %s", res.Cursor.RequestURL)
	}
	if !strings.Contains(res.Cursor.RequestURL, "index=24") {
		t.Fatalf("unexpected url %s", res.Cursor.RequestURL)
	}
}

func TestResolveDataPageAttribute(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<div class="pagination"><button data-page="3">3</button></div>
	</body></html>`)

	cur := models.SearchCursor{RequestURL: searchURL, PageNumber: 2}
	res := Resolve(doc, cur)
	if res.State != HasNext {
		t.Fatalf("expected HasNext")
	}
	if res.Cursor.PageNumber != 3 {
		t.Fatalf("expected page 3, got %d", res.Cursor.PageNumber)
	}
	u, err := url.Parse(res.Cursor.RequestURL)
	if err != nil {
		t.Fatalf("parse next url: %v", err)
	}
	if u.Query().Get("index") != "48" {
		t.Fatalf("expected index 48, got %s", u.Query().Get("index"))
	}
}

func TestResolveOffsetFallback(t *testing.T) {
	doc := docFromHTML(t, `<html><body><p>no pagination controls</p></body></html>`)

	cur := models.SearchCursor{RequestURL: searchURL, PageNumber: 1}
	res := Resolve(doc, cur)
	if res.State != HasNext {
		t.Fatalf("fallback must always succeed structurally")
	}
	u, err := url.Parse(res.Cursor.RequestURL)
	if err != nil {
		t.Fatalf("parse next url: %v", err)
	}
	if u.Query().Get("index") != "24" {
		t.Fatalf("expected index 24, got %s", u.Query().Get("index"))
	}
	if u.Query().Get("page") != "2" {
		t.Fatalf("expected page param bumped to 2, got %s", u.Query().Get("page"))
	}
}

func TestResolveOffsetFallbackAddsPageParam(t *testing.T) {
	doc := docFromHTML(t, `<html><body><p>no pagination controls</p></body></html>`)

	// A hand-written start url carrying neither index nor page.
	cur := models.SearchCursor{
		RequestURL: "https://www.example-homes.co.uk/property-for-sale/find.html?locationIdentifier=REGION%5E787",
		PageNumber: 1,
	}
	res := Resolve(doc, cur)
	if res.State != HasNext {
		t.Fatalf("fallback must always succeed structurally")
	}
	u, err := url.Parse(res.Cursor.RequestURL)
	if err != nil {
		t.Fatalf("parse next url: %v", err)
	}
	if u.Query().Get("index") != "24" {
		t.Fatalf("expected index 24, got %s", u.Query().Get("index"))
	}
	if u.Query().Get("page") != "2" {
		t.Fatalf("page must be set even when the start url lacked it, got %q", u.Query().Get("page"))
	}
}

func TestResolveExhaustedOnBadURL(t *testing.T) {
	doc := docFromHTML(t, `<html><body></body></html>`)
	cur := models.SearchCursor{RequestURL: "::not a url::", PageNumber: 1}
	if res := Resolve(doc, cur); res.State != Exhausted {
		t.Fatalf("expected Exhausted for unparseable request url")
	}
}

func TestResolvePageNumberStrictlyIncreases(t *testing.T) {
	doc := docFromHTML(t, `<html><body></body></html>`)

	cur := models.SearchCursor{RequestURL: searchURL, PageNumber: 1}
	maxPages := 5
	pages := 0
	for cur.PageNumber <= maxPages {
		pages++
		res := Resolve(doc, cur)
		if res.State != HasNext {
			t.Fatalf("unexpected exhaustion at page %d", cur.PageNumber)
		}
		if res.Cursor.PageNumber != cur.PageNumber+1 {
			t.Fatalf("page number must increase by exactly 1: %d -> %d", cur.PageNumber, res.Cursor.PageNumber)
		}
		cur = res.Cursor
	}
	if pages != maxPages {
		t.Fatalf("expected exactly %d resolutions, got %d", maxPages, pages)
	}
	wantIndex := fmt.Sprintf("index=%d", maxPages*models.PageSize)
	if !strings.Contains(cur.RequestURL, wantIndex) {
		t.Fatalf("expected %s in %s", wantIndex, cur.RequestURL)
	}
}
