package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"portal_scraper/models"
	"portal_scraper/payload"
)

const baseURL = "https://www.example-homes.co.uk"

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func TestListingID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.example-homes.co.uk/properties/162532097", "162532097"},
		{"https://www.example-homes.co.uk/properties/162532097#/?channel=RES_BUY", "162532097"},
		{"https://www.example-homes.co.uk/detail?propertyId=99123", "99123"},
		{"https://www.example-homes.co.uk/map#properties/5551234", "5551234"},
		{"https://www.example-homes.co.uk/estate-agents/leeds", ""},
	}
	for _, c := range cases {
		if got := ListingID(c.url); got != c.want {
			t.Fatalf("ListingID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestCards(t *testing.T) {
	doc := loadFixture(t, "search_page.html")

	cards := Cards(doc, baseURL)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards (ad card dropped), got %d", len(cards))
	}

	first := cards[0]
	if first.ListingID != "162532097" {
		t.Fatalf("expected listing id 162532097, got %s", first.ListingID)
	}
	if first.URL != "https://www.example-homes.co.uk/properties/162532097#/?channel=RES_BUY" {
		t.Fatalf("unexpected url %s", first.URL)
	}
	if first.Address != "12 Acacia Avenue, Leeds, LS6 4DL" {
		t.Fatalf("unexpected address %q", first.Address)
	}
	if first.Price == nil || first.Price.Amount == nil || *first.Price.Amount != 325000 {
		t.Fatalf("unexpected price %+v", first.Price)
	}
	if first.Bedrooms == nil || *first.Bedrooms != 3 {
		t.Fatalf("expected 3 bedrooms, got %v", first.Bedrooms)
	}
	if first.PropertyType != "Semi-Detached" {
		t.Fatalf("expected Semi-Detached, got %q", first.PropertyType)
	}
	if len(first.Images) != 1 || first.Images[0] != "https://media.example-homes.co.uk/img/162532097/main.jpg" {
		t.Fatalf("unexpected images %v", first.Images)
	}
	if first.Agent == nil || first.Agent.Name != "Hortons Estate Agents, Leeds" {
		t.Fatalf("unexpected agent %+v", first.Agent)
	}
	if first.Source != models.MethodCardOnly {
		t.Fatalf("expected card-only source, got %s", first.Source)
	}

	second := cards[1]
	if second.Price != nil {
		t.Fatalf("POA card should have nil price, got %+v", second.Price)
	}
	if second.IsNewHome == nil || !*second.IsNewHome {
		t.Fatalf("expected new-home badge to be picked up")
	}
}

func TestFromHTML(t *testing.T) {
	doc := loadFixture(t, "detail_page.html")

	p := FromHTML(doc, baseURL)
	if p.Address != "12 Acacia Avenue, Leeds, LS6 4DL" {
		t.Fatalf("unexpected address %q", p.Address)
	}
	if p.Price == nil || p.Price.Amount == nil || *p.Price.Amount != 325000 {
		t.Fatalf("unexpected price %+v", p.Price)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Fatalf("expected 3 bedrooms from page text, got %v", p.Bedrooms)
	}
	if p.Bathrooms == nil || *p.Bathrooms != 1 {
		t.Fatalf("expected 1 bathroom from page text, got %v", p.Bathrooms)
	}
	if len(p.KeyFeatures) != 3 {
		t.Fatalf("expected 3 deduped key features, got %v", p.KeyFeatures)
	}
	if p.Details["Tenure"] != "Freehold" || p.Details["Council Tax"] != "Band C" {
		t.Fatalf("unexpected details %v", p.Details)
	}
	if len(p.Images) != 2 {
		t.Fatalf("expected 2 deduped gallery images, got %v", p.Images)
	}
	if p.Images[0] != "https://www.example-homes.co.uk/img/162532097/1.jpg" {
		t.Fatalf("expected absolutized image url, got %s", p.Images[0])
	}
	if len(p.Floorplans) != 1 {
		t.Fatalf("expected 1 floorplan, got %v", p.Floorplans)
	}
	if p.Agent == nil || p.Agent.Name != "Hortons Estate Agents, Leeds" {
		t.Fatalf("unexpected agent %+v", p.Agent)
	}
	if p.Agent.Phone != "0113 496 0000" {
		t.Fatalf("unexpected agent phone %q", p.Agent.Phone)
	}
}

func TestFromJSONLD(t *testing.T) {
	doc := loadFixture(t, "detail_page.html")

	blocks := payload.JSONLDBlocks(doc)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 listing-typed block, got %d", len(blocks))
	}

	p := FromJSONLD(blocks, baseURL)
	if p == nil {
		t.Fatalf("expected a json-ld partial")
	}
	if p.Title == "" {
		t.Fatalf("expected title from linked data")
	}
	if p.Price == nil || p.Price.Amount == nil || *p.Price.Amount != 325000 {
		t.Fatalf("unexpected offer price %+v", p.Price)
	}
	if p.Price.Currency != "GBP" {
		t.Fatalf("unexpected currency %s", p.Price.Currency)
	}
	if len(p.Images) != 1 {
		t.Fatalf("expected 1 image, got %v", p.Images)
	}
}

func TestFromAppState(t *testing.T) {
	doc := loadFixture(t, "detail_page.html")

	blobs := payload.AppStateBlobs(doc)
	if len(blobs) == 0 {
		t.Fatalf("expected app-state blobs in fixture")
	}

	var node map[string]interface{}
	for _, blob := range blobs {
		if node = payload.FindListingNode(blob); node != nil {
			break
		}
	}
	if node == nil {
		t.Fatalf("expected a listing-shaped node")
	}

	p := FromAppState(node, baseURL)
	if p.ListingID != "162532097" {
		t.Fatalf("unexpected id %q", p.ListingID)
	}
	if p.Address != "12 Acacia Avenue, Leeds, LS6 4DL" {
		t.Fatalf("unexpected address %q", p.Address)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 3 {
		t.Fatalf("unexpected bedrooms %v", p.Bedrooms)
	}
	if p.PropertyType != "Semi-Detached" {
		t.Fatalf("unexpected property type %q", p.PropertyType)
	}
	if p.Price == nil || p.Price.Amount == nil || *p.Price.Amount != 325000 {
		t.Fatalf("unexpected price %+v", p.Price)
	}
	if len(p.Images) != 2 || len(p.Floorplans) != 1 {
		t.Fatalf("unexpected media %v / %v", p.Images, p.Floorplans)
	}
	if p.Agent == nil || p.Agent.Phone != "0113 496 0000" {
		t.Fatalf("unexpected agent %+v", p.Agent)
	}
	if p.Agent.Website != "https://www.example-homes.co.uk/estate-agents/agent/Hortons/Leeds-12345.html" {
		t.Fatalf("unexpected agent website %q", p.Agent.Website)
	}
	if p.Source != models.MethodEmbeddedJSON {
		t.Fatalf("unexpected source %s", p.Source)
	}
}

func TestFirstMatchScansPastImplausibleNodes(t *testing.T) {
	html := `<html><body><article>
		<span>Added on 12/08/2026</span>
		<span>£325,000</span>
	</article></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := firstMatch(doc.Selection, detailPriceRules)
	if got != "£325,000" {
		t.Fatalf("expected the currency-bearing span to win, got %q", got)
	}
}
