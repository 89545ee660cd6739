package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestJSONLDBlocksFiltersByType(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type":"BreadcrumbList","itemListElement":[]}</script>
	<script type="application/ld+json">{"@type":"Product","name":"3 bed semi-detached house for sale","offers":{"price":325000,"priceCurrency":"GBP"}}</script>
	<script type="application/ld+json">not json at all {{{</script>
	</head><body></body></html>`

	blocks := JSONLDBlocks(docFromHTML(t, html))
	if len(blocks) != 1 {
		t.Fatalf("expected 1 listing block, got %d", len(blocks))
	}
	if blocks[0]["name"] != "3 bed semi-detached house for sale" {
		t.Fatalf("unexpected block %v", blocks[0])
	}
}

func TestJSONLDBlocksGraphAndArray(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@graph":[{"@type":"WebSite"},{"@type":"RealEstateListing","name":"graph entry"}]}</script>
	<script type="application/ld+json">[{"@type":"House","name":"array entry"}]</script>
	</head></html>`

	blocks := JSONLDBlocks(docFromHTML(t, html))
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
}

func TestAppStateBlobs(t *testing.T) {
	html := `<html><body>
	<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"ok":true}}}</script>
	<script>window.PAGE_MODEL = {"propertyData":{"id":"162532097"},"metadata":{"copy":"a \"quoted\" string with a } brace"}};doSomething();</script>
	<script>window.adInfo = this is not json;</script>
	</body></html>`

	blobs := AppStateBlobs(docFromHTML(t, html))
	if len(blobs) != 2 {
		t.Fatalf("expected 2 blobs, got %d", len(blobs))
	}

	model, ok := blobs[1].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object blob, got %T", blobs[1])
	}
	if Object(model, "propertyData") == nil {
		t.Fatalf("propertyData missing from extracted blob")
	}
}

func TestFindListingNodePrefersShallower(t *testing.T) {
	raw := `{
		"outer": {
			"displayAddress": "12 Acacia Avenue, Leeds",
			"price": {"amount": 325000},
			"nested": {
				"address": "deeper match",
				"bedrooms": 2
			}
		}
	}`
	var root interface{}
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	node := FindListingNode(root)
	if node == nil {
		t.Fatalf("expected a listing node")
	}
	if String(node, "displayAddress") != "12 Acacia Avenue, Leeds" {
		t.Fatalf("expected the shallower node, got %v", node)
	}
}

func TestFindListingNodeRequiresCoOccurringKeys(t *testing.T) {
	raw := `{"a":{"address":"only an address"},"b":{"price":100}}`
	var root interface{}
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if node := FindListingNode(root); node != nil {
		t.Fatalf("expected no match, got %v", node)
	}
}

func TestFindListingNodeDepthBound(t *testing.T) {
	// Build a chain deeper than the search bound with the target at the end.
	target := map[string]interface{}{
		"address":  "too deep",
		"bedrooms": float64(3),
	}
	node := interface{}(target)
	for i := 0; i < MaxSearchDepth+2; i++ {
		node = map[string]interface{}{"wrap": node}
	}
	if got := FindListingNode(node); got != nil {
		t.Fatalf("expected depth bound to hide the node, got %v", got)
	}
}

func TestURLStrings(t *testing.T) {
	items := []interface{}{
		"https://media.example.com/1.jpg",
		map[string]interface{}{"srcUrl": "https://media.example.com/2.jpg"},
		map[string]interface{}{"caption": "no url here"},
	}
	got := URLStrings(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 urls, got %v", got)
	}
}
