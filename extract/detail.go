package extract

import (
	"encoding/json"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"portal_scraper/models"
	"portal_scraper/normalize"
	"portal_scraper/payload"
)

// FromJSONLD folds the page's listing-typed linked-data blocks into one
// partial. Linked data is authoritative for title, description, images and
// the offer price; anything else stays unset for later passes.
func FromJSONLD(blocks []map[string]interface{}, baseURL string) *models.PartialListing {
	if len(blocks) == 0 {
		return nil
	}

	p := &models.PartialListing{Source: models.MethodJSONLD}

	for _, block := range blocks {
		if p.Title == "" {
			p.Title = normalize.CleanText(payload.String(block, "name"))
		}
		if p.Description == "" {
			p.Description = normalize.CleanText(payload.String(block, "description"))
		}
		if len(p.Images) == 0 {
			p.Images = ldImages(block, baseURL)
		}
		if p.Price == nil {
			p.Price = ldOfferPrice(block)
		}
	}

	if p.Title == "" && p.Description == "" && len(p.Images) == 0 && p.Price == nil {
		return nil
	}
	return p
}

// ldImages accepts "image" as a single string, an array of strings, or an
// array of ImageObject entries.
func ldImages(block map[string]interface{}, baseURL string) []string {
	if s := payload.String(block, "image"); s != "" {
		return normalize.AbsoluteURLs(baseURL, []string{s})
	}
	if arr := payload.List(block, "image", "photo"); arr != nil {
		return normalize.AbsoluteURLs(baseURL, payload.URLStrings(arr))
	}
	return nil
}

func ldOfferPrice(block map[string]interface{}) *models.Price {
	offer := payload.Object(block, "offers")
	if offer == nil {
		return nil
	}
	amount := payload.Number(offer, "price")
	if amount == nil {
		return nil
	}
	currency := payload.String(offer, "priceCurrency")
	if currency == "" {
		currency = "GBP"
	}
	return &models.Price{Amount: amount, Currency: currency}
}

// typedPayload is the known shape of the portal's embedded listing node.
// Decoding into it is tried before any fuzzy key matching; fields the typed
// decode misses are filled by the untyped lookups below.
type typedPayload struct {
	Bedrooms        *int            `json:"bedrooms"`
	Bathrooms       *int            `json:"bathrooms"`
	PropertySubType string          `json:"propertySubType"`
	IsNewHome       *bool           `json:"isNewHome"`
	Address         json.RawMessage `json:"address"`
	Prices          struct {
		PrimaryPrice string `json:"primaryPrice"`
		DisplayPrice string `json:"displayPrice"`
	} `json:"prices"`
	Text struct {
		Description string   `json:"description"`
		KeyFeatures []string `json:"keyFeatures"`
	} `json:"text"`
	KeyFeatures []string `json:"keyFeatures"`
	Customer    struct {
		BranchDisplayName  string `json:"branchDisplayName"`
		CompanyName        string `json:"companyName"`
		ContactTelephone   string `json:"contactTelephone"`
		DisplayAddress     string `json:"displayAddress"`
		CustomerProfileURL string `json:"customerProfileUrl"`
	} `json:"customer"`
}

func decodeTyped(node map[string]interface{}) *typedPayload {
	raw, err := json.Marshal(node)
	if err != nil {
		return nil
	}
	var t typedPayload
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	return &t
}

// FromAppState converts a listing-shaped app-state node into a partial.
func FromAppState(node map[string]interface{}, baseURL string) *models.PartialListing {
	if node == nil {
		return nil
	}

	p := &models.PartialListing{Source: models.MethodEmbeddedJSON}

	if t := decodeTyped(node); t != nil {
		p.Bedrooms = t.Bedrooms
		p.Bathrooms = t.Bathrooms
		p.PropertyType = normalize.ClassifyPropertyType(t.PropertySubType)
		p.IsNewHome = t.IsNewHome
		p.Address = addressText(t.Address)
		p.Description = normalize.CleanText(t.Text.Description)
		p.KeyFeatures = normalize.DedupeOrdered(append(t.Text.KeyFeatures, t.KeyFeatures...))

		if display := firstNonEmpty(t.Prices.PrimaryPrice, t.Prices.DisplayPrice); display != "" {
			p.Price = normalize.ParsePrice(display)
		}
		if t.Customer.BranchDisplayName != "" || t.Customer.CompanyName != "" || t.Customer.ContactTelephone != "" {
			p.Agent = &models.Agent{
				Name:    firstNonEmpty(t.Customer.BranchDisplayName, t.Customer.CompanyName),
				Phone:   normalize.CleanText(t.Customer.ContactTelephone),
				Address: normalize.CleanText(t.Customer.DisplayAddress),
				Website: normalize.ToAbsoluteURL(baseURL, t.Customer.CustomerProfileURL),
			}
		}
	}

	// Untyped fallbacks for whatever the typed shape missed.
	if p.Address == "" {
		p.Address = normalize.CleanText(payload.String(node, "displayAddress", "address", "fullAddress"))
	}
	if p.Bedrooms == nil {
		p.Bedrooms = intFromNumber(payload.Number(node, "bedrooms", "numberOfBedrooms", "beds"))
	}
	if p.Bathrooms == nil {
		p.Bathrooms = intFromNumber(payload.Number(node, "bathrooms", "numberOfBathrooms", "baths"))
	}
	if p.PropertyType == "" {
		p.PropertyType = normalize.ClassifyPropertyType(payload.String(node, "propertySubType", "propertyType"))
	}
	if p.Price == nil {
		if amount := payload.Number(node, "price"); amount != nil {
			p.Price = &models.Price{Amount: amount, Currency: "GBP"}
		}
	}
	if p.Description == "" {
		p.Description = normalize.CleanText(payload.String(node, "description", "summary"))
	}
	if len(p.Images) == 0 {
		p.Images = normalize.AbsoluteURLs(baseURL, payload.URLStrings(payload.List(node, "images", "photos", "propertyImages")))
	}
	if len(p.Floorplans) == 0 {
		p.Floorplans = normalize.AbsoluteURLs(baseURL, payload.URLStrings(payload.List(node, "floorplans", "floorplanImages")))
	}
	if p.IsNewHome == nil {
		if payload.Bool(node, "isNewHome", "newHome") {
			t := true
			p.IsNewHome = &t
		}
	}

	if id := payloadID(node); id != "" {
		p.ListingID = id
	}

	return p
}

// FromAPIPayload shapes a search-API response node the same way as an
// embedded app-state node, tagged with its own provenance.
func FromAPIPayload(node map[string]interface{}, baseURL string) *models.PartialListing {
	p := FromAppState(node, baseURL)
	if p == nil {
		return nil
	}
	p.Source = models.MethodAPIFallback
	return p
}

// FromHTML is the last detail pass: plain selector extraction over the
// rendered page.
func FromHTML(doc *goquery.Document, baseURL string) *models.PartialListing {
	root := doc.Selection
	p := &models.PartialListing{Source: models.MethodHTMLParse}

	p.Address = firstMatch(root, detailAddressRules)
	p.Title = firstMatch(root, detailTitleRules)
	p.Description = firstMatch(root, detailDescriptionRules)

	if priceText := firstMatch(root, detailPriceRules); priceText != "" {
		p.Price = normalize.ParsePrice(priceText)
	}

	pageText := normalize.CleanText(root.Find("body").Text())
	p.Bedrooms = countFromText(pageText, bedroomsRe)
	p.Bathrooms = countFromText(pageText, bathroomsRe)
	p.PropertyType = normalize.ClassifyPropertyType(p.Title)

	p.KeyFeatures = listItems(root, featureListSelectors)
	p.Details = definitionPairs(root, detailTableSelectors)
	p.Images = imageURLs(root, gallerySelectors, baseURL)
	p.Floorplans = imageURLs(root, floorplanSelectors, baseURL)

	if agentBox := firstContainer(root, agentContainerSelectors); agentBox != nil {
		box := agentBox.First()
		agent := &models.Agent{
			Name:  firstMatch(box, agentNameRules),
			Phone: telLink(box),
		}
		if agent.Name != "" || agent.Phone != "" {
			p.Agent = agent
		}
	}

	if isNewHomeText(pageText) {
		t := true
		p.IsNewHome = &t
	}

	return p
}

func addressText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalize.CleanText(s)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return normalize.CleanText(payload.String(obj, "displayAddress", "streetAddress", "fullAddress"))
	}
	return ""
}

func payloadID(node map[string]interface{}) string {
	if s := payload.String(node, "id", "propertyId", "listingId"); s != "" {
		return s
	}
	if n := payload.Number(node, "id", "propertyId", "listingId"); n != nil {
		return strconv.FormatInt(int64(*n), 10)
	}
	return ""
}

func intFromNumber(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return normalize.CleanText(v)
		}
	}
	return ""
}
