package extract

import (
	"github.com/PuerkitoBio/goquery"

	"portal_scraper/models"
	"portal_scraper/normalize"
)

// Cards produces one card-level partial per listing card on a search-results
// page. Cards without a resolvable listing URL or id are dropped - there is
// nothing to key a record on.
func Cards(doc *goquery.Document, baseURL string) []models.PartialListing {
	var cards *goquery.Selection
	for _, sel := range cardContainerRules {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var out []models.PartialListing
	cards.Each(func(_ int, card *goquery.Selection) {
		if p, ok := cardPartial(card, baseURL); ok {
			out = append(out, p)
		}
	})
	return out
}

func cardPartial(card *goquery.Selection, baseURL string) (models.PartialListing, bool) {
	href := firstMatch(card, cardLinkRules)
	url := normalize.ToAbsoluteURL(baseURL, href)
	id := ListingID(url)
	if id == "" {
		return models.PartialListing{}, false
	}

	p := models.PartialListing{
		ListingID: id,
		URL:       url,
		Address:   firstMatch(card, cardAddressRules),
		Title:     firstMatch(card, cardTitleRules),
		Source:    models.MethodCardOnly,
	}

	if priceText := firstMatch(card, cardPriceRules); priceText != "" {
		p.Price = normalize.ParsePrice(priceText)
	}

	cardText := normalize.CleanText(card.Text())
	p.Bedrooms = countFromText(cardText, bedroomsRe)
	p.Bathrooms = countFromText(cardText, bathroomsRe)

	if p.Title != "" {
		p.PropertyType = normalize.ClassifyPropertyType(p.Title)
	}
	if p.PropertyType == "" {
		p.PropertyType = normalize.ClassifyPropertyType(cardText)
	}

	if img := firstMatch(card, cardImageRules); img != "" {
		p.Images = normalize.AbsoluteURLs(baseURL, []string{img})
	}

	if name := firstMatch(card, cardAgentRules); name != "" {
		p.Agent = &models.Agent{Name: name}
	}

	if isNewHomeText(cardText) {
		t := true
		p.IsNewHome = &t
	}

	return p, true
}
