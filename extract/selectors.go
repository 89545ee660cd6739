package extract

// Selector rule tables, one per field domain. Each table is consumed by the
// generic firstMatch resolver: candidates are tried in order and the first
// non-empty, plausibility-filtered result wins. Keeping these as data means
// a markup change on the portal is a table edit, not new control flow.

// Rule is one candidate source for a field.
type Rule struct {
	Selector string
	Attr     string            // empty means element text
	Filter   func(string) bool // optional plausibility check
}

// Search-results page.
var (
	cardContainerRules = []string{
		`div.propertyCard:not(.propertyCard--featured)`,
		`div[data-test="propertyCard"]`,
		`div.l-searchResult`,
	}

	cardLinkRules = []Rule{
		{Selector: `a.propertyCard-link`, Attr: "href"},
		{Selector: `a[data-test="property-details"]`, Attr: "href"},
		{Selector: `a[href*="/properties/"]`, Attr: "href"},
	}

	cardAddressRules = []Rule{
		{Selector: `address.propertyCard-address`, Filter: plausibleAddress},
		{Selector: `[data-test="address-label"]`, Filter: plausibleAddress},
		{Selector: `address`, Filter: plausibleAddress},
	}

	cardTitleRules = []Rule{
		{Selector: `h2.propertyCard-title`},
		{Selector: `[data-test="property-title"]`},
		{Selector: `h2`},
	}

	cardPriceRules = []Rule{
		{Selector: `div.propertyCard-priceValue`, Filter: containsCurrency},
		{Selector: `[data-test="property-price"]`, Filter: containsCurrency},
		{Selector: `.propertyCard-price`, Filter: containsCurrency},
	}

	cardImageRules = []Rule{
		{Selector: `img.propertyCard-img`, Attr: "src"},
		{Selector: `.propertyCard-imgWrapper img`, Attr: "src"},
	}

	cardAgentRules = []Rule{
		{Selector: `.propertyCard-branchSummary-branchName`, Filter: plausibleAgentName},
		{Selector: `[data-test="property-agent"]`, Filter: plausibleAgentName},
	}
)

// Detail page, HTML fallback pass.
var (
	detailAddressRules = []Rule{
		{Selector: `h1 address`, Filter: plausibleAddress},
		{Selector: `[itemprop="streetAddress"]`, Filter: plausibleAddress},
		{Selector: `address`, Filter: plausibleAddress},
		{Selector: `h1`, Filter: plausibleAddress},
	}

	detailTitleRules = []Rule{
		{Selector: `h1`},
		{Selector: `[data-test="property-title"]`},
		{Selector: `title`},
	}

	detailPriceRules = []Rule{
		{Selector: `[data-test="price"]`, Filter: containsCurrency},
		{Selector: `.property-header-price`, Filter: containsCurrency},
		{Selector: `article span`, Filter: containsCurrency},
	}

	detailDescriptionRules = []Rule{
		{Selector: `[data-test="description"]`},
		{Selector: `.property-description`},
		{Selector: `#description`},
		{Selector: `[itemprop="description"]`},
	}

	agentContainerSelectors = []string{
		`[data-test="agent-details"]`,
		`.agent-details`,
		`.branch-details`,
		`.developer-details`,
	}

	agentNameRules = []Rule{
		{Selector: `h3`, Filter: plausibleAgentName},
		{Selector: `.agent-details-name`, Filter: plausibleAgentName},
		{Selector: `a`, Filter: plausibleAgentName},
	}

	featureListSelectors = []string{
		`[data-test="key-features"] li`,
		`.key-features li`,
		`ul.features li`,
	}

	detailTableSelectors = []string{
		`dl[data-test="infoReel"]`,
		`dl.property-details`,
		`dl`,
	}

	gallerySelectors = []string{
		`[data-test="gallery"] img`,
		`.property-gallery img`,
		`#photoCollage img`,
		`meta[property="og:image"]`,
	}

	floorplanSelectors = []string{
		`[data-test="floorplan"] img`,
		`.floorplan img`,
		`a[href*="floorplan"] img`,
	}
)
