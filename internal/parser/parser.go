// Package parser turns raw listing-email HTML into listing candidates.
//
// All four sources share one extraction skeleton: pick anchors whose target
// matches the source's link signature, climb to the enclosing card container,
// flatten it to text, and require at least a price and an address-shaped
// match. Everything else on the card is optional. A card that fails the
// gate is silently skipped; it was navigation, not a listing.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cwhitley/propmail/internal/address"
	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/extract"
)

var (
	// addrRe matches a street-number token through up to two comma- or
	// newline-delimited segments ending in a 2-letter state code, with an
	// optional trailing zip. Card text often glues spec fragments onto the
	// front of the street number; cleanAddress strips those afterwards.
	addrRe = regexp.MustCompile(`\d+[^,\n]*[,\n]+\s*[^,\n]*?(?:[,\n]+\s*[^,\n]*?)??\s+[A-Z]{2}\b(?:[ ,]*\d{5})?`)

	// leadingSpecRe matches a bed/bath/sqft/acre fragment stuck to the front
	// of a matched address.
	leadingSpecRe = regexp.MustCompile(`(?i)^\d[\d.,]*\s*(?:bds?|beds?|bedrooms?|ba|baths?|bathrooms?|sqft|sq\.?\s?ft\.?|square feet|acres?)\b`)

	leadingNoiseRe = regexp.MustCompile(`^[|,.\s]+`)

	// letterlessSegRe matches leading segments with no letters in them,
	// typically the tail of a price figure glued on by a line break. A real
	// street segment always carries a name.
	letterlessSegRe = regexp.MustCompile(`^[^A-Za-z]+,\s*`)

	// missingCommaRe finds a street-type abbreviation directly followed by a
	// capitalized city token, a formatting quirk of one source's emails.
	missingCommaRe = regexp.MustCompile(`\b(St|Ave|Blvd|Dr|Rd|Ln|Ct|Cir|Pl|Pkwy|Hwy|Trl|Ter|Way)\.?\s+([A-Z][a-z])`)
)

// placeholderImages are filenames that show up in img tags but are not
// listing photos.
var placeholderImages = []string{"spacer", "pixel", "blank", "1x1", "transparent", "logo", "beacon"}

// Parser extracts listing candidates from source emails
type Parser struct {
	now func() time.Time
}

// New creates a parser using the wall clock for price-cut dates
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewAt creates a parser with a fixed clock, for tests
func NewAt(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Extract produces zero or more candidates from one email body. An
// unrecognized source yields no candidates and a descriptive error; a single
// bad card never aborts the rest of the message.
func (p *Parser) Extract(htmlBody string, source domain.Source) ([]domain.Candidate, error) {
	r, ok := sourceRules[source]
	if !ok {
		return nil, fmt.Errorf("parser: no extractor for source %q", source)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// One listing is often linked several times in the same email (photo,
	// address, button). Track targets per message, never globally.
	seen := make(map[string]bool)
	var candidates []domain.Candidate

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !listingLink(href, r) || seen[href] {
			return
		}
		seen[href] = true
		if c, ok := p.extractCard(a, href, source, r); ok {
			candidates = append(candidates, c)
		}
	})

	return candidates, nil
}

func listingLink(href string, r rules) bool {
	lower := strings.ToLower(href)
	for _, m := range r.linkMarkers {
		if !strings.Contains(lower, m) {
			return false
		}
	}
	for _, m := range skipMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	return true
}

// extractCard climbs from an anchor to its enclosing card and pulls a
// candidate out of the flattened text. A panic while processing one card is
// swallowed; the anchor is skipped and extraction continues.
func (p *Parser) extractCard(a *goquery.Selection, href string, source domain.Source, r rules) (c domain.Candidate, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()

	card := a.Closest("table")
	if card.Length() == 0 {
		card = a.Closest("div")
	}
	if card.Length() == 0 {
		return c, false
	}

	text := flattenText(card)

	price, found := extract.ParsePrice(extract.StripPriceCut(text))
	if !found {
		return c, false
	}

	rawAddr := addrRe.FindString(text)
	if rawAddr == "" {
		return c, false
	}
	rawAddr = cleanAddress(rawAddr)
	if r.repairComma {
		rawAddr = missingCommaRe.ReplaceAllString(rawAddr, "$1, $2")
	}
	parsed, err := address.Parse(rawAddr)
	if err != nil {
		// The shape gate matched but the segments did not hold up; treat it
		// like any other non-listing anchor.
		return c, false
	}

	c = domain.Candidate{
		Street:    parsed.Street,
		City:      parsed.City,
		State:     parsed.State,
		Zip:       parsed.Zip,
		Source:    source,
		URL:       href,
		Price:     price,
		RawStatus: extract.ParseStatusText(text),
		Builder:   extract.ParseBuilder(text),
	}

	if r.trackingLinks {
		c.SourceID = href
	} else {
		c.SourceID = extract.ListingID(source, href)
	}

	if r.land {
		c.PropertyType = domain.TypeLand
		if acres, ok := extract.ParseAcres(text); ok {
			c.LotAcres = acres
		}
	} else {
		specs := extract.ParseSpecs(text)
		c.Beds = specs.Beds
		c.Baths = specs.Baths
		c.Sqft = specs.Sqft
	}

	if cut, ok := extract.ParsePriceCut(text, p.now()); ok {
		c.PriceCut = cut
	}

	if img := firstImage(card); img != "" {
		c.ImageURLs = []string{img}
	}

	return c, true
}

// cleanAddress strips bed/bath/sqft fragments and numeric noise glued to the
// front of an address match by the card's concatenated text.
func cleanAddress(s string) string {
	for {
		if m := leadingSpecRe.FindString(s); m != "" {
			s = s[len(m):]
			s = leadingNoiseRe.ReplaceAllString(s, "")
			continue
		}
		break
	}
	// Normalize line breaks inside the match to segment separators, then
	// drop anything numeric-only that ended up in front of the street.
	s = strings.ReplaceAll(s, "\n", ", ")
	s = letterlessSegRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func firstImage(card *goquery.Selection) string {
	var src string
	card.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		v, exists := img.Attr("src")
		if !exists || v == "" {
			return true
		}
		lower := strings.ToLower(v)
		for _, ph := range placeholderImages {
			if strings.Contains(lower, ph) {
				return true
			}
		}
		src = v
		return false
	})
	return src
}
