// Package extract holds the small pure-function extractors used by the
// source parsers: price strings, bed/bath/sqft specs, price-cut hints,
// per-source listing ids and sender-based source detection. Every function
// returns an optional result instead of an error; a non-match is normal.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cwhitley/propmail/internal/domain"
)

var (
	// The separated form must require at least one ",ddd" group; a bare
	// `*` would let it win the alternation and truncate "$450000" to 450.
	priceRe    = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d+))?`)
	bedsRe     = regexp.MustCompile(`(?i)\b(\d+)\s*(?:bds?|beds?|bedrooms?)\b`)
	bathsRe    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:ba|baths?|bathrooms?)\b`)
	sqftRe     = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})*|\d+)\s*(?:sq\.?\s?ft\.?|sqft|square feet)`)
	acresRe    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*acres?\b`)
	priceCutRe = regexp.MustCompile(`(?i)price cut:?\s*\$(\d+(?:\.\d+)?)k\b[^\d]*(\d{1,2})/(\d{1,2})`)
	// cutAmountRe is the annotation's dollar figure alone, date or not, so it
	// can be removed from text before listing-price extraction.
	cutAmountRe = regexp.MustCompile(`(?i)price cut:?\s*\$\d+(?:\.\d+)?k\b`)
	builderRe  = regexp.MustCompile(`(?i)\bbuilder:?\s*([A-Za-z][^|\n]*)`)
	statusRe   = regexp.MustCompile(`(?i)\b(pending|sold|off.?market|new construction|coming soon)\b`)

	zillowIDRe    = regexp.MustCompile(`/(\d+)_zpid`)
	redfinIDRe    = regexp.MustCompile(`/home/(\d+)`)
	landwatchIDRe = regexp.MustCompile(`/pid/(\d+)`)
)

// Specs are the bed/bath/area facts found in a listing card. Any subset may
// be zero-valued when the card does not mention it.
type Specs struct {
	Beds  int
	Baths float64
	Sqft  int64
}

// ParsePrice converts a currency string like "$1,234,567" to whole dollars.
// Returns false when no dollar amount is present.
func ParsePrice(s string) (int64, bool) {
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseSpecs pulls beds, baths and square footage out of flattened card text.
// Each field is matched independently; absence is not an error.
func ParseSpecs(text string) Specs {
	var sp Specs
	if m := bedsRe.FindStringSubmatch(text); m != nil {
		sp.Beds, _ = strconv.Atoi(m[1])
	}
	if m := bathsRe.FindStringSubmatch(text); m != nil {
		sp.Baths, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := sqftRe.FindStringSubmatch(text); m != nil {
		sp.Sqft, _ = strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	}
	return sp
}

// ParseAcres matches an acreage figure like "2.5 acres"
func ParseAcres(text string) (float64, bool) {
	m := acresRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePriceCut matches alert annotations of the form "Price cut: $10K (6/15)".
// The amount is given in thousands of dollars; the year is taken from now,
// which is wrong for a December-dated cut read in January. Kept as-is because
// the emails carry no year at all.
func ParsePriceCut(text string, now time.Time) (*domain.PriceCut, bool) {
	m := priceCutRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	thousands, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, false
	}
	return &domain.PriceCut{
		Amount: int64(thousands * 1000),
		Date:   time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC),
	}, true
}

// StripPriceCut removes price-cut annotations from card text so their dollar
// figure cannot be mistaken for the listing price when the cut line comes
// first on the card.
func StripPriceCut(text string) string {
	return cutAmountRe.ReplaceAllString(text, "")
}

// ParseBuilder matches a "Builder: ..." fragment
func ParseBuilder(text string) string {
	m := builderRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseStatusText returns the raw status phrase from card text, if any
// ("Pending", "Sold", "New Construction", ...).
func ParseStatusText(text string) string {
	return statusRe.FindString(text)
}

// ListingID extracts the source-assigned listing id from a URL. Sources whose
// emails only carry click-tracking links fall back to the raw URL, which is
// unique per message but not stable across messages; dedup for those relies
// on the address key instead.
func ListingID(source domain.Source, rawURL string) string {
	var re *regexp.Regexp
	switch source {
	case domain.SourceZillow:
		re = zillowIDRe
	case domain.SourceRedfin:
		re = redfinIDRe
	case domain.SourceLandWatch:
		re = landwatchIDRe
	default:
		return rawURL
	}
	if m := re.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return rawURL
}

// sourceMarkers maps sender/URL substrings to sources. Sender is checked
// before URL because forwarding rewrites links but not the From address.
var sourceMarkers = []struct {
	marker string
	source domain.Source
}{
	{"zillow", domain.SourceZillow},
	{"redfin", domain.SourceRedfin},
	{"realtor.com", domain.SourceRealtor},
	{"realtor", domain.SourceRealtor},
	{"landwatch", domain.SourceLandWatch},
}

// DetectSource identifies the listing service from the sender address first,
// then the URL. Returns SourceUnknown when neither matches.
func DetectSource(sender, url string) domain.Source {
	for _, probe := range []string{strings.ToLower(sender), strings.ToLower(url)} {
		if probe == "" {
			continue
		}
		for _, sm := range sourceMarkers {
			if strings.Contains(probe, sm.marker) {
				return sm.source
			}
		}
	}
	return domain.SourceUnknown
}
