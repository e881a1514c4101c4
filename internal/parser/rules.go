package parser

import "github.com/cwhitley/propmail/internal/domain"

// rules is the per-source configuration the shared extraction skeleton runs
// over. Keeping the source differences declarative means adding a source is a
// table entry plus a detection marker, not a new parser.
type rules struct {
	// linkMarkers must all appear in an anchor's href for it to count as a
	// listing link.
	linkMarkers []string
	// trackingLinks marks sources whose emails only expose click-tracking
	// URLs. The full URL becomes the source id; it is unique per message but
	// not stable across messages, so dedup falls through to the address key.
	trackingLinks bool
	// land marks sources selling lots: candidates get the land property type
	// and an acreage lot size instead of bed/bath/sqft.
	land bool
	// repairComma enables the heuristic that re-inserts the comma these
	// emails drop between a street-type abbreviation and the city name.
	repairComma bool
}

var sourceRules = map[domain.Source]rules{
	domain.SourceZillow: {
		linkMarkers: []string{"zillow.com", "/homedetails/"},
	},
	domain.SourceRedfin: {
		linkMarkers: []string{"redfin.com", "/home/"},
	},
	domain.SourceRealtor: {
		linkMarkers:   []string{"realtor.com"},
		trackingLinks: true,
		repairComma:   true,
	},
	domain.SourceLandWatch: {
		linkMarkers: []string{"landwatch.com", "/pid/"},
		land:        true,
	},
}

// skipMarkers disqualify anchors that match a listing domain but are not
// listing cards: footer plumbing, tracking pixels, account links.
var skipMarkers = []string{
	"unsubscribe",
	"email-preferences",
	"preferences",
	"settings",
	"privacy",
	"terms",
	"pixel",
	"beacon",
	"mailto:",
	"/account",
	"/login",
}
