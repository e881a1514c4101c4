// Package address parses the free-text postal addresses found in listing
// emails and derives the canonical comparison key used for fuzzy identity
// matching when a source id cannot be trusted.
package address

import (
	"errors"
	"regexp"
	"strings"
)

// ErrFormat is returned when a raw address has fewer than the two
// comma-delimited segments needed to tell street from city.
var ErrFormat = errors.New("address: expected at least street and city segments")

// Parsed is a street/city/state triple with an optional zip
type Parsed struct {
	Street string
	City   string
	State  string
	Zip    string
}

var zipRe = regexp.MustCompile(`^\d{5}$`)

// Parse splits a raw address in either of the shapes
// "Street, City, State[, Zip]" or "Street, City State[, Zip]".
// With only two segments the second is split on whitespace: a trailing
// 5-digit token is the zip, the token before it the state, the rest the city.
func Parse(raw string) (Parsed, error) {
	segs := strings.Split(raw, ",")
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}
	if len(segs) < 2 {
		return Parsed{}, ErrFormat
	}

	p := Parsed{Street: segs[0]}

	if len(segs) == 2 {
		fields := strings.Fields(segs[1])
		if len(fields) > 1 && zipRe.MatchString(fields[len(fields)-1]) {
			p.Zip = fields[len(fields)-1]
			fields = fields[:len(fields)-1]
		}
		if len(fields) < 2 {
			return Parsed{}, ErrFormat
		}
		p.State = fields[len(fields)-1]
		p.City = strings.Join(fields[:len(fields)-1], " ")
		return p, nil
	}

	p.City = segs[1]
	state := segs[2]
	if fields := strings.Fields(state); len(fields) > 1 && zipRe.MatchString(fields[len(fields)-1]) {
		p.Zip = fields[len(fields)-1]
		state = strings.Join(fields[:len(fields)-1], " ")
	}
	p.State = state
	if len(segs) > 3 && p.Zip == "" && zipRe.MatchString(segs[3]) {
		p.Zip = segs[3]
	}
	return p, nil
}

// streetTypes collapses common street-type words to their standard
// abbreviations so "Main Street" and "Main St." compare equal.
var streetTypes = map[string]string{
	"street": "st", "st": "st",
	"avenue": "ave", "ave": "ave", "av": "ave",
	"boulevard": "blvd", "blvd": "blvd",
	"drive": "dr", "dr": "dr",
	"road": "rd", "rd": "rd",
	"lane": "ln", "ln": "ln",
	"court": "ct", "ct": "ct",
	"circle": "cir", "cir": "cir",
	"place": "pl", "pl": "pl",
	"parkway": "pkwy", "pkwy": "pkwy",
	"highway": "hwy", "hwy": "hwy",
	"terrace": "ter", "ter": "ter",
	"trail": "trl", "trl": "trl",
	"way": "way",
}

// directionals are dropped entirely; sources disagree on whether to include
// them ("123 N Main St" vs "123 Main St").
var directionals = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"n": true, "s": true, "e": true, "w": true,
	"ne": true, "nw": true, "se": true, "sw": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
}

// unitMarkers start an apartment/suite fragment; the marker and everything
// after it is dropped.
var unitMarkers = map[string]bool{
	"apt": true, "unit": true, "ste": true, "suite": true, "fl": true, "floor": true,
}

var (
	punctRe    = regexp.MustCompile(`[^\w\s]`)
	unitHashRe = regexp.MustCompile(`#\S*`)
)

// Key derives the canonical comparison key for a street/city/state triple.
// Two observations of the same listing with different surface forms of the
// address must produce the same key.
func Key(street, city, state string) string {
	return normalizeStreet(street) + "|" + normalizeToken(city) + "|" + normalizeToken(state)
}

func normalizeStreet(street string) string {
	lower := strings.ToLower(street)
	lower = unitHashRe.ReplaceAllString(lower, " ")
	lower = punctRe.ReplaceAllString(lower, " ")

	var kept []string
	for _, word := range strings.Fields(lower) {
		if unitMarkers[word] {
			break
		}
		if directionals[word] {
			continue
		}
		if abbr, ok := streetTypes[word]; ok {
			kept = append(kept, abbr)
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func normalizeToken(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = punctRe.ReplaceAllString(lower, " ")
	return strings.Join(strings.Fields(lower), " ")
}
