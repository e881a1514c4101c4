// Package filter decides which newly cataloged listings are worth an alert.
// Criteria come from configuration; an empty criteria set matches everything.
package filter

import (
	"strings"

	"github.com/cwhitley/propmail/internal/domain"
)

// Criteria is the user's alert profile. Zero-valued fields are unset and
// never filter anything out.
type Criteria struct {
	MaxPrice        int64    `yaml:"max_price"`
	MinBeds         int      `yaml:"min_beds"`
	MinBaths        float64  `yaml:"min_baths"`
	MinSqft         int64    `yaml:"min_sqft"`
	MinAcres        float64  `yaml:"min_acres"`
	MaxPricePerSqft float64  `yaml:"max_price_per_sqft"`
	States          []string `yaml:"states"`
	Cities          []string `yaml:"cities"`
	PropertyTypes   []string `yaml:"property_types"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// Result is the outcome for one listing
type Result struct {
	Passed  bool
	Reasons []string
}

// Engine applies alert criteria to cataloged listings
type Engine struct {
	criteria Criteria
}

// NewEngine creates a filter engine for one criteria set
func NewEngine(criteria Criteria) *Engine {
	return &Engine{criteria: criteria}
}

// Match runs every criterion against a listing and collects the reasons it
// fails, if any. A listing with a missing fact passes the criterion; only a
// known-bad value filters it out.
func (e *Engine) Match(p *domain.Property) Result {
	result := Result{Passed: true}

	matchers := []matcher{
		&priceMatcher{maxPrice: e.criteria.MaxPrice, maxPerSqft: e.criteria.MaxPricePerSqft},
		&sizeMatcher{minBeds: e.criteria.MinBeds, minBaths: e.criteria.MinBaths, minSqft: e.criteria.MinSqft, minAcres: e.criteria.MinAcres},
		&locationMatcher{states: e.criteria.States, cities: e.criteria.Cities},
		&typeMatcher{types: e.criteria.PropertyTypes},
		&keywordMatcher{keywords: e.criteria.ExcludeKeywords},
	}

	for _, m := range matchers {
		if reason := m.match(p); reason != "" {
			result.Passed = false
			result.Reasons = append(result.Reasons, reason)
		}
	}

	return result
}

type matcher interface {
	match(p *domain.Property) string // empty string means pass
}

type priceMatcher struct {
	maxPrice   int64
	maxPerSqft float64
}

func (m *priceMatcher) match(p *domain.Property) string {
	if m.maxPrice > 0 && p.Price > m.maxPrice {
		return "price_too_high"
	}
	if m.maxPerSqft > 0 && p.Price > 0 && p.Sqft > 0 {
		if float64(p.Price)/float64(p.Sqft) > m.maxPerSqft {
			return "price_per_sqft_too_high"
		}
	}
	return ""
}

type sizeMatcher struct {
	minBeds  int
	minBaths float64
	minSqft  int64
	minAcres float64
}

func (m *sizeMatcher) match(p *domain.Property) string {
	if m.minBeds > 0 && p.Beds > 0 && p.Beds < m.minBeds {
		return "too_few_beds"
	}
	if m.minBaths > 0 && p.Baths > 0 && p.Baths < m.minBaths {
		return "too_few_baths"
	}
	if m.minSqft > 0 && p.Sqft > 0 && p.Sqft < m.minSqft {
		return "too_small"
	}
	if m.minAcres > 0 && p.LotAcres > 0 && p.LotAcres < m.minAcres {
		return "lot_too_small"
	}
	return ""
}

type locationMatcher struct {
	states []string
	cities []string
}

func (m *locationMatcher) match(p *domain.Property) string {
	if len(m.states) > 0 && p.State != "" && !containsFold(m.states, p.State) {
		return "wrong_state"
	}
	if len(m.cities) > 0 && p.City != "" && !containsFold(m.cities, p.City) {
		return "wrong_city"
	}
	return ""
}

type typeMatcher struct {
	types []string
}

func (m *typeMatcher) match(p *domain.Property) string {
	if len(m.types) > 0 && p.PropertyType != "" && !containsFold(m.types, string(p.PropertyType)) {
		return "wrong_property_type"
	}
	return ""
}

type keywordMatcher struct {
	keywords []string
}

func (m *keywordMatcher) match(p *domain.Property) string {
	if len(m.keywords) == 0 {
		return ""
	}
	text := strings.ToLower(p.Street + " " + p.Builder + " " + p.Description)
	for _, kw := range m.keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return "excluded_keyword:" + kw
		}
	}
	return ""
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
