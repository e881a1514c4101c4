package domain

import (
	"strings"
	"time"
)

// Source identifies the listing service an email came from
type Source string

const (
	SourceZillow    Source = "zillow"
	SourceRedfin    Source = "redfin"
	SourceRealtor   Source = "realtor"
	SourceLandWatch Source = "landwatch"
	SourceUnknown   Source = "unknown"
)

// Sources lists every recognized listing service
var Sources = []Source{SourceZillow, SourceRedfin, SourceRealtor, SourceLandWatch}

// Status of a catalog property
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusOffMarket Status = "off_market"
)

// PropertyType constants
type PropertyType string

const (
	TypeHome PropertyType = "home"
	TypeLand PropertyType = "land"
)

// Message is one raw email handed to the pipeline: who sent it and its HTML body
type Message struct {
	Sender string `json:"sender"`
	HTML   string `json:"html"`
}

// PriceCut is an alert-style price drop annotation found in an email card,
// e.g. "Price cut: $10K (6/15)". Amount is in whole dollars.
type PriceCut struct {
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date"`
}

// Candidate is a listing extracted from one email card. It is never persisted;
// the ingest engine folds it into the catalog and discards it.
type Candidate struct {
	Street       string       `json:"street"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Zip          string       `json:"zip,omitempty"`
	County       string       `json:"county,omitempty"`
	Source       Source       `json:"source"`
	SourceID     string       `json:"source_id"` // stable external id, or the raw tracking URL
	URL          string       `json:"url"`
	RawStatus    string       `json:"raw_status,omitempty"`
	Price        int64        `json:"price"`
	PriceCut     *PriceCut    `json:"price_cut,omitempty"`
	PropertyType PropertyType `json:"property_type,omitempty"`
	Beds         int          `json:"beds,omitempty"`
	Baths        float64      `json:"baths,omitempty"`
	Sqft         int64        `json:"sqft,omitempty"`
	LotAcres     float64      `json:"lot_acres,omitempty"`
	YearBuilt    int          `json:"year_built,omitempty"`
	Builder      string       `json:"builder,omitempty"`
	Agent        string       `json:"agent,omitempty"`
	Description  string       `json:"description,omitempty"`
	ImageURLs    []string     `json:"image_urls,omitempty"`
}

// Property is the canonical persisted record for one real-world listing.
// Identity is (source, source_id); when source_id is an unstable tracking URL
// the normalized address serves as the effective identity instead.
type Property struct {
	ID           int64        `json:"id"`
	Source       Source       `json:"source"`
	SourceID     string       `json:"source_id"`
	URL          string       `json:"url"`
	Street       string       `json:"street"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Zip          string       `json:"zip,omitempty"`
	County       string       `json:"county,omitempty"`
	Price        int64        `json:"price"`
	Status       Status       `json:"status"`
	PropertyType PropertyType `json:"property_type"`
	Beds         int          `json:"beds,omitempty"`
	Baths        float64      `json:"baths,omitempty"`
	Sqft         int64        `json:"sqft,omitempty"`
	LotAcres     float64      `json:"lot_acres,omitempty"`
	YearBuilt    int          `json:"year_built,omitempty"`
	Builder      string       `json:"builder,omitempty"`
	Agent        string       `json:"agent,omitempty"`
	Description  string       `json:"description,omitempty"`
	ImageURLs    []string     `json:"image_urls,omitempty"`
	FirstSeenAt  time.Time    `json:"first_seen_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PriceChange is one append-only price history row owned by a Property
type PriceChange struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	OldPrice   int64     `json:"old_price"`
	NewPrice   int64     `json:"new_price"`
	ChangeDate time.Time `json:"change_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClassifyStatus maps free-text status from an email card to the Status enum.
// Anything unrecognized counts as active.
func ClassifyStatus(raw string) Status {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "pending"):
		return StatusPending
	case strings.Contains(lower, "sold"):
		return StatusSold
	case strings.Contains(lower, "off"):
		return StatusOffMarket
	default:
		return StatusActive
	}
}
