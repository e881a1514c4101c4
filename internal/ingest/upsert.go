package ingest

import (
	"context"
	"time"

	"github.com/cwhitley/propmail/internal/domain"
)

// Action says whether a plan creates a new catalog record or updates one
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Plan is the full set of writes one candidate produces: the record to
// insert or the merged record to write back, plus any price history rows.
// The store applies a plan in a single transaction so a history row can
// never outlive or predate its property.
type Plan struct {
	Action   Action
	Property *domain.Property
	History  []domain.PriceChange
}

// Store is the catalog the pipeline reconciles against. Finders return
// nil (not an error) on a miss.
type Store interface {
	FindBySource(ctx context.Context, source domain.Source, sourceID string) (*domain.Property, error)
	FindByCityState(ctx context.Context, city, state string) ([]domain.Property, error)
	Apply(ctx context.Context, plan *Plan) error
}

// BuildPlan decides create-vs-update for a candidate and computes the
// resulting record.
//
// On create, a price-cut hint synthesizes a backdated history entry: the
// email announced a drop to the current price, so the prior price was the
// current price plus the cut amount.
//
// On update, the price is authoritative (latest observation wins) and a
// delta appends a history row dated now. Optional fields keep their stored
// value unless the candidate actually carries one.
func BuildPlan(c domain.Candidate, existing *domain.Property, now time.Time) *Plan {
	if existing == nil {
		return createPlan(c, now)
	}
	return updatePlan(c, existing, now)
}

func createPlan(c domain.Candidate, now time.Time) *Plan {
	prop := &domain.Property{
		Source:       c.Source,
		SourceID:     c.SourceID,
		URL:          c.URL,
		Street:       c.Street,
		City:         c.City,
		State:        c.State,
		Zip:          c.Zip,
		County:       c.County,
		Price:        c.Price,
		Status:       domain.StatusActive,
		PropertyType: domain.TypeHome,
		Beds:         c.Beds,
		Baths:        c.Baths,
		Sqft:         c.Sqft,
		LotAcres:     c.LotAcres,
		YearBuilt:    c.YearBuilt,
		Builder:      c.Builder,
		Agent:        c.Agent,
		Description:  c.Description,
		ImageURLs:    c.ImageURLs,
		FirstSeenAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.RawStatus != "" {
		prop.Status = domain.ClassifyStatus(c.RawStatus)
	}
	if c.PropertyType != "" {
		prop.PropertyType = c.PropertyType
	}

	plan := &Plan{Action: ActionCreate, Property: prop}
	if c.PriceCut != nil {
		plan.History = append(plan.History, domain.PriceChange{
			OldPrice:   c.Price + c.PriceCut.Amount,
			NewPrice:   c.Price,
			ChangeDate: c.PriceCut.Date,
		})
	}
	return plan
}

func updatePlan(c domain.Candidate, existing *domain.Property, now time.Time) *Plan {
	merged := *existing

	plan := &Plan{Action: ActionUpdate, Property: &merged}
	if existing.Price != c.Price {
		plan.History = append(plan.History, domain.PriceChange{
			PropertyID: existing.ID,
			OldPrice:   existing.Price,
			NewPrice:   c.Price,
			ChangeDate: now,
		})
	}
	merged.Price = c.Price
	merged.URL = c.URL

	if c.Beds != 0 {
		merged.Beds = c.Beds
	}
	if c.Baths != 0 {
		merged.Baths = c.Baths
	}
	if c.Sqft != 0 {
		merged.Sqft = c.Sqft
	}
	if c.LotAcres != 0 {
		merged.LotAcres = c.LotAcres
	}
	if c.YearBuilt != 0 {
		merged.YearBuilt = c.YearBuilt
	}
	if len(c.ImageURLs) > 0 {
		merged.ImageURLs = c.ImageURLs
	}
	if c.Agent != "" {
		merged.Agent = c.Agent
	}
	if c.Builder != "" {
		merged.Builder = c.Builder
	}
	if c.Description != "" {
		merged.Description = c.Description
	}
	if c.Zip != "" {
		merged.Zip = c.Zip
	}
	if c.County != "" {
		merged.County = c.County
	}
	if c.RawStatus != "" {
		merged.Status = domain.ClassifyStatus(c.RawStatus)
	}
	merged.UpdatedAt = now

	return plan
}
