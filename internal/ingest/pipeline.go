// Package ingest reconciles extracted listing candidates against the
// persistent catalog: identity resolution, create-vs-update merging and
// price-history bookkeeping.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwhitley/propmail/internal/address"
	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/extract"
	"github.com/cwhitley/propmail/internal/parser"
)

// PriceChangeEvent surfaces one detected price change to callers (the
// notifier, mainly) without another store round trip.
type PriceChangeEvent struct {
	Street   string
	City     string
	State    string
	URL      string
	OldPrice int64
	NewPrice int64
}

// Result aggregates one batch run. NewListings carries the created records
// so callers can run alert criteria over them without re-reading the store.
type Result struct {
	BatchID      string
	Created      int
	Updated      int
	Errors       []string
	PriceChanges []PriceChangeEvent
	NewListings  []domain.Property
}

// Pipeline runs message batches through parse, resolve and apply
type Pipeline struct {
	store  Store
	parser *parser.Parser
	logger *slog.Logger
	now    func() time.Time
}

// New creates a pipeline
func New(store Store, p *parser.Parser, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		parser: p,
		logger: logger,
		now:    time.Now,
	}
}

// Run processes one batch of raw messages and returns the aggregate result.
// Messages and their candidates are applied strictly in order: two candidates
// in one batch can resolve to the same record, and out-of-order applies risk
// a lost update or a duplicate create. Errors never abort the batch; each is
// recorded and the run continues.
func (p *Pipeline) Run(ctx context.Context, messages []domain.Message) Result {
	res := Result{BatchID: uuid.NewString()}

	for _, msg := range messages {
		source := extract.DetectSource(msg.Sender, "")
		if source == domain.SourceUnknown {
			res.Errors = append(res.Errors, fmt.Sprintf("unrecognized sender %q", msg.Sender))
			continue
		}

		candidates, err := p.parser.Extract(msg.HTML, source)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("parse %s message: %v", source, err))
			continue
		}

		p.logger.Debug("message parsed", "batch_id", res.BatchID,
			"source", source, "candidates", len(candidates))

		for _, c := range candidates {
			if err := p.ingest(ctx, c, &res); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", c.URL, err))
			}
		}
	}

	p.logger.Info("batch complete", "batch_id", res.BatchID,
		"messages", len(messages), "created", res.Created,
		"updated", res.Updated, "errors", len(res.Errors))
	return res
}

func (p *Pipeline) ingest(ctx context.Context, c domain.Candidate, res *Result) error {
	existing, err := p.resolve(ctx, c)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	plan := BuildPlan(c, existing, p.now())
	if err := p.store.Apply(ctx, plan); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	if plan.Action == ActionCreate {
		res.Created++
		res.NewListings = append(res.NewListings, *plan.Property)
	} else {
		res.Updated++
	}
	for _, h := range plan.History {
		res.PriceChanges = append(res.PriceChanges, PriceChangeEvent{
			Street:   plan.Property.Street,
			City:     plan.Property.City,
			State:    plan.Property.State,
			URL:      plan.Property.URL,
			OldPrice: h.OldPrice,
			NewPrice: h.NewPrice,
		})
	}
	return nil
}

// resolve finds at most one existing record for a candidate: the exact
// (source, source id) identity first, then the normalized address key within
// the candidate's city and state. When several stored records share the key,
// the earliest first-seen record wins (lowest id on a tie) so repeated runs
// pick the same one.
func (p *Pipeline) resolve(ctx context.Context, c domain.Candidate) (*domain.Property, error) {
	existing, err := p.store.FindBySource(ctx, c.Source, c.SourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	key := address.Key(c.Street, c.City, c.State)
	props, err := p.store.FindByCityState(ctx, c.City, c.State)
	if err != nil {
		return nil, err
	}

	var best *domain.Property
	for i := range props {
		prop := &props[i]
		if address.Key(prop.Street, prop.City, prop.State) != key {
			continue
		}
		if best == nil ||
			prop.FirstSeenAt.Before(best.FirstSeenAt) ||
			(prop.FirstSeenAt.Equal(best.FirstSeenAt) && prop.ID < best.ID) {
			best = prop
		}
	}
	return best, nil
}
