package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwhitley/propmail/internal/config"
	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/filter"
	"github.com/cwhitley/propmail/internal/ingest"
	"github.com/cwhitley/propmail/internal/notifier/telegram"
)

// MailSource yields the batch of unprocessed listing emails for one cycle
// and marks them processed afterwards.
type MailSource interface {
	Fetch(ctx context.Context) ([]domain.Message, error)
	MarkProcessed(ctx context.Context) error
}

// Scheduler coordinates the fetch, ingest, notify cycle
type Scheduler struct {
	cfg      *config.Config
	mail     MailSource
	pipeline *ingest.Pipeline
	notifier *telegram.Notifier
	alerts   *filter.Engine
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(
	cfg *config.Config,
	mail MailSource,
	pipeline *ingest.Pipeline,
	notifier *telegram.Notifier,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		mail:     mail,
		pipeline: pipeline,
		notifier: notifier,
		alerts:   filter.NewEngine(cfg.Alerts),
		logger:   logger,
	}
}

// Start begins the polling loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

// RunOnce performs a single fetch-and-ingest cycle
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.poll(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	// Run immediately on start
	if err := s.poll(ctx); err != nil {
		s.logger.Error("poll failed", "error", err)
		s.notifier.NotifyError(ctx, err.Error())
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error("poll failed", "error", err)
				s.notifier.NotifyError(ctx, err.Error())
			}
		}
	}
}

// poll runs one cycle. A fetch failure fails the whole cycle since there is
// nothing to process; once messages are in hand the pipeline absorbs all
// per-message and per-candidate errors into the result.
func (s *Scheduler) poll(ctx context.Context) error {
	s.logger.Info("starting poll cycle")

	// Bound the mailbox call so a stalled connection cannot hang the cycle.
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Mailbox.FetchTimeout)
	defer cancel()

	messages, err := s.mail.Fetch(fetchCtx)
	if err != nil {
		return fmt.Errorf("fetch mail: %w", err)
	}
	if len(messages) == 0 {
		s.logger.Info("no new listing messages")
		return nil
	}

	res := s.pipeline.Run(ctx, messages)

	for _, errMsg := range res.Errors {
		s.logger.Warn("ingest error", "batch_id", res.BatchID, "error", errMsg)
	}

	for _, p := range res.NewListings {
		match := s.alerts.Match(&p)
		if !match.Passed {
			s.logger.Debug("new listing filtered", "street", p.Street, "reasons", match.Reasons)
			continue
		}
		if err := s.notifier.NotifyNewListing(ctx, p); err != nil {
			s.logger.Error("new listing notification failed", "street", p.Street, "error", err)
		}
	}

	for _, ev := range res.PriceChanges {
		if err := s.notifier.NotifyPriceChange(ctx, ev); err != nil {
			s.logger.Error("price change notification failed", "street", ev.Street, "error", err)
		}
	}
	if err := s.notifier.NotifyRunSummary(ctx, res); err != nil {
		s.logger.Error("run summary notification failed", "error", err)
	}

	if err := s.mail.MarkProcessed(ctx); err != nil {
		// Upserts are idempotent; the next cycle re-reads these messages
		// without creating duplicates.
		s.logger.Error("marking messages processed failed", "error", err)
	}

	s.logger.Info("poll cycle complete",
		"created", res.Created, "updated", res.Updated, "errors", len(res.Errors))
	return nil
}
