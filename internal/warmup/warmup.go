// Package warmup periodically runs aggregated fetches for configured terms so
// that user requests for them are served from cache.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bakkerme/api-aggregator/internal/aggregator"
	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/robfig/cron/v3"
)

// Fetcher is the part of the engine the scheduler drives.
type Fetcher interface {
	Fetch(ctx context.Context, q aggregator.Query) []core.Item
}

type Scheduler struct {
	fetcher  Fetcher
	schedule string
	timezone string
	terms    []string
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	stop chan struct{}

	// watching is closed once the goroutine tied to the Start context exits.
	watching chan struct{}
}

// New creates a scheduler. An empty terms list warms only the no-term query.
func New(fetcher Fetcher, schedule, timezone string, terms []string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(terms) == 0 {
		terms = []string{""}
	}
	return &Scheduler{
		fetcher:  fetcher,
		schedule: strings.TrimSpace(schedule),
		timezone: strings.TrimSpace(timezone),
		terms:    terms,
		logger:   logger.With("component", "warmup"),
	}
}

func (s *Scheduler) Validate() error {
	if s.schedule == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}
	if s.timezone != "" {
		if _, err := time.LoadLocation(s.timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return nil
}

// Start schedules warm-up runs until ctx is done or Stop is called. A run
// that is still going when the next one is due is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}

	location := time.UTC
	if s.timezone != "" {
		tz, err := time.LoadLocation(s.timezone)
		if err != nil {
			return err
		}
		location = tz
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("warmup already started")
	}

	c := cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	stop := make(chan struct{})
	watching := make(chan struct{})
	s.cron, s.stop, s.watching = c, stop, watching
	s.logger.Info("warmup scheduled", "schedule", s.schedule, "timezone", location.String(), "terms", len(s.terms))

	go func() {
		defer close(watching)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()
	return nil
}

// RunOnce fetches every configured term in turn.
func (s *Scheduler) RunOnce(ctx context.Context) {
	started := time.Now()
	for _, term := range s.terms {
		if ctx.Err() != nil {
			return
		}
		items := s.fetcher.Fetch(ctx, aggregator.Query{SearchTerm: term})
		s.logger.Debug("warmed term", "search_term", term, "items", len(items))
	}
	s.logger.Info("warmup run complete", "terms", len(s.terms), "elapsed", time.Since(started))
}

// Stop halts scheduling and waits for a running warm-up to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, stop := s.cron, s.stop
	s.cron, s.stop = nil, nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	if c != nil {
		<-c.Stop().Done()
	}
}
