// Package aggregator fans a query out to a fixed set of providers, serves
// repeat queries from a bounded per-provider LRU cache, replaces failed
// providers with a fallback item and returns one date-ordered result.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/lru"
	"github.com/bakkerme/api-aggregator/internal/metrics"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/bakkerme/api-aggregator/internal/aggregator")

// ErrInvalidConfiguration is returned by New when the engine cannot be built
// as configured.
var ErrInvalidConfiguration = lru.ErrInvalidConfiguration

// Provider is a single external data source.
type Provider interface {
	// Source returns the fixed identity of the provider.
	Source() core.Source
	// Fetch returns the provider's items for searchTerm. An empty searchTerm
	// means no term was supplied. Any failure is reported as an error; partial
	// results are never returned alongside one.
	Fetch(ctx context.Context, searchTerm string) ([]core.Item, error)
}

// Query describes one aggregated fetch.
type Query struct {
	SearchTerm string
	Order      core.SortOrder
	// Sources restricts the providers that are called. Empty means all.
	Sources []core.Source
}

// Engine owns the registered providers and one cache per provider.
type Engine struct {
	providers []Provider
	caches    map[core.Source]*lru.Cache[string, []core.Item]
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates an engine for providers. The provider list is fixed for the
// lifetime of the engine; each provider must have a distinct identity.
func New(providers []Provider, options ...Option) (*Engine, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		providers: make([]Provider, 0, len(providers)),
		caches:    make(map[core.Source]*lru.Cache[string, []core.Item], len(providers)),
		timeout:   opts.providerTimeout,
		logger:    opts.logger,
		metrics:   opts.metrics,
		now:       opts.now,
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("%w: provider %d is nil", ErrInvalidConfiguration, i)
		}
		source := p.Source()
		if !source.Valid() {
			return nil, fmt.Errorf("%w: provider %d has unknown identity %q", ErrInvalidConfiguration, i, source)
		}
		if _, dup := e.caches[source]; dup {
			return nil, fmt.Errorf("%w: provider %s registered more than once", ErrInvalidConfiguration, source)
		}
		cache, err := lru.New[string, []core.Item](opts.cacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("cache for %s: %w", source, err)
		}
		e.caches[source] = cache
		e.providers = append(e.providers, p)
		e.metrics.SetCacheEntries(source.String(), 0)
	}
	return e, nil
}

// Sources returns the identities of the registered providers in registration order.
func (e *Engine) Sources() []core.Source {
	sources := make([]core.Source, len(e.providers))
	for i, p := range e.providers {
		sources[i] = p.Source()
	}
	return sources
}

// Fetch queries every selected provider concurrently and returns the merged
// items sorted by date. It never fails: a provider error becomes a single
// fallback item for that provider. The result is never nil.
func (e *Engine) Fetch(ctx context.Context, q Query) []core.Item {
	started := time.Now()
	selected := e.selectProviders(q.Sources)
	key := CacheKey(q.SearchTerm)

	ctx, span := tracer.Start(ctx, "aggregator.Fetch", trace.WithAttributes(
		attribute.String("aggregator.cache_key", key),
		attribute.String("aggregator.order", q.Order.String()),
		attribute.Int("aggregator.providers", len(selected)),
	))
	defer span.End()

	if len(selected) == 0 {
		e.metrics.RecordFetch(time.Since(started), 0)
		return []core.Item{}
	}

	outcomes := make([]outcome, len(selected))
	var wg conc.WaitGroup
	for i, p := range selected {
		wg.Go(func() {
			outcomes[i] = e.resolve(ctx, p, q.SearchTerm, key)
		})
	}
	wg.Wait()

	merged := []core.Item{}
	for _, o := range outcomes {
		merged = append(merged, o.contribution()...)
	}
	sortByDate(merged, q.Order)

	span.SetAttributes(attribute.Int("aggregator.items", len(merged)))
	e.metrics.RecordFetch(time.Since(started), len(merged))
	return merged
}

func (e *Engine) selectProviders(filter []core.Source) []Provider {
	if len(filter) == 0 {
		return e.providers
	}
	wanted := make(map[core.Source]bool, len(filter))
	for _, s := range filter {
		wanted[s] = true
	}
	selected := make([]Provider, 0, len(filter))
	for _, p := range e.providers {
		if wanted[p.Source()] {
			selected = append(selected, p)
		}
	}
	return selected
}

// resolve produces one provider's contribution: from cache when possible,
// otherwise from the provider, caching a successful non-nil result.
func (e *Engine) resolve(ctx context.Context, p Provider, searchTerm, key string) outcome {
	source := p.Source()
	label := source.String()
	logger := core.LoggerFromContext(ctx, e.logger).With("source", label)

	ctx, span := tracer.Start(ctx, "aggregator.provider", trace.WithAttributes(
		attribute.String("aggregator.source", label),
	))
	defer span.End()

	cache := e.caches[source]
	if items, ok := cache.Get(key); ok {
		e.metrics.RecordCacheLookup(label, true)
		span.SetAttributes(
			attribute.Bool("aggregator.cache_hit", true),
			attribute.Int("aggregator.items", len(items)),
		)
		return succeeded(source, items)
	}
	e.metrics.RecordCacheLookup(label, false)
	span.SetAttributes(attribute.Bool("aggregator.cache_hit", false))

	started := time.Now()
	items, err := e.call(ctx, p, searchTerm)
	e.metrics.RecordProviderCall(label, time.Since(started), err)
	if err != nil {
		logger.Error("provider unavailable, serving fallback", "search_term", searchTerm, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return failed(source, err, e.now())
	}

	if items != nil {
		items = ownItems(source, items, logger)
		cache.Put(key, items)
		e.metrics.SetCacheEntries(label, cache.Len())
	}
	span.SetAttributes(attribute.Int("aggregator.items", len(items)))
	return succeeded(source, items)
}

// ownItems drops items stamped with a source other than the provider's own,
// so a source filter never admits items from another provider.
func ownItems(source core.Source, items []core.Item, logger *slog.Logger) []core.Item {
	label := source.String()
	kept := items[:0:0]
	for _, item := range items {
		if item.Source != label {
			logger.Warn("dropping item with mismatched source", "item_source", item.Source, "title", item.Title)
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(items) {
		return items
	}
	return kept
}

type fetchResult struct {
	items []core.Item
	err   error
}

// call runs the provider fetch, turning a panic into an error and giving up
// once ctx is done (including the provider timeout) even if the provider
// ignores cancellation.
func (e *Engine) call(ctx context.Context, p Provider, searchTerm string) ([]core.Item, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan fetchResult, 1)
	go func() {
		var (
			res     fetchResult
			catcher panics.Catcher
		)
		catcher.Try(func() {
			res.items, res.err = p.Fetch(ctx, searchTerm)
		})
		if r := catcher.Recovered(); r != nil {
			res = fetchResult{err: fmt.Errorf("provider panicked: %w", r.AsError())}
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res.items, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("provider %s: %w", p.Source(), ctx.Err())
	}
}
