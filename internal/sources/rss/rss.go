// Package rss adapts RSS and Atom feeds into an aggregation provider.
package rss

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/sourcegraph/conc/pool"
)

// FetchOptions controls RSS fetch behavior.
type FetchOptions struct {
	Limit int
}

// Entry represents a single RSS or Atom entry.
type Entry struct {
	ID          string
	Title       string
	Link        string
	Description string
	// PublishedAt is nil when the feed gives neither a published nor an
	// updated time.
	PublishedAt *time.Time
}

// Fetcher fetches and parses RSS/Atom feeds.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, options FetchOptions) ([]Entry, error)
}

var ErrNoFeeds = errors.New("rss: no feeds configured")

type Config struct {
	Feeds []string
	// Limit caps the entries taken from each feed. Zero means no cap.
	Limit int
}

// Provider reads every configured feed and keeps the entries matching the
// search term.
type Provider struct {
	fetcher Fetcher
	feeds   []string
	limit   int
}

func New(fetcher Fetcher, cfg Config) *Provider {
	feeds := make([]string, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	return &Provider{fetcher: fetcher, feeds: feeds, limit: cfg.Limit}
}

func (p *Provider) Source() core.Source {
	return core.SourceRSS
}

// Fetch reads all feeds concurrently. A failure of any feed fails the whole
// fetch.
func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	if len(p.feeds) == 0 {
		return nil, ErrNoFeeds
	}

	feeds := pool.NewWithResults[[]Entry]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for _, feedURL := range p.feeds {
		feeds.Go(func(ctx context.Context) ([]Entry, error) {
			entries, err := p.fetcher.Fetch(ctx, feedURL, FetchOptions{Limit: p.limit})
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", feedURL, err)
			}
			return entries, nil
		})
	}
	results, err := feeds.Wait()
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	items := []core.Item{}
	for _, entries := range results {
		for _, entry := range entries {
			if term != "" && !matches(entry, term) {
				continue
			}
			items = append(items, core.Item{
				Source: core.SourceRSS.String(),
				Title:  core.TitleOrDefault(entry.Title),
				Link:   entry.Link,
				Date:   entry.PublishedAt,
			})
		}
	}
	return items, nil
}

// matches reports whether the lowercased term occurs in the entry's title or
// the text of its description.
func matches(entry Entry, term string) bool {
	if strings.Contains(strings.ToLower(entry.Title), term) {
		return true
	}
	return strings.Contains(strings.ToLower(PlainText(entry.Description)), term)
}
