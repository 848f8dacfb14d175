// Package reddit adapts subreddit listings and searches into an aggregation
// provider.
package reddit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bakkerme/api-aggregator/internal/core"
)

// Config describes the reddit fetch configuration.
type Config struct {
	Subreddits []string
	Limit      int
	// Sort selects the listing used when no search term is given:
	// hot, new, rising or top.
	Sort       string
	TimeFilter string
	MinScore   int
}

// Request is one fetch against the configured subreddits. An empty Query
// reads the listing selected by Sort.
type Request struct {
	Config
	Query string
}

// Post represents a single reddit post.
type Post struct {
	ID        string
	Title     string
	URL       string
	Author    string
	Score     int
	CreatedAt *time.Time
}

// Fetcher retrieves reddit posts.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]Post, error)
}

var ErrNoSubreddits = errors.New("reddit: no subreddits configured")

type Provider struct {
	fetcher Fetcher
	config  Config
}

func New(fetcher Fetcher, cfg Config) *Provider {
	subs := make([]string, 0, len(cfg.Subreddits))
	for _, s := range cfg.Subreddits {
		s = strings.TrimPrefix(strings.TrimSpace(s), "r/")
		if s != "" {
			subs = append(subs, s)
		}
	}
	cfg.Subreddits = subs
	return &Provider{fetcher: fetcher, config: cfg}
}

func (p *Provider) Source() core.Source {
	return core.SourceReddit
}

func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	if len(p.config.Subreddits) == 0 {
		return nil, ErrNoSubreddits
	}
	posts, err := p.fetcher.Fetch(ctx, Request{Config: p.config, Query: strings.TrimSpace(searchTerm)})
	if err != nil {
		return nil, err
	}

	items := make([]core.Item, 0, len(posts))
	for _, post := range posts {
		if p.config.MinScore > 0 && post.Score < p.config.MinScore {
			continue
		}
		items = append(items, core.Item{
			Source: core.SourceReddit.String(),
			Title:  core.TitleOrDefault(post.Title),
			Link:   post.URL,
			Date:   post.CreatedAt,
		})
	}
	return items, nil
}
