package impl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bakkerme/api-aggregator/internal/retry"
	"github.com/bakkerme/api-aggregator/internal/sources/rss"
	"github.com/mmcdole/gofeed"
)

type Fetcher struct {
	parser *gofeed.Parser
	policy retry.Policy
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent
	return &Fetcher{
		parser: parser,
		policy: retry.Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string, options rss.FetchOptions) ([]rss.Entry, error) {
	var feed *gofeed.Feed
	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError && httpErr.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return entriesFromFeed(feed, options.Limit), nil
}

func entriesFromFeed(feed *gofeed.Feed, limit int) []rss.Entry {
	if feed == nil {
		return []rss.Entry{}
	}
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	entries := make([]rss.Entry, 0, limit)
	for _, item := range feed.Items {
		if len(entries) >= limit {
			break
		}
		if item == nil {
			continue
		}
		entry := rss.Entry{
			ID:          item.GUID,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}
		if entry.Description == "" {
			entry.Description = item.Content
		}
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			entry.PublishedAt = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			entry.PublishedAt = &t
		}
		entries = append(entries, entry)
	}
	return entries
}
