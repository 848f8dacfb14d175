package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/api-aggregator/internal/sources/rss"
)

// Fetcher serves canned entries per feed URL and records which feeds were read.
type Fetcher struct {
	EntriesByFeed map[string][]rss.Entry
	ErrByFeed     map[string]error

	mu      sync.Mutex
	fetched []string
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string, options rss.FetchOptions) ([]rss.Entry, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, feedURL)
	f.mu.Unlock()

	if err, ok := f.ErrByFeed[feedURL]; ok {
		return nil, err
	}
	entries := f.EntriesByFeed[feedURL]
	if options.Limit > 0 && len(entries) > options.Limit {
		return entries[:options.Limit], nil
	}
	return entries, nil
}

// Fetched returns the feed URLs read so far, in call order.
func (f *Fetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}
