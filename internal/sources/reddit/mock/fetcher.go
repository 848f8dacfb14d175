package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/api-aggregator/internal/sources/reddit"
)

type Fetcher struct {
	Posts []reddit.Post
	Err   error

	mu       sync.Mutex
	requests []reddit.Request
}

func (f *Fetcher) Fetch(ctx context.Context, req reddit.Request) ([]reddit.Post, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Posts, nil
}

// Requests returns every request received so far.
func (f *Fetcher) Requests() []reddit.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reddit.Request(nil), f.requests...)
}
