package mock

import (
	"context"
	"sync/atomic"

	"github.com/bakkerme/api-aggregator/internal/core"
)

// Provider is an in-memory provider. FetchFunc, when set, takes precedence
// over Items and Err.
type Provider struct {
	ID        core.Source
	Items     []core.Item
	Err       error
	FetchFunc func(ctx context.Context, searchTerm string) ([]core.Item, error)

	calls    atomic.Int32
	lastTerm atomic.Value
}

func (p *Provider) Source() core.Source {
	return p.ID
}

func (p *Provider) Fetch(ctx context.Context, searchTerm string) ([]core.Item, error) {
	p.calls.Add(1)
	p.lastTerm.Store(searchTerm)
	if p.FetchFunc != nil {
		return p.FetchFunc(ctx, searchTerm)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Items, nil
}

// Calls returns how many times Fetch was invoked.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

// LastTerm returns the search term passed to the most recent Fetch.
func (p *Provider) LastTerm() string {
	v, _ := p.lastTerm.Load().(string)
	return v
}
